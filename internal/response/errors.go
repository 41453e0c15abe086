package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrResultRequired ErrCode = "RESULT_FIELD_REQUIRED"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileTooLarge ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidPayload:
		return "Invalid body"
	case ErrResultRequired:
		return "The result form field is required"
	case ErrNotFound:
		return "Result not found"
	case ErrFileTooLarge:
		return "File size exceeds the limit"
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later"
	case ErrInternal:
		return "An internal server error occurred"
	default:
		return "An unexpected error occurred"
	}
}
