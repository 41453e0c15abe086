package response

import (
	"github.com/gin-gonic/gin"
	"github.com/talentbridge/aptitude-backend/internal/model"
)

// SavedBody is the submission response contract: a success flag, the
// issued id, and a fallback marker when the local store was used.
type SavedBody struct {
	Success  bool   `json:"success"`
	ID       string `json:"id"`
	Fallback bool   `json:"fallback,omitempty"`
}

// ErrorBody is the error response contract.
type ErrorBody struct {
	Error string `json:"error"`
}

// Saved sends the persistence outcome for a submission.
func Saved(c *gin.Context, statusCode int, result model.PersistedResult) {
	c.JSON(statusCode, SavedBody{
		Success:  true,
		ID:       result.ID,
		Fallback: result.Fallback,
	})
}

// Success sends a successful JSON response with the given payload.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// Fail sends an error response for the given error code.
func Fail(c *gin.Context, statusCode int, code ErrCode) {
	c.JSON(statusCode, ErrorBody{Error: GetMessage(code)})
}

// FailWithMessage sends an error response with a specific message.
func FailWithMessage(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorBody{Error: message})
}

// AbortFail aborts the middleware chain and sends an error response.
func AbortFail(c *gin.Context, statusCode int, code ErrCode) {
	c.AbortWithStatusJSON(statusCode, ErrorBody{Error: GetMessage(code)})
}
