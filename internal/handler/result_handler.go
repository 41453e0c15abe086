package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"
	"github.com/talentbridge/aptitude-backend/internal/model"
	"github.com/talentbridge/aptitude-backend/internal/repository"
	"github.com/talentbridge/aptitude-backend/internal/response"
	"github.com/talentbridge/aptitude-backend/internal/service"
	"github.com/talentbridge/aptitude-backend/internal/store"
	"github.com/talentbridge/aptitude-backend/internal/validator"
)

// ResultService is the persistence surface the handler depends on.
// Satisfied by *service.Gateway.
type ResultService interface {
	Persist(ctx context.Context, record model.SessionRecord, attachment *model.Attachment) model.PersistedResult
	Lookup(ctx context.Context, id string) (*model.StoredResult, error)
}

// ResultHandler handles result submission and retrieval endpoints.
type ResultHandler struct {
	gateway        ResultService
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(gateway ResultService, maxUploadBytes int64, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		gateway:        gateway,
		maxUploadBytes: maxUploadBytes,
		log:            log.With().Str("component", "result_handler").Logger(),
	}
}

// SubmitResult godoc
// POST /api/v1/aptitude
// Accepts a finished test result as a raw JSON body or as multipart
// form data (a "result" JSON field plus an optional "resume" file).
// Persistence never fails the request: primary-store outages resolve
// to a fallback id instead of an error.
func (h *ResultHandler) SubmitResult(c *gin.Context) {
	contentType := c.GetHeader("Content-Type")

	var (
		req        model.SubmitResultRequest
		attachment *model.Attachment
	)

	if strings.HasPrefix(contentType, "multipart/form-data") {
		raw := c.PostForm("result")
		if raw == "" {
			response.Fail(c, http.StatusBadRequest, response.ErrResultRequired)
			return
		}
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		if err := binding.Validator.ValidateStruct(&req); err != nil {
			response.FailWithMessage(c, http.StatusBadRequest, validationMessage(validator.TranslateErrors(err)))
			return
		}

		att, err := h.readResume(c)
		if err != nil {
			if errors.Is(err, service.ErrFileTooLarge) {
				response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
			} else {
				response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			}
			return
		}
		attachment = att
	} else {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithMessage(c, http.StatusBadRequest, validationMessage(fields))
			return
		}
	}

	result := h.gateway.Persist(c.Request.Context(), req.Record(), attachment)
	response.Saved(c, http.StatusOK, result)
}

// readResume extracts the optional resume file from a multipart form.
// A missing file is not an error.
func (h *ResultHandler) readResume(c *gin.Context) (*model.Attachment, error) {
	file, header, err := c.Request.FormFile("resume")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		return nil, service.ErrFileTooLarge
	}

	// A zero cap means unlimited, matching AttachmentStore.Save.
	var reader io.Reader = file
	if h.maxUploadBytes > 0 {
		reader = io.LimitReader(file, h.maxUploadBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if h.maxUploadBytes > 0 && int64(len(data)) > h.maxUploadBytes {
		return nil, service.ErrFileTooLarge
	}

	return &model.Attachment{Name: header.Filename, Data: data}, nil
}

// GetResult godoc
// GET /api/v1/aptitude/:id
// Retrieves a stored result by its primary or fallback id.
func (h *ResultHandler) GetResult(c *gin.Context) {
	result, err := h.lookup(c)
	if err != nil {
		return
	}
	response.Success(c, http.StatusOK, result)
}

// ExportResult godoc
// GET /api/v1/aptitude/:id/export
// Packages a stored result into a downloadable ZIP archive.
func (h *ResultHandler) ExportResult(c *gin.Context) {
	result, err := h.lookup(c)
	if err != nil {
		return
	}

	archive, err := service.BuildExportArchive(result)
	if err != nil {
		h.log.Error().Err(err).Str("id", result.ID).Msg("Export build failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+service.ExportFilename+`"`)
	c.Data(http.StatusOK, "application/zip", archive)
}

// lookup resolves the :id path parameter against both stores and
// writes the error response itself on failure.
func (h *ResultHandler) lookup(c *gin.Context) (*model.StoredResult, error) {
	id := c.Param("id")
	result, err := h.gateway.Lookup(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound), errors.Is(err, store.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			h.log.Error().Err(err).Str("id", id).Msg("Result lookup failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return nil, err
	}
	return result, nil
}

// validationMessage flattens a field error map into one deterministic line.
func validationMessage(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fields[k]))
	}
	return strings.Join(parts, "; ")
}
