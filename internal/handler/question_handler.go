package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/talentbridge/aptitude-backend/internal/model"
	"github.com/talentbridge/aptitude-backend/internal/response"
)

// QuestionHandler serves the test question bank.
type QuestionHandler struct {
	questions []model.Question
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questions []model.Question) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

// ListQuestions godoc
// GET /api/v1/aptitude/questions
// Returns the question bank with correct answers stripped.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	public := make([]model.PublicQuestion, 0, len(h.questions))
	for _, q := range h.questions {
		public = append(public, q.Public())
	}
	response.Success(c, http.StatusOK, gin.H{"questions": public})
}
