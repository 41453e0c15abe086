// Package scoring grades an answer vector against the fixed question
// set and assigns the placement batch. Both functions are pure and
// total: they cannot fail.
package scoring

import (
	"math"

	"github.com/talentbridge/aptitude-backend/internal/model"
)

// Score returns the percentage of correctly answered questions,
// rounded to the nearest integer. Unanswered positions never match.
func Score(answers model.AnswerVector, questions []model.Question) int {
	if len(questions) == 0 {
		return 0
	}

	correct := 0
	for i, q := range questions {
		if choice, ok := answers.Choice(i); ok && choice == q.CorrectChoice {
			correct++
		}
	}

	return int(math.Round(float64(correct) / float64(len(questions)) * 100))
}

// BatchFor maps a score percentage to its placement batch.
func BatchFor(score int) model.Batch {
	switch {
	case score >= 80:
		return model.BatchHigh
	case score >= 50:
		return model.BatchIntermediate
	default:
		return model.BatchBeginner
	}
}
