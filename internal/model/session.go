package model

// Batch enumerates placement tiers derived from the final score.
type Batch string

const (
	BatchBeginner     Batch = "Beginner"
	BatchIntermediate Batch = "Intermediate"
	BatchHigh         Batch = "High"
)

// TerminationReason records how a session ended.
type TerminationReason string

const (
	TerminationManual    TerminationReason = "manual"
	TerminationViolation TerminationReason = "violation"
)

// AnswerVector maps question index to chosen choice index. Entries are
// nullable so the vector stays sparse until every question is answered;
// on the wire it is a plain JSON array, e.g. [1,null,2].
type AnswerVector []*int

// Choice returns the chosen index for question i, if any.
func (a AnswerVector) Choice(i int) (int, bool) {
	if i < 0 || i >= len(a) || a[i] == nil {
		return 0, false
	}
	return *a[i], true
}

// Set records a choice for question i, growing the vector as needed.
func (a AnswerVector) Set(i, choice int) AnswerVector {
	for len(a) <= i {
		a = append(a, nil)
	}
	c := choice
	a[i] = &c
	return a
}

// SessionMeta carries auxiliary submission info.
type SessionMeta struct {
	Reason TerminationReason `json:"reason"`
}

// SessionRecord is the immutable outcome of a finished session.
type SessionRecord struct {
	Answers   AnswerVector `json:"answers"`
	Score     int          `json:"score"`
	Batch     Batch        `json:"batch"`
	Violation *string      `json:"violation"`
	Meta      SessionMeta  `json:"meta"`
}

// SubmitResultRequest is the JSON submission payload.
type SubmitResultRequest struct {
	Score     int          `json:"score" binding:"min=0,max=100"`
	Batch     string       `json:"batch" binding:"required,oneof=Beginner Intermediate High"`
	Violation *string      `json:"violation"`
	Answers   AnswerVector `json:"answers" binding:"required"`
	Meta      SessionMeta  `json:"meta"`
}

// Record converts a validated submission into a SessionRecord.
func (r SubmitResultRequest) Record() SessionRecord {
	return SessionRecord{
		Answers:   r.Answers,
		Score:     r.Score,
		Batch:     Batch(r.Batch),
		Violation: r.Violation,
		Meta:      r.Meta,
	}
}
