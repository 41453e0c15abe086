package model

// Question represents a single aptitude question.
type Question struct {
	ID            int      `json:"id"`
	Prompt        string   `json:"prompt"`
	Choices       []string `json:"choices"`
	CorrectChoice int      `json:"-"`
}

// PublicQuestion is a Question as served to test-takers, with the
// correct choice stripped.
type PublicQuestion struct {
	ID      int      `json:"id"`
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices"`
}

// Public returns the question without its answer key.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Prompt: q.Prompt, Choices: q.Choices}
}

// DefaultQuestions is the fixed aptitude question set. Loaded once,
// never mutated.
func DefaultQuestions() []Question {
	return []Question{
		{
			ID:            1,
			Prompt:        "What is 8 * 7?",
			Choices:       []string{"54", "56", "58", "62"},
			CorrectChoice: 1,
		},
		{
			ID:            2,
			Prompt:        "Which is a prime number?",
			Choices:       []string{"21", "25", "29", "27"},
			CorrectChoice: 2,
		},
		{
			ID:            3,
			Prompt:        "Choose the synonym of 'rapid'",
			Choices:       []string{"slow", "quick", "dull", "calm"},
			CorrectChoice: 1,
		},
		{
			ID:            4,
			Prompt:        "Which completes the sequence: 2,4,8,16,?",
			Choices:       []string{"20", "24", "32", "30"},
			CorrectChoice: 2,
		},
		{
			ID:            5,
			Prompt:        "General knowledge: The capital of France is?",
			Choices:       []string{"Berlin", "Madrid", "Rome", "Paris"},
			CorrectChoice: 3,
		},
	}
}
