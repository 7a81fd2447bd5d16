package models

// Question is an immutable trivia item. Answers holds every acceptable
// spelling; Answers[0] is the canonical form shown to players.
type Question struct {
	ID       string   `json:"id" yaml:"id"`
	Category string   `json:"category" yaml:"category"`
	Question string   `json:"question" yaml:"question"`
	Answers  []string `json:"answers" yaml:"answers"`
}

// Canonical returns the displayed answer, or "" for a malformed question.
func (q Question) Canonical() string {
	if len(q.Answers) == 0 {
		return ""
	}
	return q.Answers[0]
}
