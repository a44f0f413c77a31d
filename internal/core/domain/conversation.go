package domain

// Exchange is one completed (question, answer) pair in a session's history.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
