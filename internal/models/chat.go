package models

// Chat roles accepted in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one message of the rolling conversation window.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LastTurns keeps the most recent n turns with a known role and non-empty content.
func LastTurns(turns []ChatTurn, n int) []ChatTurn {
	kept := make([]ChatTurn, 0, len(turns))
	for _, t := range turns {
		if t.Role != RoleUser && t.Role != RoleAssistant {
			continue
		}
		if t.Content == "" {
			continue
		}
		kept = append(kept, t)
	}
	if n <= 0 {
		return []ChatTurn{}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return kept
}
