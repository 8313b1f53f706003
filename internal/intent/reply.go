// Package intent holds the canonical chat reply contract shared by the chat
// proxy and its clients, plus the adapter that folds legacy reply shapes
// (`reply` instead of `text`, singular comma-joined `item`) into it.
package intent

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Action is what the assistant asks the client to do with the reply.
type Action string

const (
	// ActionNone means the reply is conversational only.
	ActionNone Action = ""
	// ActionAddToCart asks the client to add Items to the cart.
	ActionAddToCart Action = "add_to_cart"
)

// ErrInvalidReply is returned when a payload cannot be read as a chat reply.
var ErrInvalidReply = errors.New("invalid chat reply")

// Reply is the single internal chat contract: {text, action, items, fallback}.
type Reply struct {
	Text     string
	Action   Action
	Items    []string
	Fallback bool
	// Error carries a short reason code on fallback replies.
	Error string
}

// AddsToCart reports whether the reply carries dishes to add.
func (r Reply) AddsToCart() bool {
	return r.Action == ActionAddToCart && len(r.Items) > 0
}

// FallbackReply builds the degraded reply used whenever the model path fails.
func FallbackReply(text, reason string) Reply {
	return Reply{
		Text:     text,
		Action:   ActionNone,
		Items:    []string{},
		Fallback: true,
		Error:    reason,
	}
}

type wireReply struct {
	Text     string   `json:"text"`
	Action   *Action  `json:"action"`
	Items    []string `json:"items"`
	Fallback bool     `json:"fallback"`
	Error    string   `json:"error,omitempty"`
}

// MarshalJSON writes the canonical shape; action is null when empty and
// items is never null.
func (r Reply) MarshalJSON() ([]byte, error) {
	w := wireReply{
		Text:     r.Text,
		Items:    r.Items,
		Fallback: r.Fallback,
		Error:    r.Error,
	}
	if w.Items == nil {
		w.Items = []string{}
	}
	if r.Action != ActionNone {
		a := r.Action
		w.Action = &a
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts every known reply shape.
func (r *Reply) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

type looseReply struct {
	Text     json.RawMessage `json:"text"`
	Reply    json.RawMessage `json:"reply"`
	Action   json.RawMessage `json:"action"`
	Items    json.RawMessage `json:"items"`
	Item     json.RawMessage `json:"item"`
	Fallback bool            `json:"fallback"`
	Error    json.RawMessage `json:"error"`
}

// Decode reads a reply from any producer generation. It fails only when the
// payload is not a JSON object or carries no usable text.
func Decode(data []byte) (Reply, error) {
	var loose looseReply
	if err := json.Unmarshal(bytes.TrimSpace(data), &loose); err != nil {
		return Reply{}, errors.Wrap(ErrInvalidReply, err.Error())
	}

	text, ok := rawString(loose.Text)
	if !ok || strings.TrimSpace(text) == "" {
		text, ok = rawString(loose.Reply)
	}
	if !ok || strings.TrimSpace(text) == "" {
		return Reply{}, errors.Wrap(ErrInvalidReply, "missing text")
	}

	items := rawNames(loose.Items)
	if len(items) == 0 {
		items = rawNames(loose.Item)
	}

	reply := Reply{
		Text:     strings.TrimSpace(text),
		Action:   parseAction(loose.Action),
		Items:    items,
		Fallback: loose.Fallback,
		Error:    rawError(loose.Error),
	}
	return reply, nil
}

// SplitNames breaks a legacy comma-joined dish list into trimmed names.
func SplitNames(s string) []string {
	parts := strings.Split(s, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

func parseAction(raw json.RawMessage) Action {
	s, ok := rawString(raw)
	if !ok {
		return ActionNone
	}
	if Action(strings.ToLower(strings.TrimSpace(s))) == ActionAddToCart {
		return ActionAddToCart
	}
	return ActionNone
}

// rawNames reads either an array of names or a single (possibly
// comma-joined) string.
func rawNames(raw json.RawMessage) []string {
	names := []string{}
	if len(raw) == 0 {
		return names
	}

	if s, ok := rawString(raw); ok {
		return SplitNames(s)
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return names
	}
	for _, el := range list {
		s, ok := rawString(el)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			names = append(names, s)
		}
	}
	return names
}

func rawString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func rawError(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if s, ok := rawString(raw); ok {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}
