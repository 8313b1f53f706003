package proxy

import (
	"strings"

	"github.com/pkg/errors"

	"qtrestaurant/internal/intent"
)

// Fallback reason codes reported in the reply's error field.
const (
	ReasonInvalidRequest    = "invalid_request"
	ReasonEmptyMessage      = "empty_message"
	ReasonProviderError     = "provider_error"
	ReasonTimeout           = "timeout"
	ReasonInvalidCompletion = "invalid_completion"
	ReasonInternal          = "internal_error"
)

// ParseCompletion validates a model completion and converts it to the
// canonical reply. A reply without an add_to_cart action carries no items.
func ParseCompletion(raw string) (intent.Reply, error) {
	raw = stripCodeFence(raw)
	if raw == "" {
		return intent.Reply{}, errors.Wrap(intent.ErrInvalidReply, "empty completion")
	}

	reply, err := intent.Decode([]byte(raw))
	if err != nil {
		return intent.Reply{}, err
	}

	reply.Fallback = false
	reply.Error = ""
	if reply.Action != intent.ActionAddToCart {
		reply.Items = []string{}
	}
	return reply, nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add even in
// JSON mode. Anything else is left for the decoder to reject.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	s = strings.TrimPrefix(strings.TrimLeft(s, " "), "json")
	return strings.TrimSpace(s)
}
