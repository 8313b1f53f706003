package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"qtrestaurant/internal/cart"
	"qtrestaurant/internal/intent"
	"qtrestaurant/internal/models"
)

// Greeting opens every conversation.
const Greeting = "Xin chào! 👋 Tôi là trợ lý AI của Nhà Hàng QT. Tôi có thể giúp bạn tư vấn về thực đơn, đặt bàn, thanh toán, hoặc bất kỳ câu hỏi nào khác. Bạn cần giúp gì?"

// MenuLoader returns the authoritative menu and grounds dish names in it.
// *menu.Catalog satisfies it.
type MenuLoader interface {
	Load(ctx context.Context) ([]models.MenuItem, error)
	Resolve(candidates []string) []models.MenuItem
}

// Message is one entry of the chat window.
type Message struct {
	Role     string
	Text     string
	Fallback bool
	Stale    bool
	Added    []models.MenuItem
	At       time.Time
}

// Outcome is the result of one Ask.
type Outcome struct {
	Generation uint64
	Reply      intent.Reply
	Added      []models.MenuItem
	// Stale is set when the reply to a newer message arrived first; stale
	// replies are never applied to the cart.
	Stale bool
	Err   error
}

// Assistant runs the chat-to-cart pipeline: send, resolve, add.
type Assistant struct {
	sender       Sender
	menu         MenuLoader
	cart         *cart.Store
	historyLimit int
	log          logrus.FieldLogger

	mu         sync.Mutex
	generation uint64
	answered   uint64
	turns      []models.ChatTurn
	messages   []Message
}

// NewAssistant wires the pipeline.
func NewAssistant(sender Sender, menu MenuLoader, store *cart.Store, historyLimit int, log logrus.FieldLogger) *Assistant {
	if historyLimit <= 0 {
		historyLimit = 4
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Assistant{
		sender:       sender,
		menu:         menu,
		cart:         store,
		historyLimit: historyLimit,
		log:          log.WithField("component", "assistant"),
		messages: []Message{{
			Role: models.RoleAssistant,
			Text: Greeting,
			At:   time.Now(),
		}},
	}
}

// Ask sends text and applies an add_to_cart reply unless it went stale.
// Blank input is ignored.
func (a *Assistant) Ask(ctx context.Context, text string) Outcome {
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{}
	}

	a.mu.Lock()
	a.generation++
	gen := a.generation
	history := models.LastTurns(a.turns, a.historyLimit)
	a.turns = append(a.turns, models.ChatTurn{Role: models.RoleUser, Content: text})
	a.messages = append(a.messages, Message{Role: models.RoleUser, Text: text, At: time.Now()})
	a.mu.Unlock()

	var cartEntries []models.CartEntry
	if a.cart != nil {
		cartEntries = models.CartEntries(a.cart.Lines())
	}

	reply := a.sender.Send(ctx, text, history, cartEntries)
	out := Outcome{Generation: gen, Reply: reply}

	a.mu.Lock()
	out.Stale = gen <= a.answered
	if !out.Stale {
		a.answered = gen
	}
	a.mu.Unlock()

	if !out.Stale && reply.AddsToCart() && a.cart != nil {
		out.Added, out.Err = a.apply(ctx, reply.Items)
	} else if out.Stale {
		a.log.WithField("generation", gen).Debug("stale reply not applied")
	}

	a.mu.Lock()
	a.turns = append(a.turns, models.ChatTurn{Role: models.RoleAssistant, Content: reply.Text})
	a.messages = append(a.messages, Message{
		Role:     models.RoleAssistant,
		Text:     reply.Text,
		Fallback: reply.Fallback,
		Stale:    out.Stale,
		Added:    out.Added,
		At:       time.Now(),
	})
	a.mu.Unlock()

	return out
}

func (a *Assistant) apply(ctx context.Context, names []string) ([]models.MenuItem, error) {
	if _, err := a.menu.Load(ctx); err != nil {
		a.log.WithError(err).Warn("menu unavailable, nothing added")
		return nil, nil
	}

	resolved := a.menu.Resolve(names)
	if len(resolved) < len(names) {
		a.log.WithFields(logrus.Fields{
			"requested": len(names),
			"resolved":  len(resolved),
		}).Debug("some dishes did not match the menu")
	}
	if len(resolved) == 0 {
		return nil, nil
	}

	if err := a.cart.AddAll(resolved); err != nil {
		return nil, err
	}
	return resolved, nil
}

// Messages returns the chat window.
func (a *Assistant) Messages() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Message, len(a.messages))
	copy(out, a.messages)
	return out
}
