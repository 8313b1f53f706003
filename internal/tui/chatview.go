package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"qtrestaurant/internal/chat"
	"qtrestaurant/internal/models"
)

type chatState struct {
	input   textinput.Model
	pending int
}

type chatReplyMsg struct {
	out chat.Outcome
}

func newChatState() chatState {
	ti := textinput.New()
	ti.Placeholder = "Nhập tin nhắn..."
	ti.CharLimit = 500
	ti.Width = 60
	return chatState{input: ti}
}

func ask(ctx context.Context, a *chat.Assistant, text string) tea.Cmd {
	return func() tea.Msg {
		return chatReplyMsg{out: a.Ask(ctx, text)}
	}
}

func (m Model) updateChat(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		text := strings.TrimSpace(m.chat.input.Value())
		if text == "" || m.deps.Assistant == nil {
			return m, nil
		}
		m.chat.input.SetValue("")
		m.chat.pending++
		m.loading++
		return m, ask(m.ctx, m.deps.Assistant, text)
	}

	var cmd tea.Cmd
	m.chat.input, cmd = m.chat.input.Update(msg)
	return m, cmd
}

func (m Model) onChatReply(msg chatReplyMsg) (tea.Model, tea.Cmd) {
	if m.chat.pending > 0 {
		m.chat.pending--
	}
	if m.loading > 0 {
		m.loading--
	}
	if msg.out.Err != nil {
		m.err = errorText(msg.out.Err)
	}
	return m, nil
}

func (m Model) chatView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Trợ Lý Nhà Hàng QT"))
	b.WriteString("\n\n")

	var messages []chat.Message
	if m.deps.Assistant != nil {
		messages = m.deps.Assistant.Messages()
	}
	for _, msg := range messages {
		b.WriteString(renderChatMessage(msg))
		b.WriteString("\n")
	}
	if m.chat.pending > 0 {
		b.WriteString(m.spinner.View() + mutedStyle.Render(" Đang soạn trả lời..."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.chat.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: gửi • esc: về thực đơn"))
	return b.String()
}

func renderChatMessage(msg chat.Message) string {
	if msg.Role == models.RoleUser {
		return userBubble.Render(msg.Text)
	}

	out := botBubble.Render(msg.Text)
	if msg.Fallback {
		out += " " + mutedStyle.Render("(trả lời tự động)")
	}
	if msg.Stale {
		out += " " + mutedStyle.Render("(trả lời cho tin nhắn trước)")
	}
	if len(msg.Added) > 0 {
		names := make([]string, 0, len(msg.Added))
		for _, it := range msg.Added {
			names = append(names, it.Name)
		}
		out += "\n" + successStyle.Render("✓ Đã thêm vào giỏ: "+strings.Join(names, ", "))
	}
	return out
}
