package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"qtrestaurant/internal/auth"
	"qtrestaurant/internal/backend"
	"qtrestaurant/internal/models"
)

type loginState struct {
	username textinput.Model
	password textinput.Model
}

type loggedInMsg struct {
	user models.User
	err  error
}

func newLoginState() loginState {
	u := textinput.New()
	u.Placeholder = "Nhập tên đăng nhập"
	u.CharLimit = 64
	u.Focus()

	p := textinput.New()
	p.Placeholder = "Nhập mật khẩu"
	p.CharLimit = 64
	p.EchoMode = textinput.EchoPassword
	p.EchoCharacter = '•'

	return loginState{username: u, password: p}
}

func login(ctx context.Context, s *auth.Session, username, password string) tea.Cmd {
	return func() tea.Msg {
		if err := s.Login(ctx, username, password); err != nil {
			return loggedInMsg{err: err}
		}
		u, err := s.Refresh(ctx)
		return loggedInMsg{user: u, err: err}
	}
}

func (m Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "shift+tab", "up", "down":
			var cmd tea.Cmd
			if m.login.username.Focused() {
				m.login.username.Blur()
				cmd = m.login.password.Focus()
			} else {
				m.login.password.Blur()
				cmd = m.login.username.Focus()
			}
			return m, cmd
		case "enter":
			if m.deps.Session == nil {
				return m, nil
			}
			m.loading++
			return m, login(m.ctx, m.deps.Session, strings.TrimSpace(m.login.username.Value()), m.login.password.Value())
		}
	}

	var cmd tea.Cmd
	if m.login.username.Focused() {
		m.login.username, cmd = m.login.username.Update(msg)
	} else {
		m.login.password, cmd = m.login.password.Update(msg)
	}
	return m, cmd
}

func (m Model) onLoggedIn(msg loggedInMsg) (tea.Model, tea.Cmd) {
	if m.loading > 0 {
		m.loading--
	}
	if msg.err != nil {
		m.err = authError(msg.err)
		return m, nil
	}
	m.login.password.SetValue("")
	m.current = viewMenu
	m.err = ""
	m.status = "Xin chào " + displayName(msg.user)
	return m, loadMenu(m.ctx, m.deps.Catalog)
}

func authError(err error) string {
	if errors.Is(err, auth.ErrNoToken) {
		return auth.LoginFailed
	}
	return backend.Message(err, auth.LoginFailed)
}

func displayName(u models.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

func (m Model) loginView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("🍽️ Nhà Hàng QT"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("Đặt Bàn & Chọn Món Trực Tuyến"))
	b.WriteString("\n\n")
	b.WriteString("Tên đăng nhập\n")
	b.WriteString(m.login.username.View())
	b.WriteString("\n\nMật khẩu\n")
	b.WriteString(m.login.password.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("tab: đổi ô • enter: đăng nhập • ctrl+c: thoát"))
	return b.String()
}
