// Package tui is the terminal client: menu, cart, chat, checkout, payment
// and order history, all rendering the same shared cart.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"qtrestaurant/internal/auth"
	"qtrestaurant/internal/cart"
	"qtrestaurant/internal/chat"
	"qtrestaurant/internal/checkout"
	"qtrestaurant/internal/menu"
	"qtrestaurant/internal/orders"
)

type view string

const (
	viewLogin    view = "login"
	viewMenu     view = "menu"
	viewCart     view = "cart"
	viewChat     view = "chat"
	viewCheckout view = "checkout"
	viewPayment  view = "payment"
	viewOrders   view = "orders"
)

// tabs are reachable with the number keys outside text inputs.
var tabs = []struct {
	key   string
	view  view
	label string
}{
	{"1", viewMenu, "📋 Thực Đơn"},
	{"2", viewCart, "🛒 Giỏ Hàng"},
	{"3", viewChat, "💬 Trợ Lý"},
	{"4", viewCheckout, "💳 Đặt Bàn"},
	{"5", viewOrders, "📜 Đơn Hàng"},
}

// Deps are the services behind the surfaces.
type Deps struct {
	Catalog   *menu.Catalog
	Cart      *cart.Store
	Assistant *chat.Assistant
	Session   *auth.Session
	Checkout  func() *checkout.Wizard
	Payment   *checkout.Payment
	History   *orders.History
	ExportDir string
	Log       logrus.FieldLogger
}

// Model is the whole client state.
type Model struct {
	deps    Deps
	ctx     context.Context
	current view
	width   int
	height  int

	cart      cart.Snapshot
	menuList  list.Model
	cartTable table.Model
	chat      chatState
	checkout  checkoutState
	payment   paymentState
	history   historyState
	login     loginState
	spinner   spinner.Model
	loading   int
	status    string
	err       string
}

type cartChangedMsg struct {
	snap cart.Snapshot
}

type errMsg struct {
	err error
}

type statusMsg string

// NewModel builds the client. Guests without a live session start at login.
func NewModel(ctx context.Context, deps Deps) Model {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := Model{
		deps:      deps,
		ctx:       ctx,
		current:   viewMenu,
		menuList:  newMenuList(),
		cartTable: newCartTable(),
		chat:      newChatState(),
		login:     newLoginState(),
		spinner:   s,
	}
	if deps.Cart != nil {
		m = m.applyCart(deps.Cart.Snapshot())
	}
	if deps.Session != nil && !deps.Session.LoggedIn() {
		m.current = viewLogin
	}
	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	if m.current == viewLogin {
		return m.spinner.Tick
	}
	return tea.Batch(m.spinner.Tick, loadMenu(m.ctx, m.deps.Catalog))
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h, v := docStyle.GetFrameSize()
		m.menuList.SetSize(msg.Width-h, msg.Height-v-6)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case cartChangedMsg:
		if msg.snap.Version < m.cart.Version {
			return m, nil
		}
		return m.applyCart(msg.snap), nil

	case errMsg:
		m.status = ""
		m.err = errorText(msg.err)
		return m, nil

	case statusMsg:
		m.err = ""
		m.status = string(msg)
		return m, nil

	case menuLoadedMsg, chatReplyMsg, loggedInMsg, checkoutLoadedMsg, checkoutDoneMsg,
		paymentLoadedMsg, paymentDoneMsg, historyLoadedMsg, exportedMsg:
		return m.handleResult(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if !m.typing() {
			if msg.String() == "q" {
				return m, tea.Quit
			}
			for _, t := range tabs {
				if msg.String() == t.key && m.current != viewLogin {
					return m.switchTo(t.view)
				}
			}
		}
		if msg.String() == "esc" && m.current != viewLogin && m.current != viewMenu {
			return m.switchTo(viewMenu)
		}
	}

	switch m.current {
	case viewLogin:
		return m.updateLogin(msg)
	case viewMenu:
		return m.updateMenu(msg)
	case viewCart:
		return m.updateCart(msg)
	case viewChat:
		return m.updateChat(msg)
	case viewCheckout:
		return m.updateCheckout(msg)
	case viewPayment:
		return m.updatePayment(msg)
	case viewOrders:
		return m.updateOrders(msg)
	}
	return m, nil
}

func (m Model) handleResult(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case menuLoadedMsg:
		return m.onMenuLoaded(msg)
	case chatReplyMsg:
		return m.onChatReply(msg)
	case loggedInMsg:
		return m.onLoggedIn(msg)
	case checkoutLoadedMsg:
		return m.onCheckoutLoaded(msg)
	case checkoutDoneMsg:
		return m.onCheckoutDone(msg)
	case paymentLoadedMsg:
		return m.onPaymentLoaded(msg)
	case paymentDoneMsg:
		return m.onPaymentDone(msg)
	case historyLoadedMsg:
		return m.onHistoryLoaded(msg)
	case exportedMsg:
		return m.onExported(msg)
	}
	return m, nil
}

// typing reports whether keys go to a text input.
func (m Model) typing() bool {
	switch m.current {
	case viewLogin, viewChat, viewCheckout:
		return true
	case viewMenu:
		return m.menuList.FilterState() == list.Filtering
	}
	return false
}

func (m Model) switchTo(v view) (tea.Model, tea.Cmd) {
	m.current = v
	m.err = ""
	m.status = ""
	switch v {
	case viewChat:
		cmd := m.chat.input.Focus()
		return m, cmd
	case viewCheckout:
		return m.startCheckout()
	case viewPayment:
		return m, loadPayment(m.deps.Payment)
	case viewOrders:
		m.loading++
		return m, loadHistory(m.ctx, m.deps.History)
	}
	return m, nil
}

// applyCart makes every surface render snap.
func (m Model) applyCart(snap cart.Snapshot) Model {
	m.cart = snap
	m.cartTable.SetRows(cartRows(snap))
	if c := m.cartTable.Cursor(); c >= len(snap.Lines) && len(snap.Lines) > 0 {
		m.cartTable.SetCursor(len(snap.Lines) - 1)
	}
	return m
}

// View implements tea.Model
func (m Model) View() string {
	var body string
	switch m.current {
	case viewLogin:
		body = m.loginView()
	case viewMenu:
		body = m.menuView()
	case viewCart:
		body = m.cartView()
	case viewChat:
		body = m.chatView()
	case viewCheckout:
		body = m.checkoutView()
	case viewPayment:
		body = m.paymentView()
	case viewOrders:
		body = m.ordersView()
	default:
		body = "Đang tải..."
	}

	var b strings.Builder
	if m.current != viewLogin {
		b.WriteString(m.header())
		b.WriteString("\n\n")
	}
	b.WriteString(body)
	if m.loading > 0 {
		b.WriteString("\n" + m.spinner.View() + " Đang xử lý...")
	}
	if m.err != "" {
		b.WriteString("\n" + errorStyle.Render(m.err))
	}
	if m.status != "" {
		b.WriteString("\n" + successStyle.Render(m.status))
	}
	return docStyle.Render(b.String())
}

func (m Model) header() string {
	parts := make([]string, 0, len(tabs)+1)
	for _, t := range tabs {
		label := t.key + " " + t.label
		if t.view == viewCart {
			label = fmt.Sprintf("%s (%d)", label, m.cart.Count())
		}
		if t.view == m.current {
			parts = append(parts, activeTab.Render(label))
		} else {
			parts = append(parts, inactiveTab.Render(label))
		}
	}
	return titleStyle.Render("🍽️ Nhà Hàng QT") + " " + lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func errorText(err error) string {
	return checkout.Message(err)
}

// Run starts the client and keeps every surface subscribed to the cart
// until the program exits.
func Run(ctx context.Context, deps Deps) error {
	p := tea.NewProgram(NewModel(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx))

	if deps.Cart != nil {
		unsubscribe := deps.Cart.Subscribe(func(snap cart.Snapshot) {
			go p.Send(cartChangedMsg{snap: snap})
		})
		defer unsubscribe()
	}

	_, err := p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
