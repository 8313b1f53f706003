package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"qtrestaurant/internal/checkout"
	"qtrestaurant/internal/models"
)

type paymentState struct {
	pending models.PendingPayment
	ok      bool
	instr   checkout.Instructions
}

type paymentLoadedMsg struct {
	pending models.PendingPayment
	ok      bool
	err     error
}

type paymentDoneMsg struct {
	err error
}

func loadPayment(p *checkout.Payment) tea.Cmd {
	return func() tea.Msg {
		if p == nil {
			return paymentLoadedMsg{}
		}
		pending, ok, err := p.Pending()
		return paymentLoadedMsg{pending: pending, ok: ok, err: err}
	}
}

func (m Model) onPaymentLoaded(msg paymentLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = errorText(msg.err)
	}
	m.payment = paymentState{pending: msg.pending, ok: msg.ok}
	if msg.ok && m.deps.Payment != nil {
		m.payment.instr = m.deps.Payment.Instructions(msg.pending)
	}
	return m, nil
}

func (m Model) updatePayment(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || !m.payment.ok || m.deps.Payment == nil {
		return m, nil
	}
	p := m.deps.Payment
	switch key.String() {
	case "y", "enter":
		m.loading++
		ctx := m.ctx
		return m, func() tea.Msg {
			return paymentDoneMsg{err: p.Confirm(ctx)}
		}
	case "b", "backspace":
		if err := p.Back(); err != nil {
			m.err = errorText(err)
			return m, nil
		}
		return m.switchTo(viewCheckout)
	}
	return m, nil
}

func (m Model) onPaymentDone(msg paymentDoneMsg) (tea.Model, tea.Cmd) {
	if m.loading > 0 {
		m.loading--
	}
	if msg.err != nil {
		m.err = errorText(msg.err)
		return m, nil
	}
	next, cmd := m.switchTo(viewOrders)
	nm := next.(Model)
	nm.payment = paymentState{}
	nm.status = "Thanh Toán Thành Công!"
	return nm, cmd
}

func (m Model) paymentView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("💳 Thanh Toán"))
	b.WriteString("\n\n")
	if !m.payment.ok {
		b.WriteString(checkout.ErrNoPendingPayment.Error())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("1: quay lại Thực đơn"))
		return b.String()
	}

	in := m.payment.instr
	b.WriteString("Phương thức: " + in.Method + "\n\n")
	if in.QRCode != "" {
		b.WriteString("📱 Quét Mã QR Để Thanh Toán\n")
		b.WriteString(in.QRCode + "\n")
		b.WriteString(mutedStyle.Render("Sử dụng ứng dụng Ngân hàng để quét mã QR và thanh toán tự động."))
		b.WriteString("\n\n")
	}
	if in.MomoInfo != "" {
		b.WriteString("🔴 Thanh Toán Qua Momo\n")
		b.WriteString(in.MomoInfo + "\n")
		b.WriteString("Nội dung chuyển: " + in.Note + "\n\n")
	}
	b.WriteString(infoStyle.Render("Tổng thanh toán: " + in.Amount))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("y: tôi đã thanh toán • b: quay lại"))
	return b.String()
}
