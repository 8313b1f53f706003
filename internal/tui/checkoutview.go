package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"qtrestaurant/internal/checkout"
	"qtrestaurant/internal/models"
)

const (
	fieldName = iota
	fieldPhone
	fieldParty
	fieldTime
	fieldTable
	fieldNotes
	fieldCount
)

var fieldLabels = [fieldCount]string{"Họ tên", "Số điện thoại", "Số người", "Thời gian (YYYY-MM-DDTHH:MM)", "Bàn số", "Ghi chú"}

var methods = []models.PaymentMethod{models.PaymentQRCode, models.PaymentBank, models.PaymentMomo, models.PaymentCash}

type checkoutState struct {
	wizard *checkout.Wizard
	step   checkout.Step
	inputs []textinput.Model
	focus  int
	tables []models.Table
	method models.PaymentMethod
}

type checkoutLoadedMsg struct {
	err error
}

type checkoutDoneMsg struct {
	res checkout.Result
	err error
}

func newCheckoutState(w *checkout.Wizard) checkoutState {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.Placeholder = fieldLabels[i]
		ti.CharLimit = 100
		ti.Width = 40
		inputs[i] = ti
	}
	inputs[fieldName].Focus()
	return checkoutState{
		wizard: w,
		step:   checkout.StepCollectingInfo,
		inputs: inputs,
		method: models.PaymentQRCode,
	}
}

func (m Model) startCheckout() (tea.Model, tea.Cmd) {
	if m.deps.Checkout == nil {
		return m, nil
	}
	w := m.deps.Checkout()
	m.checkout = newCheckoutState(w)
	m.loading++
	ctx := m.ctx
	return m, func() tea.Msg {
		return checkoutLoadedMsg{err: w.Load(ctx)}
	}
}

func (m Model) onCheckoutLoaded(msg checkoutLoadedMsg) (tea.Model, tea.Cmd) {
	if m.loading > 0 {
		m.loading--
	}
	if msg.err != nil {
		m.err = errorText(msg.err)
		return m, nil
	}
	w := m.checkout.wizard
	f := w.Form()
	m.checkout.tables = w.Tables()
	m.checkout.inputs[fieldName].SetValue(f.CustomerName)
	m.checkout.inputs[fieldPhone].SetValue(f.CustomerPhone)
	m.checkout.inputs[fieldParty].SetValue(strconv.Itoa(f.PartySize))
	m.checkout.inputs[fieldTime].SetValue(f.ReservationTime)
	if f.TableID != 0 {
		m.checkout.inputs[fieldTable].SetValue(strconv.Itoa(f.TableID))
	}
	m.checkout.inputs[fieldNotes].SetValue(f.Notes)
	return m, nil
}

func (m Model) formFromInputs() checkout.Form {
	in := m.checkout.inputs
	party, _ := strconv.Atoi(strings.TrimSpace(in[fieldParty].Value()))
	table, _ := strconv.Atoi(strings.TrimSpace(in[fieldTable].Value()))
	return checkout.Form{
		CustomerName:    strings.TrimSpace(in[fieldName].Value()),
		CustomerPhone:   strings.TrimSpace(in[fieldPhone].Value()),
		PartySize:       party,
		ReservationTime: strings.TrimSpace(in[fieldTime].Value()),
		TableID:         table,
		Notes:           in[fieldNotes].Value(),
	}
}

func (m Model) focusField(i int) Model {
	m.checkout.inputs[m.checkout.focus].Blur()
	m.checkout.focus = (i + fieldCount) % fieldCount
	m.checkout.inputs[m.checkout.focus].Focus()
	return m
}

func (m Model) updateCheckout(msg tea.Msg) (tea.Model, tea.Cmd) {
	w := m.checkout.wizard
	if w == nil {
		return m, nil
	}
	key, isKey := msg.(tea.KeyMsg)

	switch m.checkout.step {
	case checkout.StepCollectingInfo:
		if isKey {
			switch key.String() {
			case "tab", "down":
				return m.focusField(m.checkout.focus + 1), nil
			case "shift+tab", "up":
				return m.focusField(m.checkout.focus - 1), nil
			case "enter":
				if err := w.Update(m.formFromInputs()); err != nil {
					m.err = errorText(err)
					return m, nil
				}
				if err := w.Next(); err != nil {
					m.err = errorText(err)
					return m, nil
				}
				m.err = ""
				m.checkout.step = w.Step()
				return m, nil
			}
		}
		var cmd tea.Cmd
		i := m.checkout.focus
		m.checkout.inputs[i], cmd = m.checkout.inputs[i].Update(msg)
		return m, cmd

	case checkout.StepChoosingPayment:
		if !isKey {
			return m, nil
		}
		switch key.String() {
		case "1", "2", "3", "4":
			i, _ := strconv.Atoi(key.String())
			if err := w.SetMethod(methods[i-1]); err != nil {
				m.err = errorText(err)
				return m, nil
			}
			m.checkout.method = w.Method()
		case "enter":
			if err := w.Next(); err != nil {
				m.err = errorText(err)
				return m, nil
			}
			m.checkout.step = w.Step()
		case "b", "backspace":
			w.Back()
			m.checkout.step = w.Step()
		}
		return m, nil

	case checkout.StepConfirming:
		if !isKey {
			return m, nil
		}
		switch key.String() {
		case "enter":
			m.loading++
			ctx := m.ctx
			return m, func() tea.Msg {
				res, err := w.Submit(ctx)
				return checkoutDoneMsg{res: res, err: err}
			}
		case "b", "backspace":
			w.Back()
			m.checkout.step = w.Step()
		}
	}
	return m, nil
}

func (m Model) onCheckoutDone(msg checkoutDoneMsg) (tea.Model, tea.Cmd) {
	if m.loading > 0 {
		m.loading--
	}
	if msg.err != nil {
		m.err = errorText(msg.err)
		return m, nil
	}
	if msg.res.Pending != nil {
		return m.switchTo(viewPayment)
	}

	next, cmd := m.switchTo(viewOrders)
	nm := next.(Model)
	if msg.res.Paid {
		nm.status = "Đơn hàng đã được ghi nhận! Vui lòng thanh toán tại quầy."
	} else {
		nm.status = "Đặt bàn thành công! Bàn của bạn đã được xác nhận."
	}
	return nm, cmd
}

func (m Model) checkoutView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Đặt Bàn & Thanh Toán"))
	b.WriteString("\n\n")
	for _, s := range []checkout.Step{checkout.StepCollectingInfo, checkout.StepChoosingPayment, checkout.StepConfirming} {
		label := fmt.Sprintf("%d. %s", int(s), s)
		if s <= m.checkout.step {
			b.WriteString(activeTab.Render(label))
		} else {
			b.WriteString(inactiveTab.Render(label))
		}
	}
	b.WriteString("\n\n")

	if m.checkout.wizard == nil {
		return b.String() + "Chưa sẵn sàng."
	}

	switch m.checkout.step {
	case checkout.StepCollectingInfo:
		for i, in := range m.checkout.inputs {
			fmt.Fprintf(&b, "%-30s %s\n", fieldLabels[i]+":", in.View())
		}
		b.WriteString("\nBàn:\n")
		for _, t := range m.checkout.tables {
			status := successStyle.Render("Trống")
			if !t.Available {
				status = errorStyle.Render("Đã đặt")
			}
			capacity := ""
			if t.Capacity != nil {
				capacity = fmt.Sprintf(" (%d chỗ)", *t.Capacity)
			}
			fmt.Fprintf(&b, "  #%d %s%s %s\n", t.ID, t.Name, capacity, status)
		}
		b.WriteString(helpStyle.Render("tab: ô tiếp • enter: tiếp tục • esc: huỷ"))

	case checkout.StepChoosingPayment:
		for i, pm := range methods {
			marker := "  "
			if pm == m.checkout.method {
				marker = "▶ "
			}
			fmt.Fprintf(&b, "%s%d. %s\n", marker, i+1, checkout.MethodLabel(pm))
		}
		b.WriteString(helpStyle.Render("1-4: chọn • enter: tiếp tục • b: quay lại"))

	case checkout.StepConfirming:
		f := m.checkout.wizard.Form()
		fmt.Fprintf(&b, "Khách: %s\nĐiện thoại: %s\nSố người: %d\nThời gian: %s\nBàn: #%d\n", f.CustomerName, f.CustomerPhone, f.PartySize, f.ReservationTime, f.TableID)
		if f.Notes != "" {
			fmt.Fprintf(&b, "Ghi chú: %s\n", f.Notes)
		}
		fmt.Fprintf(&b, "Thanh toán: %s\n\n", checkout.MethodLabel(m.checkout.method))
		for _, l := range m.cart.Lines {
			fmt.Fprintf(&b, "  %s x%d  %s\n", l.Item.Name, l.Quantity, models.FormatVND(l.Subtotal()))
		}
		b.WriteString(infoStyle.Render("Tổng cộng: " + models.FormatVND(m.cart.Total())))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter: xác nhận • b: quay lại"))
	}
	return b.String()
}
