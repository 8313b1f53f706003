package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"qtrestaurant/internal/models"
	"qtrestaurant/internal/orders"
)

type historyState struct {
	view   orders.View
	cursor int
}

type historyLoadedMsg struct {
	view orders.View
	err  error
	note string
}

type exportedMsg struct {
	path string
	err  error
}

func loadHistory(ctx context.Context, h *orders.History) tea.Cmd {
	return func() tea.Msg {
		if h == nil {
			return historyLoadedMsg{}
		}
		v, err := h.Load(ctx)
		return historyLoadedMsg{view: v, err: err}
	}
}

func cancelReservation(ctx context.Context, h *orders.History, id int) tea.Cmd {
	return func() tea.Msg {
		v, err := h.Cancel(ctx, id)
		if err != nil {
			return historyLoadedMsg{view: v, err: err}
		}
		return historyLoadedMsg{view: v, note: "Hủy đặt bàn thành công"}
	}
}

func exportHistory(dir string, v orders.View) tea.Cmd {
	return func() tea.Msg {
		path := filepath.Join(dir, fmt.Sprintf("qt-orders-%s.xlsx", time.Now().Format("20060102-150405")))
		f, err := os.Create(path)
		if err != nil {
			return exportedMsg{err: err}
		}
		if err := orders.Export(f, v); err != nil {
			f.Close()
			return exportedMsg{err: err}
		}
		return exportedMsg{path: path, err: f.Close()}
	}
}

func (m Model) onHistoryLoaded(msg historyLoadedMsg) (tea.Model, tea.Cmd) {
	if m.loading > 0 {
		m.loading--
	}
	if msg.err != nil {
		m.err = errorText(msg.err)
	}
	if msg.note != "" {
		m.status = msg.note
	}
	m.history.view = msg.view
	if m.history.cursor >= len(msg.view.Reservations) {
		m.history.cursor = 0
	}
	return m, nil
}

func (m Model) onExported(msg exportedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = errorText(msg.err)
		return m, nil
	}
	m.status = "Đã xuất " + msg.path
	return m, nil
}

func (m Model) updateOrders(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || m.deps.History == nil {
		return m, nil
	}
	res := m.history.view.Reservations
	switch key.String() {
	case "up", "k":
		if m.history.cursor > 0 {
			m.history.cursor--
		}
	case "down", "j":
		if m.history.cursor < len(res)-1 {
			m.history.cursor++
		}
	case "x":
		if m.history.cursor < len(res) {
			r := res[m.history.cursor]
			if !orders.CanCancel(r, m.history.view.Orders) {
				m.err = "Không thể hủy đặt bàn này"
				return m, nil
			}
			m.loading++
			return m, cancelReservation(m.ctx, m.deps.History, r.ID)
		}
	case "r":
		m.loading++
		return m, loadHistory(m.ctx, m.deps.History)
	case "e":
		dir := m.deps.ExportDir
		if dir == "" {
			dir = "."
		}
		return m, exportHistory(dir, m.history.view)
	}
	return m, nil
}

func (m Model) ordersView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("📋 Lịch Sử Đơn Hàng & Đặt Bàn"))
	b.WriteString("\n\n")

	v := m.history.view
	b.WriteString(infoStyle.Render(fmt.Sprintf("Đặt bàn (%d)", len(v.Reservations))))
	b.WriteString("\n")
	if len(v.Reservations) == 0 {
		b.WriteString(mutedStyle.Render("Chưa có đặt bàn nào"))
		b.WriteString("\n")
	}
	for i, r := range v.Reservations {
		cursor := "  "
		if i == m.history.cursor {
			cursor = "▶ "
		}
		table := ""
		if r.Table != nil {
			table = r.Table.Name
		}
		fmt.Fprintf(&b, "%s#%d %s · %s · %d người · %s · %s", cursor, r.ID, r.CustomerName, table, r.PartySize, reservationTime(r), orders.StatusLabel(string(r.Status)))
		if orders.CanCancel(r, v.Orders) {
			b.WriteString(mutedStyle.Render("  [x: hủy]"))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Đơn hàng (%d)", len(v.Orders))))
	b.WriteString("\n")
	for _, o := range v.Orders {
		fmt.Fprintf(&b, "  Đơn Hàng #%d · %d món · %s · %s\n", o.ID, len(o.Items), models.FormatVND(o.Total), orders.StatusLabel(string(o.Status)))
		for _, it := range o.Items {
			if it.MenuItem == nil {
				continue
			}
			fmt.Fprintf(&b, "      %s x%d  %s\n", it.MenuItem.Name, it.Quantity, models.FormatVND(it.Price*float64(it.Quantity)))
		}
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓: chọn • x: hủy đặt bàn • r: tải lại • e: xuất Excel"))
	return b.String()
}

func reservationTime(r models.Reservation) string {
	t, err := r.Time()
	if err != nil {
		return r.ReservationTime
	}
	return t.Format("15:04 02/01/2006")
}
