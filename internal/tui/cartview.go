package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"qtrestaurant/internal/cart"
	"qtrestaurant/internal/models"
)

func newCartTable() table.Model {
	columns := []table.Column{
		{Title: "Món", Width: 28},
		{Title: "SL", Width: 4},
		{Title: "Đơn giá", Width: 14},
		{Title: "Thành tiền", Width: 14},
	}
	return table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
}

func cartRows(snap cart.Snapshot) []table.Row {
	rows := make([]table.Row, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		rows = append(rows, table.Row{
			l.Item.Name,
			strconv.Itoa(l.Quantity),
			models.FormatVND(l.Item.Price),
			models.FormatVND(l.Subtotal()),
		})
	}
	return rows
}

func setQuantity(store *cart.Store, id, q int) tea.Cmd {
	return func() tea.Msg {
		if err := store.SetQuantity(id, q); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func removeLine(store *cart.Store, id int) tea.Cmd {
	return func() tea.Msg {
		if err := store.Remove(id); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func clearCart(store *cart.Store) tea.Cmd {
	return func() tea.Msg {
		if err := store.Clear(); err != nil {
			return errMsg{err: err}
		}
		return statusMsg("Đã xoá giỏ hàng")
	}
}

func (m Model) selectedLine() (models.CartLine, bool) {
	i := m.cartTable.Cursor()
	if i < 0 || i >= len(m.cart.Lines) {
		return models.CartLine{}, false
	}
	return m.cart.Lines[i], true
}

func (m Model) updateCart(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && m.deps.Cart != nil {
		line, selected := m.selectedLine()
		switch key.String() {
		case "+", "=":
			if selected {
				return m, setQuantity(m.deps.Cart, line.Item.ID, line.Quantity+1)
			}
		case "-":
			if selected {
				return m, setQuantity(m.deps.Cart, line.Item.ID, line.Quantity-1)
			}
		case "d", "delete":
			if selected {
				return m, removeLine(m.deps.Cart, line.Item.ID)
			}
		case "x":
			return m, clearCart(m.deps.Cart)
		case "c":
			if len(m.cart.Lines) > 0 {
				return m.switchTo(viewCheckout)
			}
		}
	}

	var cmd tea.Cmd
	m.cartTable, cmd = m.cartTable.Update(msg)
	return m, cmd
}

func (m Model) cartView() string {
	if len(m.cart.Lines) == 0 {
		return titleStyle.Render("Giỏ Hàng") + "\n\nGiỏ hàng trống. Chọn món ở Thực Đơn hoặc nhờ Trợ Lý nhé!"
	}
	total := infoStyle.Render(fmt.Sprintf("Tổng cộng: %s (%d món)", models.FormatVND(m.cart.Total()), m.cart.Count()))
	help := helpStyle.Render("+/-: số lượng • d: xoá món • x: xoá giỏ • c: đặt bàn & thanh toán")
	return titleStyle.Render("Giỏ Hàng") + "\n\n" + m.cartTable.View() + "\n\n" + total + "\n" + help
}
