package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"qtrestaurant/internal/cart"
	"qtrestaurant/internal/menu"
	"qtrestaurant/internal/models"
)

// dish is a menu item in the list.
type dish struct {
	item models.MenuItem
}

func (d dish) Title() string { return d.item.Name }

func (d dish) Description() string {
	if d.item.Description == "" {
		return models.FormatVND(d.item.Price)
	}
	return models.FormatVND(d.item.Price) + " · " + d.item.Description
}

func (d dish) FilterValue() string { return d.item.Name + " " + d.item.Description }

type menuLoadedMsg struct {
	items []models.MenuItem
}

func newMenuList() list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 80, 20)
	l.Title = "Thực Đơn"
	l.SetShowHelp(false)
	return l
}

func loadMenu(ctx context.Context, c *menu.Catalog) tea.Cmd {
	return func() tea.Msg {
		if c == nil {
			return menuLoadedMsg{}
		}
		items, err := c.Load(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return menuLoadedMsg{items: items}
	}
}

func addToCart(store *cart.Store, item models.MenuItem) tea.Cmd {
	return func() tea.Msg {
		if err := store.Add(item); err != nil {
			return errMsg{err: err}
		}
		return statusMsg(fmt.Sprintf("Đã thêm %s vào giỏ hàng", item.Name))
	}
}

func (m Model) onMenuLoaded(msg menuLoadedMsg) (tea.Model, tea.Cmd) {
	items := make([]list.Item, 0, len(msg.items))
	for _, it := range msg.items {
		items = append(items, dish{item: it})
	}
	cmd := m.menuList.SetItems(items)
	return m, cmd
}

func (m Model) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && m.menuList.FilterState() != list.Filtering {
		switch key.String() {
		case "enter", "a":
			if d, ok := m.menuList.SelectedItem().(dish); ok && m.deps.Cart != nil {
				return m, addToCart(m.deps.Cart, d.item)
			}
			return m, nil
		case "r":
			return m, refreshMenu(m.ctx, m.deps.Catalog)
		case "L":
			if m.deps.Session != nil {
				if err := m.deps.Session.Logout(); err != nil {
					m.err = errorText(err)
					return m, nil
				}
				m.current = viewLogin
				cmd := m.login.username.Focus()
				return m, cmd
			}
		}
	}

	var cmd tea.Cmd
	m.menuList, cmd = m.menuList.Update(msg)
	return m, cmd
}

func refreshMenu(ctx context.Context, c *menu.Catalog) tea.Cmd {
	return func() tea.Msg {
		items, err := c.Refresh(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return menuLoadedMsg{items: items}
	}
}

func (m Model) menuView() string {
	help := helpStyle.Render("enter/a: thêm vào giỏ • /: tìm món • r: tải lại • L: đăng xuất • q: thoát")
	return m.menuList.View() + "\n" + help
}
