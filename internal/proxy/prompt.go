// Package proxy turns a guest's chat message into a menu-grounded LLM call
// and a canonical intent.Reply. It never returns an error to its caller:
// every failure degrades to the configured apology with fallback set.
package proxy

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"qtrestaurant/internal/models"
	"qtrestaurant/internal/models/providers"
)

// DefaultFallbackText is the apology sent whenever the model path fails.
const DefaultFallbackText = "Dạ, em xin lỗi ạ, hệ thống bên em đang gặp chút trục trặc nhỏ. Anh/Chị đợi em một xíu hoặc thử lại sau nhé!"

// DefaultDeclinePhrase is what the assistant says about dishes not on the menu.
const DefaultDeclinePhrase = "Dạ, món này hiện nhà hàng em chưa phục vụ ạ. Anh/Chị tham khảo giúp em các món trong thực đơn nhé!"

// MenuEntry is one dish as listed in the system prompt.
type MenuEntry struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Price       float64 `yaml:"price"`
}

// PromptConfig is everything that differs between assistant deployments.
type PromptConfig struct {
	RestaurantName string      `yaml:"restaurant_name"`
	Persona        []string    `yaml:"persona"`
	Duties         []string    `yaml:"duties"`
	DeclinePhrase  string      `yaml:"decline_phrase"`
	FallbackText   string      `yaml:"fallback_text"`
	MaxWords       int         `yaml:"max_words"`
	HistoryLimit   int         `yaml:"history_limit"`
	MenuURL        string      `yaml:"menu_url"`
	Menu           []MenuEntry `yaml:"menu"`
}

// DefaultPromptConfig returns the QT receptionist persona and menu.
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		RestaurantName: "QT",
		Persona: []string{
			"Bạn là cô lễ tân duyên dáng, chuyên nghiệp và cực kỳ ngọt ngào của Nhà hàng cao cấp QT.",
			`Xưng hô: Gọi khách là "Anh/Chị", xưng là "Em". Luôn kèm theo "Dạ", "ạ" để tăng phần tình cảm.`,
		},
		Duties: []string{
			"Tư vấn món ăn dựa trên danh sách trên. Miêu tả hương vị thật quyến rũ, tinh tế.",
			"Nếu khách chào, hãy chào lại nồng nhiệt. Nếu khách chọn món, khéo léo xác nhận món đó.",
		},
		DeclinePhrase: DefaultDeclinePhrase,
		FallbackText:  DefaultFallbackText,
		MaxWords:      80,
		HistoryLimit:  4,
		Menu: []MenuEntry{
			{Name: "Truffle Arancini", Description: "Viên cơm Ý chiên giòn, nhân nấm truffle đen và phô mai Parmesan", Price: 890000},
			{Name: "Smoked Salmon Tartare", Description: "Cá hồi xông khói trộn dầu ô liu và chanh vàng", Price: 1290000},
			{Name: "Foie Gras Mousse", Description: "Gan ngỗng Pháp xay mịn, dùng kèm bánh brioche nướng nhẹ", Price: 159000},
			{Name: "Garlic Butter Escargot", Description: "Ốc sên Pháp nướng bơ tỏi và mùi tây", Price: 149000},
			{Name: "Lobster Bisque", Description: "Súp tôm hùm kem béo phong cách Pháp, sang trọng", Price: 169000},
			{Name: "Wild Mushroom Cappuccino", Description: "Súp nấm rừng xay nhuyễn, phủ foam sữa", Price: 129000},
			{Name: "Pumpkin Velouté", Description: "Súp bí đỏ mịn nấu với bơ và kem tươi", Price: 99000},
			{Name: "Burrata & Heirloom Tomato", Description: "Phô mai Burrata Ý và cà chua thượng hạng", Price: 149000},
			{Name: "Beef Tenderloin Steak", Description: "Thăn nội bò Úc sốt rượu vang đỏ", Price: 369000},
			{Name: "Lamb Rack Herb Crust", Description: "Sườn cừu nướng vỏ thảo mộc, sốt rosemary", Price: 429000},
			{Name: "Tiramisu Classic", Description: "Món tráng miệng Ý với mascarpone và cacao", Price: 119000},
			{Name: "Crème Brûlée", Description: "Kem trứng Pháp nướng lớp caramel giòn", Price: 129000},
		},
	}
}

// Validate checks that the prompt can ground the model.
func (c PromptConfig) Validate() error {
	if len(c.Menu) == 0 {
		return errors.New("prompt menu is empty")
	}
	for i, m := range c.Menu {
		if strings.TrimSpace(m.Name) == "" {
			return errors.Errorf("prompt menu entry %d has no name", i+1)
		}
	}
	if strings.TrimSpace(c.FallbackText) == "" {
		return errors.New("prompt fallback text is empty")
	}
	if strings.TrimSpace(c.DeclinePhrase) == "" {
		return errors.New("prompt decline phrase is empty")
	}
	return nil
}

// MenuEntriesFrom lists backend menu items in prompt form.
func MenuEntriesFrom(items []models.MenuItem) []MenuEntry {
	entries := make([]MenuEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, MenuEntry{Name: it.Name, Description: it.Description, Price: it.Price})
	}
	return entries
}

// SystemPrompt renders persona, menu, duties, the grounding rule and the
// JSON contract. A non-empty cart is appended as context.
func (c PromptConfig) SystemPrompt(cart []models.CartEntry) string {
	var b strings.Builder

	for _, line := range c.Persona {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "\nDANH SÁCH THỰC ĐƠN CỦA NHÀ HÀNG %s:\n", c.RestaurantName)
	for i, m := range c.Menu {
		if m.Description != "" {
			fmt.Fprintf(&b, "%d. %s: %s (%s).\n", i+1, m.Name, m.Description, models.FormatVND(m.Price))
		} else {
			fmt.Fprintf(&b, "%d. %s (%s).\n", i+1, m.Name, models.FormatVND(m.Price))
		}
	}

	if len(c.Duties) > 0 {
		b.WriteString("\nNHIỆM VỤ:\n")
		for _, d := range c.Duties {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}

	b.WriteString("\nQUY TẮC BẮT BUỘC:\n")
	b.WriteString("- Chỉ được nhắc tới và gợi ý các món có trong danh sách trên. Tuyệt đối không bịa ra món mới.\n")
	fmt.Fprintf(&b, "- Nếu khách hỏi hoặc gọi món không có trong danh sách, trả lời: \"%s\" và đặt action: null, items: [].\n", c.DeclinePhrase)

	maxWords := c.MaxWords
	if maxWords <= 0 {
		maxWords = 80
	}
	b.WriteString("\nQUY ĐỊNH JSON:\n")
	fmt.Fprintf(&b, "- Chỉ trả về một object JSON chuẩn: {\"text\": \"nội dung trả lời dưới %d từ\", \"action\": \"add_to_cart\" hoặc null, \"items\": [\"Tên Món Chuẩn\", ...]}.\n", maxWords)
	b.WriteString("- Nếu khách chốt món (VD: \"Cho anh sườn cừu\"), đặt action: \"add_to_cart\" và mỗi phần tử của items phải khớp chính xác tên tiếng Anh trong danh sách.\n")
	b.WriteString("- Nếu khách nói tới nhiều món hoặc dùng từ thay thế (VD: \"lấy cả hai\", \"cho anh 2 món này\"), hãy xác định các món từ những lượt hội thoại ngay trước đó và đưa TẤT CẢ các món đó vào items.\n")
	b.WriteString("- Khi không thêm món nào, đặt action: null và items: [].\n")

	if len(cart) > 0 {
		b.WriteString("\nGIỎ HÀNG HIỆN TẠI CỦA KHÁCH:\n")
		for _, e := range cart {
			fmt.Fprintf(&b, "- %s x %d\n", e.Name, e.Quantity)
		}
	}

	return b.String()
}

// BuildMessages assembles the provider conversation: system prompt, the
// bounded history, then the new message.
func (c PromptConfig) BuildMessages(req Request) []providers.Message {
	limit := c.HistoryLimit
	if limit <= 0 {
		limit = 4
	}
	history := models.LastTurns(req.History, limit)

	messages := make([]providers.Message, 0, len(history)+2)
	messages = append(messages, providers.Message{Role: providers.RoleSystem, Content: c.SystemPrompt(req.Cart)})
	for _, t := range history {
		messages = append(messages, providers.Message{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, providers.Message{Role: providers.RoleUser, Content: strings.TrimSpace(req.Message)})
	return messages
}
