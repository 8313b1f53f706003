package chat

import (
	"strings"

	"qtrestaurant/internal/intent"
)

type keywordBucket struct {
	keywords []string
	text     string
}

// Checked in order; the first bucket with a matching keyword answers.
var keywordBuckets = []keywordBucket{
	{
		keywords: []string{"thực đơn", "món ăn", "ăn gì"},
		text:     `Nhà hàng QT phục vụ các món ăn Á Châu đa dạng: Cơm, Mì, Canh, Gỏi, Salad và các món tráng miệng đặc sắc. Bạn có thể xem chi tiết trong mục "📋 Thực Đơn".`,
	},
	{
		keywords: []string{"đặt bàn", "đặt", "bàn"},
		text:     `Bạn có thể đặt bàn qua mục "💳 Đặt Bàn". Chỉ cần chọn thời gian, số người, và những món ăn bạn muốn. Chúng tôi sẽ xác nhận lịch đặt của bạn.`,
	},
	{
		keywords: []string{"thanh toán", "trả tiền", "chi phí"},
		text:     "Chúng tôi hỗ trợ: Chuyển khoản ngân hàng, Ví điện tử, và Tiền mặt. Bạn có thể chọn phương thức phù hợp nhất khi thanh toán.",
	},
	{
		keywords: []string{"liên hệ", "hotline", "điện thoại"},
		text:     "Bạn có thể liên hệ với chúng tôi qua hotline hoặc website. Đội ngũ nhà hàng sẽ sẵn sàng hỗ trợ bạn.",
	},
	{
		keywords: []string{"giá", "tiền"},
		text:     "Giá cả các món ăn rất hợp lý và cạnh tranh. Bạn có thể xem chi tiết giá từng món trong thực đơn.",
	},
	{
		keywords: []string{"khuyến mãi", "giảm", "sale"},
		text:     "Nhà hàng QT thường xuyên có các khuyến mãi hấp dẫn. Vui lòng kiểm tra thực đơn hoặc liên hệ để biết thêm chi tiết.",
	},
}

const defaultKeywordText = "Cảm ơn câu hỏi! 😊 Tôi có thể giúp bạn về: Thực đơn, Đặt bàn, Thanh toán, Khuyến mãi, Hoặc bất kỳ câu hỏi nào về nhà hàng QT."

// KeywordReply answers without the model, from keywords in the guest's
// message. It never adds to the cart.
func KeywordReply(message string) intent.Reply {
	lower := strings.ToLower(message)
	text := defaultKeywordText
	for _, b := range keywordBuckets {
		if containsAny(lower, b.keywords) {
			text = b.text
			break
		}
	}
	return intent.Reply{
		Text:     text,
		Action:   intent.ActionNone,
		Items:    []string{},
		Fallback: true,
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
