package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"qtrestaurant/internal/config"
	"qtrestaurant/internal/models"
)

// ErrNoPendingPayment is returned when there is nothing to pay.
var ErrNoPendingPayment = errors.New("Không có thanh toán nào trong chờ xử lý")

// Payer settles invoices.
type Payer interface {
	Pay(ctx context.Context, invoiceID int, amount float64, method models.PaymentMethod) error
}

// Instructions is what the payment screen shows.
type Instructions struct {
	Method   string
	Amount   string
	Note     string
	QRCode   string
	MomoInfo string
}

// Payment settles the invoice left pending by checkout.
type Payment struct {
	api     Payer
	state   State
	cart    Cart
	account config.PaymentConfig
	log     logrus.FieldLogger
}

// NewPayment creates the payment step for the given receiving account.
func NewPayment(api Payer, state State, cart Cart, account config.PaymentConfig, log logrus.FieldLogger) *Payment {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Payment{
		api:     api,
		state:   state,
		cart:    cart,
		account: account,
		log:     log.WithField("component", "payment"),
	}
}

// Pending returns the invoice waiting for payment.
func (p *Payment) Pending() (models.PendingPayment, bool, error) {
	pending, ok, err := p.state.PendingPayment()
	if err != nil || !ok || pending.InvoiceID == 0 {
		return models.PendingPayment{}, false, err
	}
	return pending, true, nil
}

// Instructions describes how to pay pending.
func (p *Payment) Instructions(pending models.PendingPayment) Instructions {
	in := Instructions{
		Method: MethodLabel(pending.Method),
		Amount: models.FormatVND(pending.Amount),
		Note:   fmt.Sprintf("Thanh toán hóa đơn %d", pending.InvoiceID),
	}
	switch pending.Method {
	case models.PaymentQRCode, models.PaymentBank:
		in.QRCode = p.QRCodeURL(pending)
	case models.PaymentMomo:
		in.MomoInfo = "Số điện thoại Momo: " + p.account.MomoPhone
	}
	return in
}

// QRCodeURL builds the VietQR image that prefills amount and transfer note.
func (p *Payment) QRCodeURL(pending models.PendingPayment) string {
	return fmt.Sprintf("https://img.vietqr.io/image/%s-%s-compact.png?amount=%.0f&addInfo=%s&accountName=%s",
		p.account.BankID,
		p.account.AccountNo,
		pending.Amount,
		queryEscape(fmt.Sprintf("Thanh toan hoa don %d", pending.InvoiceID)),
		queryEscape(p.account.AccountName),
	)
}

func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// MethodLabel names a payment method for the guest.
func MethodLabel(m models.PaymentMethod) string {
	switch m {
	case models.PaymentQRCode:
		return "Quét Mã QR"
	case models.PaymentMomo:
		return "Ví Momo"
	case models.PaymentCash:
		return "Thanh toán tại quầy"
	}
	return "Chuyển Khoản Ngân Hàng"
}

// Confirm marks the pending invoice paid and clears the cart and booking.
// The pending payment is cleared before paying and restored if the payment
// fails.
func (p *Payment) Confirm(ctx context.Context) error {
	pending, ok, err := p.Pending()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoPendingPayment
	}

	if err := p.state.ClearPendingPayment(); err != nil {
		return errors.Wrap(err, "clearing pending payment")
	}

	log := p.log.WithFields(logrus.Fields{
		"invoice": pending.InvoiceID,
		"method":  pending.Method,
	})
	if err := p.api.Pay(ctx, pending.InvoiceID, pending.Amount, pending.Method); err != nil {
		if serr := p.state.SavePendingPayment(pending); serr != nil {
			log.WithError(serr).Error("restoring pending payment")
		}
		return errors.Wrap(err, "paying invoice")
	}
	log.Info("payment confirmed")

	if err := p.cart.Clear(); err != nil {
		log.WithError(err).Warn("clearing cart after payment")
	}
	if err := p.state.ClearBooking(); err != nil {
		log.WithError(err).Warn("clearing booking after payment")
	}
	return nil
}

// Back abandons the payment screen. The invoice stays unpaid.
func (p *Payment) Back() error {
	return p.state.ClearPendingPayment()
}
