// Package checkout turns a cart into a reservation, an order and an
// invoice, and settles the invoice.
package checkout

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"qtrestaurant/internal/backend"
	"qtrestaurant/internal/models"
)

// DefaultError is shown when a failure carries no usable message.
const DefaultError = "Có lỗi xảy ra khi xử lý đơn hàng"

var (
	ErrNoOrderID   = errors.New("Order creation failed: no order ID returned")
	ErrNoInvoiceID = errors.New("Invoice creation failed: no invoice ID returned")
	ErrNotReady    = errors.New("checkout is not at the confirmation step")
)

// Step is the wizard position.
type Step int

const (
	StepCollectingInfo Step = iota + 1
	StepChoosingPayment
	StepConfirming
)

func (s Step) String() string {
	switch s {
	case StepCollectingInfo:
		return "Thông Tin"
	case StepChoosingPayment:
		return "Thanh Toán"
	case StepConfirming:
		return "Xác Nhận"
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// FieldError rejects one form field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// Message returns the text to show for a checkout failure.
func Message(err error) string {
	var ferr *FieldError
	if errors.As(err, &ferr) {
		return ferr.Message
	}
	return backend.Message(err, DefaultError)
}

// Backend is the REST surface checkout uses.
type Backend interface {
	Tables(ctx context.Context) ([]models.Table, error)
	Reservations(ctx context.Context) ([]models.Reservation, error)
	Me(ctx context.Context) (models.User, error)
	CreateReservation(ctx context.Context, req models.ReservationRequest) (models.Reservation, error)
	CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error)
	CreateInvoice(ctx context.Context, orderID int) (models.Invoice, error)
	Pay(ctx context.Context, invoiceID int, amount float64, method models.PaymentMethod) error
}

// State is the durable booking and payment state.
type State interface {
	Username() string
	SelectedTable() int
	SetSelectedTable(id int) error
	ReservationTime() string
	SetReservationTime(t string) error
	ClearBooking() error
	PendingPayment() (models.PendingPayment, bool, error)
	SavePendingPayment(p models.PendingPayment) error
	ClearPendingPayment() error
}

// Cart is the cart as checkout sees it.
type Cart interface {
	Lines() []models.CartLine
	Clear() error
}

// Form is the guest's booking details.
type Form struct {
	CustomerName    string
	CustomerPhone   string
	PartySize       int
	ReservationTime string
	TableID         int
	Notes           string
}

// Result describes what Submit created.
type Result struct {
	Reservation models.Reservation
	Order       *models.Order
	Invoice     *models.Invoice
	// Pending is set for methods settled on the payment screen.
	Pending *models.PendingPayment
	// Paid is set when a cash invoice was settled immediately.
	Paid bool
}

var checkoutPhone = regexp.MustCompile(`^\d{10}$`)

// Wizard is the three step checkout.
type Wizard struct {
	api   Backend
	state State
	cart  Cart
	log   logrus.FieldLogger

	mu     sync.Mutex
	step   Step
	form   Form
	method models.PaymentMethod
	tables []models.Table
}

// NewWizard starts a checkout at the first step.
func NewWizard(api Backend, state State, cart Cart, log logrus.FieldLogger) *Wizard {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Wizard{
		api:    api,
		state:  state,
		cart:   cart,
		log:    log.WithField("component", "checkout"),
		step:   StepCollectingInfo,
		form:   Form{CustomerName: state.Username(), PartySize: 2},
		method: models.PaymentQRCode,
	}
}

// Load fetches tables and reservations, marks tables held by any
// reservation that is not cancelled, prefills contact details from the
// profile and restores the table and time chosen earlier.
func (w *Wizard) Load(ctx context.Context) error {
	tables, err := w.api.Tables(ctx)
	if err != nil {
		return errors.Wrap(err, "loading tables")
	}
	reservations, err := w.api.Reservations(ctx)
	if err != nil {
		return errors.Wrap(err, "loading reservations")
	}
	user, err := w.api.Me(ctx)
	if err != nil {
		w.log.WithError(err).Debug("profile unavailable, no prefill")
	}

	reserved := make(map[int]bool)
	for _, r := range reservations {
		if r.Status != models.ReservationCancelled && r.TableID() != 0 {
			reserved[r.TableID()] = true
		}
	}
	for i := range tables {
		tables[i].Available = !reserved[tables[i].ID]
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.tables = tables
	if w.form.CustomerPhone == "" && user.Phone != "" {
		w.form.CustomerPhone = user.Phone
	}
	if w.form.CustomerName == "" && user.FullName != "" {
		w.form.CustomerName = user.FullName
	}
	if id := w.state.SelectedTable(); id != 0 {
		w.form.TableID = id
	}
	if t := w.state.ReservationTime(); t != "" {
		w.form.ReservationTime = t
	}
	return nil
}

// Tables returns the tables with availability marked.
func (w *Wizard) Tables() []models.Table {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]models.Table, len(w.tables))
	copy(out, w.tables)
	return out
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Form returns the current form.
func (w *Wizard) Form() Form {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form
}

// Method returns the chosen payment method.
func (w *Wizard) Method() models.PaymentMethod {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.method
}

// Update replaces the form. Table and time are remembered across runs.
func (w *Wizard) Update(f Form) error {
	w.mu.Lock()
	w.form = f
	w.mu.Unlock()

	if f.TableID != 0 {
		if err := w.state.SetSelectedTable(f.TableID); err != nil {
			return errors.Wrap(err, "saving table")
		}
	}
	if f.ReservationTime != "" {
		if err := w.state.SetReservationTime(f.ReservationTime); err != nil {
			return errors.Wrap(err, "saving reservation time")
		}
	}
	return nil
}

// SetMethod chooses how the invoice is paid.
func (w *Wizard) SetMethod(m models.PaymentMethod) error {
	if !m.Valid() {
		return &FieldError{Field: "method", Message: "Phương thức thanh toán không hợp lệ"}
	}
	w.mu.Lock()
	w.method = m
	w.mu.Unlock()
	return nil
}

// Validate checks the booking details without touching the network.
func (w *Wizard) Validate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.validateLocked()
}

func (w *Wizard) validateLocked() error {
	f := w.form
	if !checkoutPhone.MatchString(f.CustomerPhone) {
		return &FieldError{Field: "customerPhone", Message: "Số điện thoại phải đủ 10 chữ số"}
	}
	if f.TableID == 0 {
		return &FieldError{Field: "tableId", Message: "Vui lòng chọn bàn"}
	}
	if strings.TrimSpace(f.ReservationTime) == "" {
		return &FieldError{Field: "reservationTime", Message: "Vui lòng chọn thời gian"}
	}
	if f.PartySize < 1 {
		return &FieldError{Field: "partySize", Message: "Số người phải lớn hơn 0"}
	}
	for _, t := range w.tables {
		if t.ID != f.TableID {
			continue
		}
		if t.Capacity != nil && f.PartySize > *t.Capacity {
			return &FieldError{
				Field:   "partySize",
				Message: fmt.Sprintf("Số người (%d) lớn hơn sức chứa của bàn (%d)", f.PartySize, *t.Capacity),
			}
		}
		if !t.Available {
			return &FieldError{Field: "tableId", Message: "Bàn đã được đặt. Vui lòng chọn bàn khác."}
		}
	}
	return nil
}

// Next advances one step; leaving the first step requires a valid form.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == StepCollectingInfo {
		if err := w.validateLocked(); err != nil {
			return err
		}
	}
	if w.step < StepConfirming {
		w.step++
	}
	return nil
}

// Back returns to the previous step.
func (w *Wizard) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > StepCollectingInfo {
		w.step--
	}
}

// Submit creates the reservation, then the order and invoice when the
// cart has dishes, then either settles a cash invoice or leaves a pending
// payment for the payment screen. The first failure aborts the chain;
// records already created stay on the backend.
func (w *Wizard) Submit(ctx context.Context) (Result, error) {
	w.mu.Lock()
	if w.step != StepConfirming {
		w.mu.Unlock()
		return Result{}, ErrNotReady
	}
	if err := w.validateLocked(); err != nil {
		w.mu.Unlock()
		return Result{}, err
	}
	form, method := w.form, w.method
	w.mu.Unlock()

	log := w.log.WithFields(logrus.Fields{"table": form.TableID, "method": method})

	var res Result
	reservation, err := w.api.CreateReservation(ctx, models.ReservationRequest{
		CustomerName:    form.CustomerName,
		CustomerPhone:   form.CustomerPhone,
		PartySize:       form.PartySize,
		ReservationTime: form.ReservationTime,
		TableID:         form.TableID,
		Status:          models.ReservationConfirmed,
	})
	if err != nil {
		return res, errors.Wrap(err, "creating reservation")
	}
	res.Reservation = reservation
	log = log.WithField("reservation", reservation.ID)

	lines := w.cart.Lines()
	if len(lines) == 0 {
		log.Info("reservation without dishes")
		return res, w.finish()
	}

	order, err := w.api.CreateOrder(ctx, models.OrderRequest{
		TableID:       form.TableID,
		ReservationID: reservation.ID,
		Notes:         form.Notes,
		Status:        models.OrderStatusNew,
		Items:         models.OrderItemsFromCart(lines),
	})
	if err != nil {
		return res, errors.Wrap(err, "creating order")
	}
	if order.ID == 0 {
		return res, ErrNoOrderID
	}
	res.Order = &order

	invoice, err := w.api.CreateInvoice(ctx, order.ID)
	if err != nil {
		return res, errors.Wrap(err, "creating invoice")
	}
	if invoice.ID == 0 {
		return res, ErrNoInvoiceID
	}
	res.Invoice = &invoice
	log = log.WithFields(logrus.Fields{"order": order.ID, "invoice": invoice.ID})

	if method.Deferred() {
		pending := models.PendingPayment{
			InvoiceID: invoice.ID,
			Amount:    invoice.Amount,
			Method:    method,
			OrderID:   order.ID,
		}
		if err := w.state.SavePendingPayment(pending); err != nil {
			return res, errors.Wrap(err, "saving pending payment")
		}
		res.Pending = &pending
		log.Info("awaiting transfer")
		return res, nil
	}

	if err := w.api.Pay(ctx, invoice.ID, invoice.Amount, method); err != nil {
		return res, errors.Wrap(err, "paying invoice")
	}
	res.Paid = true
	log.Info("paid at counter")
	return res, w.finish()
}

func (w *Wizard) finish() error {
	if err := w.cart.Clear(); err != nil {
		return errors.Wrap(err, "clearing cart")
	}
	return errors.Wrap(w.state.ClearBooking(), "clearing booking")
}
