package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v3"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

const (
	PaymentMethodPayPal = "paypal"
	PaymentMethodCard   = "card"
	PaymentMethodFree   = "free"
)

type Customer struct {
	Name  string `json:"customer_name" db:"customer_name"`
	Email string `json:"customer_email" db:"customer_email"`
	Phone string `json:"customer_phone,omitempty" db:"customer_phone"`
}

func (c Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Email) == "" {
		return ErrMissingCustomerFields
	}
	return nil
}

// LineItem is what the buyer asked for, before pricing.
type LineItem struct {
	Category CategoryRef `json:"category"`
	Quantity int         `json:"quantity"`
}

// OrderLine is a priced snapshot of a line item taken at order time.
type OrderLine struct {
	Category     CategoryRef     `json:"category"`
	CategoryName string          `json:"category_name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type OrderLines []OrderLine

func (l OrderLines) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *OrderLines) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf("unsupported type for OrderLines: %T", src)
	}
	return json.Unmarshal(data, l)
}

func (l OrderLines) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range l {
		total = total.Add(line.Subtotal())
	}
	return total
}

func (l OrderLines) Quantity() int {
	qty := 0
	for _, line := range l {
		qty += line.Quantity
	}
	return qty
}

type Order struct {
	OrderID     string `json:"order_id" db:"order_id"`
	OrderNumber string `json:"order_number" db:"order_number"`
	EventID     string `json:"event_id" db:"event_id"`

	Customer

	Lines       OrderLines      `json:"lines" db:"lines"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	Currency    string          `json:"currency" db:"currency"`

	Status           OrderStatus   `json:"status" db:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status" db:"payment_status"`
	PaymentMethod    *string       `json:"payment_method,omitempty" db:"payment_method"`
	PaymentReference *string       `json:"payment_reference,omitempty" db:"payment_reference"`
	AuthorizationID  *string       `json:"authorization_id,omitempty" db:"authorization_id"`
	ApprovalURL      *string       `json:"approval_url,omitempty" db:"approval_url"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty" db:"paid_at"`
}

// NewOrder prices the resolved lines into a pending, unpaid order.
func NewOrder(orderID string, event Event, customer Customer, lines OrderLines, now time.Time) (Order, error) {
	if err := customer.Validate(); err != nil {
		return Order{}, err
	}
	if len(lines) == 0 {
		return Order{}, ErrInvalidLineItems
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return Order{}, ErrInvalidLineItems
		}
	}

	return Order{
		OrderID:       orderID,
		OrderNumber:   NewOrderNumber(now),
		EventID:       event.EventID,
		Customer:      customer,
		Lines:         lines,
		TotalAmount:   lines.Total(),
		Currency:      event.Currency,
		Status:        OrderStatusPending,
		PaymentStatus: PaymentStatusUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (o Order) PaymentRequired() bool {
	return o.TotalAmount.IsPositive()
}

func (o Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// Authorization is the provider authorization stored by Authorize.
func (o Order) Authorization() (Authorization, bool) {
	if o.AuthorizationID == nil {
		return Authorization{}, false
	}

	return Authorization{
		AuthorizationID: *o.AuthorizationID,
		ApprovalURL:     lo.FromPtr(o.ApprovalURL),
	}, true
}

func (o Order) Money() Money {
	return Money{
		Amount:   o.TotalAmount.StringFixed(2),
		Currency: o.Currency,
	}
}

// NewOrderNumber returns ORD-YYYYMMDD-XXXXXX. Uniqueness is enforced by the
// database, callers regenerate on conflict.
func NewOrderNumber(now time.Time) string {
	return "ORD-" + now.UTC().Format("20060102") + "-" + randomSuffix(6)
}

// NewTicketNumber returns TKT-XXXXXXXXXX.
func NewTicketNumber() string {
	return "TKT-" + randomSuffix(10)
}

func randomSuffix(n int) string {
	s := strings.ToUpper(shortuuid.New())
	for len(s) < n {
		s += strings.ToUpper(shortuuid.New())
	}
	return s[:n]
}

// PendingSelection keeps the exact category and quantity choice of an order
// until its tickets are issued.
type PendingSelection struct {
	OrderID   string     `json:"order_id" db:"order_id"`
	Items     OrderLines `json:"items" db:"items"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

type PaymentAuditRecord struct {
	OrderID        string          `db:"order_id"`
	Method         string          `db:"method"`
	TransactionID  string          `db:"transaction_id"`
	Amount         decimal.Decimal `db:"amount"`
	Currency       string          `db:"currency"`
	ProviderStatus string          `db:"provider_status"`
	CreatedAt      time.Time       `db:"created_at"`
}
