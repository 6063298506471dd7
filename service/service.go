package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/sunny07-bar/website-sub000/entity"
	"github.com/sunny07-bar/website-sub000/metrics"
	"github.com/sunny07-bar/website-sub000/tracing"
)

type EventsRepository interface {
	Add(ctx context.Context, event entity.Event) error
	Get(ctx context.Context, eventID string) (entity.Event, error)
}

type OrdersRepository interface {
	Create(ctx context.Context, order entity.Order, selection entity.PendingSelection) (entity.Order, error)
	Get(ctx context.Context, orderID string) (entity.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (entity.Order, error)
	GetByAuthorizationID(ctx context.Context, authorizationID string) (entity.Order, error)
	SetAuthorization(ctx context.Context, orderID string, authorization entity.Authorization) error
	MarkPaid(ctx context.Context, orderID string, method string, paymentReference string) (entity.Order, error)
	FlagReconciliation(ctx context.Context, order entity.Order, reason string) error
}

type TicketsRepository interface {
	Issue(ctx context.Context, orderID string) (entity.Issuance, error)
	FindByOrderID(ctx context.Context, orderID string) ([]entity.PurchasedTicket, error)
	Redeem(ctx context.Context, payload []byte, staffID string, location string) (entity.Redemption, error)
}

type PaymentAuditRepository interface {
	Add(ctx context.Context, record entity.PaymentAuditRecord) error
}

type PaymentProvider interface {
	CreateAuthorization(ctx context.Context, request entity.AuthorizationRequest) (entity.Authorization, error)
	Capture(ctx context.Context, authorizationID string) (entity.Capture, error)
	FindCapture(ctx context.Context, authorizationID string) (entity.Capture, error)
}

// OrderDetails is an order together with the tickets minted for it.
type OrderDetails struct {
	Order   entity.Order             `json:"order"`
	Tickets []entity.PurchasedTicket `json:"tickets"`
}

type CaptureResult struct {
	Order    entity.Order
	Capture  entity.Capture
	Issuance entity.Issuance
}

type Service struct {
	events   EventsRepository
	orders   OrdersRepository
	tickets  TicketsRepository
	audit    PaymentAuditRepository
	provider PaymentProvider
}

func New(
	events EventsRepository,
	orders OrdersRepository,
	tickets TicketsRepository,
	audit PaymentAuditRepository,
	provider PaymentProvider,
) *Service {
	if events == nil {
		panic("events repository is nil")
	}
	if orders == nil {
		panic("orders repository is nil")
	}
	if tickets == nil {
		panic("tickets repository is nil")
	}
	if audit == nil {
		panic("payment audit repository is nil")
	}
	if provider == nil {
		panic("payment provider is nil")
	}

	return &Service{
		events:   events,
		orders:   orders,
		tickets:  tickets,
		audit:    audit,
		provider: provider,
	}
}

func (s *Service) CreateEvent(ctx context.Context, event entity.Event) (entity.Event, error) {
	if strings.TrimSpace(event.Title) == "" || event.StartsAt.IsZero() || event.Currency == "" {
		return entity.Event{}, entity.ErrInvalidEvent
	}
	if event.BasePrice.Valid && event.BasePrice.Decimal.IsNegative() {
		return entity.Event{}, entity.ErrInvalidEvent
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	for i := range event.Categories {
		c := &event.Categories[i]
		if c.CategoryID == "" {
			c.CategoryID = uuid.NewString()
		}
		c.EventID = event.EventID
		if c.Currency == "" {
			c.Currency = event.Currency
		}
		if c.Currency != event.Currency {
			return entity.Event{}, entity.ErrCurrencyMismatch
		}
		if strings.TrimSpace(c.Name) == "" || c.Price.IsNegative() {
			return entity.Event{}, entity.ErrInvalidEvent
		}
		if c.QuantityTotal != nil && *c.QuantityTotal < 0 {
			return entity.Event{}, entity.ErrInvalidEvent
		}
	}

	if err := s.events.Add(ctx, event); err != nil {
		return entity.Event{}, err
	}

	return s.events.Get(ctx, event.EventID)
}

func (s *Service) GetEvent(ctx context.Context, eventID string) (entity.Event, error) {
	return s.events.Get(ctx, eventID)
}

// CreateOrder prices the selection and stores a pending order. Inventory is
// only checked here, the ledger is debited when tickets are issued. Orders
// with a zero total are paid and fulfilled right away.
func (s *Service) CreateOrder(
	ctx context.Context,
	eventID string,
	items []entity.LineItem,
	customer entity.Customer,
) (entity.Order, error) {
	now := time.Now().UTC()

	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return entity.Order{}, err
	}
	if event.HasStarted(now) {
		return entity.Order{}, entity.ErrEventInPast
	}
	if err := customer.Validate(); err != nil {
		return entity.Order{}, err
	}

	lines, err := priceLines(event, items)
	if err != nil {
		return entity.Order{}, err
	}

	order, err := entity.NewOrder(uuid.NewString(), event, customer, lines, now)
	if err != nil {
		return entity.Order{}, err
	}

	order, err = s.orders.Create(ctx, order, entity.PendingSelection{
		OrderID:   order.OrderID,
		Items:     lines,
		CreatedAt: now,
	})
	if err != nil {
		return entity.Order{}, err
	}

	metrics.OrdersPlaced.WithLabelValues(fmt.Sprint(order.PaymentRequired())).Inc()

	log.FromContext(ctx).WithFields(logrus.Fields{
		"order_id":     order.OrderID,
		"order_number": order.OrderNumber,
		"total":        order.Money().Amount,
	}).Info("Order placed")

	if order.PaymentRequired() {
		return order, nil
	}

	paid, _, err := s.fulfil(ctx, order, entity.PaymentMethodFree, "FREE-"+order.OrderNumber)
	if err != nil {
		return entity.Order{}, err
	}

	return paid, nil
}

// priceLines resolves every line against the event and checks the soft hold:
// the summed quantity per category must fit what is still available.
func priceLines(event entity.Event, items []entity.LineItem) (entity.OrderLines, error) {
	if len(items) == 0 {
		return nil, entity.ErrInvalidLineItems
	}

	lines := make(entity.OrderLines, 0, len(items))
	requested := map[string]int{}
	available := map[string]int{}

	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, entity.ErrInvalidLineItems
		}

		ref, category, err := event.ResolveCategory(item.Category)
		if err != nil {
			return nil, err
		}
		if category.Currency != "" && category.Currency != event.Currency {
			return nil, entity.ErrCurrencyMismatch
		}

		key := ref.ID
		requested[key] += item.Quantity
		available[key] = category.AvailableCapacity()

		lines = append(lines, entity.OrderLine{
			Category:     ref,
			CategoryName: category.Name,
			UnitPrice:    category.Price,
			Quantity:     item.Quantity,
		})
	}

	for key, qty := range requested {
		if qty > available[key] {
			return nil, entity.ErrInsufficientInventory
		}
	}

	return lines, nil
}

func (s *Service) Authorize(ctx context.Context, orderID string) (entity.Authorization, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return entity.Authorization{}, err
	}
	if order.IsPaid() {
		return entity.Authorization{}, entity.ErrAlreadyPaid
	}
	// the buyer may already have approved the first one
	if existing, ok := order.Authorization(); ok {
		return existing, nil
	}

	authorization, err := s.provider.CreateAuthorization(ctx, entity.AuthorizationRequest{
		OrderID:     order.OrderID,
		Description: "Order " + order.OrderNumber,
		Amount:      order.Money(),
	})
	if err != nil {
		metrics.PaymentFailures.WithLabelValues("authorize").Inc()
		return entity.Authorization{}, err
	}

	err = s.orders.SetAuthorization(ctx, order.OrderID, authorization)
	if errors.Is(err, entity.ErrAlreadyAuthorized) {
		current, err := s.orders.Get(ctx, order.OrderID)
		if err != nil {
			return entity.Authorization{}, err
		}
		existing, _ := current.Authorization()
		return existing, nil
	}
	if err != nil {
		return entity.Authorization{}, err
	}

	log.FromContext(ctx).WithFields(logrus.Fields{
		"order_id":         order.OrderID,
		"authorization_id": authorization.AuthorizationID,
	}).Info("Payment authorized")

	return authorization, nil
}

// Capture settles the provider authorization stored on the order. orderID
// may be empty when only the provider token is known, authorizationID may be
// empty to use the stored one. Repeated captures of a paid order succeed
// without touching the provider.
func (s *Service) Capture(ctx context.Context, orderID string, authorizationID string) (_ CaptureResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "Capture", orderID)
	defer func() { tracing.EndSpan(span, err) }()

	order, err := s.orderForCapture(ctx, orderID, authorizationID)
	if err != nil {
		return CaptureResult{}, err
	}

	if order.IsPaid() {
		return s.alreadyCaptured(ctx, order)
	}
	authorizationID = lo.FromPtr(order.AuthorizationID)
	if authorizationID == "" {
		return CaptureResult{}, entity.ErrPaymentNotCompleted
	}

	capture, err := s.provider.Capture(ctx, authorizationID)
	if err != nil {
		// a concurrent capture may have won the race
		if current, getErr := s.orders.Get(ctx, order.OrderID); getErr == nil && current.IsPaid() {
			return s.alreadyCaptured(ctx, current)
		}

		capture, err = s.earlierCapture(ctx, authorizationID, err)
	}
	if err != nil {
		metrics.PaymentFailures.WithLabelValues("capture").Inc()
		log.FromContext(ctx).WithError(err).WithField("order_id", order.OrderID).Warn("Capture failed")

		return CaptureResult{}, err
	}

	s.recordPayment(ctx, order, entity.PaymentMethodPayPal, capture.TransactionID, capture.Status)

	if !capture.Completed() {
		metrics.PaymentFailures.WithLabelValues("not_completed").Inc()
		return CaptureResult{}, fmt.Errorf("%w: provider status %s", entity.ErrPaymentNotCompleted, capture.Status)
	}
	if !capture.Covers(order) {
		err := fmt.Errorf(
			"%w: captured %s %s for order total %s %s",
			entity.ErrPaymentNotCompleted,
			capture.Amount.Amount, capture.Amount.Currency,
			order.Money().Amount, order.Currency,
		)
		metrics.PaymentFailures.WithLabelValues("amount_mismatch").Inc()
		s.requireReconciliation(ctx, order.OrderID, err)

		return CaptureResult{}, err
	}

	paid, issuance, err := s.fulfil(ctx, order, entity.PaymentMethodPayPal, capture.TransactionID)
	if err != nil {
		return CaptureResult{}, err
	}

	return CaptureResult{
		Order:    paid,
		Capture:  capture,
		Issuance: issuance,
	}, nil
}

// orderForCapture only accepts an authorization the order was given by
// Authorize.
func (s *Service) orderForCapture(ctx context.Context, orderID string, authorizationID string) (entity.Order, error) {
	if orderID == "" {
		return s.orders.GetByAuthorizationID(ctx, authorizationID)
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return entity.Order{}, err
	}
	if authorizationID != "" && lo.FromPtr(order.AuthorizationID) != authorizationID {
		return entity.Order{}, entity.ErrAuthorizationMismatch
	}

	return order, nil
}

// earlierCapture looks the authorization up when the provider refused to
// capture it. A completed one was captured before, by a concurrent call or
// by an attempt that never marked the order paid.
func (s *Service) earlierCapture(ctx context.Context, authorizationID string, captureErr error) (entity.Capture, error) {
	if !errors.Is(captureErr, entity.ErrPaymentNotCompleted) {
		return entity.Capture{}, captureErr
	}

	capture, err := s.provider.FindCapture(ctx, authorizationID)
	if err != nil {
		log.FromContext(ctx).WithError(err).WithField("authorization_id", authorizationID).Warn("Could not look up authorization")
		return entity.Capture{}, captureErr
	}
	if !capture.Completed() {
		return entity.Capture{}, captureErr
	}

	log.FromContext(ctx).WithField("authorization_id", authorizationID).Info("Authorization was already captured")

	return capture, nil
}

func (s *Service) alreadyCaptured(ctx context.Context, order entity.Order) (CaptureResult, error) {
	issuance, err := s.IssueTickets(ctx, order.OrderID)
	if err != nil {
		return CaptureResult{}, err
	}

	return CaptureResult{
		Order: order,
		Capture: entity.Capture{
			TransactionID: lo.FromPtr(order.PaymentReference),
			Status:        entity.CaptureStatusCompleted,
			Amount:        order.Money(),
		},
		Issuance: issuance,
	}, nil
}

// PayWithCard settles the order with a simulated card transaction.
func (s *Service) PayWithCard(ctx context.Context, orderID string) (CaptureResult, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return CaptureResult{}, err
	}
	if order.IsPaid() {
		return s.alreadyCaptured(ctx, order)
	}

	transactionID := "SIM-" + strings.ToUpper(shortuuid.New())
	s.recordPayment(ctx, order, entity.PaymentMethodCard, transactionID, entity.CaptureStatusCompleted)

	paid, issuance, err := s.fulfil(ctx, order, entity.PaymentMethodCard, transactionID)
	if err != nil {
		return CaptureResult{}, err
	}

	return CaptureResult{
		Order: paid,
		Capture: entity.Capture{
			TransactionID: lo.FromPtr(paid.PaymentReference),
			Status:        entity.CaptureStatusCompleted,
			Amount:        paid.Money(),
		},
		Issuance: issuance,
	}, nil
}

// fulfil marks the order paid and issues its tickets. Losing the paid
// transition to a concurrent caller is not an error.
func (s *Service) fulfil(
	ctx context.Context,
	order entity.Order,
	method string,
	paymentReference string,
) (entity.Order, entity.Issuance, error) {
	paid, err := s.orders.MarkPaid(ctx, order.OrderID, method, paymentReference)
	if errors.Is(err, entity.ErrAlreadyPaid) {
		paid, err = s.orders.Get(ctx, order.OrderID)
	} else if err == nil {
		metrics.PaymentsCaptured.WithLabelValues(method).Inc()
		log.FromContext(ctx).WithFields(logrus.Fields{
			"order_id":          order.OrderID,
			"payment_method":    method,
			"payment_reference": paymentReference,
		}).Info("Order paid")
	}
	if err != nil {
		return entity.Order{}, entity.Issuance{}, err
	}

	issuance, err := s.IssueTickets(ctx, paid.OrderID)
	if err != nil {
		return entity.Order{}, entity.Issuance{}, err
	}

	return paid, issuance, nil
}

func (s *Service) recordPayment(ctx context.Context, order entity.Order, method string, transactionID string, status string) {
	err := s.audit.Add(ctx, entity.PaymentAuditRecord{
		OrderID:        order.OrderID,
		Method:         method,
		TransactionID:  transactionID,
		Amount:         order.TotalAmount,
		Currency:       order.Currency,
		ProviderStatus: status,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		log.FromContext(ctx).WithError(err).WithField("order_id", order.OrderID).Warn("Could not store payment audit record")
	}
}

// IssueTickets mints the tickets of a paid order, or returns the ones minted
// before. A sold out category after payment leaves the money captured and
// flags the order for reconciliation.
func (s *Service) IssueTickets(ctx context.Context, orderID string) (_ entity.Issuance, err error) {
	ctx, span := tracing.StartSpan(ctx, "IssueTickets", orderID)
	defer func() { tracing.EndSpan(span, err) }()

	issuance, err := s.tickets.Issue(ctx, orderID)
	if errors.Is(err, entity.ErrSoldOut) {
		s.requireReconciliation(ctx, orderID, err)
		return entity.Issuance{}, err
	}
	if err != nil {
		return entity.Issuance{}, err
	}

	if !issuance.AlreadyIssued {
		metrics.TicketsIssued.Add(float64(len(issuance.Tickets)))
		log.FromContext(ctx).WithFields(logrus.Fields{
			"order_id":      orderID,
			"tickets_count": len(issuance.Tickets),
		}).Info("Tickets issued")
	}

	return issuance, nil
}

func (s *Service) requireReconciliation(ctx context.Context, orderID string, cause error) {
	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"order_id":                orderID,
		"reconciliation_required": true,
	})
	logger.WithError(cause).Error("Captured payment needs reconciliation")

	metrics.ReconciliationsRequired.Inc()

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		logger.WithError(err).Error("Could not load order for reconciliation")
		return
	}
	if err := s.orders.FlagReconciliation(ctx, order, cause.Error()); err != nil {
		logger.WithError(err).Error("Could not publish reconciliation")
	}
}

// Complete issues the tickets of a paid order and returns them with the order.
func (s *Service) Complete(ctx context.Context, orderID string) (OrderDetails, error) {
	issuance, err := s.IssueTickets(ctx, orderID)
	if err != nil {
		return OrderDetails{}, err
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return OrderDetails{}, err
	}

	return OrderDetails{Order: order, Tickets: issuance.Tickets}, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (OrderDetails, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return OrderDetails{}, err
	}

	tickets, err := s.tickets.FindByOrderID(ctx, orderID)
	if err != nil {
		return OrderDetails{}, err
	}

	return OrderDetails{Order: order, Tickets: tickets}, nil
}

// GetOrderByNumber backs the landing page the provider redirect points at.
func (s *Service) GetOrderByNumber(ctx context.Context, orderNumber string) (OrderDetails, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return OrderDetails{}, err
	}

	return s.GetOrder(ctx, order.OrderID)
}

// Redeem accepts a scanned credential payload once.
func (s *Service) Redeem(ctx context.Context, payload string, staffID string, location string) (entity.Redemption, error) {
	if strings.TrimSpace(payload) == "" {
		return entity.Redemption{}, entity.ErrMissingCredentials
	}

	redemption, err := s.tickets.Redeem(ctx, []byte(payload), staffID, location)

	var rejected *entity.RedemptionError
	switch {
	case err == nil:
		metrics.Redemptions.WithLabelValues("redeemed").Inc()
		log.FromContext(ctx).WithFields(logrus.Fields{
			"ticket_number": redemption.TicketNumber,
			"redeemed_by":   staffID,
		}).Info("Ticket redeemed")
	case errors.As(err, &rejected):
		metrics.Redemptions.WithLabelValues(redemptionOutcome(rejected)).Inc()
		log.FromContext(ctx).WithField("ticket_number", rejected.TicketNumber).Info("Redemption rejected: " + rejected.Kind.Error())
	}

	return redemption, err
}

func redemptionOutcome(err *entity.RedemptionError) string {
	switch {
	case errors.Is(err, entity.ErrAlreadyRedeemed):
		return "already_redeemed"
	case errors.Is(err, entity.ErrTicketVoided):
		return "voided"
	default:
		return "not_found"
	}
}
