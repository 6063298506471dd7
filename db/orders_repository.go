package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sunny07-bar/website-sub000/entity"
)

const maxOrderNumberAttempts = 3

type OrdersRepository struct {
	db *sqlx.DB
}

func NewOrdersRepository(db *sqlx.DB) *OrdersRepository {
	if db == nil {
		panic("db is nil")
	}

	return &OrdersRepository{db: db}
}

const orderColumns = `
	order_id, order_number, event_id, customer_name, customer_email, customer_phone,
	lines, total_amount, currency, status, payment_status, payment_method,
	payment_reference, authorization_id, approval_url, created_at, updated_at, paid_at`

// Create stores the order with its pending selection and publishes
// OrderPlaced_v1, all in one transaction. The order number is regenerated
// when it collides with an existing one.
func (r *OrdersRepository) Create(ctx context.Context, order entity.Order, selection entity.PendingSelection) (entity.Order, error) {
	err := updateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		inserted := false
		for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
			if attempt > 0 {
				order.OrderNumber = entity.NewOrderNumber(order.CreatedAt)
			}

			res, err := tx.NamedExecContext(ctx, `
				INSERT INTO
					orders (`+orderColumns+`)
				VALUES
					(:order_id, :order_number, :event_id, :customer_name, :customer_email, :customer_phone,
					:lines, :total_amount, :currency, :status, :payment_status, :payment_method,
					:payment_reference, :authorization_id, :approval_url, :created_at, :updated_at, :paid_at)
				ON CONFLICT (order_number) DO NOTHING
			`, order)
			if err != nil {
				return fmt.Errorf("could not add order %s: %w", order.OrderID, err)
			}

			rowsAffected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("could not get affected rows: %w", err)
			}
			if rowsAffected == 1 {
				inserted = true
				break
			}
		}
		if !inserted {
			return fmt.Errorf("could not generate unique order number for order %s", order.OrderID)
		}

		selection.OrderID = order.OrderID
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO
				pending_selections (order_id, items)
			VALUES
				(:order_id, :items)
			ON CONFLICT (order_id) DO NOTHING
		`, selection)
		if err != nil {
			return fmt.Errorf("could not add pending selection of order %s: %w", order.OrderID, err)
		}

		eventBus, err := eventBusForTx(ctx, tx)
		if err != nil {
			return err
		}

		return eventBus.Publish(ctx, entity.OrderPlaced_v1{
			Header:        entity.NewEventHeaderWithIdempotencyKey(order.OrderID),
			OrderID:       order.OrderID,
			OrderNumber:   order.OrderNumber,
			EventID:       order.EventID,
			CustomerName:  order.Name,
			CustomerEmail: order.Email,
			Total:         order.Money(),
			TicketsCount:  order.Lines.Quantity(),
		})
	})
	if err != nil {
		return entity.Order{}, err
	}

	return order, nil
}

func (r *OrdersRepository) Get(ctx context.Context, orderID string) (entity.Order, error) {
	return getOrder(ctx, r.db, orderID, false)
}

func (r *OrdersRepository) GetByNumber(ctx context.Context, orderNumber string) (entity.Order, error) {
	var order entity.Order
	err := r.db.GetContext(ctx, &order, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, orderNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Order{}, entity.ErrOrderNotFound
	}
	if err != nil {
		return entity.Order{}, fmt.Errorf("could not get order %s: %w", orderNumber, err)
	}

	return order, nil
}

func (r *OrdersRepository) GetByAuthorizationID(ctx context.Context, authorizationID string) (entity.Order, error) {
	var order entity.Order
	err := r.db.GetContext(ctx, &order, `SELECT `+orderColumns+` FROM orders WHERE authorization_id = $1`, authorizationID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Order{}, entity.ErrOrderNotFound
	}
	if err != nil {
		return entity.Order{}, fmt.Errorf("could not get order by authorization %s: %w", authorizationID, err)
	}

	return order, nil
}

func getOrder(ctx context.Context, db dbExecutor, orderID string, forUpdate bool) (entity.Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return entity.Order{}, entity.ErrOrderNotFound
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var order entity.Order
	err := db.GetContext(ctx, &order, query, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Order{}, entity.ErrOrderNotFound
	}
	if err != nil {
		return entity.Order{}, fmt.Errorf("could not get order %s: %w", orderID, err)
	}

	return order, nil
}

// SetAuthorization remembers the provider authorization of an unpaid order.
// An order keeps its first authorization, later calls get ErrAlreadyAuthorized.
func (r *OrdersRepository) SetAuthorization(ctx context.Context, orderID string, authorization entity.Authorization) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET authorization_id = $2, approval_url = $3, updated_at = NOW()
		WHERE order_id = $1 AND payment_status = 'unpaid' AND authorization_id IS NULL
	`, orderID, authorization.AuthorizationID, authorization.ApprovalURL)
	if err != nil {
		return fmt.Errorf("could not set authorization of order %s: %w", orderID, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return r.notUpdatedReason(ctx, orderID)
	}

	return nil
}

// MarkPaid moves the order from unpaid to paid. Only one caller can win the
// transition, every other gets ErrAlreadyPaid. OrderPaid_v1 is published in
// the same transaction.
func (r *OrdersRepository) MarkPaid(ctx context.Context, orderID string, method string, paymentReference string) (entity.Order, error) {
	var paid entity.Order

	err := updateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &paid, `
			UPDATE orders
			SET
				payment_status = 'paid',
				status = 'confirmed',
				payment_method = $2,
				payment_reference = $3,
				paid_at = $4,
				updated_at = $4
			WHERE order_id = $1 AND payment_status = 'unpaid'
			RETURNING `+orderColumns,
			orderID, method, paymentReference, time.Now().UTC(),
		)
		if errors.Is(err, sql.ErrNoRows) {
			return r.notUpdatedReason(ctx, orderID)
		}
		if err != nil {
			return fmt.Errorf("could not mark order %s as paid: %w", orderID, err)
		}

		eventBus, err := eventBusForTx(ctx, tx)
		if err != nil {
			return err
		}

		return eventBus.Publish(ctx, entity.OrderPaid_v1{
			Header:           entity.NewEventHeaderWithIdempotencyKey(orderID),
			OrderID:          paid.OrderID,
			OrderNumber:      paid.OrderNumber,
			CustomerEmail:    paid.Email,
			PaymentMethod:    method,
			PaymentReference: paymentReference,
			Total:            paid.Money(),
		})
	})
	if err != nil {
		return entity.Order{}, err
	}

	return paid, nil
}

func (r *OrdersRepository) notUpdatedReason(ctx context.Context, orderID string) error {
	order, err := getOrder(ctx, r.db, orderID, false)
	if err != nil {
		return err
	}
	if order.IsPaid() {
		return entity.ErrAlreadyPaid
	}
	if order.AuthorizationID != nil {
		return entity.ErrAlreadyAuthorized
	}

	return fmt.Errorf("order %s was not updated", orderID)
}

// FlagReconciliation records that captured money and the order disagree:
// the order could not be fulfilled or the capture does not cover its total.
// The payment stays captured, operators settle it from the published event.
func (r *OrdersRepository) FlagReconciliation(ctx context.Context, order entity.Order, reason string) error {
	return updateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		eventBus, err := eventBusForTx(ctx, tx)
		if err != nil {
			return err
		}

		paymentReference := ""
		if order.PaymentReference != nil {
			paymentReference = *order.PaymentReference
		}

		return eventBus.Publish(ctx, entity.ReconciliationRequired_v1{
			Header:           entity.NewEventHeaderWithIdempotencyKey("reconciliation-" + order.OrderID),
			OrderID:          order.OrderID,
			OrderNumber:      order.OrderNumber,
			PaymentReference: paymentReference,
			Amount:           order.Money(),
			Reason:           reason,
		})
	})
}
