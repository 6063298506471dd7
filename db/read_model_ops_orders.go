package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jmoiron/sqlx"

	"github.com/sunny07-bar/website-sub000/entity"
)

type OpsOrdersReadModel struct {
	db *sqlx.DB
}

func NewOpsOrdersReadModel(db *sqlx.DB) OpsOrdersReadModel {
	if db == nil {
		panic("db is nil")
	}

	return OpsOrdersReadModel{db: db}
}

// AllOrders lists the read models, optionally only orders paid on paidDate
// (YYYY-MM-DD).
func (r OpsOrdersReadModel) AllOrders(ctx context.Context, paidDate string) ([]entity.OpsOrder, error) {
	query := "SELECT payload FROM read_model_ops_orders"
	var queryArgs []any

	if paidDate != "" {
		query += " WHERE payload->>'paid_at' IS NOT NULL AND DATE((payload->>'paid_at')::timestamptz) = $1"
		queryArgs = append(queryArgs, paidDate)
	}
	query += " ORDER BY payload->>'placed_at'"

	rows, err := r.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("could not get ops orders: %w", err)
	}
	defer rows.Close()

	result := []entity.OpsOrder{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}

		order, err := r.unmarshalReadModelFromDB(payload)
		if err != nil {
			return nil, err
		}

		result = append(result, order)
	}

	return result, rows.Err()
}

func (r OpsOrdersReadModel) OrderReadModel(ctx context.Context, orderID string) (entity.OpsOrder, error) {
	rm, err := r.findReadModelByOrderID(ctx, orderID, r.db)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.OpsOrder{}, entity.ErrOrderNotFound
	}

	return rm, err
}

func (r OpsOrdersReadModel) OnOrderPlaced(ctx context.Context, event *entity.OrderPlaced_v1) error {
	// this is the first event that should arrive, so we create the read model
	err := r.createReadModel(ctx, entity.OpsOrder{
		OrderID:       event.OrderID,
		OrderNumber:   event.OrderNumber,
		EventID:       event.EventID,
		PlacedAt:      event.Header.PublishedAt,
		CustomerEmail: event.CustomerEmail,
		Total:         event.Total,
		TicketsCount:  event.TicketsCount,
		Tickets:       map[string]entity.OpsTicket{},
	})
	if err != nil {
		return fmt.Errorf("could not create read model: %w", err)
	}

	return nil
}

func (r OpsOrdersReadModel) OnOrderPaid(ctx context.Context, event *entity.OrderPaid_v1) error {
	return r.updateOrderReadModel(
		ctx,
		event.OrderID,
		func(rm entity.OpsOrder) (entity.OpsOrder, error) {
			rm.PaidAt = event.Header.PublishedAt
			rm.PaymentMethod = event.PaymentMethod
			rm.PaymentReference = event.PaymentReference

			return rm, nil
		},
	)
}

func (r OpsOrdersReadModel) OnTicketsIssued(ctx context.Context, event *entity.TicketsIssued_v1) error {
	return r.updateOrderReadModel(
		ctx,
		event.OrderID,
		func(rm entity.OpsOrder) (entity.OpsOrder, error) {
			for _, issued := range event.Tickets {
				ticket := rm.Tickets[issued.TicketID]

				ticket.TicketNumber = issued.TicketNumber
				ticket.CategoryName = issued.CategoryName
				ticket.Price = issued.Price
				ticket.IssuedAt = event.Header.PublishedAt

				rm.Tickets[issued.TicketID] = ticket
			}

			return rm, nil
		},
	)
}

func (r OpsOrdersReadModel) OnTicketRedeemed(ctx context.Context, event *entity.TicketRedeemed_v1) error {
	return r.updateOrderReadModel(
		ctx,
		event.OrderID,
		func(rm entity.OpsOrder) (entity.OpsOrder, error) {
			ticket, ok := rm.Tickets[event.TicketID]
			if !ok {
				// we are using zero-value of OpsTicket
				log.
					FromContext(ctx).
					WithField("ticket_id", event.TicketID).
					Debug("Creating ticket read model on redemption")
				ticket.TicketNumber = event.TicketNumber
			}

			ticket.RedeemedAt = event.RedeemedAt
			ticket.RedeemedBy = event.RedeemedBy

			rm.Tickets[event.TicketID] = ticket

			return rm, nil
		},
	)
}

func (r OpsOrdersReadModel) OnReconciliationRequired(ctx context.Context, event *entity.ReconciliationRequired_v1) error {
	return r.updateOrderReadModel(
		ctx,
		event.OrderID,
		func(rm entity.OpsOrder) (entity.OpsOrder, error) {
			rm.ReconciliationRequired = true
			rm.ReconciliationReason = event.Reason

			return rm, nil
		},
	)
}

func (r OpsOrdersReadModel) createReadModel(
	ctx context.Context,
	order entity.OpsOrder,
) error {
	order.LastUpdate = time.Now()

	payload, err := json.Marshal(order)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO
		    read_model_ops_orders (payload, order_id)
		VALUES
			($1, $2)
		ON CONFLICT (order_id) DO NOTHING; -- read model may be already updated by another event - we don't want to override
`, payload, order.OrderID)
	if err != nil {
		return fmt.Errorf("could not create read model: %w", err)
	}

	return nil
}

func (r OpsOrdersReadModel) updateOrderReadModel(
	ctx context.Context,
	orderID string,
	updateFunc func(rm entity.OpsOrder) (entity.OpsOrder, error),
) error {
	return updateInTx(
		ctx,
		r.db,
		sql.LevelRepeatableRead,
		func(ctx context.Context, tx *sqlx.Tx) error {
			rm, err := r.findReadModelByOrderID(ctx, orderID, tx)
			if errors.Is(err, sql.ErrNoRows) {
				// events arrived out of order - it should spin until the read model is created
				return fmt.Errorf("read model for order %s not exist yet", orderID)
			} else if err != nil {
				return fmt.Errorf("could not find read model: %w", err)
			}

			updatedRm, err := updateFunc(rm)
			if err != nil {
				return err
			}

			return r.updateReadModel(ctx, tx, updatedRm)
		},
	)
}

func (r OpsOrdersReadModel) updateReadModel(
	ctx context.Context,
	tx *sqlx.Tx,
	rm entity.OpsOrder,
) error {
	rm.LastUpdate = time.Now()

	payload, err := json.Marshal(rm)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO
			read_model_ops_orders (payload, order_id)
		VALUES
			($1, $2)
		ON CONFLICT (order_id) DO UPDATE SET payload = excluded.payload;
		`, payload, rm.OrderID)
	if err != nil {
		return fmt.Errorf("could not update read model: %w", err)
	}

	return nil
}

func (r OpsOrdersReadModel) findReadModelByOrderID(
	ctx context.Context,
	orderID string,
	db dbExecutor,
) (entity.OpsOrder, error) {
	var payload []byte

	err := db.QueryRowxContext(
		ctx,
		"SELECT payload FROM read_model_ops_orders WHERE order_id::text = $1",
		orderID,
	).Scan(&payload)
	if err != nil {
		return entity.OpsOrder{}, err
	}

	return r.unmarshalReadModelFromDB(payload)
}

func (r OpsOrdersReadModel) unmarshalReadModelFromDB(payload []byte) (entity.OpsOrder, error) {
	var dbReadModel entity.OpsOrder
	if err := json.Unmarshal(payload, &dbReadModel); err != nil {
		return entity.OpsOrder{}, err
	}

	if dbReadModel.Tickets == nil {
		dbReadModel.Tickets = map[string]entity.OpsTicket{}
	}

	return dbReadModel, nil
}
