package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/sunny07-bar/website-sub000/entity"
)

const maxTicketNumberAttempts = 5

const ticketColumns = `
	ticket_id, order_id, event_id, category_id, seq, ticket_number,
	credential_payload, credential_digest, status, customer_name, category_name,
	price_paid, currency, issued_at, redeemed_at, redeemed_by, redemption_location`

type TicketsRepository struct {
	db     *sqlx.DB
	ledger *EventsRepository
}

func NewTicketsRepository(db *sqlx.DB) *TicketsRepository {
	if db == nil {
		panic("db is nil")
	}

	return &TicketsRepository{
		db:     db,
		ledger: NewEventsRepository(db),
	}
}

func (r *TicketsRepository) FindByOrderID(ctx context.Context, orderID string) ([]entity.PurchasedTicket, error) {
	return findTicketsByOrderID(ctx, r.db, orderID)
}

func findTicketsByOrderID(ctx context.Context, db dbExecutor, orderID string) ([]entity.PurchasedTicket, error) {
	var tickets []entity.PurchasedTicket
	err := db.SelectContext(ctx, &tickets, `
		SELECT `+ticketColumns+`
		FROM purchased_tickets
		WHERE order_id = $1
		ORDER BY seq
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("could not get tickets of order %s: %w", orderID, err)
	}

	return tickets, nil
}

// Issue mints the tickets of a paid order exactly once. The order row lock
// serializes concurrent calls for the same order, and a repeated call returns
// the tickets minted by the first one.
func (r *TicketsRepository) Issue(ctx context.Context, orderID string) (entity.Issuance, error) {
	issuance := entity.Issuance{OrderID: orderID}

	err := updateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		order, err := getOrder(ctx, tx, orderID, true)
		if err != nil {
			return err
		}
		if !order.IsPaid() {
			return entity.ErrOrderNotPaid
		}

		existing, err := findTicketsByOrderID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			issuance.Tickets = existing
			issuance.AlreadyIssued = true
			return nil
		}

		event, err := getEvent(ctx, tx, order.EventID)
		if err != nil {
			return err
		}

		selection, err := r.selection(ctx, tx, order, event)
		if err != nil {
			return err
		}

		issuedAt := time.Now().UTC().Truncate(time.Millisecond)
		seq := 0

		for _, line := range selection {
			categoryID := line.Category.ID
			if line.Category.IsSynthetic() {
				category, err := r.ledger.FindOrCreateBaseCategory(ctx, tx, event)
				if err != nil {
					return err
				}
				categoryID = category.CategoryID
			}

			if err := r.ledger.Reserve(ctx, tx, categoryID, line.Quantity); err != nil {
				return err
			}

			for i := 0; i < line.Quantity; i++ {
				seq++

				ticket := entity.PurchasedTicket{
					TicketID:     uuid.NewString(),
					OrderID:      order.OrderID,
					EventID:      order.EventID,
					CategoryID:   categoryID,
					Seq:          seq,
					Status:       entity.TicketStatusValid,
					CustomerName: order.Name,
					CategoryName: line.CategoryName,
					PricePaid:    line.UnitPrice,
					Currency:     order.Currency,
					IssuedAt:     issuedAt,
				}

				ticket, err = insertTicket(ctx, tx, ticket)
				if err != nil {
					return err
				}

				issuance.Tickets = append(issuance.Tickets, ticket)
			}
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM pending_selections WHERE order_id = $1`, orderID)
		if err != nil {
			return fmt.Errorf("could not delete pending selection of order %s: %w", orderID, err)
		}

		eventBus, err := eventBusForTx(ctx, tx)
		if err != nil {
			return err
		}

		issuedTickets := make([]entity.IssuedTicket, 0, len(issuance.Tickets))
		for _, t := range issuance.Tickets {
			issuedTickets = append(issuedTickets, entity.IssuedTicket{
				TicketID:          t.TicketID,
				TicketNumber:      t.TicketNumber,
				CategoryName:      t.CategoryName,
				CredentialPayload: t.CredentialPayload,
				Price: entity.Money{
					Amount:   t.PricePaid.StringFixed(2),
					Currency: t.Currency,
				},
			})
		}

		return eventBus.Publish(ctx, entity.TicketsIssued_v1{
			Header:        entity.NewEventHeaderWithIdempotencyKey(orderID),
			OrderID:       order.OrderID,
			OrderNumber:   order.OrderNumber,
			EventID:       order.EventID,
			CustomerName:  order.Name,
			CustomerEmail: order.Email,
			Tickets:       issuedTickets,
		})
	})
	if err != nil {
		return entity.Issuance{}, err
	}

	return issuance, nil
}

// selection returns the lines to issue. Without a stored selection the
// quantity is reconstructed from the order total and the event base price,
// which loses the category split of multi-category orders.
func (r *TicketsRepository) selection(
	ctx context.Context,
	tx *sqlx.Tx,
	order entity.Order,
	event entity.Event,
) (entity.OrderLines, error) {
	var selection entity.PendingSelection
	err := tx.GetContext(ctx, &selection, `
		SELECT order_id, items, created_at
		FROM pending_selections
		WHERE order_id = $1
	`, order.OrderID)
	if err == nil && len(selection.Items) > 0 {
		return selection.Items, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("could not get pending selection of order %s: %w", order.OrderID, err)
	}

	if !event.BasePrice.Valid || !event.BasePrice.Decimal.IsPositive() {
		return nil, entity.ErrSelectionNotFound
	}

	qty := order.TotalAmount.Div(event.BasePrice.Decimal).Round(0).IntPart()
	if qty <= 0 {
		return nil, entity.ErrSelectionNotFound
	}

	log.FromContext(ctx).WithFields(logrus.Fields{
		"order_id":        order.OrderID,
		"lossy_selection": true,
		"quantity":        qty,
	}).Warn("Pending selection missing, reconstructing from order total")

	return entity.OrderLines{
		{
			Category:     entity.SyntheticCategory(event.EventID),
			CategoryName: entity.BaseCategoryName,
			UnitPrice:    event.BasePrice.Decimal,
			Quantity:     int(qty),
		},
	}, nil
}

func insertTicket(ctx context.Context, tx *sqlx.Tx, ticket entity.PurchasedTicket) (entity.PurchasedTicket, error) {
	for attempt := 0; attempt < maxTicketNumberAttempts; attempt++ {
		ticket.TicketNumber = entity.NewTicketNumber()

		payload := entity.NewCredentialPayload(ticket).Bytes()
		ticket.CredentialPayload = string(payload)
		ticket.CredentialDigest = entity.Digest(payload)

		res, err := tx.NamedExecContext(ctx, `
			INSERT INTO
				purchased_tickets (`+ticketColumns+`)
			VALUES
				(:ticket_id, :order_id, :event_id, :category_id, :seq, :ticket_number,
				:credential_payload, :credential_digest, :status, :customer_name, :category_name,
				:price_paid, :currency, :issued_at, :redeemed_at, :redeemed_by, :redemption_location)
			ON CONFLICT (ticket_number) DO NOTHING
		`, ticket)
		if err != nil {
			return entity.PurchasedTicket{}, fmt.Errorf("could not add ticket %d of order %s: %w", ticket.Seq, ticket.OrderID, err)
		}

		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return entity.PurchasedTicket{}, fmt.Errorf("could not get affected rows: %w", err)
		}
		if rowsAffected == 1 {
			return ticket, nil
		}
	}

	return entity.PurchasedTicket{}, fmt.Errorf("could not generate unique ticket number for order %s", ticket.OrderID)
}

// Redeem accepts a credential at most once. The digest is computed over the
// exact presented bytes, so any altered payload is simply unknown.
func (r *TicketsRepository) Redeem(ctx context.Context, payload []byte, staffID string, location string) (entity.Redemption, error) {
	digest := entity.Digest(payload)

	var redemption entity.Redemption
	redeemed := false

	err := updateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &redemption, `
			UPDATE purchased_tickets
			SET
				status = 'redeemed',
				redeemed_at = $2,
				redeemed_by = NULLIF($3, ''),
				redemption_location = NULLIF($4, '')
			WHERE credential_digest = $1 AND status = 'valid'
			RETURNING ticket_id, order_id, event_id, ticket_number, customer_name, category_name, redeemed_at
		`, digest, time.Now().UTC(), staffID, location)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not redeem ticket: %w", err)
		}
		redeemed = true

		eventBus, err := eventBusForTx(ctx, tx)
		if err != nil {
			return err
		}

		return eventBus.Publish(ctx, entity.TicketRedeemed_v1{
			Header:       entity.NewEventHeaderWithIdempotencyKey(redemption.TicketID),
			TicketID:     redemption.TicketID,
			TicketNumber: redemption.TicketNumber,
			OrderID:      redemption.OrderID,
			EventID:      redemption.EventID,
			RedeemedAt:   redemption.RedeemedAt,
			RedeemedBy:   staffID,
			Location:     location,
		})
	})
	if err != nil {
		return entity.Redemption{}, err
	}
	if redeemed {
		return redemption, nil
	}

	return entity.Redemption{}, r.rejection(ctx, digest)
}

func (r *TicketsRepository) rejection(ctx context.Context, digest string) error {
	var ticket struct {
		TicketNumber string              `db:"ticket_number"`
		Status       entity.TicketStatus `db:"status"`
		RedeemedAt   *time.Time          `db:"redeemed_at"`
	}
	err := r.db.GetContext(ctx, &ticket, `
		SELECT ticket_number, status, redeemed_at
		FROM purchased_tickets
		WHERE credential_digest = $1
	`, digest)
	if errors.Is(err, sql.ErrNoRows) {
		return &entity.RedemptionError{Kind: entity.ErrTicketNotFound}
	}
	if err != nil {
		return fmt.Errorf("could not get ticket: %w", err)
	}

	switch ticket.Status {
	case entity.TicketStatusRedeemed:
		return &entity.RedemptionError{
			Kind:         entity.ErrAlreadyRedeemed,
			TicketNumber: ticket.TicketNumber,
			RedeemedAt:   ticket.RedeemedAt,
		}
	case entity.TicketStatusVoid:
		return &entity.RedemptionError{
			Kind:         entity.ErrTicketVoided,
			TicketNumber: ticket.TicketNumber,
		}
	default:
		return fmt.Errorf("ticket %s in unexpected status %s", ticket.TicketNumber, ticket.Status)
	}
}

// CountSold reports how many tickets have been minted for the category.
func (r *TicketsRepository) CountSold(ctx context.Context, categoryID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM purchased_tickets WHERE category_id = $1`, categoryID)
	if err != nil {
		return 0, fmt.Errorf("could not count tickets of category %s: %w", categoryID, err)
	}

	return count, nil
}
