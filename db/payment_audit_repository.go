package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sunny07-bar/website-sub000/entity"
)

type PaymentAuditRepository struct {
	db *sqlx.DB
}

func NewPaymentAuditRepository(db *sqlx.DB) *PaymentAuditRepository {
	if db == nil {
		panic("db is nil")
	}

	return &PaymentAuditRepository{db: db}
}

func (r *PaymentAuditRepository) Add(ctx context.Context, record entity.PaymentAuditRecord) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO
			payment_audit (order_id, method, transaction_id, amount, currency, provider_status)
		VALUES
			(:order_id, :method, :transaction_id, :amount, :currency, :provider_status)
	`, record)
	if err != nil {
		return fmt.Errorf("could not add payment audit record for order %s: %w", record.OrderID, err)
	}

	return nil
}

func (r *PaymentAuditRepository) FindByOrderID(ctx context.Context, orderID string) ([]entity.PaymentAuditRecord, error) {
	var records []entity.PaymentAuditRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT order_id, method, transaction_id, amount, currency, provider_status, created_at
		FROM payment_audit
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("could not get payment audit records of order %s: %w", orderID, err)
	}

	return records, nil
}
