package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sunny07-bar/website-sub000/pubsub/outbox"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	event_id UUID PRIMARY KEY,
	title VARCHAR(255) NOT NULL,
	starts_at TIMESTAMPTZ NOT NULL,
	ends_at TIMESTAMPTZ,
	location VARCHAR(255) NOT NULL DEFAULT '',
	base_price NUMERIC(12, 2),
	currency CHAR(3) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS ticket_categories (
	category_id UUID PRIMARY KEY,
	event_id UUID NOT NULL REFERENCES events(event_id),
	name VARCHAR(255) NOT NULL,
	price NUMERIC(12, 2) NOT NULL,
	currency CHAR(3) NOT NULL,
	quantity_total INT,
	quantity_sold INT NOT NULL DEFAULT 0,
	UNIQUE (event_id, name),
	CHECK (quantity_sold >= 0),
	CHECK (quantity_total IS NULL OR quantity_sold <= quantity_total)
);

CREATE TABLE IF NOT EXISTS orders (
	order_id UUID PRIMARY KEY,
	order_number VARCHAR(32) NOT NULL UNIQUE,
	event_id UUID NOT NULL REFERENCES events(event_id),
	customer_name VARCHAR(255) NOT NULL,
	customer_email VARCHAR(255) NOT NULL,
	customer_phone VARCHAR(64) NOT NULL DEFAULT '',
	lines JSONB NOT NULL,
	total_amount NUMERIC(12, 2) NOT NULL,
	currency CHAR(3) NOT NULL,
	status VARCHAR(16) NOT NULL,
	payment_status VARCHAR(16) NOT NULL,
	payment_method VARCHAR(32),
	payment_reference VARCHAR(255),
	authorization_id VARCHAR(255) UNIQUE,
	approval_url TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	paid_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS pending_selections (
	order_id UUID PRIMARY KEY REFERENCES orders(order_id),
	items JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS purchased_tickets (
	ticket_id UUID PRIMARY KEY,
	order_id UUID NOT NULL REFERENCES orders(order_id),
	event_id UUID NOT NULL REFERENCES events(event_id),
	category_id UUID NOT NULL REFERENCES ticket_categories(category_id),
	seq INT NOT NULL,
	ticket_number VARCHAR(32) NOT NULL UNIQUE,
	credential_payload TEXT NOT NULL,
	credential_digest CHAR(64) NOT NULL UNIQUE,
	status VARCHAR(16) NOT NULL,
	customer_name VARCHAR(255) NOT NULL,
	category_name VARCHAR(255) NOT NULL,
	price_paid NUMERIC(12, 2) NOT NULL,
	currency CHAR(3) NOT NULL,
	issued_at TIMESTAMPTZ NOT NULL,
	redeemed_at TIMESTAMPTZ,
	redeemed_by VARCHAR(255),
	redemption_location VARCHAR(255),
	UNIQUE (order_id, seq)
);

CREATE TABLE IF NOT EXISTS payment_audit (
	id BIGSERIAL PRIMARY KEY,
	order_id UUID NOT NULL,
	method VARCHAR(32) NOT NULL,
	transaction_id VARCHAR(255) NOT NULL,
	amount NUMERIC(12, 2) NOT NULL,
	currency CHAR(3) NOT NULL,
	provider_status VARCHAR(64) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS events_log (
	event_id UUID PRIMARY KEY,
	published_at TIMESTAMPTZ NOT NULL,
	event_name VARCHAR(255) NOT NULL,
	event_payload JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS read_model_ops_orders (
	order_id UUID PRIMARY KEY,
	payload JSONB NOT NULL
);
`

func InitializeDatabaseSchema(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("could not initialize database schema: %w", err)
	}

	return outbox.InitializeSchema(db.DB)
}
