package entity

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// BaseCategoryName is the name a flat-priced event's implicit category gets
// when it is materialized on first sale.
const BaseCategoryName = "General Admission"

// Unlimited is reported as available capacity for categories without a total.
const Unlimited = math.MaxInt32

type Event struct {
	EventID   string              `json:"event_id" db:"event_id"`
	Title     string              `json:"title" db:"title"`
	StartsAt  time.Time           `json:"starts_at" db:"starts_at"`
	EndsAt    *time.Time          `json:"ends_at,omitempty" db:"ends_at"`
	Location  string              `json:"location" db:"location"`
	BasePrice decimal.NullDecimal `json:"base_price" db:"base_price"`
	Currency  string              `json:"currency" db:"currency"`

	Categories []TicketCategory `json:"categories" db:"-"`
}

func (e Event) HasStarted(now time.Time) bool {
	return !e.StartsAt.After(now)
}

// HasSyntheticCategory is true for flat-priced events that were never given
// explicit categories.
func (e Event) HasSyntheticCategory() bool {
	return e.BasePrice.Valid && len(e.Categories) == 0
}

func (e Event) Category(categoryID string) (TicketCategory, bool) {
	for _, c := range e.Categories {
		if c.CategoryID == categoryID {
			return c, true
		}
	}
	return TicketCategory{}, false
}

func (e Event) CategoryByName(name string) (TicketCategory, bool) {
	for _, c := range e.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return TicketCategory{}, false
}

type TicketCategory struct {
	CategoryID    string          `json:"category_id" db:"category_id"`
	EventID       string          `json:"event_id" db:"event_id"`
	Name          string          `json:"name" db:"name"`
	Price         decimal.Decimal `json:"price" db:"price"`
	Currency      string          `json:"currency" db:"currency"`
	QuantityTotal *int            `json:"quantity_total" db:"quantity_total"`
	QuantitySold  int             `json:"quantity_sold" db:"quantity_sold"`
}

func (c TicketCategory) AvailableCapacity() int {
	if c.QuantityTotal == nil {
		return Unlimited
	}
	available := *c.QuantityTotal - c.QuantitySold
	if available < 0 {
		return 0
	}
	return available
}

type CategoryRefKind string

const (
	CategoryRefExplicit  CategoryRefKind = "explicit"
	CategoryRefSynthetic CategoryRefKind = "synthetic"
)

// CategoryRef points either at a stored ticket category or at the implicit
// base category of a flat-priced event.
type CategoryRef struct {
	Kind CategoryRefKind `json:"kind"`
	// ID is the category id for explicit refs and the event id for synthetic ones.
	ID string `json:"id"`
}

func ExplicitCategory(categoryID string) CategoryRef {
	return CategoryRef{Kind: CategoryRefExplicit, ID: categoryID}
}

func SyntheticCategory(eventID string) CategoryRef {
	return CategoryRef{Kind: CategoryRefSynthetic, ID: eventID}
}

func (r CategoryRef) IsSynthetic() bool {
	return r.Kind == CategoryRefSynthetic
}

// ResolveCategory maps a ref onto the event. A synthetic ref resolves to the
// already materialized base category when one exists, otherwise to a priced
// placeholder with an empty CategoryID.
func (e Event) ResolveCategory(ref CategoryRef) (CategoryRef, TicketCategory, error) {
	if !ref.IsSynthetic() {
		c, ok := e.Category(ref.ID)
		if !ok {
			return CategoryRef{}, TicketCategory{}, ErrCategoryNotFound
		}
		return ref, c, nil
	}

	if ref.ID != e.EventID {
		return CategoryRef{}, TicketCategory{}, ErrCategoryNotFound
	}
	if !e.BasePrice.Valid {
		return CategoryRef{}, TicketCategory{}, ErrCategoryNotFound
	}
	if c, ok := e.CategoryByName(BaseCategoryName); ok {
		return ExplicitCategory(c.CategoryID), c, nil
	}
	if !e.HasSyntheticCategory() {
		return CategoryRef{}, TicketCategory{}, ErrCategoryNotFound
	}

	return ref, TicketCategory{
		EventID:  e.EventID,
		Name:     BaseCategoryName,
		Price:    e.BasePrice.Decimal,
		Currency: e.Currency,
	}, nil
}
