package event

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"github.com/sunny07-bar/website-sub000/entity"
)

const ordersToReconcileSheet = "orders-to-reconcile"

func (h Handler) ReconciliationHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"ReconciliationHandler",
		func(ctx context.Context, event *entity.ReconciliationRequired_v1) error {
			log.FromContext(ctx).WithField("order_id", event.OrderID).Info("Adding order to reconciliation sheet")
			return h.spreadsheetsService.AppendRow(
				ctx,
				ordersToReconcileSheet,
				[]string{
					event.OrderNumber,
					event.PaymentReference,
					event.Amount.Amount,
					event.Amount.Currency,
					event.Reason,
				},
			)
		},
	)
}
