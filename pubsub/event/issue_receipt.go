package event

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/sirupsen/logrus"

	"github.com/sunny07-bar/website-sub000/entity"
)

func (h Handler) IssueReceiptHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"IssueReceiptHandler",
		func(ctx context.Context, event *entity.OrderPaid_v1) error {
			if event.Total.Amount == "0.00" {
				log.FromContext(ctx).WithField("order_id", event.OrderID).Debug("Skipping receipt for free order")
				return nil
			}

			log.FromContext(ctx).Info("Issuing receipt")

			resp, err := h.receiptsService.IssueReceipt(ctx, entity.IssueReceiptRequest{
				ReferenceID:    event.OrderNumber,
				Price:          event.Total,
				IdempotencyKey: event.OrderID,
			})
			if err != nil {
				return fmt.Errorf("failed to issue receipt: %w", err)
			}

			log.FromContext(ctx).WithFields(logrus.Fields{
				"order_id":       event.OrderID,
				"receipt_number": resp.ReceiptNumber,
			}).Info("Receipt issued")

			return nil
		},
	)
}
