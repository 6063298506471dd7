package event

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/samber/lo"

	"github.com/sunny07-bar/website-sub000/entity"
)

const ticketsToDeliverSheet = "tickets-to-deliver"

var ticketTemplate = template.Must(template.New("ticket").Parse(`<html>
<body>
	<h1>{{.Ticket.TicketNumber}}</h1>
	<p>Order {{.OrderNumber}} for {{.CustomerName}}</p>
	<p>{{.Ticket.CategoryName}}: {{.Ticket.Price.Amount}} {{.Ticket.Price.Currency}}</p>
	<pre data-qr="credential">{{.Ticket.CredentialPayload}}</pre>
</body>
</html>
`))

func TicketFileID(ticketNumber string) string {
	return ticketNumber + "-ticket.html"
}

// DeliverTicketsHandler stores one document per ticket and queues the order
// for the mailing collaborator. Re-delivery overwrites nothing: an existing
// file counts as delivered.
func (h Handler) DeliverTicketsHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"DeliverTicketsHandler",
		func(ctx context.Context, event *entity.TicketsIssued_v1) error {
			log.FromContext(ctx).WithField("order_id", event.OrderID).Info("Delivering tickets")

			for _, ticket := range event.Tickets {
				var content bytes.Buffer
				err := ticketTemplate.Execute(&content, struct {
					OrderNumber  string
					CustomerName string
					Ticket       entity.IssuedTicket
				}{
					OrderNumber:  event.OrderNumber,
					CustomerName: event.CustomerName,
					Ticket:       ticket,
				})
				if err != nil {
					return fmt.Errorf("could not render ticket %s: %w", ticket.TicketNumber, err)
				}

				if err := h.filesAPI.UploadFile(ctx, TicketFileID(ticket.TicketNumber), content.String()); err != nil {
					return fmt.Errorf("could not upload ticket %s: %w", ticket.TicketNumber, err)
				}
			}

			ticketNumbers := lo.Map(event.Tickets, func(t entity.IssuedTicket, _ int) string { return t.TicketNumber })

			return h.spreadsheetsService.AppendRow(
				ctx,
				ticketsToDeliverSheet,
				[]string{
					event.OrderNumber,
					event.CustomerName,
					event.CustomerEmail,
					strings.Join(ticketNumbers, " "),
				},
			)
		},
	)
}
