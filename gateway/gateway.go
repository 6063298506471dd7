package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/clients/receipts"
	"github.com/ThreeDotsLabs/go-event-driven/common/clients/spreadsheets"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"

	"github.com/sunny07-bar/website-sub000/entity"
)

// Gateway talks to the receipts, files and spreadsheets APIs.
type Gateway struct {
	clients *clients.Clients
}

func New(clients *clients.Clients) Gateway {
	if clients == nil {
		panic("clients is nil")
	}

	return Gateway{clients: clients}
}

// IssueReceipt is idempotent on request.IdempotencyKey, a repeated call
// returns the receipt issued first.
func (g Gateway) IssueReceipt(ctx context.Context, request entity.IssueReceiptRequest) (entity.IssueReceiptResponse, error) {
	resp, err := g.clients.Receipts.PutReceiptsWithResponse(ctx, receipts.PutReceiptsJSONRequestBody{
		TicketId: request.ReferenceID,
		Price: receipts.Money{
			MoneyAmount:   request.Price.Amount,
			MoneyCurrency: request.Price.Currency,
		},
		IdempotencyKey: &request.IdempotencyKey,
	})
	if err != nil {
		return entity.IssueReceiptResponse{}, fmt.Errorf("could not issue receipt for %s: %w", request.ReferenceID, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		// issued before with the same idempotency key
		return entity.IssueReceiptResponse{
			ReceiptNumber: resp.JSON200.Number,
			IssuedAt:      resp.JSON200.IssuedAt,
		}, nil
	case http.StatusCreated:
		return entity.IssueReceiptResponse{
			ReceiptNumber: resp.JSON201.Number,
			IssuedAt:      resp.JSON201.IssuedAt,
		}, nil
	default:
		return entity.IssueReceiptResponse{}, unexpectedStatus("PUT receipts-api/receipts", resp.StatusCode())
	}
}

// UploadFile stores a ticket document. An existing file is kept as is.
func (g Gateway) UploadFile(ctx context.Context, fileID string, fileContent string) error {
	resp, err := g.clients.Files.PutFilesFileIdContentWithTextBodyWithResponse(ctx, fileID, fileContent)
	if err != nil {
		return fmt.Errorf("could not upload file %s: %w", fileID, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict:
		log.FromContext(ctx).WithField("file_id", fileID).Info("File already exists")
		return nil
	default:
		return unexpectedStatus("PUT files-api/files/"+fileID+"/content", resp.StatusCode())
	}
}

func (g Gateway) AppendRow(ctx context.Context, spreadsheetName string, row []string) error {
	resp, err := g.clients.Spreadsheets.PostSheetsSheetRowsWithResponse(
		ctx,
		spreadsheetName,
		spreadsheets.PostSheetsSheetRowsJSONRequestBody{Columns: row},
	)
	if err != nil {
		return fmt.Errorf("could not append row to %s: %w", spreadsheetName, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return unexpectedStatus("POST spreadsheets-api/sheets/"+spreadsheetName+"/rows", resp.StatusCode())
	}

	return nil
}

func unexpectedStatus(endpoint string, status int) error {
	return fmt.Errorf("unexpected status code for %s: %d", endpoint, status)
}
