package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sunny07-bar/website-sub000/entity"
)

// GatewayMock is an in-memory Gateway. Receipts are keyed by idempotency key,
// files by id, so redeliveries do not duplicate anything but rows.
type GatewayMock struct {
	lock sync.Mutex

	receipts map[string]entity.IssueReceiptRequest
	files    map[string]string
	rows     map[string][][]string
}

func (g *GatewayMock) IssueReceipt(ctx context.Context, request entity.IssueReceiptRequest) (entity.IssueReceiptResponse, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	if g.receipts == nil {
		g.receipts = make(map[string]entity.IssueReceiptRequest)
	}
	g.receipts[request.IdempotencyKey] = request

	return entity.IssueReceiptResponse{
		ReceiptNumber: "RCPT-" + request.ReferenceID,
		IssuedAt:      time.Now(),
	}, nil
}

// Receipts returns the issued receipts by idempotency key.
func (g *GatewayMock) Receipts() map[string]entity.IssueReceiptRequest {
	g.lock.Lock()
	defer g.lock.Unlock()

	receipts := make(map[string]entity.IssueReceiptRequest, len(g.receipts))
	for k, v := range g.receipts {
		receipts[k] = v
	}
	return receipts
}

func (g *GatewayMock) UploadFile(ctx context.Context, fileID string, fileContent string) error {
	g.lock.Lock()
	defer g.lock.Unlock()

	if g.files == nil {
		g.files = make(map[string]string)
	}
	if _, ok := g.files[fileID]; ok {
		return nil
	}
	g.files[fileID] = fileContent

	return nil
}

func (g *GatewayMock) DownloadFile(ctx context.Context, fileID string) (string, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	fileContent, ok := g.files[fileID]
	if !ok {
		return "", fmt.Errorf("file %s not found", fileID)
	}

	return fileContent, nil
}

func (g *GatewayMock) AppendRow(ctx context.Context, spreadsheetName string, row []string) error {
	g.lock.Lock()
	defer g.lock.Unlock()

	if g.rows == nil {
		g.rows = make(map[string][][]string)
	}
	g.rows[spreadsheetName] = append(g.rows[spreadsheetName], row)

	return nil
}

func (g *GatewayMock) Rows(spreadsheetName string) [][]string {
	g.lock.Lock()
	defer g.lock.Unlock()

	return append([][]string(nil), g.rows[spreadsheetName]...)
}
