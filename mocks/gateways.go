// Package mocks holds recording fakes of the gateway APIs used by the
// message handlers. Calls are recorded only when they succeed.
package mocks

import (
	"context"
	"sync"
	"testing"

	"github.com/sunny07-bar/website-sub000/entity"
)

type Spreadsheets struct {
	mu sync.Mutex
	t  *testing.T

	// Err fails every AppendRow when set.
	Err error

	rows map[string][][]string
}

func NewSpreadsheets(t *testing.T) *Spreadsheets {
	if t == nil {
		panic("missing required argument 't'")
	}

	return &Spreadsheets{t: t, rows: make(map[string][][]string)}
}

func (m *Spreadsheets) AppendRow(ctx context.Context, sheetName string, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	m.t.Logf("row appended to %s: %v", sheetName, row)
	m.rows[sheetName] = append(m.rows[sheetName], row)

	return nil
}

func (m *Spreadsheets) Rows(sheetName string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([][]string(nil), m.rows[sheetName]...)
}

type Receipts struct {
	mu sync.Mutex
	t  *testing.T

	// Err fails every IssueReceipt when set.
	Err error

	issued []entity.IssueReceiptRequest
}

func NewReceipts(t *testing.T) *Receipts {
	if t == nil {
		panic("missing required argument 't'")
	}

	return &Receipts{t: t}
}

func (m *Receipts) IssueReceipt(ctx context.Context, request entity.IssueReceiptRequest) (entity.IssueReceiptResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return entity.IssueReceiptResponse{}, m.Err
	}

	m.issued = append(m.issued, request)

	return entity.IssueReceiptResponse{ReceiptNumber: "RCPT-" + request.ReferenceID}, nil
}

func (m *Receipts) Issued() []entity.IssueReceiptRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]entity.IssueReceiptRequest(nil), m.issued...)
}

type Files struct {
	mu sync.Mutex
	t  *testing.T

	// Err fails every UploadFile when set.
	Err error

	uploaded map[string]string
}

func NewFiles(t *testing.T) *Files {
	if t == nil {
		panic("missing required argument 't'")
	}

	return &Files{t: t, uploaded: make(map[string]string)}
}

func (m *Files) UploadFile(ctx context.Context, fileID string, fileContent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	m.uploaded[fileID] = fileContent

	return nil
}

func (m *Files) Uploaded() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	uploaded := make(map[string]string, len(m.uploaded))
	for k, v := range m.uploaded {
		uploaded[k] = v
	}
	return uploaded
}
