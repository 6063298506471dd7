package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/sunny07-bar/website-sub000/entity"
)

type PaymentProviderMock struct {
	lock sync.Mutex

	// CaptureStatus overrides the status returned by Capture, COMPLETED when empty.
	CaptureStatus string

	// CapturedAmount overrides the captured amount, the authorized one when empty.
	CapturedAmount string

	// Err is returned by every call when set.
	Err error

	authorizations map[string]entity.AuthorizationRequest
	captures       map[string]int
}

func (m *PaymentProviderMock) CreateAuthorization(ctx context.Context, request entity.AuthorizationRequest) (entity.Authorization, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.Err != nil {
		return entity.Authorization{}, m.Err
	}
	if m.authorizations == nil {
		m.authorizations = make(map[string]entity.AuthorizationRequest)
	}

	id := "PAYID-" + uuid.NewString()
	m.authorizations[id] = request

	return entity.Authorization{
		AuthorizationID: id,
		ApprovalURL:     "https://paypal.example/checkoutnow?token=" + id,
	}, nil
}

func (m *PaymentProviderMock) Capture(ctx context.Context, authorizationID string) (entity.Capture, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.Err != nil {
		return entity.Capture{}, m.Err
	}

	request, ok := m.authorizations[authorizationID]
	if !ok {
		return entity.Capture{}, fmt.Errorf("%w: unknown authorization %s", entity.ErrPaymentNotCompleted, authorizationID)
	}
	if m.captures == nil {
		m.captures = make(map[string]int)
	}
	if m.captures[authorizationID] > 0 {
		return entity.Capture{}, fmt.Errorf("%w: authorization %s already captured", entity.ErrPaymentNotCompleted, authorizationID)
	}

	status := m.CaptureStatus
	if status == "" {
		status = entity.CaptureStatusCompleted
	}
	if status == entity.CaptureStatusCompleted {
		m.captures[authorizationID]++
	}

	return entity.Capture{
		TransactionID: "CAPTURE-" + authorizationID,
		Status:        status,
		Amount:        m.capturedAmount(request),
	}, nil
}

func (m *PaymentProviderMock) capturedAmount(request entity.AuthorizationRequest) entity.Money {
	if m.CapturedAmount == "" {
		return request.Amount
	}

	return entity.Money{Amount: m.CapturedAmount, Currency: request.Amount.Currency}
}

func (m *PaymentProviderMock) FindCapture(ctx context.Context, authorizationID string) (entity.Capture, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.Err != nil {
		return entity.Capture{}, m.Err
	}

	request, ok := m.authorizations[authorizationID]
	if !ok {
		return entity.Capture{}, fmt.Errorf("%w: unknown authorization %s", entity.ErrPaymentNotCompleted, authorizationID)
	}
	if m.captures[authorizationID] == 0 {
		return entity.Capture{TransactionID: authorizationID, Status: "APPROVED"}, nil
	}

	return entity.Capture{
		TransactionID: "CAPTURE-" + authorizationID,
		Status:        entity.CaptureStatusCompleted,
		Amount:        m.capturedAmount(request),
	}, nil
}

func (m *PaymentProviderMock) Authorizations() map[string]entity.AuthorizationRequest {
	m.lock.Lock()
	defer m.lock.Unlock()

	authorizations := make(map[string]entity.AuthorizationRequest, len(m.authorizations))
	for k, v := range m.authorizations {
		authorizations[k] = v
	}
	return authorizations
}

func (m *PaymentProviderMock) CapturesCount(authorizationID string) int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.captures[authorizationID]
}
