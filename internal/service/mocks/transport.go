package mocks

import (
	"context"

	"chat-push/internal/service"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/mock"
)

// Mock Transport
type Transport struct {
	mock.Mock
}

func (m *Transport) SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	args := m.Called(ctx, message)
	br, _ := args.Get(0).(*messaging.BatchResponse)
	return br, args.Error(1)
}
func (m *Transport) Send(ctx context.Context, message *messaging.Message) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}

var _ service.Transport = (*Transport)(nil)
