package mocks

import (
	"context"

	"chat-push/internal/interfaces"
	"chat-push/internal/models"

	"github.com/stretchr/testify/mock"
)

// Mock DispatchJobPublisher
type DispatchJobPublisher struct {
	mock.Mock
}

func (m *DispatchJobPublisher) PublishDispatchJob(ctx context.Context, job models.DispatchJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// Mock MessageNotifier
type MessageNotifier struct {
	mock.Mock
}

func (m *MessageNotifier) NotifyMessage(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

// Mock JobDeduplicator
type JobDeduplicator struct {
	mock.Mock
}

func (m *JobDeduplicator) MarkProcessing(ctx context.Context, messageID string) (bool, error) {
	args := m.Called(ctx, messageID)
	return args.Bool(0), args.Error(1)
}

var (
	_ interfaces.DispatchJobPublisher = (*DispatchJobPublisher)(nil)
	_ interfaces.MessageNotifier      = (*MessageNotifier)(nil)
	_ interfaces.JobDeduplicator      = (*JobDeduplicator)(nil)
)
