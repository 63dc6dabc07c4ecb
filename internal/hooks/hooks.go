package hooks

import (
	"context"
	"fmt"
	"sync"

	"chat-push/internal/models"

	"go.uber.org/zap"
)

// MessageCreatedObserver реагирует на создание сообщения в чате.
type MessageCreatedObserver interface {
	Name() string
	OnMessageCreated(ctx context.Context, event models.MessageEvent) error
}

// Registry хранит наблюдателей, зарегистрированных при старте сервиса.
// Ошибки и паники наблюдателей не доходят до вызывающей стороны.
type Registry struct {
	mu        sync.RWMutex
	observers []MessageCreatedObserver
	logger    *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{logger: logger.Named("HookRegistry")}
}

func (r *Registry) Register(observer MessageCreatedObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, observer)
	r.logger.Info("Наблюдатель зарегистрирован", zap.String("observer", observer.Name()))
}

// Notify вызывает всех наблюдателей по очереди.
func (r *Registry) Notify(ctx context.Context, event models.MessageEvent) {
	r.mu.RLock()
	observers := make([]MessageCreatedObserver, len(r.observers))
	copy(observers, r.observers)
	r.mu.RUnlock()

	for _, o := range observers {
		if err := r.call(ctx, o, event); err != nil {
			r.logger.Error("Ошибка наблюдателя",
				zap.String("observer", o.Name()),
				zap.String("message_id", event.MessageID),
				zap.Error(err))
		}
	}
}

func (r *Registry) call(ctx context.Context, o MessageCreatedObserver, event models.MessageEvent) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in observer: %v", rec)
		}
	}()
	return o.OnMessageCreated(ctx, event)
}
