package fcm

import (
	"context"
	"fmt"

	"chat-push/internal/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Transport - тонкая обертка над messaging.Client. Единственный клиент провайдера на процесс.
type Transport struct {
	client *messaging.Client
	dryRun bool
	logger *zap.Logger
}

// NewTransport создает Firebase App из учетных данных сервис-аккаунта и получает клиент FCM.
func NewTransport(ctx context.Context, creds config.ProviderCredentials, dryRun bool, logger *zap.Logger) (*Transport, error) {
	credentialsJSON, err := creds.ServiceAccountJSON()
	if err != nil {
		return nil, err
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: creds.ProjectID()}, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Firebase App для проекта '%s': %w", creds.ProjectID(), err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения FCM Messaging client: %w", err)
	}

	log := logger.Named("fcm_transport")
	log.Info("FCM транспорт инициализирован",
		zap.String("project_id", creds.ProjectID()),
		zap.String("credentials_source", creds.Source),
		zap.Bool("dry_run", dryRun))

	return &Transport{client: client, dryRun: dryRun, logger: log}, nil
}

// SendEachForMulticast отправляет одно сообщение на набор токенов (до 500).
func (t *Transport) SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	if t.dryRun {
		return t.client.SendEachForMulticastDryRun(ctx, message)
	}
	return t.client.SendEachForMulticast(ctx, message)
}

// Send отправляет сообщение на один токен и возвращает message id провайдера.
func (t *Transport) Send(ctx context.Context, message *messaging.Message) (string, error) {
	if t.dryRun {
		return t.client.SendDryRun(ctx, message)
	}
	return t.client.Send(ctx, message)
}
