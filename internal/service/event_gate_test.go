package service_test

import (
	"testing"

	"chat-push/internal/models"
	"chat-push/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestEventGate(t *testing.T) {
	base := models.MessageEvent{
		MessageID:   "m1",
		ChannelID:   "general",
		MessageType: models.MessageTypeText,
		Owner:       "alice",
	}

	tests := []struct {
		name   string
		mutate func(e *models.MessageEvent)
		accept bool
		reason string
	}{
		{"plain text", func(e *models.MessageEvent) {}, true, service.GateReasonAccepted},
		{"image", func(e *models.MessageEvent) { e.MessageType = models.MessageTypeImage }, true, service.GateReasonAccepted},
		{"system", func(e *models.MessageEvent) { e.MessageType = models.MessageTypeSystem }, false, service.GateReasonSystemMessage},
		{"silent", func(e *models.MessageEvent) { e.SendSilently = true }, false, service.GateReasonSilent},
		{"in test", func(e *models.MessageEvent) { e.Context.InTest = true }, false, service.GateReasonBulkContext},
		{"in install", func(e *models.MessageEvent) { e.Context.InInstall = true }, false, service.GateReasonBulkContext},
		{"in patch", func(e *models.MessageEvent) { e.Context.InPatch = true }, false, service.GateReasonBulkContext},
		{"in import", func(e *models.MessageEvent) { e.Context.InImport = true }, false, service.GateReasonBulkContext},
		{"self conversation", func(e *models.MessageEvent) { e.IsSelfMessage = true }, false, service.GateReasonSelfMessage},
		{"direct message", func(e *models.MessageEvent) { e.IsDirectMessage = true }, true, service.GateReasonAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := base
			tt.mutate(&event)

			decision := service.Evaluate(event)
			assert.Equal(t, tt.accept, decision.Accept)
			assert.Equal(t, tt.reason, decision.Reason)
			assert.Equal(t, tt.accept, service.ShouldNotify(event))
		})
	}
}
