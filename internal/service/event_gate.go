package service

import "chat-push/internal/models"

// Причины решения гейта. Используются как метки метрик.
const (
	GateReasonAccepted      = "accepted"
	GateReasonSystemMessage = "system_message"
	GateReasonSilent        = "send_silently"
	GateReasonBulkContext   = "bulk_context"
	GateReasonSelfMessage   = "self_message"
)

// GateDecision - решение о том, порождает ли событие уведомление.
type GateDecision struct {
	Accept bool
	Reason string
}

// Evaluate - чистая функция без I/O: решает, нужно ли уведомлять о сообщении.
func Evaluate(event models.MessageEvent) GateDecision {
	switch {
	case event.MessageType == models.MessageTypeSystem:
		return GateDecision{Reason: GateReasonSystemMessage}
	case event.SendSilently:
		return GateDecision{Reason: GateReasonSilent}
	case event.Context.Bulk():
		return GateDecision{Reason: GateReasonBulkContext}
	case event.IsSelfMessage:
		return GateDecision{Reason: GateReasonSelfMessage}
	}
	return GateDecision{Accept: true, Reason: GateReasonAccepted}
}

// ShouldNotify - сокращение для Evaluate(event).Accept.
func ShouldNotify(event models.MessageEvent) bool {
	return Evaluate(event).Accept
}
