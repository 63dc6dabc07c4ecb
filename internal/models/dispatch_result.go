package models

// ErrorCode - классификация ошибки доставки на конкретный токен.
type ErrorCode string

const (
	ErrorCodeNone             ErrorCode = ""
	ErrorCodeNotRegistered    ErrorCode = "registration-token-not-registered"
	ErrorCodeInvalidToken     ErrorCode = "invalid-registration-token"
	ErrorCodeSenderIDMismatch ErrorCode = "sender-id-mismatch"
	ErrorCodeQuotaExceeded    ErrorCode = "quota-exceeded"
	ErrorCodeUnavailable      ErrorCode = "unavailable"
	ErrorCodeInternal         ErrorCode = "internal-error"
	ErrorCodeUnknown          ErrorCode = "unknown"
)

// IsTerminal сообщает, что токен никогда больше не примет доставку.
func (c ErrorCode) IsTerminal() bool {
	return c == ErrorCodeNotRegistered || c == ErrorCodeInvalidToken
}

// SkipReason объясняет, почему отправка не выполнялась.
type SkipReason string

const (
	SkipNone           SkipReason = ""
	SkipNoTokens       SkipReason = "no_tokens"
	SkipNotInitialized SkipReason = "not_initialized"
	SkipInvalidRequest SkipReason = "invalid_request"
)

// TokenOutcome - результат доставки на один токен.
type TokenOutcome struct {
	Token     string    `json:"token"`
	Success   bool      `json:"success"`
	MessageID string    `json:"message_id,omitempty"`
	ErrorCode ErrorCode `json:"error_code,omitempty"`
	Err       error     `json:"-"`
}

// DispatchResult - итог одной попытки отправки. Не сохраняется.
type DispatchResult struct {
	Attempted    int            `json:"attempted"`
	SuccessCount int            `json:"success_count"`
	FailureCount int            `json:"failure_count"`
	Outcomes     []TokenOutcome `json:"outcomes"`
	FallbackUsed bool           `json:"fallback_used"`
	Skipped      SkipReason     `json:"skipped,omitempty"`
}

// Delivered - хотя бы одно устройство приняло уведомление.
func (r DispatchResult) Delivered() bool {
	return r.SuccessCount > 0
}

// Failed возвращает только неуспешные исходы.
func (r DispatchResult) Failed() []TokenOutcome {
	failed := make([]TokenOutcome, 0, r.FailureCount)
	for _, o := range r.Outcomes {
		if !o.Success {
			failed = append(failed, o)
		}
	}
	return failed
}

// Add учитывает исход доставки на один токен.
func (r *DispatchResult) Add(o TokenOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Success {
		r.SuccessCount++
	} else {
		r.FailureCount++
	}
}

// Merge добавляет результат батча к общему результату.
func (r *DispatchResult) Merge(other DispatchResult) {
	r.Attempted += other.Attempted
	r.SuccessCount += other.SuccessCount
	r.FailureCount += other.FailureCount
	r.Outcomes = append(r.Outcomes, other.Outcomes...)
	r.FallbackUsed = r.FallbackUsed || other.FallbackUsed
}
