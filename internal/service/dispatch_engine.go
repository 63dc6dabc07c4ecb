package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chat-push/internal/config"
	"chat-push/internal/metrics"
	"chat-push/internal/models"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

const (
	maxMulticastTokens      = 500
	defaultMulticastTimeout = 10 * time.Second
	defaultSendTimeout      = 5 * time.Second
	// Деактивация токенов не должна зависеть от дедлайна задачи.
	classifyTimeout = 10 * time.Second
)

// Transport - клиент провайдера, которым пользуется движок.
type Transport interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// TransportFactory создает транспорт из учетных данных. Вызывается не более одного раза.
type TransportFactory func(ctx context.Context, creds config.ProviderCredentials) (Transport, error)

// EngineConfig - параметры движка рассылки.
type EngineConfig struct {
	BaseURL          string
	SiteName         string
	IconPath         string
	BatchSize        int
	MulticastTimeout time.Duration
	SendTimeout      time.Duration
}

// DispatchEngine доставляет уведомления: сначала multicast, при системной ошибке - по одному токену.
type DispatchEngine interface {
	// Initialize идемпотентна и не паникует. false - учетные данные неполные или клиент не создан.
	Initialize(ctx context.Context) bool
	IsInitialized() bool
	ProjectID() string
	SendToTokens(ctx context.Context, tokens []string, title, body string, opts models.SendOptions) models.DispatchResult
	SendToUser(ctx context.Context, userID, title, body string, opts models.SendOptions) (models.DispatchResult, error)
	SendToUsers(ctx context.Context, userIDs []string, title, body string, opts models.SendOptions) (models.DispatchResult, error)
	SendToChannel(ctx context.Context, channelID, excludeUser, title, body string, opts models.SendOptions) (models.DispatchResult, error)
	Send(ctx context.Context, req models.NotificationRequest) (models.DispatchResult, error)
}

type dispatchEngine struct {
	cfg        EngineConfig
	creds      config.ProviderCredentials
	factory    TransportFactory
	resolver   TargetResolver
	classifier FailureClassifier
	payloads   payloadBuilder
	logger     *zap.Logger

	initOnce    sync.Once
	transport   Transport
	initialized bool
}

func NewDispatchEngine(
	cfg EngineConfig,
	creds config.ProviderCredentials,
	factory TransportFactory,
	resolver TargetResolver,
	classifier FailureClassifier,
	logger *zap.Logger,
) DispatchEngine {
	if cfg.BatchSize <= 0 || cfg.BatchSize > maxMulticastTokens {
		cfg.BatchSize = maxMulticastTokens
	}
	if cfg.MulticastTimeout <= 0 {
		cfg.MulticastTimeout = defaultMulticastTimeout
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	return &dispatchEngine{
		cfg:        cfg,
		creds:      creds,
		factory:    factory,
		resolver:   resolver,
		classifier: classifier,
		payloads: payloadBuilder{
			baseURL:  cfg.BaseURL,
			siteName: cfg.SiteName,
			iconPath: cfg.IconPath,
			now:      time.Now,
		},
		logger: logger.Named("dispatch_engine"),
	}
}

// --- Инициализация ---

func (e *dispatchEngine) Initialize(ctx context.Context) bool {
	e.initOnce.Do(func() {
		if !e.creds.Complete() {
			e.logger.Warn("Учетные данные Firebase неполные, движок рассылки не инициализирован",
				zap.String("project_id", e.creds.ProjectID()),
				zap.String("source", e.creds.Source))
			return
		}
		transport, err := e.buildTransport(ctx)
		if err != nil {
			e.logger.Error("Не удалось создать клиент провайдера, движок рассылки не инициализирован", zap.Error(err))
			return
		}
		e.transport = transport
		e.initialized = true
		e.logger.Info("Движок рассылки инициализирован", zap.String("project_id", e.creds.ProjectID()))
	})
	return e.initialized
}

func (e *dispatchEngine) buildTransport(ctx context.Context) (transport Transport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic при создании транспорта: %v", r)
		}
	}()
	if e.factory == nil {
		return nil, errors.New("transport factory is not configured")
	}
	return e.factory(ctx, e.creds)
}

func (e *dispatchEngine) IsInitialized() bool {
	e.Initialize(context.Background())
	return e.initialized
}

func (e *dispatchEngine) ProjectID() string {
	return e.creds.ProjectID()
}

// --- Отправка на токены ---

func (e *dispatchEngine) SendToTokens(ctx context.Context, tokens []string, title, body string, opts models.SendOptions) models.DispatchResult {
	return e.sendToTokens(ctx, tokens, nil, title, body, opts)
}

// sendToTokens - общая часть SendToTokens и Send. owners может быть nil.
func (e *dispatchEngine) sendToTokens(ctx context.Context, tokens []string, owners map[string]string, title, body string, opts models.SendOptions) models.DispatchResult {
	if len(tokens) == 0 {
		metrics.DispatchAttemptsTotal.WithLabelValues("skipped").Inc()
		e.logger.Debug("Нет токенов для отправки")
		return models.DispatchResult{Skipped: models.SkipNoTokens}
	}
	if !e.Initialize(ctx) {
		metrics.DispatchAttemptsTotal.WithLabelValues("skipped").Inc()
		return models.DispatchResult{Skipped: models.SkipNotInitialized}
	}

	payload, err := e.payloads.build(title, body, opts)
	if err != nil {
		metrics.DispatchAttemptsTotal.WithLabelValues("skipped").Inc()
		e.logger.Error("Некорректный payload уведомления, отправка отменена", zap.Error(err))
		return models.DispatchResult{Skipped: models.SkipInvalidRequest}
	}

	var result models.DispatchResult
	for start := 0; start < len(tokens); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		result.Merge(e.sendBatch(ctx, payload, tokens[start:end], owners))
	}

	e.logger.Info("Результат отправки уведомления",
		zap.Int("attempted", result.Attempted),
		zap.Int("success_count", result.SuccessCount),
		zap.Int("failure_count", result.FailureCount),
		zap.Bool("fallback_used", result.FallbackUsed))
	return result
}

// sendBatch отправляет одну пачку и сразу классифицирует ошибки.
func (e *dispatchEngine) sendBatch(ctx context.Context, payload preparedPayload, tokens []string, owners map[string]string) models.DispatchResult {
	var result models.DispatchResult

	multicastCtx, cancel := context.WithTimeout(ctx, e.cfg.MulticastTimeout)
	started := time.Now()
	br, err := e.transport.SendEachForMulticast(multicastCtx, payload.multicast(tokens))
	cancel()
	metrics.MulticastDuration.Observe(time.Since(started).Seconds())

	if err == nil && br == nil {
		err = errors.New("provider returned empty batch response")
	}
	if err != nil {
		e.logger.Warn("Multicast не удался, переходим к отправке по одному токену",
			zap.Error(err), zap.Int("batch_size", len(tokens)))
		metrics.DispatchAttemptsTotal.WithLabelValues("fallback").Inc()
		result = e.sendIndividually(ctx, payload, tokens)
	} else {
		metrics.DispatchAttemptsTotal.WithLabelValues("multicast").Inc()
		result = e.collectBatch(tokens, br)
	}

	for _, o := range result.Outcomes {
		metrics.TokenOutcomesTotal.WithLabelValues(string(o.ErrorCode)).Inc()
	}
	if result.FailureCount > 0 {
		classifyCtx, cancelClassify := context.WithTimeout(context.WithoutCancel(ctx), classifyTimeout)
		report := e.classifier.Classify(classifyCtx, result.Failed(), owners)
		cancelClassify()
		e.logger.Info("Ошибки доставки классифицированы",
			zap.Int("deactivated", report.Deactivated),
			zap.Int("deactivation_failed", report.DeactivationFailed),
			zap.Int("transient", report.Transient))
	}
	return result
}

// collectBatch считает успехи по ответам на каждый токен; SuccessCount провайдера только сверяется.
func (e *dispatchEngine) collectBatch(tokens []string, br *messaging.BatchResponse) models.DispatchResult {
	result := models.DispatchResult{
		Attempted: len(tokens),
		Outcomes:  make([]models.TokenOutcome, 0, len(tokens)),
	}
	for idx, token := range tokens {
		var outcome models.TokenOutcome
		if idx < len(br.Responses) && br.Responses[idx] != nil {
			outcome = outcomeOf(token, br.Responses[idx].Success, br.Responses[idx].MessageID, br.Responses[idx].Error)
		} else {
			outcome = outcomeOf(token, false, "", errors.New("missing response for token"))
		}
		result.Add(outcome)
	}

	if br.SuccessCount != result.SuccessCount {
		metrics.SuccessCountMismatchTotal.Inc()
		e.logger.Warn("Счетчик успехов провайдера расходится с ответами по токенам",
			zap.Int("provider_success_count", br.SuccessCount),
			zap.Int("tallied_success_count", result.SuccessCount),
			zap.Int("responses", len(br.Responses)))
	}
	return result
}

// sendIndividually - запасной путь: одна отправка на токен, общий бюджет SendTimeout*len(tokens).
func (e *dispatchEngine) sendIndividually(ctx context.Context, payload preparedPayload, tokens []string) models.DispatchResult {
	result := models.DispatchResult{
		Attempted:    len(tokens),
		Outcomes:     make([]models.TokenOutcome, 0, len(tokens)),
		FallbackUsed: true,
	}

	loopCtx, cancelLoop := context.WithTimeout(ctx, e.cfg.SendTimeout*time.Duration(len(tokens)))
	defer cancelLoop()

	for _, token := range tokens {
		if err := loopCtx.Err(); err != nil {
			result.Add(outcomeOf(token, false, "", fmt.Errorf("fallback budget exhausted: %w", err)))
			continue
		}
		sendCtx, cancel := context.WithTimeout(loopCtx, e.cfg.SendTimeout)
		messageID, err := e.transport.Send(sendCtx, payload.single(token))
		cancel()
		if err != nil {
			e.logger.Warn("Ошибка отправки на токен",
				zap.String("token_prefix", models.TokenPrefix(token)), zap.Error(err))
		}
		result.Add(outcomeOf(token, err == nil, messageID, err))
	}
	return result
}

func outcomeOf(token string, success bool, messageID string, err error) models.TokenOutcome {
	if success {
		return models.TokenOutcome{Token: token, Success: true, MessageID: messageID}
	}
	if err == nil {
		err = errors.New("delivery failed without error details")
	}
	return models.TokenOutcome{Token: token, ErrorCode: ErrorCodeOf(err), Err: err}
}

// --- Отправка на логические цели ---

func (e *dispatchEngine) SendToUser(ctx context.Context, userID, title, body string, opts models.SendOptions) (models.DispatchResult, error) {
	return e.Send(ctx, models.NotificationRequest{Target: models.UserTarget(userID), Title: title, Body: body, SendOptions: opts})
}

func (e *dispatchEngine) SendToUsers(ctx context.Context, userIDs []string, title, body string, opts models.SendOptions) (models.DispatchResult, error) {
	return e.Send(ctx, models.NotificationRequest{Target: models.UsersTarget(userIDs), Title: title, Body: body, SendOptions: opts})
}

func (e *dispatchEngine) SendToChannel(ctx context.Context, channelID, excludeUser, title, body string, opts models.SendOptions) (models.DispatchResult, error) {
	return e.Send(ctx, models.NotificationRequest{Target: models.ChannelTarget(channelID, excludeUser), Title: title, Body: body, SendOptions: opts})
}

// Send валидирует запрос, раскрывает цель и отправляет. Ошибка - только валидация или сбой резолвера.
func (e *dispatchEngine) Send(ctx context.Context, req models.NotificationRequest) (models.DispatchResult, error) {
	if err := models.ValidateDataKeys(req.Data); err != nil {
		return models.DispatchResult{Skipped: models.SkipInvalidRequest}, err
	}
	if !e.Initialize(ctx) {
		return models.DispatchResult{Skipped: models.SkipNotInitialized}, nil
	}

	regs, err := e.resolver.ResolveRegistrations(ctx, req.Target)
	if err != nil {
		return models.DispatchResult{}, fmt.Errorf("ошибка определения получателей: %w", err)
	}
	if len(regs) == 0 {
		return models.DispatchResult{Skipped: models.SkipNoTokens}, nil
	}

	return e.sendToTokens(ctx, models.TokenStrings(regs), ownersOf(regs), req.Title, req.Body, req.SendOptions), nil
}

// ownersOf сопоставляет токен с владельцем. Токены нескольких пользователей в карту не попадают.
func ownersOf(regs []models.DeviceRegistration) map[string]string {
	owners := make(map[string]string, len(regs))
	shared := make(map[string]struct{})
	for _, reg := range regs {
		if prev, ok := owners[reg.Token]; ok && prev != reg.UserID {
			shared[reg.Token] = struct{}{}
			continue
		}
		owners[reg.Token] = reg.UserID
	}
	for token := range shared {
		delete(owners, token)
	}
	return owners
}

var _ DispatchEngine = (*dispatchEngine)(nil)
