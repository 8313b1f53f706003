package proxy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"qtrestaurant/internal/intent"
	"qtrestaurant/internal/models"
	"qtrestaurant/internal/models/providers"
)

// DefaultTimeout bounds one provider call.
const DefaultTimeout = 30 * time.Second

// Transports an exchange can arrive on.
const (
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
)

// Request is the chat endpoint input.
type Request struct {
	Message string             `json:"message"`
	History []models.ChatTurn  `json:"history,omitempty"`
	Cart    []models.CartEntry `json:"cart,omitempty"`
	UserID  string             `json:"userId,omitempty"`
}

// Recorder stores exchanges for later review.
type Recorder interface {
	Record(ex *models.ChatExchange) error
}

// Observer is told about every reply.
type Observer interface {
	ObserveReply(transport, provider string, reply intent.Reply, elapsed time.Duration)
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout sets the provider call timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRecorder records every exchange.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithObserver adds a reply observer.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, o) }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

// Service is the chat proxy core shared by every transport.
type Service struct {
	provider  providers.Provider
	prompt    PromptConfig
	timeout   time.Duration
	recorder  Recorder
	observers []Observer
	log       logrus.FieldLogger
}

// NewService creates the proxy over provider with the given prompt.
func NewService(provider providers.Provider, prompt PromptConfig, opts ...Option) (*Service, error) {
	if provider == nil {
		return nil, errors.New("proxy: provider is required")
	}
	if err := prompt.Validate(); err != nil {
		return nil, errors.Wrap(err, "proxy")
	}
	s := &Service{
		provider: provider,
		prompt:   prompt,
		timeout:  DefaultTimeout,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithFields(logrus.Fields{"component": "proxy", "provider": provider.Name()})
	return s, nil
}

// Prompt returns the active prompt configuration.
func (s *Service) Prompt() PromptConfig {
	return s.prompt
}

// Reply answers one chat request. It always returns a usable reply.
func (s *Service) Reply(ctx context.Context, req Request, transport string) (reply intent.Reply) {
	start := time.Now()
	requestID := uuid.NewString()
	log := s.log.WithFields(logrus.Fields{"request_id": requestID, "transport": transport})

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("chat pipeline panic: %v", r)
			reply = s.fallback(ReasonInternal)
		}
		s.finish(log, requestID, transport, req, reply, time.Since(start))
	}()

	if strings.TrimSpace(req.Message) == "" {
		return s.fallback(ReasonEmptyMessage)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	completion, err := s.provider.Complete(callCtx, s.prompt.BuildMessages(req))
	if err != nil {
		reason := ReasonProviderError
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		log.WithError(err).Warn("provider call failed")
		return s.fallback(reason)
	}

	parsed, err := ParseCompletion(completion)
	if err != nil {
		log.WithError(err).Warn("unusable completion")
		return s.fallback(ReasonInvalidCompletion)
	}
	return parsed
}

// Reject answers a request that could not be decoded.
func (s *Service) Reject(transport string) intent.Reply {
	reply := s.fallback(ReasonInvalidRequest)
	s.finish(s.log.WithField("transport", transport), uuid.NewString(), transport, Request{}, reply, 0)
	return reply
}

func (s *Service) fallback(reason string) intent.Reply {
	return intent.FallbackReply(s.prompt.FallbackText, reason)
}

func (s *Service) finish(log logrus.FieldLogger, requestID, transport string, req Request, reply intent.Reply, elapsed time.Duration) {
	for _, o := range s.observers {
		o.ObserveReply(transport, s.provider.Name(), reply, elapsed)
	}

	log.WithFields(logrus.Fields{
		"fallback":   reply.Fallback,
		"reason":     reply.Error,
		"items":      len(reply.Items),
		"latency_ms": elapsed.Milliseconds(),
	}).Info("chat reply")

	if s.recorder == nil {
		return
	}
	ex := &models.ChatExchange{
		RequestID:      requestID,
		Transport:      transport,
		Provider:       s.provider.Name(),
		Message:        req.Message,
		Reply:          reply.Text,
		Action:         string(reply.Action),
		Items:          strings.Join(reply.Items, ", "),
		Fallback:       reply.Fallback,
		FallbackReason: reply.Error,
		LatencyMs:      elapsed.Milliseconds(),
	}
	if err := s.recorder.Record(ex); err != nil {
		log.WithError(err).Warn("chat exchange not recorded")
	}
}

// String describes the service for startup logs.
func (s *Service) String() string {
	return fmt.Sprintf("chat proxy (%s, %d dishes, timeout %s)", s.provider.Name(), len(s.prompt.Menu), s.timeout)
}
