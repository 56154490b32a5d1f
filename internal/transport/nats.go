package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avvvet/krishiseva/internal/models"
	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/semaphore"
)

// Subject suffixes served under the configured prefix.
const (
	OpAsk     = "ask"
	OpHistory = "history"
	OpClear   = "clear"
)

// Conversation is the handler surface the transport needs.
type Conversation interface {
	ValidateRequest(req *models.AskRequest) error
	Ask(ctx context.Context, req models.AskRequest) models.AskResponse
	Summary(ctx context.Context, userID string, limit int) (models.ConversationSummary, error)
	Clear(ctx context.Context, userID string) error
}

// NATSConfig holds the transport settings.
type NATSConfig struct {
	URL            string
	Name           string
	SubjectPrefix  string
	RequestTimeout time.Duration
	MaxConcurrency int64
	Logger         *log.Logger
}

type NATSTransport struct {
	conn    *nats.Conn
	cfg     NATSConfig
	handler Conversation
	sem     *semaphore.Weighted
	subs    []*nats.Subscription
	logger  *log.Logger

	// mu orders wg.Add in dispatch against wg.Wait in Close.
	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// NewNATSTransport connects to NATS.
func NewNATSTransport(cfg NATSConfig, handler Conversation) (*NATSTransport, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(cfg.RequestTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	nt := NewNATSTransportFromConn(conn, cfg, handler)
	nt.logger.Info("connected to NATS", "url", cfg.URL)
	return nt, nil
}

// NewNATSTransportFromConn wraps an existing connection.
func NewNATSTransportFromConn(conn *nats.Conn, cfg NATSConfig, handler Conversation) *NATSTransport {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 32
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &NATSTransport{
		conn:    conn,
		cfg:     cfg,
		handler: handler,
		sem:     semaphore.NewWeighted(cfg.MaxConcurrency),
		logger:  cfg.Logger,
	}
}

// Subject returns the full subject for op.
func (nt *NATSTransport) Subject(op string) string {
	return nt.cfg.SubjectPrefix + "." + op
}

// Start subscribes to the ask, history and clear subjects. Each message is
// handled on its own goroutine, bounded by MaxConcurrency.
func (nt *NATSTransport) Start() error {
	routes := map[string]func(*nats.Msg){
		OpAsk:     nt.handleAsk,
		OpHistory: nt.handleHistory,
		OpClear:   nt.handleClear,
	}
	for op, fn := range routes {
		subject := nt.Subject(op)
		sub, err := nt.conn.Subscribe(subject, nt.dispatch(fn))
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		nt.subs = append(nt.subs, sub)
		nt.logger.Info("subscribed", "subject", subject)
	}
	return nil
}

func (nt *NATSTransport) dispatch(fn func(*nats.Msg)) nats.MsgHandler {
	return func(msg *nats.Msg) {
		// blocks the subscription when saturated, which is the backpressure
		if err := nt.sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		nt.mu.Lock()
		if nt.closing {
			nt.mu.Unlock()
			nt.sem.Release(1)
			nt.sendError(msg, models.ErrorPipeline, "service is shutting down")
			return
		}
		nt.wg.Add(1)
		nt.mu.Unlock()
		go func() {
			defer nt.wg.Done()
			defer nt.sem.Release(1)
			fn(msg)
		}()
	}
}

func (nt *NATSTransport) handleAsk(msg *nats.Msg) {
	var request models.AskRequest
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		nt.logger.Warn("error parsing request", "subject", msg.Subject, "error", err)
		nt.sendError(msg, models.ErrorParse, "Invalid request format")
		return
	}

	if err := nt.handler.ValidateRequest(&request); err != nil {
		nt.sendError(msg, models.ErrorValidation, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), nt.cfg.RequestTimeout)
	defer cancel()

	response := nt.handler.Ask(ctx, request)
	if err := nt.respond(msg, response); err != nil {
		nt.logger.Error("error sending response", "user", request.UserID, "error", err)
		return
	}
	nt.logger.Debug("response sent", "user", request.UserID, "intent", response.Intent, "success", response.Success)
}

func (nt *NATSTransport) handleHistory(msg *nats.Msg) {
	var request models.HistoryRequest
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		nt.sendError(msg, models.ErrorParse, "Invalid request format")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), nt.cfg.RequestTimeout)
	defer cancel()

	summary, err := nt.handler.Summary(ctx, request.UserID, request.Limit)
	if err != nil {
		nt.sendError(msg, errorCode(err), err.Error())
		return
	}
	if err := nt.respond(msg, summary); err != nil {
		nt.logger.Error("error sending summary", "user", request.UserID, "error", err)
	}
}

// ClearResponse acknowledges a clear request.
type ClearResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id"`
}

func (nt *NATSTransport) handleClear(msg *nats.Msg) {
	var request models.HistoryRequest
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		nt.sendError(msg, models.ErrorParse, "Invalid request format")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), nt.cfg.RequestTimeout)
	defer cancel()

	if err := nt.handler.Clear(ctx, request.UserID); err != nil {
		nt.sendError(msg, errorCode(err), err.Error())
		return
	}
	if err := nt.respond(msg, ClearResponse{Success: true, UserID: request.UserID}); err != nil {
		nt.logger.Error("error sending clear ack", "user", request.UserID, "error", err)
	}
}

// ErrorResponse is sent when a request cannot be served at all.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	ErrorCode string `json:"error_code"`
	Error     string `json:"error"`
}

func errorCode(err error) string {
	if errors.Is(err, models.ErrValidation) {
		return models.ErrorValidation
	}
	return models.ErrorPipeline
}

func (nt *NATSTransport) respond(msg *nats.Msg, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	if err := msg.Respond(data); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}
	return nil
}

func (nt *NATSTransport) sendError(msg *nats.Msg, code, message string) {
	if err := nt.respond(msg, ErrorResponse{ErrorCode: code, Error: message}); err != nil {
		nt.logger.Error("failed to send error response", "error", err)
	}
}

// Close drains subscriptions, waits for in-flight requests and closes the
// connection.
func (nt *NATSTransport) Close() error {
	nt.mu.Lock()
	nt.closing = true
	nt.mu.Unlock()

	for _, sub := range nt.subs {
		if err := sub.Unsubscribe(); err != nil {
			nt.logger.Warn("unsubscribe failed", "subject", sub.Subject, "error", err)
		}
	}
	nt.wg.Wait()
	if nt.conn != nil {
		nt.conn.Close()
		nt.logger.Info("NATS connection closed")
	}
	return nil
}
