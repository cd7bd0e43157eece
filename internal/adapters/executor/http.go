// Package executor provides executors for candidate programs: a client for
// remote executor services and an in-process executor around a Go function.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/longregen/amaru/internal/adapters/circuitbreaker"
	"github.com/longregen/amaru/internal/adapters/metrics"
	"github.com/longregen/amaru/internal/adapters/retry"
	"github.com/longregen/amaru/internal/ast"
	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
	"github.com/longregen/amaru/internal/ports"
)

const contentType = "application/msgpack"

// Config configures the remote executor client.
type Config struct {
	BaseURL string `yaml:"base_url"`
	// RequestSlack is added to the program timeout times the repeats to
	// bound one HTTP call.
	RequestSlack   time.Duration `yaml:"request_slack"`
	MaxFailures    int           `yaml:"max_failures"`
	BreakerTimeout time.Duration `yaml:"breaker_timeout"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:7070",
		RequestSlack:   5 * time.Second,
		MaxFailures:    5,
		BreakerTimeout: 30 * time.Second,
	}
}

// HTTPFactory opens executor sessions on a remote executor service. All
// executors it creates share one HTTP client and one circuit breaker.
type HTTPFactory struct {
	baseURL     string
	slack       time.Duration
	httpClient  *http.Client
	retryConfig retry.BackoffConfig
	breaker     *circuitbreaker.CircuitBreaker
	logger      *zap.Logger
}

func NewHTTPFactory(cfg Config, logger *zap.Logger) *HTTPFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if cfg.RequestSlack <= 0 {
		cfg.RequestSlack = defaults.RequestSlack
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaults.MaxFailures
	}
	breaker := circuitbreaker.New(cfg.MaxFailures, cfg.BreakerTimeout)
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		metrics.ExecutorCircuitState.Set(float64(to))
		logger.Warn("executor circuit changed state", zap.Stringer("from", from), zap.Stringer("to", to))
	})
	return &HTTPFactory{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		slack:       cfg.RequestSlack,
		httpClient:  &http.Client{},
		retryConfig: retry.ExecutorConfig(),
		breaker:     breaker,
		logger:      logger,
	}
}

type sessionRequest struct {
	Language   string `msgpack:"language"`
	Code       string `msgpack:"code"`
	EntryPoint string `msgpack:"entry_point"`
	Function   string `msgpack:"function"`
}

type sessionResponse struct {
	SessionID string `msgpack:"session_id"`
}

type runRequest struct {
	Tree      *ast.Tree `msgpack:"tree"`
	Inputs    []any     `msgpack:"inputs"`
	TimeoutMs int64     `msgpack:"timeout_ms"`
	Repeats   int       `msgpack:"repeats"`
}

type testResponse struct {
	Success     bool                `msgpack:"success"`
	ReturnValue any                 `msgpack:"return_value"`
	Error       *ports.ProgramError `msgpack:"error,omitempty"`
	Output      string              `msgpack:"output"`
	Samples     []int64             `msgpack:"samples"`
	TimedOut    bool                `msgpack:"timed_out"`
}

type traceResponse struct {
	Executions      map[string]int64 `msgpack:"executions"`
	Specializations int              `msgpack:"specializations"`
}

// NewExecutor loads the program of key on the remote service.
func (f *HTTPFactory) NewExecutor(ctx context.Context, key models.ExecutionKey) (ports.Executor, error) {
	var resp sessionResponse
	err := f.call(ctx, http.MethodPost, "/v1/sessions", sessionRequest{
		Language:   key.Language,
		Code:       key.Code,
		EntryPoint: key.EntryPoint,
		Function:   key.Function,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		return nil, domain.NewDomainError(domain.ErrExecutorUnavailable, "executor returned no session")
	}
	f.logger.Debug("opened executor session", zap.String("session", resp.SessionID), zap.String("function", key.Function))
	return &HTTPExecutor{factory: f, session: resp.SessionID, timeout: 10 * time.Second, repeats: 1}, nil
}

// call sends body msgpack encoded and decodes the response into out. Network
// errors and retryable statuses are retried with backoff inside the circuit
// breaker.
func (f *HTTPFactory) call(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = msgpack.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var respBody []byte
	err := f.breaker.Execute(func() error {
		return retry.WithBackoffHTTP(ctx, f.retryConfig, func() (int, error) {
			req, err := http.NewRequestWithContext(ctx, method, f.baseURL+path, bytes.NewReader(payload))
			if err != nil {
				return 0, fmt.Errorf("failed to create request: %w", err)
			}
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("Accept", contentType)

			resp, err := f.httpClient.Do(req)
			if err != nil {
				return 0, fmt.Errorf("failed to send request: %w", err)
			}
			defer resp.Body.Close()

			respBody, err = io.ReadAll(resp.Body)
			if err != nil {
				return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				f.logger.Debug("executor error response",
					zap.String("path", path), zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
			}
			return resp.StatusCode, nil
		})
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %s %s: %w", domain.ErrExecutorUnavailable, method, path, err)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := msgpack.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// HTTPExecutor runs trees in one session of a remote executor service.
type HTTPExecutor struct {
	factory *HTTPFactory
	session string

	mu      sync.RWMutex
	timeout time.Duration
	repeats int
}

func (e *HTTPExecutor) SetTimeout(timeout time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timeout = timeout
}

func (e *HTTPExecutor) SetRepeats(repeats int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.repeats = max(repeats, 1)
}

func (e *HTTPExecutor) settings() (time.Duration, int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.timeout, e.repeats
}

func (e *HTTPExecutor) request(tree ast.Node, inputs []any) (runRequest, time.Duration) {
	timeout, repeats := e.settings()
	req := runRequest{
		Tree:      ast.From(tree),
		Inputs:    inputs,
		TimeoutMs: timeout.Milliseconds(),
		Repeats:   repeats,
	}
	return req, timeout*time.Duration(repeats) + e.factory.slack
}

// Test runs tree once per repeat. A run the service reports as timed out,
// or one exceeding the request deadline, is returned as domain.ErrTimeout.
func (e *HTTPExecutor) Test(ctx context.Context, tree ast.Node, inputs []any) (*ports.ExecutionResult, error) {
	req, deadline := e.request(tree, inputs)
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var resp testResponse
	if err := e.factory.call(callCtx, http.MethodPost, "/v1/sessions/"+e.session+"/test", req, &resp); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewDomainError(domain.ErrTimeout, fmt.Sprintf("no answer within %s", deadline))
		}
		return nil, err
	}
	if resp.TimedOut {
		return nil, domain.NewDomainError(domain.ErrTimeout, fmt.Sprintf("program exceeded %dms", req.TimeoutMs))
	}

	res := &ports.ExecutionResult{
		ReturnValue: resp.ReturnValue,
		Output:      resp.Output,
		Samples:     resp.Samples,
		Success:     resp.Success,
	}
	if !resp.Success && resp.Error != nil {
		if resp.Error.Type != "" {
			res.ReturnValue = resp.Error
		} else {
			res.ReturnValue = resp.Error.Message
		}
	}
	return res, nil
}

// Trace runs tree once and returns how often each node was executed.
func (e *HTTPExecutor) Trace(ctx context.Context, tree ast.Node, inputs []any) (*models.Trace, error) {
	req, deadline := e.request(tree, inputs)
	req.Repeats = 1
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var resp traceResponse
	if err := e.factory.call(callCtx, http.MethodPost, "/v1/sessions/"+e.session+"/trace", req, &resp); err != nil {
		return nil, err
	}
	return &models.Trace{Executions: resp.Executions, Specializations: resp.Specializations}, nil
}

// Close releases the remote session.
func (e *HTTPExecutor) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), e.factory.slack)
	defer cancel()
	return e.factory.call(ctx, http.MethodDelete, "/v1/sessions/"+e.session, nil, nil)
}
