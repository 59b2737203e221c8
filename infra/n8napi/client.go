package n8napi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"github.com/Tsinling0525/flowc/format/n8n"
	"github.com/Tsinling0525/flowc/logger"
)

var errMalformedResponse = errors.New("malformed response from n8n")

// Config controls how the client reaches the n8n REST API.
// BaseURL is the API root, e.g. https://n8n.example.com/api/v1.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	RetryWait  time.Duration
	MaxWait    time.Duration
}

func (c Config) normalized() Config {
	q := c
	if q.Timeout <= 0 {
		q.Timeout = 30 * time.Second
	}
	if q.MaxRetries < 0 {
		q.MaxRetries = 0
	}
	if q.RetryWait <= 0 {
		q.RetryWait = 500 * time.Millisecond
	}
	if q.MaxWait <= 0 {
		q.MaxWait = 5 * time.Second
	}
	if q.MaxWait < q.RetryWait {
		q.MaxWait = q.RetryWait
	}
	return q
}

// WorkflowID is the id n8n assigns. Older instances return numbers.
type WorkflowID string

func (id *WorkflowID) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*id = ""
	case string:
		*id = WorkflowID(t)
	case float64:
		*id = WorkflowID(strconv.FormatFloat(t, 'f', -1, 64))
	default:
		return fmt.Errorf("workflow id must be a string or a number, got %s", data)
	}
	return nil
}

// CreatedWorkflow is the part of the n8n create response relayed to callers.
type CreatedWorkflow struct {
	ID   WorkflowID `json:"id"`
	Name string     `json:"name"`
}

// RemoteError is returned for any failed create call.
type RemoteError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("n8n API error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("n8n API error: %v", e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Details returns the remote error payload when n8n answered with an error
// body, otherwise the error message.
func (e *RemoteError) Details() any {
	if e.StatusCode >= http.StatusBadRequest && len(e.Body) > 0 {
		var payload any
		if err := json.Unmarshal(e.Body, &payload); err == nil {
			return payload
		}
		return string(e.Body)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.StatusCode)
}

func (e *RemoteError) retryable() bool {
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type Client struct {
	http *resty.Client
	cfg  Config
}

func New(cfg Config) *Client {
	cfg = cfg.normalized()
	cl := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", "Bearer "+cfg.APIKey)
	return &Client{http: cl, cfg: cfg}
}

// CreateWorkflow submits a compiled workflow to POST /workflows.
// Retries only happen when MaxRetries > 0, since creation is not idempotent.
func (c *Client) CreateWorkflow(ctx context.Context, wf n8n.Workflow) (*CreatedWorkflow, error) {
	log := logger.FromContext(ctx)

	backoff := retry.NewExponential(c.cfg.RetryWait)
	backoff = retry.WithCappedDuration(c.cfg.MaxWait, backoff)
	backoff = retry.WithMaxRetries(uint64(c.cfg.MaxRetries), backoff)

	var created *CreatedWorkflow
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		res, err := c.create(ctx, wf)
		if err != nil {
			var rerr *RemoteError
			if errors.As(err, &rerr) && rerr.retryable() && attempt <= c.cfg.MaxRetries {
				log.Warn("n8n create failed, retrying", "attempt", attempt, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		created = res
		return nil
	})
	if err != nil {
		var rerr *RemoteError
		if !errors.As(err, &rerr) {
			// context expired between attempts
			err = &RemoteError{Err: err}
		}
		log.Error("n8n API error", "workflow", wf.Name, "attempts", attempt, "error", err)
		return nil, err
	}

	log.Debug("n8n workflow created", "id", created.ID, "name", created.Name, "attempts", attempt)
	return created, nil
}

func (c *Client) create(ctx context.Context, wf n8n.Workflow) (*CreatedWorkflow, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(wf).
		Post("/workflows")
	if err != nil {
		return nil, &RemoteError{Err: err}
	}

	body := resp.Body()
	if resp.IsError() || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, &RemoteError{
			StatusCode: resp.StatusCode(),
			Body:       body,
			Err:        fmt.Errorf("unexpected status %s", resp.Status()),
		}
	}

	var created CreatedWorkflow
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, &RemoteError{StatusCode: resp.StatusCode(), Body: body, Err: fmt.Errorf("%w: %v", errMalformedResponse, err)}
	}
	if created.ID == "" {
		return nil, &RemoteError{StatusCode: resp.StatusCode(), Body: body, Err: fmt.Errorf("%w: missing id", errMalformedResponse)}
	}
	return &created, nil
}
