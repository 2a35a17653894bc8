package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domain "github.com/bryanwahyu/audit-gateway/internal/domain/audit"
)

// envelope is the backend's uniform response shape.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Error is a backend-reported failure (the service answered, but the
// request did not succeed).
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend error (status %d): %s", e.Status, e.Message)
}

// Client is the typed HTTP client for the audit backend. It implements
// the domain Backend port.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// AssignedTasks fetches every task currently assigned to the level.
func (c *Client) AssignedTasks(ctx context.Context, level domain.Stage, auditorID int64) (*domain.TaskList, error) {
	body := map[string]any{"level": level, "auditorId": auditorID}
	var out domain.TaskList
	if err := c.call(ctx, http.MethodPost, "/api/auditor/tasks", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NewTasks fetches tasks outside the exclusion list, for polling.
func (c *Client) NewTasks(ctx context.Context, level domain.Stage, exclude []domain.TaskID) ([]domain.Task, error) {
	q := url.Values{}
	q.Set("level", strconv.Itoa(int(level)))
	if len(exclude) > 0 {
		ids := make([]string, 0, len(exclude))
		for _, id := range exclude {
			ids = append(ids, strconv.FormatInt(int64(id), 10))
		}
		q.Set("exclude", strings.Join(ids, ","))
	}
	var out []domain.Task
	if err := c.call(ctx, http.MethodGet, "/api/auditor/tasks/new?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SubmitResult(ctx context.Context, sub domain.Submission) (*domain.SubmissionOutcome, error) {
	var out domain.SubmissionOutcome
	if err := c.call(ctx, http.MethodPost, "/api/auditor/result", sub, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ReleaseTask(ctx context.Context, id domain.TaskID) error {
	body := map[string]any{"auditId": id}
	return c.call(ctx, http.MethodPost, "/api/auditor/release", body, nil)
}

// AuditHistory returns every decision recorded for a case, unfiltered.
// Visibility filtering happens in the application layer.
func (c *Client) AuditHistory(ctx context.Context, id domain.TaskID) ([]domain.Result, error) {
	var out []domain.Result
	path := fmt.Sprintf("/api/auditor/audit-history/%d", id)
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AuditorHistory returns the decisions one auditor has made.
func (c *Client) AuditorHistory(ctx context.Context, auditorID int64) ([]domain.Result, error) {
	var out []domain.Result
	path := fmt.Sprintf("/api/auditor/history/%d", auditorID)
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitQuestionnaire registers a new customer + risk profile and
// returns the backend customer id.
func (c *Client) SubmitQuestionnaire(ctx context.Context, q domain.Questionnaire) (int64, error) {
	var id int64
	if err := c.call(ctx, http.MethodPost, "/api/customer/questionnaire", q, &id); err != nil {
		return 0, err
	}
	return id, nil
}

func (c *Client) AuditStatus(ctx context.Context, customerID int64) (*domain.AuditStatus, error) {
	body := map[string]any{"customerId": customerID}
	var out domain.AuditStatus
	if err := c.call(ctx, http.MethodPost, "/api/customer/audit-status", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForwardResult is the raw outcome of a proxied request.
type ForwardResult struct {
	Status      int
	ContentType string
	Body        []byte
}

// hopByHopHeaders are connection-scoped and must not survive a relay.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Forward relays an arbitrary request to the backend without
// interpreting the payload. Client headers (Authorization included)
// pass through opaquely, minus the hop-by-hop set. Used by the
// generic proxy endpoint.
func (c *Client) Forward(ctx context.Context, method, path string, query url.Values, header http.Header, body []byte) (*ForwardResult, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	for name, values := range header {
		req.Header[name] = append([]string(nil), values...)
	}
	for _, name := range hopByHopHeaders {
		req.Header.Del(name)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrBackendUnreachable, err)
	}
	return &ForwardResult{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// call performs one envelope round trip. A transport failure maps to
// ErrBackendUnreachable; an unsuccessful envelope maps to *Error.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackendUnreachable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding backend response for %s: %w", path, err)
	}
	if !env.Success {
		return &Error{Status: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding backend data for %s: %w", path, err)
		}
	}
	return nil
}
