/*
client.go - HTTP implementation of salary.Collaborator

PURPOSE:
  Talks to the salary API (api/) over JSON so the orchestration layer can run
  in a different process from the engine. Requests and responses use the
  api package DTOs, so both sides share one wire format.

ERROR MAPPING:
  400              -> *generic.ValidationError (fields from the body)
  404              -> *generic.NotFoundError
  409, 422         -> *generic.ConflictError with the body's code
  5xx, transport,
  unreadable body  -> *generic.NetworkError (retryable)

  Every request is a single attempt. Retrying is the caller's decision.

EXAMPLE:
  c := client.New("http://localhost:8080", client.WithTimeout(5*time.Second))
  calcs, err := c.List(ctx, "alice", salary.ListFilter{})
*/
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/salary-engine/api"
	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/salary"
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 1 << 20

// Client calls the salary API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ salary.Collaborator = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func calculationsPath(teacherID generic.TeacherID) string {
	return "/api/teachers/" + url.PathEscape(string(teacherID)) + "/salary-calculations"
}

func calculationPath(teacherID generic.TeacherID, id generic.CalculationID) string {
	return calculationsPath(teacherID) + "/" + url.PathEscape(string(id))
}

// =============================================================================
// COLLABORATOR
// =============================================================================

// Generate asks the server to compute and store a month.
func (c *Client) Generate(ctx context.Context, teacherID generic.TeacherID, period generic.PeriodKey) (*salary.Calculation, error) {
	var dto api.CalculationDTO
	err := c.do(ctx, "generate", http.MethodPost, calculationsPath(teacherID), api.NewPeriodRequest(period), &dto,
		notFound("teacher", string(teacherID)))
	if err != nil {
		return nil, err
	}
	return toCalculation("generate", dto)
}

// Approve commits amount. reason is sent only when non-nil.
func (c *Client) Approve(ctx context.Context, teacherID generic.TeacherID, id generic.CalculationID, amount decimal.Decimal, reason *string) (*salary.Calculation, error) {
	body := api.ApproveRequest{ApprovedAmount: &amount, AdjustmentReason: reason}
	var dto api.CalculationDTO
	err := c.do(ctx, "approve", http.MethodPost, calculationPath(teacherID, id)+"/approve", body, &dto,
		notFound("calculation", string(id)))
	if err != nil {
		return nil, err
	}
	return toCalculation("approve", dto)
}

// Reopen returns an approved calculation to review.
func (c *Client) Reopen(ctx context.Context, teacherID generic.TeacherID, id generic.CalculationID, reason string) (*salary.Calculation, error) {
	var dto api.CalculationDTO
	err := c.do(ctx, "reopen", http.MethodPost, calculationPath(teacherID, id)+"/reopen", api.ReopenRequest{Reason: reason}, &dto,
		notFound("calculation", string(id)))
	if err != nil {
		return nil, err
	}
	return toCalculation("reopen", dto)
}

// Preview estimates a month without storing anything.
func (c *Client) Preview(ctx context.Context, teacherID generic.TeacherID, period generic.PeriodKey) (*salary.Preview, error) {
	var dto api.PreviewDTO
	err := c.do(ctx, "preview", http.MethodPost, calculationsPath(teacherID)+"/preview", api.NewPeriodRequest(period), &dto,
		notFound("teacher", string(teacherID)))
	if err != nil {
		return nil, err
	}
	p, err := dto.ToPreview()
	if err != nil {
		return nil, &generic.NetworkError{Op: "preview", Err: err}
	}
	return &p, nil
}

// List returns a teacher's calculations, newest period first.
func (c *Client) List(ctx context.Context, teacherID generic.TeacherID, filter salary.ListFilter) ([]salary.Calculation, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.AcademicYearID != "" {
		q.Set("academic_year_id", string(filter.AcademicYearID))
	}
	path := calculationsPath(teacherID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var dtos []api.CalculationDTO
	if err := c.do(ctx, "list", http.MethodGet, path, nil, &dtos, notFound("teacher", string(teacherID))); err != nil {
		return nil, err
	}
	out := make([]salary.Calculation, 0, len(dtos))
	for _, dto := range dtos {
		calc, err := dto.ToCalculation()
		if err != nil {
			return nil, &generic.NetworkError{Op: "list", Err: err}
		}
		out = append(out, calc)
	}
	return out, nil
}

// =============================================================================
// EXTRAS
// =============================================================================

// Teachers lists the teachers known to the server.
func (c *Client) Teachers(ctx context.Context) ([]api.TeacherDTO, error) {
	var dtos []api.TeacherDTO
	if err := c.do(ctx, "teachers", http.MethodGet, "/api/teachers", nil, &dtos, notFound("teachers", "")); err != nil {
		return nil, err
	}
	return dtos, nil
}

// AuditTrail returns the lifecycle events of a calculation.
func (c *Client) AuditTrail(ctx context.Context, teacherID generic.TeacherID, id generic.CalculationID) ([]api.AuditEntryDTO, error) {
	var dtos []api.AuditEntryDTO
	if err := c.do(ctx, "audit", http.MethodGet, calculationPath(teacherID, id)+"/audit", nil, &dtos,
		notFound("calculation", string(id))); err != nil {
		return nil, err
	}
	return dtos, nil
}

// LoadScenario resets the server and loads a demo scenario.
func (c *Client) LoadScenario(ctx context.Context, id string) error {
	return c.do(ctx, "load scenario", http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: id}, nil,
		notFound("scenario", id))
}

// =============================================================================
// TRANSPORT
// =============================================================================

func notFound(resource, id string) *generic.NotFoundError {
	return &generic.NotFoundError{Resource: resource, ID: id}
}

func toCalculation(op string, dto api.CalculationDTO) (*salary.Calculation, error) {
	calc, err := dto.ToCalculation()
	if err != nil {
		return nil, &generic.NetworkError{Op: op, Err: err}
	}
	return &calc, nil
}

// do sends one request and decodes a 2xx body into out (if non-nil).
func (c *Client) do(ctx context.Context, op, method, path string, in, out any, missing *generic.NotFoundError) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &generic.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &generic.NetworkError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return &generic.NetworkError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
		return nil
	}
	return statusError(op, resp.StatusCode, data, missing)
}

// statusError maps a non-2xx response onto the error taxonomy.
func statusError(op string, status int, data []byte, missing *generic.NotFoundError) error {
	var body api.ErrorResponse
	_ = json.Unmarshal(data, &body)
	message := body.Error
	if message == "" {
		message = http.StatusText(status)
	}

	switch {
	case status == http.StatusBadRequest:
		if len(body.Fields) > 0 {
			return &generic.ValidationError{Fields: body.Fields}
		}
		detail := message
		if s, ok := body.Details.(string); ok && s != "" {
			detail = s
		}
		return generic.NewValidationError("request", detail)

	case status == http.StatusNotFound:
		return missing

	case status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		code := body.Code
		if code == "" {
			code = generic.CodeInvalidState
			if status == http.StatusUnprocessableEntity {
				code = generic.CodeNoRateConfig
			}
		}
		return &generic.ConflictError{Code: code, Message: message}
	}

	return &generic.NetworkError{Op: op, Err: fmt.Errorf("server returned %d: %s", status, message)}
}
