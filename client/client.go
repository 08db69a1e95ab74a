// Package client is the Go client of the landfill report backend. It
// mirrors the entry screen's behavior: fetching and creating the
// report document, the advisory edit lock, versioned saves and the
// unsaved-changes guard around destructive view switches.
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

	"preferio/models"
	"preferio/report"
	"preferio/reports"
)

// APIError carries the backend's error message along with the HTTP
// status it arrived with.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsConflict reports whether err is a precondition rejection (someone
// else holds the lock, wrong status).
func IsConflict(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusConflict
}

// Client wraps the backend's REST surface.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against baseURL with the default 10 second
// timeout.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// NewWithHTTPClient builds a Client using the given http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &payload) == nil {
			if payload.Error != "" {
				msg = payload.Error
			} else if payload.Message != "" {
				msg = payload.Message
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// FetchCurrent loads the current report document. A nil document with
// a nil error means the backend has no report yet (the sentinel
// response).
func (c *Client) FetchCurrent(ctx context.Context) (*report.Document, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/landfill-report", nil, &raw); err != nil {
		return nil, err
	}

	var sentinel struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &sentinel) == nil && sentinel.Message == report.NoReportMessage {
		return nil, nil
	}

	var doc report.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode report document: %w", err)
	}
	return &doc, nil
}

// FetchByID loads one report's document.
func (c *Client) FetchByID(ctx context.Context, reportID string) (*report.Document, error) {
	var doc report.Document
	if err := c.do(ctx, http.MethodGet, "/landfill-reports/"+url.PathEscape(reportID), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// CreateCurrent stores a full document as the current report.
func (c *Client) CreateCurrent(ctx context.Context, doc report.IncomingDocument) error {
	return c.do(ctx, http.MethodPost, "/landfill-report", doc, nil)
}

// CreateReport registers a fully-specified new report in the registry
// and returns its assigned id.
func (c *Client) CreateReport(ctx context.Context, doc report.IncomingDocument) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/landfill-reports", doc, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// FetchAttachments lists a report's attachment metadata.
func (c *Client) FetchAttachments(ctx context.Context, reportID string) ([]models.Attachment, error) {
	var resp struct {
		Attachments []models.Attachment `json:"attachments"`
	}
	if err := c.do(ctx, http.MethodGet, "/landfill-reports/"+url.PathEscape(reportID)+"/attachments", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Attachments, nil
}

// Lock takes the advisory edit lock.
func (c *Client) Lock(ctx context.Context, reportID, userID string) (reports.RevisionState, error) {
	var state reports.RevisionState
	err := c.do(ctx, http.MethodPost, "/landfill-reports/"+url.PathEscape(reportID)+"/lock", map[string]string{"user_id": userID}, &state)
	return state, err
}

// Unlock releases the advisory edit lock.
func (c *Client) Unlock(ctx context.Context, reportID, userID string) (reports.RevisionState, error) {
	var state reports.RevisionState
	err := c.do(ctx, http.MethodPost, "/landfill-reports/"+url.PathEscape(reportID)+"/unlock", map[string]string{"user_id": userID}, &state)
	return state, err
}

// Save persists the document as the next revision and returns the
// authoritative version-control state.
func (c *Client) Save(ctx context.Context, reportID string, doc report.IncomingDocument, userID string) (reports.RevisionState, error) {
	var state reports.RevisionState
	body := map[string]any{"report_data": doc, "user_id": userID}
	err := c.do(ctx, http.MethodPost, "/landfill-reports/"+url.PathEscape(reportID)+"/save", body, &state)
	return state, err
}
