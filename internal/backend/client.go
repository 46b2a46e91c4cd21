// Package backend implements the HTTP protocol client for the remote
// translation service: job submission, status polling, result retrieval,
// and the guest quota endpoint.
//
// The submission endpoint historically answers in two shapes: a completed
// binary payload (synchronous path) or a job identifier to poll
// (asynchronous path). Submit normalizes both into one SubmitResult so
// callers never branch on the backend's inconsistency.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"doc-translator/internal/domain"
)

// TokenSource supplies the session bearer credential, empty when anonymous.
type TokenSource interface {
	Token() string
}

// Client talks to one translation backend instance.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewClient creates a backend client for the given base URL. tokens may be
// nil for purely anonymous use.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 120 * time.Second},
		tokens:  tokens,
	}
}

// SubmitRequest carries one document plus its language pair.
type SubmitRequest struct {
	Filename   string
	Content    io.Reader
	SourceLang string
	TargetLang string
}

// SubmitResult is the normalized submission outcome. Completed means the
// backend answered synchronously and Payload holds the translated document;
// otherwise JobID identifies the job to poll.
type SubmitResult struct {
	Completed bool
	Payload   []byte
	Filename  string
	JobID     string
}

// StatusResponse is one poll answer. Progress is nil when the backend
// omits a percentage.
type StatusResponse struct {
	Status   string `json:"status"`
	Progress *int   `json:"progress"`
}

// GuestQuota mirrors the guest usage counters held server-side.
type GuestQuota struct {
	Remaining int `json:"translations_remaining"`
	Used      int `json:"translations_used"`
}

// Submit uploads the document and returns the normalized outcome.
// The language pair precondition is enforced before any network activity.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if req.SourceLang == req.TargetLang {
		return nil, domain.ErrSameLanguage
	}
	if req.Content == nil || req.Filename == "" {
		return nil, domain.ErrNoFileSelected
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", req.Filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, req.Content); err != nil {
		return nil, fmt.Errorf("copy file into request: %w", err)
	}
	if err := writer.WriteField("src_lang", req.SourceLang); err != nil {
		return nil, fmt.Errorf("write src_lang field: %w", err)
	}
	if err := writer.WriteField("dest_lang", req.TargetLang); err != nil {
		return nil, fmt.Errorf("write dest_lang field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", &body)
	if err != nil {
		return nil, fmt.Errorf("create submit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuthHeader(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("submit request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read submit response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, decodeAPIError(resp.StatusCode, respBody)
	}

	if isJSON(resp.Header.Get("Content-Type")) {
		var ack struct {
			TaskID string `json:"task_id"`
			JobID  string `json:"job_id"`
		}
		if err := json.Unmarshal(respBody, &ack); err != nil {
			return nil, fmt.Errorf("parse submit acknowledgement: %w", err)
		}

		jobID := ack.TaskID
		if jobID == "" {
			jobID = ack.JobID
		}
		if jobID == "" {
			return nil, fmt.Errorf("submit acknowledgement carries no job id")
		}
		return &SubmitResult{JobID: jobID}, nil
	}

	// Synchronous path: the body is the translated document itself.
	return &SubmitResult{
		Completed: true,
		Payload:   respBody,
		Filename:  attachmentFilename(resp.Header.Get("Content-Disposition"), req.Filename),
	}, nil
}

// Status fetches the current state of an asynchronous job.
func (c *Client) Status(ctx context.Context, jobID string) (StatusResponse, error) {
	var status StatusResponse
	body, err := c.get(ctx, "/translate/status/"+jobID)
	if err != nil {
		return status, err
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return status, fmt.Errorf("parse status response: %w", err)
	}
	return status, nil
}

// Result downloads the final payload for a terminally successful job.
func (c *Client) Result(ctx context.Context, jobID string) ([]byte, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/translate/result/"+jobID, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create result request: %w", err)
	}
	c.setAuthHeader(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("result request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read result response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", decodeAPIError(resp.StatusCode, body)
	}

	return body, attachmentFilename(resp.Header.Get("Content-Disposition"), ""), nil
}

// GuestStatus reads the server-side guest usage counters.
func (c *Client) GuestStatus(ctx context.Context) (GuestQuota, error) {
	var quota GuestQuota
	body, err := c.get(ctx, "/guest/status")
	if err != nil {
		return quota, err
	}
	if err := json.Unmarshal(body, &quota); err != nil {
		return quota, fmt.Errorf("parse guest status: %w", err)
	}
	return quota, nil
}

// get performs an authenticated GET and returns the body or an APIError.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setAuthHeader(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response for %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp.StatusCode, body)
	}
	return body, nil
}

// setAuthHeader attaches the bearer credential when a session exists.
func (c *Client) setAuthHeader(req *http.Request) {
	if c.tokens == nil {
		return
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// isJSON reports whether a Content-Type names a JSON media type.
func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// attachmentFilename extracts the suggested filename from a
// Content-Disposition header, falling back to the given default.
func attachmentFilename(header, fallback string) string {
	if header != "" {
		if _, params, err := mime.ParseMediaType(header); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	return fallback
}
