// Package ai is the HTTP client for the VIN decode and diagnostic
// endpoints. Keys stay server-side; callers hand over order context and
// get text or structured specs back.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ckshop/shopflow/internal/models"
)

const defaultTimeout = 60 * time.Second

// VehicleProfile is the order summary sent with a diagnostic question.
type VehicleProfile struct {
	Model       string `json:"model"`
	VIN         string `json:"vin"`
	Info        string `json:"info"`
	IsInsurance bool   `json:"isInsurance"`
}

// EventLogEntry is one timeline line in the diagnostic context.
type EventLogEntry struct {
	User      string `json:"user"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// AttachmentRef points the model at an uploaded document or photo.
type AttachmentRef struct {
	Name string `json:"name"`
	Data string `json:"data,omitempty"`
	Type string `json:"type"`
}

// DiagnosticContext is the full order context for one question.
type DiagnosticContext struct {
	VehicleProfile VehicleProfile  `json:"vehicleProfile"`
	EventLog       []EventLogEntry `json:"eventLog"`
	Attachments    []AttachmentRef `json:"attachments"`
	UserMessage    string          `json:"userMessage"`
}

// Client calls the AI backend.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
}

// Enabled reports whether a backend is configured.
func (c *Client) Enabled() bool { return c.baseURL != "" }

// DecodeVIN resolves a VIN into structured vehicle specs.
func (c *Client) DecodeVIN(ctx context.Context, vin string) (*models.VehicleSpecs, error) {
	var specs models.VehicleSpecs
	err := c.post(ctx, "/api/ai/decode-vin", map[string]string{"vin": vin}, &specs)
	if err != nil {
		return nil, err
	}
	specs.DecodedAt = time.Now().UTC().Format(time.RFC3339)
	return &specs, nil
}

// DiagnosticAdvice asks a question with the order's full context and
// returns the answer text.
func (c *Client) DiagnosticAdvice(ctx context.Context, dc DiagnosticContext) (string, error) {
	var reply struct {
		Text   string `json:"text"`
		Result string `json:"result"`
	}
	if err := c.post(ctx, "/api/ai/diagnostic", dc, &reply); err != nil {
		return "", err
	}
	if reply.Text != "" {
		return reply.Text, nil
	}
	return reply.Result, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	if !c.Enabled() {
		return fmt.Errorf("ai: no backend configured")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("ai: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("ai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("ai: %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ai: %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ai: decode response: %w", err)
	}
	return nil
}

// BuildContext assembles the diagnostic context from an order and a
// question.
func BuildContext(o models.RepairOrder, userMessage string) DiagnosticContext {
	dc := DiagnosticContext{
		VehicleProfile: VehicleProfile{
			Model:       o.Model,
			VIN:         o.VIN,
			Info:        o.Info,
			IsInsurance: o.InsuranceCase,
		},
		UserMessage: userMessage,
	}
	for _, l := range o.Logs {
		dc.EventLog = append(dc.EventLog, EventLogEntry{
			User:      l.User,
			Text:      l.Text,
			Timestamp: l.CreatedAt.UTC().Format(time.RFC3339),
			ImageURL:  l.ImageRef,
		})
	}
	for _, a := range o.Attachments {
		dc.Attachments = append(dc.Attachments, AttachmentRef{
			Name: a.Name,
			Data: a.StorageRef,
			Type: a.ContentType,
		})
	}
	return dc
}
