// Package whatsapp implements a minimal client for the WhatsApp Business
// Cloud API (Graph API). It covers sending text and document messages,
// marking messages as read, and downloading received media.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://graph.facebook.com"

	// requestTimeout bounds every Graph API call.
	requestTimeout = 10 * time.Second
)

// ErrSendFailed indicates the Graph API rejected a message send.
var ErrSendFailed = errors.New("whatsapp send failed")

// Client talks to the WhatsApp Cloud API on behalf of one business phone
// number.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	version       string
	accessToken   string
	phoneNumberID string
	logger        *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the Graph API base URL, for tests.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient returns a Client for the given API version, access token and
// business phone number ID.
func NewClient(version, accessToken, phoneNumberID string, logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		httpClient:    &http.Client{Timeout: requestTimeout},
		baseURL:       defaultBaseURL,
		version:       version,
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type textPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type documentPayload struct {
	MessagingProduct string      `json:"messaging_product"`
	RecipientType    string      `json:"recipient_type"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Document         documentRef `json:"document"`
}

type documentRef struct {
	ID string `json:"id"`
}

type readPayload struct {
	MessagingProduct string `json:"messaging_product"`
	Status           string `json:"status"`
	MessageID        string `json:"message_id"`
}

// SendText delivers a text message to the recipient. previewURL enables
// the link preview card for messages that contain a URL.
func (c *Client) SendText(ctx context.Context, recipient, text string, previewURL bool) error {
	payload := textPayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipient,
		Type:             "text",
		Text:             textBody{PreviewURL: previewURL, Body: text},
	}
	return c.postMessages(ctx, payload)
}

// SendDocument delivers a previously uploaded media object, referenced by
// its media ID, as a document message.
func (c *Client) SendDocument(ctx context.Context, recipient, mediaID string) error {
	payload := documentPayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipient,
		Type:             "document",
		Document:         documentRef{ID: mediaID},
	}
	return c.postMessages(ctx, payload)
}

// MarkRead marks an inbound message as read, which shows the sender the
// blue double check.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	payload := readPayload{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
	}
	return c.postMessages(ctx, payload)
}

func (c *Client) postMessages(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.version, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("graph api rejected message",
			"status", resp.StatusCode,
			"body", string(detail))
		return fmt.Errorf("%w: status %d", ErrSendFailed, resp.StatusCode)
	}
	return nil
}

// MediaContent downloads the content of a received media object. The Graph
// API issues a short-lived download URL which is fetched immediately.
func (c *Client) MediaContent(ctx context.Context, mediaID string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/%s/", c.baseURL, c.version, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup media url: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup media url: status %d", resp.StatusCode)
	}

	var meta struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode media metadata: %w", err)
	}

	dlReq, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	dlReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	dlResp, err := c.httpClient.Do(dlReq)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	defer func() { _ = dlResp.Body.Close() }()

	if dlResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download media: status %d", dlResp.StatusCode)
	}
	return io.ReadAll(dlResp.Body)
}
