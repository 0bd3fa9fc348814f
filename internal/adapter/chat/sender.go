package chat

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

	"github.com/merakitalent/fernando-format/internal/domain"
)

// Sender posts outbound activities back to the conversation's service URL.
// Implements domain.Replier and domain.AttachmentFetcher.
type Sender struct {
	httpClient  *http.Client
	bearerToken string
}

// NewSender constructs a Sender.
func NewSender(bearerToken string, timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Sender{
		httpClient:  &http.Client{Timeout: timeout},
		bearerToken: bearerToken,
	}
}

func (s *Sender) post(ctx context.Context, conv domain.Conversation, out OutboundActivity) error {
	endpoint := fmt.Sprintf("%s/v3/conversations/%s/activities",
		strings.TrimSuffix(conv.ServiceURL, "/"), url.PathEscape(conv.ID))
	body, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("%w: marshal reply: %v", domain.ErrInternal, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.bearerToken)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send reply: status %d", resp.StatusCode)
	}
	return nil
}

// SendText sends a plain text reply.
func (s *Sender) SendText(ctx context.Context, conv domain.Conversation, text string) error {
	return s.post(ctx, conv, OutboundActivity{Type: "message", Text: text})
}

// SendHelp sends the role menu card.
func (s *Sender) SendHelp(ctx context.Context, conv domain.Conversation, roles []domain.Role) error {
	return s.post(ctx, conv, OutboundActivity{
		Type:        "message",
		Attachments: []CardAttachment{HelpCard(roles)},
	})
}

// SendWithStartNew sends text accompanied by a Start New card.
func (s *Sender) SendWithStartNew(ctx context.Context, conv domain.Conversation, text string) error {
	return s.post(ctx, conv, OutboundActivity{
		Type:        "message",
		Text:        text,
		Attachments: []CardAttachment{StartNewCard()},
	})
}

// Fetch downloads attachment bytes from the chat platform.
func (s *Sender) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
