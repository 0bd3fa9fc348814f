// Package chat adapts the bot-framework wire format: inbound activity
// decoding, outbound replies, and adaptive card construction. Transport
// authentication lives upstream; this adapter trusts its caller.
package chat

import (
	"encoding/json"
	"strings"

	"github.com/merakitalent/fernando-format/internal/domain"
)

// Activity is the inbound wire shape delivered by the chat gateway.
type Activity struct {
	Type         string           `json:"type" validate:"required"`
	Text         string           `json:"text"`
	ServiceURL   string           `json:"serviceUrl"`
	Conversation ConversationRef  `json:"conversation" validate:"required"`
	Attachments  []WireAttachment `json:"attachments"`
	Value        json.RawMessage  `json:"value"`
}

// ConversationRef carries the opaque conversation identifier.
type ConversationRef struct {
	ID string `json:"id" validate:"required"`
}

// WireAttachment is one inbound attachment. Content is either an object
// holding a download URL (file consent info) or an inline HTML string.
type WireAttachment struct {
	Name        string          `json:"name"`
	ContentType string          `json:"contentType"`
	ContentURL  string          `json:"contentUrl"`
	Content     json.RawMessage `json:"content"`
}

type fileInfoContent struct {
	DownloadURL string `json:"downloadUrl"`
	Name        string `json:"name"`
}

const teamsFileInfoType = "application/vnd.microsoft.teams.file.download.info"

// ToTurn converts the wire activity into the domain turn the router
// consumes.
func (a Activity) ToTurn() domain.Turn {
	turn := domain.Turn{
		Type:           a.Type,
		Text:           a.Text,
		ConversationID: a.Conversation.ID,
		ServiceURL:     a.ServiceURL,
	}
	for _, att := range a.Attachments {
		turn.Attachments = append(turn.Attachments, att.toDomain())
	}
	if len(a.Value) > 0 {
		var btn domain.ButtonPayload
		if err := json.Unmarshal(a.Value, &btn); err == nil && btn.Action != "" {
			turn.Button = &btn
		}
	}
	return turn
}

func (w WireAttachment) toDomain() domain.Attachment {
	att := domain.Attachment{
		Name:        w.Name,
		ContentType: w.ContentType,
		ContentURL:  w.ContentURL,
	}
	if strings.HasPrefix(strings.ToLower(w.ContentType), "text/html") {
		var s string
		if err := json.Unmarshal(w.Content, &s); err == nil {
			att.InlineContent = s
		} else {
			att.InlineContent = string(w.Content)
		}
		return att
	}
	// File-consent attachments hide the real URL inside content.
	if len(w.Content) > 0 {
		var info fileInfoContent
		if err := json.Unmarshal(w.Content, &info); err == nil {
			if att.ContentURL == "" && info.DownloadURL != "" {
				att.ContentURL = info.DownloadURL
			}
			if att.Name == "" && info.Name != "" {
				att.Name = info.Name
			}
		}
	}
	if w.ContentType == teamsFileInfoType && att.ContentURL == "" {
		// Consent info without a URL is unusable; leave URL empty so the
		// extraction adapter skips it.
		return att
	}
	return att
}

// OutboundActivity is the reply wire shape.
type OutboundActivity struct {
	Type        string           `json:"type"`
	Text        string           `json:"text,omitempty"`
	Attachments []CardAttachment `json:"attachments,omitempty"`
}

// CardAttachment wraps an adaptive card for the outbound payload.
type CardAttachment struct {
	ContentType string         `json:"contentType"`
	Content     map[string]any `json:"content"`
}
