// Package domain holds the core entities and ports of the Fernando Format
// bot: conversation turns, pending intents, roles, and the structured CV
// representation that drives document rendering.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotFound           = errors.New("not found")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrExtractionFailed   = errors.New("extraction failed")
	ErrUpstreamTimeout    = errors.New("upstream timeout")
	ErrSchemaInvalid      = errors.New("schema invalid")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrStateStore         = errors.New("state store unavailable")
	ErrInternal           = errors.New("internal error")
)

// Turn is one inbound chat event. Non-"message" types are ignored by the
// router. Button carries the structured payload of an adaptive-card action
// submitted on this turn, if any.
type Turn struct {
	Type           string
	Text           string
	ConversationID string
	ServiceURL     string
	Attachments    []Attachment
	Button         *ButtonPayload
}

// Attachment is an inbound attachment reference. Exactly one of ContentURL
// or InlineContent is normally populated; HTML snippets arrive inline.
type Attachment struct {
	Name          string
	ContentType   string
	ContentURL    string
	InlineContent string
}

// ButtonPayload is the structured action submitted by an adaptive card.
type ButtonPayload struct {
	Action string `json:"action"`
	Role   string `json:"role,omitempty"`
}

// Card actions understood by the router.
const (
	ActionStartNew   = "start_new"
	ActionSelectRole = "select_role"
	ActionReformatCV = "reformat_cv" // legacy alias for selecting the cv-reformat role
)

// ExtractedContent is one normalized block of plain text obtained from a
// pasted block, an uploaded file, or a forwarded HTML snippet.
type ExtractedContent struct {
	SourceLabel string
	Text        string
}

// IntentKind partitions the state store. At most one PendingIntent exists
// per conversation per kind; Set has upsert semantics.
type IntentKind string

const (
	KindAwaitReformat IntentKind = "pending_reformat"
	KindAwaitRole     IntentKind = "pending_role"
	KindRefinement    IntentKind = "refinement"
)

// TTL is the logical lifetime of an intent of this kind. Entries older than
// this are treated as absent and deleted lazily on read.
func (k IntentKind) TTL() time.Duration {
	if k == KindRefinement {
		return 30 * time.Minute
	}
	return 5 * time.Minute
}

// PendingIntent marks that the next turn should be interpreted as the
// continuation of a prior clarifying exchange. RoleID is set for
// KindAwaitRole and KindRefinement; LastOutput only for KindRefinement.
type PendingIntent struct {
	ConversationID string     `json:"conversation_id"`
	Kind           IntentKind `json:"kind"`
	RoleID         string     `json:"role_id,omitempty"`
	LastOutput     string     `json:"last_output,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// OutputKind distinguishes roles that reply with plain text from the one
// that generates a branded document.
type OutputKind string

const (
	OutputText     OutputKind = "text"
	OutputDocument OutputKind = "document"
)

// Role describes one task the bot can perform. Roles are immutable once
// loaded; the registry replaces the whole set atomically on reload.
type Role struct {
	ID          string     `yaml:"id"`
	DisplayName string     `yaml:"display_name"`
	Trigger     string     `yaml:"trigger"`
	Aliases     []string   `yaml:"aliases"`
	Instruction string     `yaml:"instruction"`
	Output      OutputKind `yaml:"output"`
	Active      bool       `yaml:"active"`
}

// DefaultDocumentRoleID is the role assumed for bare file uploads and for
// consuming an AwaitingReformatContent intent.
const DefaultDocumentRoleID = "cv-reformat"

// Ports

// StateStore persists pending intents with per-kind TTL expiry. Get returns
// (nil, nil) for absent or expired entries; callers treat any error as "no
// pending state" so that a lost store only degrades UX.
type StateStore interface {
	Get(ctx context.Context, conversationID string, kind IntentKind) (*PendingIntent, error)
	Set(ctx context.Context, intent PendingIntent) error
	Clear(ctx context.Context, conversationID string, kind IntentKind) error
}

// RoleSource lists active role records from the external config store.
type RoleSource interface {
	ListActiveRoles(ctx context.Context) ([]Role, error)
}

// AIClient is the LLM port. Complete performs a single chat completion with
// a bounded timeout; retry policy belongs to the implementation.
type AIClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// TextExtractor turns document bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, filename, contentTypeHint string) (string, error)
}

// AttachmentFetcher downloads attachment bytes from the chat platform.
type AttachmentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// BlobStore uploads generated documents and mints time-boxed download URLs.
type BlobStore interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
	SignURL(ctx context.Context, handle string, ttl time.Duration) (string, error)
}

// Replier sends outbound messages and cards for a conversation. Implemented
// by the chat adapter; the reply builder itself is stateless.
type Replier interface {
	SendText(ctx context.Context, conv Conversation, text string) error
	SendHelp(ctx context.Context, conv Conversation, roles []Role) error
	SendWithStartNew(ctx context.Context, conv Conversation, text string) error
}

// Conversation identifies where replies go. ID is opaque and used only for
// equality and hashing, never ordering.
type Conversation struct {
	ID         string
	ServiceURL string
}
