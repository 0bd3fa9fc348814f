package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/merakitalent/fernando-format/internal/adapter/observability"
	"github.com/merakitalent/fernando-format/internal/domain"
)

const (
	docContentType  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	extractionMax   = 4000
	generationMax   = 2000
	refinementMax   = 2000
	profileBlurbMax = 300
)

// RenderFunc turns a structured CV into document bytes. Injected so the
// layout engine stays free of usecase imports.
type RenderFunc func(cv *domain.StructuredCV) ([]byte, error)

// Service executes routed actions: sends help, runs text roles, and drives
// the CV document pipeline. Blob may be nil when storage is unconfigured.
type Service struct {
	AI       domain.AIClient
	Blob     domain.BlobStore
	Store    domain.StateStore
	Reply    domain.Replier
	Registry *Registry
	Render   RenderFunc

	LinkTTL time.Duration
	now     func() time.Time
}

func NewService(ai domain.AIClient, blob domain.BlobStore, store domain.StateStore, reply domain.Replier, reg *Registry, render RenderFunc, linkTTL time.Duration) *Service {
	return &Service{
		AI: ai, Blob: blob, Store: store, Reply: reply, Registry: reg, Render: render,
		LinkTTL: linkTTL,
		now:     time.Now,
	}
}

// Execute carries out one routed action, sending every reply it produces.
// File errors are reported first so they are never lost behind a card.
func (s *Service) Execute(ctx context.Context, conv domain.Conversation, act Action) error {
	for _, msg := range act.Errors {
		if err := s.Reply.SendText(ctx, conv, msg); err != nil {
			return err
		}
	}

	switch act.Kind {
	case ActionShowHelp:
		return s.Reply.SendHelp(ctx, conv, s.Registry.Roles(ctx))
	case ActionAwaitContent:
		return s.Reply.SendText(ctx, conv, awaitPrompt(act.Role))
	case ActionProcess:
		if act.Role.Output == domain.OutputDocument {
			return s.processDocuments(ctx, conv, act.Contents)
		}
		return s.processText(ctx, conv, act.Role, act.Contents)
	case ActionRefine:
		return s.refine(ctx, conv, act)
	default:
		return fmt.Errorf("%w: unknown action kind %q", domain.ErrInternal, act.Kind)
	}
}

func awaitPrompt(role domain.Role) string {
	if role.Output == domain.OutputDocument {
		return "Great! Send me the CV(s) - you can paste text or upload PDF/Word files."
	}
	return fmt.Sprintf("Great! Send me the details for the %s - paste text or upload a file.", strings.ToLower(role.DisplayName))
}

// processText runs a generation role over the combined content and leaves a
// refinement context so plain follow-ups iterate on the result.
func (s *Service) processText(ctx context.Context, conv domain.Conversation, role domain.Role, contents []domain.ExtractedContent) error {
	output, err := s.AI.Complete(ctx, role.Instruction, combineContents(contents), generationMax)
	if err != nil {
		return s.sendAIFailure(ctx, conv, err)
	}
	output = strings.TrimSpace(output)
	s.storeRefinement(ctx, conv.ID, role.ID, output)
	return s.Reply.SendWithStartNew(ctx, conv, output)
}

func (s *Service) refine(ctx context.Context, conv domain.Conversation, act Action) error {
	output, err := s.AI.Complete(ctx, refineSystemPrompt, refineUserPrompt(act.Baseline, act.Instruction), refinementMax)
	if err != nil {
		return s.sendAIFailure(ctx, conv, err)
	}
	output = strings.TrimSpace(output)
	s.storeRefinement(ctx, conv.ID, act.Role.ID, output)
	return s.Reply.SendWithStartNew(ctx, conv, output)
}

func (s *Service) storeRefinement(ctx context.Context, convID, roleID, output string) {
	err := s.Store.Set(ctx, domain.PendingIntent{
		ConversationID: convID,
		Kind:           domain.KindRefinement,
		RoleID:         roleID,
		LastOutput:     output,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		observability.StateStoreFailures.WithLabelValues("set").Inc()
		slog.Warn("refinement context not stored", slog.Any("error", err))
	}
}

// processDocuments reformats each content block into a branded document.
// Multi-file batches get framing messages; the Start New card rides on the
// last reply either way.
func (s *Service) processDocuments(ctx context.Context, conv domain.Conversation, contents []domain.ExtractedContent) error {
	if s.Blob == nil {
		return s.Reply.SendText(ctx, conv, "Error: Storage not configured for file uploads")
	}
	n := len(contents)
	if n == 0 {
		return s.Reply.SendText(ctx, conv, "I couldn't find any CV content to work with. Paste the CV text or upload a PDF/Word file.")
	}

	if n > 1 {
		if err := s.Reply.SendText(ctx, conv, fmt.Sprintf("Processing %d CVs...", n)); err != nil {
			return err
		}
	}
	for i, content := range contents {
		if n > 1 {
			if err := s.Reply.SendText(ctx, conv, fmt.Sprintf("**Processing CV %d of %d:** %s", i+1, n, content.SourceLabel)); err != nil {
				return err
			}
		}
		msg := s.processOne(ctx, content)
		if n == 1 {
			return s.Reply.SendWithStartNew(ctx, conv, msg)
		}
		if err := s.Reply.SendText(ctx, conv, msg); err != nil {
			return err
		}
	}
	if n > 1 {
		return s.Reply.SendWithStartNew(ctx, conv, fmt.Sprintf("Finished processing %d CVs.", n))
	}
	return nil
}

// processOne runs the full per-file pipeline and always returns a
// user-facing message, success or failure.
func (s *Service) processOne(ctx context.Context, content domain.ExtractedContent) string {
	raw, err := s.AI.Complete(ctx, cvExtractionPrompt, content.Text, extractionMax)
	if err != nil {
		observability.PipelineOutcomes.WithLabelValues("ai_error").Inc()
		return aiFailureMessage(err)
	}
	cv, err := ParseStructuredCV(raw)
	if err != nil {
		observability.PipelineOutcomes.WithLabelValues("parse_error").Inc()
		slog.Warn("cv response failed schema parse", slog.String("source", content.SourceLabel), slog.Any("error", err))
		return fmt.Sprintf("Sorry, I couldn't structure the CV from %s. The model's response didn't match the expected format:\n\n%s", content.SourceLabel, snippet(raw))
	}

	docBytes, err := s.Render(cv)
	if err != nil {
		observability.PipelineOutcomes.WithLabelValues("render_error").Inc()
		slog.Error("document render failed", slog.Any("error", err))
		return fmt.Sprintf("Sorry, I couldn't generate the document for %s. Please try again.", displayName(cv))
	}

	filename := documentFilename(cv.Name, s.now().UTC())
	handle, err := s.Blob.Upload(ctx, filename, docBytes, docContentType)
	if err != nil {
		observability.PipelineOutcomes.WithLabelValues("upload_error").Inc()
		slog.Error("document upload failed", slog.Any("error", err))
		return "Sorry, I couldn't upload the generated document. Please try again."
	}
	url, err := s.Blob.SignURL(ctx, handle, s.LinkTTL)
	if err != nil {
		observability.PipelineOutcomes.WithLabelValues("sign_error").Inc()
		slog.Error("download link signing failed", slog.Any("error", err))
		return "Sorry, I couldn't create a download link for the generated document. Please try again."
	}

	observability.PipelineOutcomes.WithLabelValues("success").Inc()
	msg := fmt.Sprintf("Here's the reformatted CV for **%s**:\n\n[Download %s](%s)\n\n_Link expires in 7 days_", displayName(cv), filename, url)
	if blurb := s.alternativeProfile(ctx, cv); blurb != "" {
		msg += "\n\n**Alternative Candidate Profile:**\n" + blurb
	}
	return msg
}

// alternativeProfile is best effort; any failure yields an empty blurb.
func (s *Service) alternativeProfile(ctx context.Context, cv *domain.StructuredCV) string {
	data, err := json.Marshal(cv)
	if err != nil {
		return ""
	}
	blurb, err := s.AI.Complete(ctx, "", fmt.Sprintf(alternativeProfilePrompt, string(data)), profileBlurbMax)
	if err != nil {
		slog.Warn("alternative profile generation failed", slog.Any("error", err))
		return ""
	}
	return strings.TrimSpace(blurb)
}

func (s *Service) sendAIFailure(ctx context.Context, conv domain.Conversation, err error) error {
	slog.Error("ai completion failed", slog.Any("error", err))
	return s.Reply.SendText(ctx, conv, aiFailureMessage(err))
}

func aiFailureMessage(err error) string {
	if errors.Is(err, domain.ErrUpstreamTimeout) {
		return "Sorry, that took too long to process. Please try again."
	}
	return "Sorry, something went wrong while processing that. Please try again."
}

// documentFilename builds Meraki_CV_{name}_{timestamp}.docx. The name keeps
// letters and digits only, with spaces as underscores.
func documentFilename(name string, at time.Time) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	sanitized := strings.Trim(b.String(), "_")
	if sanitized == "" {
		sanitized = "Candidate"
	}
	return fmt.Sprintf("Meraki_CV_%s_%s.docx", sanitized, at.Format("20060102_150405"))
}

func displayName(cv *domain.StructuredCV) string {
	if cv.Name != "" {
		return cv.Name
	}
	return "Candidate"
}

func combineContents(contents []domain.ExtractedContent) string {
	if len(contents) == 1 {
		return contents[0].Text
	}
	var b strings.Builder
	for i, c := range contents {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&b, "[%s]\n%s", c.SourceLabel, c.Text)
	}
	return b.String()
}
