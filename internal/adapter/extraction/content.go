// Package extraction normalizes heterogeneous turn inputs (uploaded files,
// forwarded HTML snippets) into plain-text content blocks.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/merakitalent/fernando-format/internal/domain"
)

// Adapter collects usable text from a turn's attachments. Per-file failures
// become FileErrors rather than aborting the turn.
type Adapter struct {
	Fetcher   domain.AttachmentFetcher
	Extractor domain.TextExtractor
	MaxBytes  int64
}

// Result is the outcome of normalizing one turn's attachments.
type Result struct {
	Contents []domain.ExtractedContent
	// FileErrors are user-facing, per-file failure messages.
	FileErrors []string
}

// New constructs an extraction Adapter.
func New(f domain.AttachmentFetcher, x domain.TextExtractor, maxBytes int64) *Adapter {
	return &Adapter{Fetcher: f, Extractor: x, MaxBytes: maxBytes}
}

// Collect walks the attachments and returns the usable content blocks plus
// per-file errors. Images are skipped; HTML snippets are converted and kept
// only if they look like a CV.
func (a *Adapter) Collect(ctx context.Context, attachments []domain.Attachment) Result {
	var res Result
	for _, att := range attachments {
		if strings.HasPrefix(strings.ToLower(att.ContentType), "image/") {
			continue
		}
		if strings.HasPrefix(strings.ToLower(att.ContentType), "text/html") {
			text := HTMLToText(att.InlineContent)
			if LooksLikeCV(text) {
				res.Contents = append(res.Contents, domain.ExtractedContent{SourceLabel: "CV from chat", Text: text})
			}
			continue
		}
		if att.ContentURL == "" {
			continue
		}
		name := att.Name
		if name == "" {
			name = "attachment"
		}
		text, err := a.extractOne(ctx, att, name)
		if err != nil {
			slog.Warn("attachment extraction failed",
				slog.String("name", name),
				slog.Any("error", err))
			res.FileErrors = append(res.FileErrors, fileErrorMessage(name, err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			res.FileErrors = append(res.FileErrors, fmt.Sprintf("No readable text found in **%s**.", name))
			continue
		}
		res.Contents = append(res.Contents, domain.ExtractedContent{SourceLabel: name, Text: text})
	}
	return res
}

func (a *Adapter) extractOne(ctx context.Context, att domain.Attachment, name string) (string, error) {
	data, err := a.Fetcher.Fetch(ctx, att.ContentURL)
	if err != nil {
		return "", fmt.Errorf("%w: download %s: %v", domain.ErrExtractionFailed, name, err)
	}
	if a.MaxBytes > 0 && int64(len(data)) > a.MaxBytes {
		return "", fmt.Errorf("%w: %s exceeds size limit", domain.ErrInvalidArgument, name)
	}
	ct := att.ContentType
	if ct == "" {
		ct = mimetype.Detect(data).String()
	}
	return a.Extractor.Extract(ctx, data, name, ct)
}

func fileErrorMessage(name string, err error) string {
	switch {
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return fmt.Sprintf("Sorry, **%s** is not a supported file type. Please upload a PDF or Word document.", name)
	case errors.Is(err, domain.ErrInvalidArgument):
		return fmt.Sprintf("Sorry, **%s** is too large to process.", name)
	default:
		return fmt.Sprintf("Error extracting text from **%s**.", name)
	}
}

var (
	reScript = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	reStyle  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	reBreak  = regexp.MustCompile(`(?i)<br\s*/?>`)
	reBlock  = regexp.MustCompile(`(?i)</(p|li|tr)>`)
	reCell   = regexp.MustCompile(`(?i)</td>`)
	reTag    = regexp.MustCompile(`<[^>]+>`)
	reSpaces = regexp.MustCompile(`[ \t]+`)
	reBlank  = regexp.MustCompile(`\n\s*\n`)
)

// HTMLToText converts an HTML snippet to plain text, preserving line and
// table-cell structure well enough for the CV-likeness check and downstream
// extraction.
func HTMLToText(htmlContent string) string {
	if htmlContent == "" {
		return ""
	}
	text := reScript.ReplaceAllString(htmlContent, "")
	text = reStyle.ReplaceAllString(text, "")
	text = reBreak.ReplaceAllString(text, "\n")
	text = reBlock.ReplaceAllString(text, "\n")
	text = reCell.ReplaceAllString(text, " | ")
	text = reTag.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = reSpaces.ReplaceAllString(text, " ")
	text = reBlank.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

var cvIndicators = []string{
	"experience", "education", "skills", "accomplishment", "employment",
	"professional", "qualification", "certification", "university", "degree",
}

// LooksLikeCV is a cheap heuristic filter: at least 200 characters and two
// distinct CV indicator words.
func LooksLikeCV(text string) bool {
	if len(text) < 200 {
		return false
	}
	lower := strings.ToLower(text)
	matches := 0
	for _, ind := range cvIndicators {
		if strings.Contains(lower, ind) {
			matches++
			if matches >= 2 {
				return true
			}
		}
	}
	return false
}
