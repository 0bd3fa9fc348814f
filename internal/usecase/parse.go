package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/merakitalent/fernando-format/internal/adapter/ai"
	"github.com/merakitalent/fernando-format/internal/domain"
)

// placeholders the model sometimes emits despite the prompt. Scrubbed to ""
// so the layout engine's "render only when present" rule holds.
var placeholderValues = map[string]struct{}{
	"n/a": {}, "na": {}, "none": {}, "unknown": {}, "not specified": {}, "not provided": {},
}

// ParseStructuredCV turns a raw model response into a normalized
// StructuredCV. The response may be wrapped in markdown fences or prose;
// anything that does not yield the expected shape wraps ErrSchemaInvalid.
func ParseStructuredCV(raw string) (*domain.StructuredCV, error) {
	cleaned := ai.ExtractJSON(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: no JSON object in response: %s", domain.ErrSchemaInvalid, snippet(raw))
	}
	var cv domain.StructuredCV
	if err := json.Unmarshal([]byte(cleaned), &cv); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", domain.ErrSchemaInvalid, err, snippet(raw))
	}
	normalizeCV(&cv)
	if cv.Name == "" && cv.Profile == "" && len(cv.WorkExperience) == 0 && len(cv.Education) == 0 {
		return nil, fmt.Errorf("%w: response carries no CV fields: %s", domain.ErrSchemaInvalid, snippet(raw))
	}
	cv.WorkExperience = MergeWorkExperience(cv.WorkExperience)
	return &cv, nil
}

func normalizeCV(cv *domain.StructuredCV) {
	cv.Name = scrub(cv.Name)
	cv.Location = scrub(cv.Location)
	cv.RightToWork = scrub(cv.RightToWork)
	cv.Notice = scrub(cv.Notice)
	cv.SalaryExpectations = scrub(cv.SalaryExpectations)
	cv.ITSystems = scrub(cv.ITSystems)
	cv.Languages = scrub(cv.Languages)
	cv.Interests = scrub(cv.Interests)
	cv.Profile = scrub(cv.Profile)
	cv.ProfessionalQualifications = scrubList(cv.ProfessionalQualifications)

	edu := cv.Education[:0]
	for _, e := range cv.Education {
		e.Dates = scrub(e.Dates)
		e.Title = scrub(e.Title)
		e.Institution = scrub(e.Institution)
		e.Details = scrubList(e.Details)
		if e.Title != "" || e.Institution != "" {
			edu = append(edu, e)
		}
	}
	cv.Education = edu

	work := cv.WorkExperience[:0]
	for _, w := range cv.WorkExperience {
		w.Dates = scrub(w.Dates)
		w.Company = scrub(w.Company)
		w.Position = scrub(w.Position)
		w.Content = scrubBullets(w.Content)
		if w.Company != "" || w.Position != "" || len(w.Content) > 0 {
			work = append(work, w)
		}
	}
	cv.WorkExperience = work

	other := cv.OtherInformation[:0]
	for _, o := range cv.OtherInformation {
		o.Category = scrub(o.Category)
		o.Content = scrubList(o.Content)
		if len(o.Content) > 0 {
			other = append(other, o)
		}
	}
	cv.OtherInformation = other
}

func scrub(s string) string {
	s = strings.TrimSpace(s)
	if _, ok := placeholderValues[strings.ToLower(s)]; ok {
		return ""
	}
	return s
}

func scrubList(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = scrub(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func scrubBullets(in []domain.Bullet) []domain.Bullet {
	out := in[:0]
	for _, b := range in {
		b.Text = scrub(b.Text)
		b.SubBullets = scrubBullets(b.SubBullets)
		if !b.IsEmpty() {
			out = append(out, b)
		}
	}
	return out
}

// MergeWorkExperience folds consecutive entries for the same employer into
// one entry. Company match is case-insensitive; non-adjacent repeats stay
// separate since an intervening employer means a genuine return.
func MergeWorkExperience(entries []domain.WorkExperience) []domain.WorkExperience {
	if len(entries) < 2 {
		return entries
	}
	merged := []domain.WorkExperience{entries[0]}
	for _, e := range entries[1:] {
		last := &merged[len(merged)-1]
		if last.Company == "" || !strings.EqualFold(strings.TrimSpace(last.Company), strings.TrimSpace(e.Company)) {
			merged = append(merged, e)
			continue
		}
		last.Position = joinTitles(last.Position, e.Position)
		last.Dates = combineDates(last.Dates, e.Dates)
		last.Content = append(last.Content, e.Content...)
	}
	return merged
}

func joinTitles(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "" || strings.EqualFold(a, b):
		return a
	default:
		return a + " / " + b
	}
}

// combineDates spans from the older entry's start to the newer entry's end.
// Entries arrive most-recent-first, so the newer range contributes the end.
// Unsplittable ranges fall back to the most recent entry's dates.
func combineDates(newer, older string) string {
	start, okOld := rangePart(older, false)
	end, okNew := rangePart(newer, true)
	if !okOld || !okNew {
		if newer != "" {
			return newer
		}
		return older
	}
	return start + " - " + end
}

// rangePart splits a textual date range on "-" or the en dash and returns
// the end (last=true) or start.
func rangePart(dates string, last bool) (string, bool) {
	dates = strings.TrimSpace(dates)
	if dates == "" {
		return "", false
	}
	sep := "-"
	if strings.Contains(dates, "–") {
		sep = "–"
	}
	parts := strings.Split(dates, sep)
	if len(parts) != 2 {
		return "", false
	}
	idx := 0
	if last {
		idx = 1
	}
	p := strings.TrimSpace(parts[idx])
	if p == "" {
		return "", false
	}
	return p, true
}

func snippet(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > 200 {
		return raw[:200] + "..."
	}
	return raw
}
