package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/merakitalent/fernando-format/internal/adapter/observability"
	"github.com/merakitalent/fernando-format/internal/domain"
)

// ActionKind is the routing decision for one turn.
type ActionKind string

const (
	ActionShowHelp     ActionKind = "show_help"
	ActionAwaitContent ActionKind = "await_content"
	ActionProcess      ActionKind = "process"
	ActionRefine       ActionKind = "refine"
)

// Action is the resolved interpretation of one inbound turn. Errors carries
// per-file extraction failures to report regardless of the main outcome.
type Action struct {
	Kind     ActionKind
	Role     domain.Role
	Contents []domain.ExtractedContent

	// Refinement only
	Instruction string
	Baseline    string

	Errors []string
}

var helpWords = map[string]struct{}{
	"help": {}, "/help": {}, "menu": {}, "start": {},
	"hi": {}, "hello": {}, "hey": {},
}

// Router resolves an inbound turn into an Action. Precedence is strict and
// first-match-wins; every branch is stateless except for reads and writes
// against the pending-intent store, which are treated as best effort.
type Router struct {
	Store    domain.StateStore
	Registry *Registry
	AI       domain.AIClient
}

func NewRouter(store domain.StateStore, reg *Registry, ai domain.AIClient) *Router {
	return &Router{Store: store, Registry: reg, AI: ai}
}

// Route decides what to do with a turn whose attachments have already been
// normalized into contents/fileErrors.
func (r *Router) Route(ctx context.Context, turn domain.Turn, contents []domain.ExtractedContent, fileErrors []string) Action {
	act := r.route(ctx, turn, contents)
	act.Errors = fileErrors
	observability.TurnsRouted.WithLabelValues(string(act.Kind)).Inc()
	return act
}

func (r *Router) route(ctx context.Context, turn domain.Turn, contents []domain.ExtractedContent) Action {
	convID := turn.ConversationID
	text := strings.TrimSpace(turn.Text)
	lower := strings.ToLower(text)
	roles := r.Registry.Roles(ctx)

	// Help words and the start-over button reset everything.
	if _, ok := helpWords[lower]; ok || (turn.Button != nil && turn.Button.Action == domain.ActionStartNew) {
		r.clearAll(ctx, convID)
		return Action{Kind: ActionShowHelp}
	}

	// Role-selection buttons.
	if turn.Button != nil {
		if role, ok := r.buttonRole(ctx, turn.Button); ok {
			if len(contents) == 0 && text == "" {
				r.clearAll(ctx, convID)
				r.set(ctx, domain.PendingIntent{
					ConversationID: convID,
					Kind:           awaitKindFor(role),
					RoleID:         role.ID,
				})
				return Action{Kind: ActionAwaitContent, Role: role}
			}
			r.clearAll(ctx, convID)
			return Action{Kind: ActionProcess, Role: role, Contents: contentOrText(contents, text)}
		}
	}

	// A prior turn promised content for a role. Any non-empty reply counts as
	// content; short pastes are still real input.
	if len(contents) > 0 || text != "" {
		if intent := r.get(ctx, convID, domain.KindAwaitReformat); intent != nil {
			r.clear(ctx, convID, domain.KindAwaitReformat)
			role := r.roleOrDefault(ctx, intent.RoleID)
			return Action{Kind: ActionProcess, Role: role, Contents: contentOrText(contents, text)}
		}
		if intent := r.get(ctx, convID, domain.KindAwaitRole); intent != nil {
			r.clear(ctx, convID, domain.KindAwaitRole)
			role := r.roleOrDefault(ctx, intent.RoleID)
			return Action{Kind: ActionProcess, Role: role, Contents: contentOrText(contents, text)}
		}
	}

	// Refinement window: plain text continues the previous output unless it
	// clearly starts a different task.
	if ref := r.get(ctx, convID, domain.KindRefinement); ref != nil {
		if text != "" && len(contents) == 0 {
			word, rest, explicit := firstWordTrigger(lower, text, roles)
			if explicit && word.ID != ref.RoleID {
				r.clear(ctx, convID, domain.KindRefinement)
				return r.dispatchTrigger(ctx, convID, word, rest, contents)
			}
			if !explicit {
				role := r.roleOrDefault(ctx, ref.RoleID)
				return Action{Kind: ActionRefine, Role: role, Instruction: text, Baseline: ref.LastOutput}
			}
			// Same-role explicit trigger restarts that task.
			r.clear(ctx, convID, domain.KindRefinement)
			return r.dispatchTrigger(ctx, convID, word, rest, contents)
		}
		if len(contents) > 0 {
			// New files abandon the refinement context.
			r.clear(ctx, convID, domain.KindRefinement)
		}
	}

	// Explicit first-word trigger: "/spec please review" or "reformat".
	if role, rest, ok := firstWordTrigger(lower, text, roles); ok {
		return r.dispatchTrigger(ctx, convID, role, rest, contents)
	}

	// Anywhere-scan: "please spec this". The whole message is the content
	// since the trigger is embedded in prose.
	if text != "" {
		if role, ok := anywhereTrigger(lower, roles); ok {
			return Action{Kind: ActionProcess, Role: role, Contents: contentOrText(contents, text)}
		}
	}

	// LLM classifier as a last resort for plain text.
	if text != "" && len(turn.Attachments) == 0 {
		if role, ok := r.classify(ctx, text, roles); ok {
			return Action{Kind: ActionProcess, Role: role, Contents: contentOrText(nil, text)}
		}
	}

	// Bare file upload defaults to the document role.
	if len(contents) > 0 {
		role := r.roleOrDefault(ctx, "")
		return Action{Kind: ActionProcess, Role: role, Contents: contents}
	}

	return Action{Kind: ActionShowHelp}
}

// dispatchTrigger handles a resolved explicit trigger: with content it
// processes, without it parks an await intent.
func (r *Router) dispatchTrigger(ctx context.Context, convID string, role domain.Role, rest string, contents []domain.ExtractedContent) Action {
	if len(contents) > 0 {
		r.clearAll(ctx, convID)
		return Action{Kind: ActionProcess, Role: role, Contents: contents}
	}
	if strings.TrimSpace(rest) != "" {
		r.clearAll(ctx, convID)
		return Action{Kind: ActionProcess, Role: role, Contents: contentOrText(nil, rest)}
	}
	r.set(ctx, domain.PendingIntent{ConversationID: convID, Kind: awaitKindFor(role), RoleID: role.ID})
	return Action{Kind: ActionAwaitContent, Role: role}
}

func (r *Router) buttonRole(ctx context.Context, b *domain.ButtonPayload) (domain.Role, bool) {
	switch b.Action {
	case domain.ActionSelectRole:
		if role, ok := r.Registry.Lookup(ctx, b.Role); ok {
			return role, true
		}
		return r.roleOrDefault(ctx, ""), true
	case domain.ActionReformatCV:
		return r.roleOrDefault(ctx, ""), true
	}
	return domain.Role{}, false
}

// roleOrDefault resolves id, falling back to the document role. The default
// role always exists in the embedded set.
func (r *Router) roleOrDefault(ctx context.Context, id string) domain.Role {
	if id != "" {
		if role, ok := r.Registry.Lookup(ctx, id); ok {
			return role
		}
	}
	if role, ok := r.Registry.Lookup(ctx, domain.DefaultDocumentRoleID); ok {
		return role
	}
	for _, role := range DefaultRoles() {
		if role.ID == domain.DefaultDocumentRoleID {
			return role
		}
	}
	return domain.Role{ID: domain.DefaultDocumentRoleID, Output: domain.OutputDocument}
}

func (r *Router) classify(ctx context.Context, text string, roles []domain.Role) (domain.Role, bool) {
	if r.AI == nil {
		return domain.Role{}, false
	}
	answer, err := r.AI.Complete(ctx, classifierPrompt(roles), text, 10)
	if err != nil {
		slog.Debug("intent classification failed", slog.Any("error", err))
		return domain.Role{}, false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "" || answer == "none" {
		return domain.Role{}, false
	}
	return r.Registry.Lookup(ctx, answer)
}

// awaitKindFor picks which pending kind a role waits under. The document
// role uses its dedicated kind so that legacy reformat flows keep working.
func awaitKindFor(role domain.Role) domain.IntentKind {
	if role.ID == domain.DefaultDocumentRoleID {
		return domain.KindAwaitReformat
	}
	return domain.KindAwaitRole
}

// firstWordTrigger matches the message's first word against role triggers
// and aliases, case-insensitively, stripping one leading "/" or "!".
func firstWordTrigger(lower, original string, roles []domain.Role) (domain.Role, string, bool) {
	fields := strings.Fields(lower)
	if len(fields) == 0 {
		return domain.Role{}, "", false
	}
	word := strings.TrimLeft(fields[0], "/!")
	if word == "" {
		return domain.Role{}, "", false
	}
	for _, role := range roles {
		if !matchesTrigger(role, word) {
			continue
		}
		// Remainder preserves the original casing of the message body.
		origFields := strings.Fields(original)
		rest := strings.Join(origFields[1:], " ")
		return role, rest, true
	}
	return domain.Role{}, "", false
}

// anywhereTrigger scans the lowered message for any trigger or alias as a
// substring. Ties go to the earliest match, then the shortest trigger.
func anywhereTrigger(lower string, roles []domain.Role) (domain.Role, bool) {
	best := -1
	bestLen := 0
	var bestRole domain.Role
	for _, role := range roles {
		for _, t := range append([]string{role.Trigger}, role.Aliases...) {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			idx := indexTrigger(lower, t)
			if idx < 0 {
				continue
			}
			if best == -1 || idx < best || (idx == best && len(t) < bestLen) {
				best, bestLen, bestRole = idx, len(t), role
			}
		}
	}
	return bestRole, best >= 0
}

// indexTrigger finds t within lower. Triggers of three characters or fewer
// only match on word boundaries, so "ad" does not fire inside "ahead".
func indexTrigger(lower, t string) int {
	if len(t) > 3 {
		return strings.Index(lower, t)
	}
	for from := 0; ; {
		idx := strings.Index(lower[from:], t)
		if idx < 0 {
			return -1
		}
		idx += from
		if wordBoundary(lower, idx, len(t)) {
			return idx
		}
		from = idx + 1
	}
}

func wordBoundary(s string, idx, n int) bool {
	if idx > 0 && isWordByte(s[idx-1]) {
		return false
	}
	if end := idx + n; end < len(s) && isWordByte(s[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func matchesTrigger(role domain.Role, word string) bool {
	if strings.EqualFold(role.Trigger, word) {
		return true
	}
	for _, a := range role.Aliases {
		if strings.EqualFold(a, word) {
			return true
		}
	}
	return false
}

func contentOrText(contents []domain.ExtractedContent, text string) []domain.ExtractedContent {
	if len(contents) > 0 {
		return contents
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return []domain.ExtractedContent{{SourceLabel: "pasted text", Text: text}}
}

// Best-effort state operations. A failing store must never fail a turn.

func (r *Router) get(ctx context.Context, convID string, kind domain.IntentKind) *domain.PendingIntent {
	intent, err := r.Store.Get(ctx, convID, kind)
	if err != nil {
		observability.StateStoreFailures.WithLabelValues("get").Inc()
		slog.Warn("state store get failed, continuing stateless", slog.String("kind", string(kind)), slog.Any("error", err))
		return nil
	}
	return intent
}

func (r *Router) set(ctx context.Context, intent domain.PendingIntent) {
	if err := r.Store.Set(ctx, intent); err != nil {
		observability.StateStoreFailures.WithLabelValues("set").Inc()
		slog.Warn("state store set failed", slog.String("kind", string(intent.Kind)), slog.Any("error", err))
	}
}

func (r *Router) clear(ctx context.Context, convID string, kind domain.IntentKind) {
	if err := r.Store.Clear(ctx, convID, kind); err != nil {
		observability.StateStoreFailures.WithLabelValues("clear").Inc()
		slog.Warn("state store clear failed", slog.String("kind", string(kind)), slog.Any("error", err))
	}
}

func (r *Router) clearAll(ctx context.Context, convID string) {
	for _, k := range []domain.IntentKind{domain.KindAwaitReformat, domain.KindAwaitRole, domain.KindRefinement} {
		r.clear(ctx, convID, k)
	}
}
