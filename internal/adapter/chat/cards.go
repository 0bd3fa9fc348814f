package chat

import (
	"github.com/merakitalent/fernando-format/internal/domain"
)

const adaptiveCardContentType = "application/vnd.microsoft.card.adaptive"

// HelpCard builds the menu card with one action per registered role.
func HelpCard(roles []domain.Role) CardAttachment {
	actions := make([]map[string]any, 0, len(roles))
	for _, r := range roles {
		actions = append(actions, map[string]any{
			"type":  "Action.Submit",
			"title": r.DisplayName,
			"data":  map[string]any{"action": domain.ActionSelectRole, "role": r.ID},
		})
	}
	card := map[string]any{
		"type":    "AdaptiveCard",
		"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
		"version": "1.4",
		"body": []map[string]any{
			{
				"type":   "TextBlock",
				"text":   "Fernando Format",
				"weight": "Bolder",
				"size":   "Medium",
			},
			{
				"type":  "TextBlock",
				"text":  "Pick a task, or just upload a CV (PDF or Word) to reformat it with Meraki branding.",
				"wrap":  true,
				"size":  "Small",
				"color": "Accent",
			},
		},
		"actions": actions,
	}
	return CardAttachment{ContentType: adaptiveCardContentType, Content: card}
}

// StartNewCard builds the single-action card sent after a completed task.
func StartNewCard() CardAttachment {
	card := map[string]any{
		"type":    "AdaptiveCard",
		"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
		"version": "1.4",
		"body":    []map[string]any{},
		"actions": []map[string]any{
			{
				"type":  "Action.Submit",
				"title": "Start New",
				"data":  map[string]any{"action": domain.ActionStartNew},
			},
		},
	}
	return CardAttachment{ContentType: adaptiveCardContentType, Content: card}
}
