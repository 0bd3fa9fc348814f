package usecase

import (
	"fmt"
	"strings"

	"github.com/merakitalent/fernando-format/internal/domain"
)

// cvExtractionPrompt is the fixed instruction contract for the structuring
// call. The non-fabrication and empty-value rules are load-bearing: the
// parser and layout engine rely on absent data being "" or [], never a
// placeholder.
const cvExtractionPrompt = `You are a CV data extraction assistant. Extract structured information from the provided CV and return it as valid JSON.

IMPORTANT RULES:
1. Return ONLY valid JSON - no explanations, no markdown, just the JSON object
2. Extract actual content from the CV - never invent information that is not in the source
3. If a field has no evidence in the CV, use an empty string "" or empty array [] - never "N/A", "Unknown" or any placeholder
4. Keep bullet points concise but informative; preserve sub-bullet nesting where the CV has it
5. Dates should be in a format like "Jan 2023 - Present" or "2019 - 2023"
6. Roles at the SAME company with a date progression belong in ONE work_experience entry listing the titles; roles at DIFFERENT companies are always separate entries

REQUIRED JSON STRUCTURE:
{
  "name": "Full Name",
  "location": "City, Country",
  "right_to_work": "",
  "notice": "",
  "salary_expectations": "",
  "it_systems": "",
  "languages": "",
  "interests": "",
  "profile": "Professional summary in the candidate's own words",
  "professional_qualifications": ["Qualification 1"],
  "education": [
    {"dates": "Start - End", "title": "Degree name", "institution": "University name", "details": ["Grade if notable"]}
  ],
  "work_experience": [
    {"dates": "Start - End", "company": "Company Name", "position": "Job Title",
     "content": [{"text": "Achievement", "sub_bullets": [{"text": "Supporting detail", "sub_bullets": []}]}]}
  ],
  "other_information": [
    {"category": "Certifications", "content": ["Certification 1"]}
  ]
}

NOTES:
- List work experience in reverse chronological order (most recent first)
- Keep the profile to 2-4 sentences maximum

Now extract the CV data:`

// alternativeProfilePrompt produces the short blurb sent alongside the
// reformatted CV. Its failure is always swallowed.
const alternativeProfilePrompt = `Based on this CV data, write a short alternative candidate profile (2-3 sentences max).

This is a punchy summary to send alongside the CV to a client. Use "they/their" pronouns. Highlight their key strengths, current situation, and what makes them stand out. Keep it compelling and concise.

CV Data:
%s

Output ONLY the profile text, nothing else.`

const refineSystemPrompt = `You are an assistant revising a previously generated piece of recruitment text. Apply the user's instruction to the current draft and output ONLY the full revised text, nothing else.`

func refineUserPrompt(baseline, instruction string) string {
	return fmt.Sprintf("Current draft:\n---\n%s\n---\n\nInstruction: %s", baseline, instruction)
}

// classifierPrompt asks for a single role id or "none". Anything else is
// treated as "none" by the router.
func classifierPrompt(roles []domain.Role) string {
	var b strings.Builder
	b.WriteString("You classify a chat message into one of these task ids, or \"none\" if no task fits:\n")
	for _, r := range roles {
		fmt.Fprintf(&b, "- %s: %s\n", r.ID, r.DisplayName)
	}
	b.WriteString("\nRespond with exactly one word: the task id, or none.")
	return b.String()
}
