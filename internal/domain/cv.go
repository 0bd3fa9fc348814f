package domain

import (
	"encoding/json"
	"strings"
)

// StructuredCV is the canonical intermediate representation of a candidate
// CV. It is produced once per processing request, consumed immediately by
// the layout engine, and discarded. Absent data is an empty string or empty
// list, never a placeholder token.
type StructuredCV struct {
	Name                       string             `json:"name"`
	Location                   string             `json:"location"`
	RightToWork                string             `json:"right_to_work,omitempty"`
	Notice                     string             `json:"notice,omitempty"`
	SalaryExpectations         string             `json:"salary_expectations,omitempty"`
	ITSystems                  string             `json:"it_systems,omitempty"`
	Languages                  string             `json:"languages,omitempty"`
	Interests                  string             `json:"interests,omitempty"`
	Profile                    string             `json:"profile"`
	ProfessionalQualifications []string           `json:"professional_qualifications,omitempty"`
	Education                  []Education        `json:"education,omitempty"`
	WorkExperience             []WorkExperience   `json:"work_experience,omitempty"`
	OtherInformation           []OtherInformation `json:"other_information,omitempty"`
}

// Education is one education entry in source order.
type Education struct {
	Dates       string   `json:"dates"`
	Title       string   `json:"title"`
	Institution string   `json:"institution"`
	Details     []string `json:"details,omitempty"`
}

// WorkExperience is one employment entry, most recent first.
type WorkExperience struct {
	Dates    string   `json:"dates"`
	Company  string   `json:"company"`
	Position string   `json:"position"`
	Content  []Bullet `json:"content,omitempty"`
}

// OtherInformation is a named category of free-text lines.
type OtherInformation struct {
	Category string   `json:"category"`
	Content  []string `json:"content,omitempty"`
}

// Bullet is a recursive bullet point. Nesting depth is unbounded in the
// schema; rendering clamps depth for sanity.
type Bullet struct {
	Text       string   `json:"text"`
	SubBullets []Bullet `json:"sub_bullets,omitempty"`
}

// bulletAlias avoids UnmarshalJSON recursion.
type bulletAlias Bullet

// UnmarshalJSON accepts either the object form or a bare string; models
// frequently flatten leaf bullets to plain strings.
func (b *Bullet) UnmarshalJSON(data []byte) error {
	t := strings.TrimSpace(string(data))
	if strings.HasPrefix(t, "\"") {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		b.Text = s
		b.SubBullets = nil
		return nil
	}
	var a bulletAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*b = Bullet(a)
	return nil
}

// IsEmpty reports whether the bullet carries no renderable content.
func (b Bullet) IsEmpty() bool {
	return strings.TrimSpace(b.Text) == "" && len(b.SubBullets) == 0
}
