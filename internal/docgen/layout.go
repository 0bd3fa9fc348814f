package docgen

import (
	"fmt"
	"strings"

	"github.com/merakitalent/fernando-format/internal/domain"
)

// Options controls optional branding. A nil or unparseable LogoPNG simply
// produces a document without a header.
type Options struct {
	LogoPNG []byte
}

// valueColumn is the tab position for field values, in twips. Field lines
// hang-indent to it so wrapped values stay aligned under the first line.
const valueColumn = 2160

// maxBulletDepth clamps nesting to the levels defined in numbering.xml.
const maxBulletDepth = 8

// Render produces the branded document for a structured CV. Sections with
// no content are omitted entirely.
func Render(cv *domain.StructuredCV, opts Options) ([]byte, error) {
	if cv == nil {
		return nil, fmt.Errorf("nil cv")
	}

	logoW, logoH, hasLogo := pngSize(opts.LogoPNG)

	var b body
	writePersonalDetails(&b, cv)
	writeProfile(&b, cv)
	writeEducation(&b, cv)
	writeWorkExperience(&b, cv)
	writeQualifications(&b, cv)
	writeOtherInformation(&b, cv)
	writeConsultantContact(&b)

	parts := map[string][]byte{
		"_rels/.rels":        []byte(rootRelsXML),
		"word/styles.xml":    []byte(stylesXML),
		"word/numbering.xml": []byte(numberingXML),
		"word/document.xml":  []byte(b.document(hasLogo)),
	}
	if hasLogo {
		parts["[Content_Types].xml"] = []byte(fmt.Sprintf(contentTypesXML, headerContentTypeOverride))
		parts["word/_rels/document.xml.rels"] = []byte(fmt.Sprintf(documentRelsXML, headerRelEntry))
		parts["word/header1.xml"] = []byte(headerXML(logoW, logoH))
		parts["word/_rels/header1.xml.rels"] = []byte(headerRelsXML)
		parts["word/media/logo.png"] = opts.LogoPNG
	} else {
		parts["[Content_Types].xml"] = []byte(fmt.Sprintf(contentTypesXML, ""))
		parts["word/_rels/document.xml.rels"] = []byte(fmt.Sprintf(documentRelsXML, ""))
	}
	return pack(parts)
}

// body accumulates document paragraphs.
type body struct {
	sb strings.Builder
}

func (b *body) document(withHeader bool) string {
	headerRef := ""
	if withHeader {
		headerRef = `<w:headerReference w:type="default" r:id="rId3"/>`
	}
	// headerReference is a child of sectPr per the WordprocessingML schema;
	// anywhere else Word drops the header.
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<w:body>
` + b.sb.String() + `<w:sectPr>
` + headerRef + `<w:pgSz w:w="11906" w:h="16838"/>
<w:pgMar w:top="1440" w:right="1080" w:bottom="1080" w:left="1080" w:header="432"/>
</w:sectPr>
</w:body>
</w:document>`
}

func (b *body) heading(text string) {
	fmt.Fprintf(&b.sb, `<w:p><w:pPr><w:pStyle w:val="SectionHeading"/></w:pPr><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>
`, esc(text))
}

// fieldLine writes "Label:<tab>value" with the value column tab stop and a
// hanging indent so wraps align under the value.
func (b *body) fieldLine(label, value string) {
	fmt.Fprintf(&b.sb, `<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="%d"/></w:tabs><w:ind w:left="%d" w:hanging="%d"/></w:pPr><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">%s:</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve">%s</w:t></w:r></w:p>
`, valueColumn, valueColumn, valueColumn, esc(label), esc(value))
}

func (b *body) paragraph(text string) {
	fmt.Fprintf(&b.sb, `<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>
`, esc(text))
}

// runLine writes one paragraph from (text, bold) run pairs.
func (b *body) runLine(runs ...run) {
	b.sb.WriteString("<w:p>")
	for _, r := range runs {
		if r.text == "" {
			continue
		}
		if r.bold {
			fmt.Fprintf(&b.sb, `<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">%s</w:t></w:r>`, esc(r.text))
		} else {
			fmt.Fprintf(&b.sb, `<w:r><w:t xml:space="preserve">%s</w:t></w:r>`, esc(r.text))
		}
	}
	b.sb.WriteString("</w:p>\n")
}

type run struct {
	text string
	bold bool
}

func (b *body) bullet(text string, depth int) {
	if depth > maxBulletDepth {
		depth = maxBulletDepth
	}
	fmt.Fprintf(&b.sb, `<w:p><w:pPr><w:numPr><w:ilvl w:val="%d"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>
`, depth, esc(text))
}

func (b *body) bullets(items []domain.Bullet, depth int) {
	for _, item := range items {
		if item.Text != "" {
			b.bullet(item.Text, depth)
		}
		b.bullets(item.SubBullets, depth+1)
	}
}

func writePersonalDetails(b *body, cv *domain.StructuredCV) {
	fields := []struct{ label, value string }{
		{"Name", cv.Name},
		{"Location", cv.Location},
		{"Right to Work", cv.RightToWork},
		{"Notice", cv.Notice},
		{"Salary Expectations", cv.SalaryExpectations},
	}
	any := false
	for _, f := range fields {
		any = any || f.value != ""
	}
	if !any {
		return
	}
	b.heading("Personal Details")
	for _, f := range fields {
		if f.value != "" {
			b.fieldLine(f.label, f.value)
		}
	}
}

func writeProfile(b *body, cv *domain.StructuredCV) {
	if cv.Profile == "" {
		return
	}
	b.heading("Candidate Profile")
	b.paragraph(cv.Profile)
}

func writeEducation(b *body, cv *domain.StructuredCV) {
	if len(cv.Education) == 0 {
		return
	}
	b.heading("Education")
	for _, e := range cv.Education {
		title := e.Title
		if e.Dates != "" {
			title = e.Dates + "  " + title
		}
		b.runLine(run{text: title, bold: true})
		if e.Institution != "" {
			b.runLine(run{text: e.Institution})
		}
		for _, d := range e.Details {
			b.bullet(d, 0)
		}
	}
}

func writeWorkExperience(b *body, cv *domain.StructuredCV) {
	if len(cv.WorkExperience) == 0 {
		return
	}
	b.heading("Work Experience")
	for _, w := range cv.WorkExperience {
		head := w.Company
		if w.Position != "" {
			if head != "" {
				head += " - "
			}
			head += w.Position
		}
		b.runLine(run{text: head, bold: true})
		if w.Dates != "" {
			b.runLine(run{text: w.Dates})
		}
		b.bullets(w.Content, 0)
	}
}

func writeQualifications(b *body, cv *domain.StructuredCV) {
	if len(cv.ProfessionalQualifications) == 0 {
		return
	}
	b.heading("Professional Qualifications")
	for _, q := range cv.ProfessionalQualifications {
		b.bullet(q, 0)
	}
}

func writeOtherInformation(b *body, cv *domain.StructuredCV) {
	hasFields := cv.ITSystems != "" || cv.Languages != "" || cv.Interests != ""
	if !hasFields && len(cv.OtherInformation) == 0 {
		return
	}
	b.heading("Other Information")
	if cv.ITSystems != "" {
		b.fieldLine("IT Systems", cv.ITSystems)
	}
	if cv.Languages != "" {
		b.fieldLine("Languages", cv.Languages)
	}
	if cv.Interests != "" {
		b.fieldLine("Interests", cv.Interests)
	}
	for _, o := range cv.OtherInformation {
		if o.Category != "" {
			b.runLine(run{text: o.Category, bold: true})
		}
		for _, item := range o.Content {
			b.bullet(item, 0)
		}
	}
}

// writeConsultantContact leaves blank lines for the consultant to fill in
// after download.
func writeConsultantContact(b *body) {
	b.heading("Consultant Contact Details")
	b.fieldLine("Name", "")
	b.fieldLine("Tel", "")
}
