package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/merakitalent/fernando-format/internal/domain"
)

const sampleCVJSON = `{
  "name": "Jane Doe",
  "location": "Manchester, UK",
  "right_to_work": "N/A",
  "notice": "1 month",
  "salary_expectations": "",
  "it_systems": "Excel, Salesforce",
  "languages": "English, Spanish",
  "interests": "Unknown",
  "profile": "Commercial recruiter with eight years of agency experience.",
  "professional_qualifications": ["REC Level 3", "N/A"],
  "education": [
    {"dates": "2012 - 2015", "title": "BA Business Studies", "institution": "University of Salford", "details": ["2:1"]}
  ],
  "work_experience": [
    {"dates": "Jan 2022 - Present", "company": "Hays", "position": "Senior Consultant",
     "content": [{"text": "Billed 250k in FY24", "sub_bullets": [{"text": "Top biller in region", "sub_bullets": []}]}]},
    {"dates": "Mar 2019 - Dec 2021", "company": "hays", "position": "Consultant",
     "content": ["Built a perm desk from scratch"]},
    {"dates": "2016 - 2019", "company": "Reed", "position": "Resourcer", "content": []}
  ],
  "other_information": [
    {"category": "Certifications", "content": ["First Aid", "None"]}
  ]
}`

func TestParseStructuredCV_PlainJSON(t *testing.T) {
	cv, err := ParseStructuredCV(sampleCVJSON)
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", cv.Name)
	require.Equal(t, "Manchester, UK", cv.Location)
	require.Equal(t, "1 month", cv.Notice)
}

func TestParseStructuredCV_FencedAndPlainAgree(t *testing.T) {
	plain, err := ParseStructuredCV(sampleCVJSON)
	require.NoError(t, err)
	fenced, err := ParseStructuredCV("```json\n" + sampleCVJSON + "\n```")
	require.NoError(t, err)
	require.Equal(t, plain, fenced)

	prose, err := ParseStructuredCV("Here is the extracted data:\n" + sampleCVJSON + "\nLet me know if you need changes.")
	require.NoError(t, err)
	require.Equal(t, plain, prose)
}

func TestParseStructuredCV_ScrubsPlaceholders(t *testing.T) {
	cv, err := ParseStructuredCV(sampleCVJSON)
	require.NoError(t, err)
	require.Empty(t, cv.RightToWork)
	require.Empty(t, cv.Interests)
	require.Equal(t, []string{"REC Level 3"}, cv.ProfessionalQualifications)
	require.Equal(t, []string{"First Aid"}, cv.OtherInformation[0].Content)
}

func TestParseStructuredCV_StringBulletsAccepted(t *testing.T) {
	cv, err := ParseStructuredCV(sampleCVJSON)
	require.NoError(t, err)
	hays := cv.WorkExperience[0]
	require.Equal(t, "Built a perm desk from scratch", hays.Content[1].Text)
	require.Equal(t, "Top biller in region", hays.Content[0].SubBullets[0].Text)
}

func TestParseStructuredCV_MergesConsecutiveSameCompany(t *testing.T) {
	cv, err := ParseStructuredCV(sampleCVJSON)
	require.NoError(t, err)
	require.Len(t, cv.WorkExperience, 2)

	hays := cv.WorkExperience[0]
	require.Equal(t, "Hays", hays.Company)
	require.Equal(t, "Senior Consultant / Consultant", hays.Position)
	require.Equal(t, "Mar 2019 - Present", hays.Dates)
	require.Len(t, hays.Content, 2)

	require.Equal(t, "Reed", cv.WorkExperience[1].Company)
}

func TestParseStructuredCV_RejectsNonJSON(t *testing.T) {
	_, err := ParseStructuredCV("I could not find a CV in that document.")
	require.ErrorIs(t, err, domain.ErrSchemaInvalid)
}

func TestParseStructuredCV_RejectsEmptyShell(t *testing.T) {
	_, err := ParseStructuredCV(`{"name": "", "profile": ""}`)
	require.ErrorIs(t, err, domain.ErrSchemaInvalid)
}

func TestMergeWorkExperience_NonAdjacentStaysSeparate(t *testing.T) {
	in := []domain.WorkExperience{
		{Company: "Acme", Position: "Lead", Dates: "2023 - Present"},
		{Company: "Globex", Position: "Engineer", Dates: "2021 - 2023"},
		{Company: "Acme", Position: "Junior", Dates: "2018 - 2021"},
	}
	out := MergeWorkExperience(in)
	require.Len(t, out, 3)
}

func TestCombineDates_UnparseableFallsBackToRecent(t *testing.T) {
	require.Equal(t, "ongoing", combineDates("ongoing", "2019 - 2021"))
	require.Equal(t, "2019 - Present", combineDates("2022 - Present", "2019 - 2022"))
	// En-dash ranges split too; the combined range is normalized to a hyphen.
	require.Equal(t, "2019 - Present", combineDates("2022 – Present", "2019 – 2022"))
}
