package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/merakitalent/fernando-format/internal/domain"
)

type sentMessage struct {
	kind string // "text", "help", "start_new"
	text string
}

type fakeReplier struct {
	sent []sentMessage
}

func (f *fakeReplier) SendText(_ context.Context, _ domain.Conversation, text string) error {
	f.sent = append(f.sent, sentMessage{kind: "text", text: text})
	return nil
}

func (f *fakeReplier) SendHelp(_ context.Context, _ domain.Conversation, _ []domain.Role) error {
	f.sent = append(f.sent, sentMessage{kind: "help"})
	return nil
}

func (f *fakeReplier) SendWithStartNew(_ context.Context, _ domain.Conversation, text string) error {
	f.sent = append(f.sent, sentMessage{kind: "start_new", text: text})
	return nil
}

type fakeBlob struct {
	uploads map[string][]byte
	failUp  error
}

func (f *fakeBlob) Upload(_ context.Context, name string, data []byte, _ string) (string, error) {
	if f.failUp != nil {
		return "", f.failUp
	}
	if f.uploads == nil {
		f.uploads = map[string][]byte{}
	}
	f.uploads[name] = data
	return name, nil
}

func (f *fakeBlob) SignURL(_ context.Context, handle string, _ time.Duration) (string, error) {
	return "https://files.example.com/" + handle + "?sig=abc", nil
}

// scriptedAI returns canned responses in call order.
type scriptedAI struct {
	replies []string
	errs    []error
	calls   int
}

func (s *scriptedAI) Complete(_ context.Context, _, _ string, _ int) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", errors.New("unexpected ai call")
}

func okRender(_ *domain.StructuredCV) ([]byte, error) {
	return []byte("PK\x03\x04docx"), nil
}

func newTestService(ai domain.AIClient, blob domain.BlobStore, reply domain.Replier, store domain.StateStore) *Service {
	s := NewService(ai, blob, store, reply, NewRegistry(nil, 0), okRender, 168*time.Hour)
	s.now = func() time.Time { return time.Date(2025, 7, 14, 10, 30, 0, 0, time.UTC) }
	return s
}

func mustRole(t *testing.T, id string) domain.Role {
	t.Helper()
	role, ok := NewRegistry(nil, 0).Lookup(context.Background(), id)
	require.True(t, ok)
	return role
}

const conversationJSON = `{"name": "Sam Lee", "profile": "Engineer.", "work_experience": [{"dates": "2020 - Present", "company": "Initech", "position": "Developer", "content": ["Shipped things"]}]}`

func TestExecute_ShowHelpSendsCard(t *testing.T) {
	reply := &fakeReplier{}
	s := newTestService(&scriptedAI{}, nil, reply, newMemStore())

	err := s.Execute(context.Background(), domain.Conversation{ID: "c"}, Action{Kind: ActionShowHelp})
	require.NoError(t, err)
	require.Len(t, reply.sent, 1)
	require.Equal(t, "help", reply.sent[0].kind)
}

func TestExecute_AwaitContentPrompts(t *testing.T) {
	reply := &fakeReplier{}
	s := newTestService(&scriptedAI{}, nil, reply, newMemStore())

	err := s.Execute(context.Background(), domain.Conversation{ID: "c"}, Action{
		Kind: ActionAwaitContent, Role: mustRole(t, "cv-reformat"),
	})
	require.NoError(t, err)
	require.Equal(t, "Great! Send me the CV(s) - you can paste text or upload PDF/Word files.", reply.sent[0].text)
}

func TestExecute_TextRoleStoresRefinementContext(t *testing.T) {
	reply := &fakeReplier{}
	store := newMemStore()
	ai := &scriptedAI{replies: []string{"Dear client, meet Sam."}}
	s := newTestService(ai, nil, reply, store)

	err := s.Execute(context.Background(), domain.Conversation{ID: "c"}, Action{
		Kind: ActionProcess, Role: mustRole(t, "spec-email"),
		Contents: []domain.ExtractedContent{{SourceLabel: "pasted text", Text: "Sam Lee, engineer"}},
	})
	require.NoError(t, err)
	require.Equal(t, "start_new", reply.sent[0].kind)
	require.Equal(t, "Dear client, meet Sam.", reply.sent[0].text)

	ref, err := store.Get(context.Background(), "c", domain.KindRefinement)
	require.NoError(t, err)
	require.NotNil(t, ref)
	require.Equal(t, "spec-email", ref.RoleID)
	require.Equal(t, "Dear client, meet Sam.", ref.LastOutput)
}

func TestExecute_RefineReplacesBaseline(t *testing.T) {
	reply := &fakeReplier{}
	store := newMemStore()
	ai := &scriptedAI{replies: []string{"Shorter version."}}
	s := newTestService(ai, nil, reply, store)

	err := s.Execute(context.Background(), domain.Conversation{ID: "c"}, Action{
		Kind: ActionRefine, Role: mustRole(t, "spec-email"),
		Instruction: "make it shorter", Baseline: "A long draft.",
	})
	require.NoError(t, err)
	require.Equal(t, "Shorter version.", reply.sent[0].text)

	ref, err := store.Get(context.Background(), "c", domain.KindRefinement)
	require.NoError(t, err)
	require.Equal(t, "Shorter version.", ref.LastOutput)
}

func TestExecute_DocumentRoleWithoutStorage(t *testing.T) {
	reply := &fakeReplier{}
	s := newTestService(&scriptedAI{}, nil, reply, newMemStore())

	err := s.Execute(context.Background(), domain.Conversation{ID: "c"}, Action{
		Kind: ActionProcess, Role: mustRole(t, "cv-reformat"),
		Contents: []domain.ExtractedContent{{SourceLabel: "cv.pdf", Text: "text"}},
	})
	require.NoError(t, err)
	require.Equal(t, "Error: Storage not configured for file uploads", reply.sent[0].text)
}

func TestExecute_SingleCVSuccess(t *testing.T) {
	reply := &fakeReplier{}
	blob := &fakeBlob{}
	ai := &scriptedAI{replies: []string{conversationJSON, "They are a strong engineer with modern stack experience."}}
	s := newTestService(ai, blob, reply, newMemStore())

	err := s.Execute(context.Background(), domain.Conversation{ID: "c"}, Action{
		Kind: ActionProcess, Role: mustRole(t, "cv-reformat"),
		Contents: []domain.ExtractedContent{{SourceLabel: "cv.pdf", Text: pastedCV}},
	})
	require.NoError(t, err)
	require.Len(t, reply.sent, 1)
	msg := reply.sent[0]
	require.Equal(t, "start_new", msg.kind)
	require.Contains(t, msg.text, "Here's the reformatted CV for **Sam Lee**:")
	require.Contains(t, msg.text, "[Download Meraki_CV_Sam_Lee_20250714_103000.docx](https://files.example.com/Meraki_CV_Sam_Lee_20250714_103000.docx?sig=abc)")
	require.Contains(t, msg.text, "_Link expires in 7 days_")
	require.Contains(t, msg.text, "**Alternative Candidate Profile:**\nThey are a strong engineer")
	require.Contains(t, blob.uploads, "Meraki_CV_Sam_Lee_20250714_103000.docx")
}

func TestExecute_BlurbFailureStillDeliversDocument(t *testing.T) {
	reply := &fakeReplier{}
	blob := &fakeBlob{}
	ai := &scriptedAI{replies: []string{conversationJSON}, errs: []error{nil, errors.New("blurb upstream down")}}
	s := newTestService(ai, blob, reply, newMemStore())

	err := s.Execute(context.Background(), domain.Conversation{ID: "c"}, Action{
		Kind: ActionProcess, Role: mustRole(t, "cv-reformat"),
		Contents: []domain.ExtractedContent{{SourceLabel: "cv.pdf", Text: pastedCV}},
	})
	require.NoError(t, err)
	require.Contains(t, reply.sent[0].text, "[Download ")
	require.NotContains(t, reply.sent[0].text, "Alternative Candidate Profile")
}

func TestExecute_BatchFraming(t *testing.T) {
	reply := &fakeReplier{}
	blob := &fakeBlob{}
	ai := &scriptedAI{replies: []string{
		conversationJSON, "Blurb one.",
		strings.ReplaceAll(conversationJSON, "Sam Lee", "Ana Diaz"), "Blurb two.",
	}}
	s := newTestService(ai, blob, reply, newMemStore())

	err := s.Execute(context.Background(), domain.Conversation{ID: "c"}, Action{
		Kind: ActionProcess, Role: mustRole(t, "cv-reformat"),
		Contents: []domain.ExtractedContent{
			{SourceLabel: "first.pdf", Text: pastedCV},
			{SourceLabel: "second.docx", Text: pastedCV},
		},
	})
	require.NoError(t, err)
	require.Len(t, reply.sent, 6)
	require.Equal(t, "Processing 2 CVs...", reply.sent[0].text)
	require.Equal(t, "**Processing CV 1 of 2:** first.pdf", reply.sent[1].text)
	require.Contains(t, reply.sent[2].text, "Sam Lee")
	require.Equal(t, "**Processing CV 2 of 2:** second.docx", reply.sent[3].text)
	require.Contains(t, reply.sent[4].text, "Ana Diaz")
	require.Equal(t, "start_new", reply.sent[5].kind)
	require.Equal(t, "Finished processing 2 CVs.", reply.sent[5].text)
}

func TestExecute_ParseFailureReportsPerFile(t *testing.T) {
	reply := &fakeReplier{}
	blob := &fakeBlob{}
	ai := &scriptedAI{replies: []string{"I am not JSON at all."}}
	s := newTestService(ai, blob, reply, newMemStore())

	err := s.Execute(context.Background(), domain.Conversation{ID: "c"}, Action{
		Kind: ActionProcess, Role: mustRole(t, "cv-reformat"),
		Contents: []domain.ExtractedContent{{SourceLabel: "cv.pdf", Text: pastedCV}},
	})
	require.NoError(t, err)
	require.Contains(t, reply.sent[0].text, "couldn't structure the CV from cv.pdf")
	require.Contains(t, reply.sent[0].text, "I am not JSON at all.")
}

func TestExecute_UpstreamTimeoutMessage(t *testing.T) {
	reply := &fakeReplier{}
	blob := &fakeBlob{}
	ai := &scriptedAI{errs: []error{fmt.Errorf("%w: llm call", domain.ErrUpstreamTimeout)}}
	s := newTestService(ai, blob, reply, newMemStore())

	err := s.Execute(context.Background(), domain.Conversation{ID: "c"}, Action{
		Kind: ActionProcess, Role: mustRole(t, "cv-reformat"),
		Contents: []domain.ExtractedContent{{SourceLabel: "cv.pdf", Text: pastedCV}},
	})
	require.NoError(t, err)
	require.Equal(t, "Sorry, that took too long to process. Please try again.", reply.sent[0].text)
}

func TestExecute_FileErrorsReportedBeforeOutcome(t *testing.T) {
	reply := &fakeReplier{}
	s := newTestService(&scriptedAI{}, nil, reply, newMemStore())

	err := s.Execute(context.Background(), domain.Conversation{ID: "c"}, Action{
		Kind:   ActionShowHelp,
		Errors: []string{"Sorry, I couldn't read broken.pdf."},
	})
	require.NoError(t, err)
	require.Equal(t, "Sorry, I couldn't read broken.pdf.", reply.sent[0].text)
	require.Equal(t, "help", reply.sent[1].kind)
}

func TestDocumentFilename(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.Equal(t, "Meraki_CV_Jane_Doe_20250102_030405.docx", documentFilename("Jane Doe", at))
	require.Equal(t, "Meraki_CV_OBrien_20250102_030405.docx", documentFilename("O'Brien!", at))
	require.Equal(t, "Meraki_CV_Candidate_20250102_030405.docx", documentFilename("  ", at))
}
