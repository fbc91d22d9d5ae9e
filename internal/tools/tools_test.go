package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/realtyai/concierge/internal/agent"
	"github.com/realtyai/concierge/internal/knowledge"
	"github.com/realtyai/concierge/internal/log"
	"github.com/realtyai/concierge/internal/search"
	"github.com/realtyai/concierge/internal/session"
)

type sentMessage struct {
	recipient string
	text      string
	preview   bool
	mediaID   string
}

// fakeMessenger records outbound deliveries.
type fakeMessenger struct {
	texts     []sentMessage
	documents []sentMessage
	sendErr   error
}

func (m *fakeMessenger) SendText(_ context.Context, recipient, text string, previewURL bool) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.texts = append(m.texts, sentMessage{recipient: recipient, text: text, preview: previewURL})
	return nil
}

func (m *fakeMessenger) SendDocument(_ context.Context, recipient, mediaID string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.documents = append(m.documents, sentMessage{recipient: recipient, mediaID: mediaID})
	return nil
}

// fakeProvider serves canned web search results.
type fakeProvider struct {
	results []search.Result
	err     error
}

func (p *fakeProvider) Search(context.Context, string, int) ([]search.Result, error) {
	return p.results, p.err
}

// fakeSearcher serves canned knowledge results and records the options.
type fakeSearcher struct {
	results []knowledge.Result
	err     error
}

func (s *fakeSearcher) Search(_ context.Context, _ string, _ ...knowledge.SearchOption) ([]knowledge.Result, error) {
	return s.results, s.err
}

type fakeAppender struct {
	appended []session.Message
	err      error
}

func (a *fakeAppender) Append(_ context.Context, _ string, msg session.Message) error {
	if a.err != nil {
		return a.err
	}
	a.appended = append(a.appended, msg)
	return nil
}

type fakeModel struct {
	text string
	err  error
}

func (m *fakeModel) Generate(_ context.Context, _ *agent.ModelRequest) (*agent.ModelResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &agent.ModelResponse{Text: m.text}, nil
}

func doc(id, source string) knowledge.Result {
	return knowledge.Result{Document: knowledge.Document{ID: id, Source: source, Content: "content of " + id}}
}

func TestSearchToolSuccess(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{results: []search.Result{
		{Snippet: "first snippet", URL: "https://a"},
		{Snippet: "second snippet", URL: "https://b"},
	}}
	history := &fakeAppender{}
	messenger := &fakeMessenger{}
	tool := NewSearchTool(provider, history, messenger, 4, log.NewNop())

	turn := agent.NewTurn("15551234")
	got := tool.Invoke(context.Background(), turn, "eclipse date")

	if !strings.Contains(got, "first snippet") || !strings.Contains(got, "second snippet") {
		t.Errorf("result missing snippets: %q", got)
	}
	if len(history.appended) != 1 {
		t.Fatalf("appended %d system messages, want 1", len(history.appended))
	}
	if history.appended[0].Role != session.RoleSystem {
		t.Errorf("logged role = %s, want system", history.appended[0].Role)
	}
	if !strings.HasPrefix(history.appended[0].Content, "These contexts might help you:") {
		t.Errorf("logged content = %q", history.appended[0].Content)
	}
	if len(messenger.texts) != 1 || !strings.Contains(messenger.texts[0].text, "_Searching about_ *eclipse date*") {
		t.Errorf("status update = %+v", messenger.texts)
	}
}

func TestSearchToolProviderFailure(t *testing.T) {
	t.Parallel()

	tool := NewSearchTool(&fakeProvider{err: errors.New("network down")},
		&fakeAppender{}, &fakeMessenger{}, 4, log.NewNop())

	got := tool.Invoke(context.Background(), agent.NewTurn("15551234"), "q")
	if got != "_Failed the search._" {
		t.Errorf("result = %q", got)
	}
}

func TestSearchToolStatusFailureIgnored(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{results: []search.Result{{Snippet: "snippet"}}}
	messenger := &fakeMessenger{sendErr: errors.New("graph api down")}
	tool := NewSearchTool(provider, &fakeAppender{}, messenger, 4, log.NewNop())

	got := tool.Invoke(context.Background(), agent.NewTurn("15551234"), "q")
	if !strings.Contains(got, "snippet") {
		t.Errorf("status delivery failure must not fail the tool: %q", got)
	}
}

func TestRAGToolSuccess(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: []knowledge.Result{
		doc("1", "https://example.com/policy.pdf"),
		doc("2", "media-77"),
		doc("3", "https://example.com/other.pdf"),
	}}
	tool := NewRAGTool(searcher, knowledge.SimilarityReranker{}, &fakeModel{text: "30 days."},
		&fakeMessenger{}, log.NewNop())

	turn := agent.NewTurn("15551234")
	got := tool.Invoke(context.Background(), turn, "refund policy")

	if got != "30 days." {
		t.Errorf("result = %q", got)
	}
	citations := turn.Citations()
	if len(citations) != 2 {
		t.Fatalf("got %d citations, want cap of 2", len(citations))
	}
	if citations[0] != "https://example.com/policy.pdf" || citations[1] != "media-77" {
		t.Errorf("citations = %v", citations)
	}
}

func TestRAGToolBlankSourceCited(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: []knowledge.Result{doc("1", "")}}
	tool := NewRAGTool(searcher, knowledge.SimilarityReranker{}, &fakeModel{text: "answer"},
		&fakeMessenger{}, log.NewNop())

	turn := agent.NewTurn("15551234")
	tool.Invoke(context.Background(), turn, "q")

	citations := turn.Citations()
	if len(citations) != 1 || citations[0] != knowledge.UnknownSource {
		t.Errorf("citations = %v", citations)
	}
}

func TestRAGToolFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tool *RAGTool
	}{
		{
			"search failure",
			NewRAGTool(&fakeSearcher{err: errors.New("db down")},
				knowledge.SimilarityReranker{}, &fakeModel{text: "x"}, &fakeMessenger{}, log.NewNop()),
		},
		{
			"model failure",
			NewRAGTool(&fakeSearcher{results: []knowledge.Result{doc("1", "s")}},
				knowledge.SimilarityReranker{}, &fakeModel{err: errors.New("quota")}, &fakeMessenger{}, log.NewNop()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			turn := agent.NewTurn("15551234")
			if got := tt.tool.Invoke(context.Background(), turn, "q"); got != "_Failed the Rag._" {
				t.Errorf("result = %q", got)
			}
			if len(turn.Citations()) != 0 {
				t.Errorf("failed invocation added citations: %v", turn.Citations())
			}
		})
	}
}

func TestRetrieveToolMajorityTieKeepsAll(t *testing.T) {
	t.Parallel()

	// A appears 3 times, B 3 times, C once: both A and B are delivered.
	searcher := &fakeSearcher{results: []knowledge.Result{
		doc("1", "media-A"), doc("2", "media-A"), doc("3", "media-A"),
		doc("4", "media-B"), doc("5", "media-B"), doc("6", "media-B"),
		doc("7", "media-C"),
	}}
	messenger := &fakeMessenger{}
	tool := NewRetrieveTool(searcher, knowledge.SimilarityReranker{}, messenger, log.NewNop())
	tool.topN = 7

	got := tool.Invoke(context.Background(), agent.NewTurn("15551234"), "send me the files")

	if got != "_Retrieved successfully_" {
		t.Errorf("result = %q", got)
	}
	if len(messenger.documents) != 2 {
		t.Fatalf("delivered %d documents, want both tied winners", len(messenger.documents))
	}
	if messenger.documents[0].mediaID != "media-A" || messenger.documents[1].mediaID != "media-B" {
		t.Errorf("delivered = %+v", messenger.documents)
	}
}

func TestRetrieveToolURLDeliveredAsLinkPreview(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: []knowledge.Result{
		doc("1", "https://example.com/listing"),
		doc("2", "https://example.com/listing"),
		doc("3", "media-9"),
	}}
	messenger := &fakeMessenger{}
	tool := NewRetrieveTool(searcher, knowledge.SimilarityReranker{}, messenger, log.NewNop())

	tool.Invoke(context.Background(), agent.NewTurn("15551234"), "send the link")

	// One status update plus the link delivery.
	var links []sentMessage
	for _, m := range messenger.texts {
		if m.preview {
			links = append(links, m)
		}
	}
	if len(links) != 1 || links[0].text != "https://example.com/listing" {
		t.Errorf("link deliveries = %+v", links)
	}
	if len(messenger.documents) != 0 {
		t.Errorf("unexpected document deliveries: %+v", messenger.documents)
	}
}

func TestRetrieveToolBlankWinnerSkipped(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: []knowledge.Result{doc("1", ""), doc("2", "")}}
	messenger := &fakeMessenger{}
	tool := NewRetrieveTool(searcher, knowledge.SimilarityReranker{}, messenger, log.NewNop())

	got := tool.Invoke(context.Background(), agent.NewTurn("15551234"), "q")

	if got != "_Retrieved successfully_" {
		t.Errorf("result = %q", got)
	}
	if len(messenger.documents) != 0 {
		t.Errorf("blank source must not be delivered: %+v", messenger.documents)
	}
}

func TestRetrieveToolNoResults(t *testing.T) {
	t.Parallel()

	tool := NewRetrieveTool(&fakeSearcher{}, knowledge.SimilarityReranker{}, &fakeMessenger{}, log.NewNop())

	if got := tool.Invoke(context.Background(), agent.NewTurn("15551234"), "q"); got != "_No relevant resources found._" {
		t.Errorf("result = %q", got)
	}
}

func TestRetrieveToolSearchFailure(t *testing.T) {
	t.Parallel()

	tool := NewRetrieveTool(&fakeSearcher{err: errors.New("db down")},
		knowledge.SimilarityReranker{}, &fakeMessenger{}, log.NewNop())

	if got := tool.Invoke(context.Background(), agent.NewTurn("15551234"), "q"); got != "_Failed the retrieval_" {
		t.Errorf("result = %q", got)
	}
}

func TestMajoritySources(t *testing.T) {
	t.Parallel()

	results := []knowledge.Result{
		doc("1", "A"), doc("2", "B"), doc("3", "A"),
		doc("4", "C"), doc("5", "B"), doc("6", "A"),
	}
	got := majoritySources(results)
	if len(got) != 1 || got[0] != "A" {
		t.Errorf("winners = %v, want [A]", got)
	}

	if got := majoritySources(nil); got != nil {
		t.Errorf("winners of empty input = %v", got)
	}
}
