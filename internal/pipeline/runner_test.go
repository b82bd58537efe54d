package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	compmocks "github.com/sells-group/contact-enricher/internal/completion/mocks"
	fetchmocks "github.com/sells-group/contact-enricher/internal/fetch/mocks"
	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/resilience"
	searchmocks "github.com/sells-group/contact-enricher/internal/search/mocks"
	storemocks "github.com/sells-group/contact-enricher/internal/store/mocks"
)

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func addressAgent() Agent {
	return &fakeAgent{name: "Address", mutate: func(cc *model.CrawlingContext) {
		cc.Extracted.Address = "주소 " + cc.Organization.Name
	}}
}

func TestRunner_EndToEnd(t *testing.T) {
	s := searchmocks.NewMockSearcher(t)
	s.On("Search", mock.Anything, "Test Church 홈페이지").Return([]string{"https://test.or.kr"}, nil).Once()

	f := fetchmocks.NewMockFetcher(t)
	f.On("Fetch", mock.Anything, "https://test.or.kr").Return(&model.Page{
		URL:        "https://test.or.kr",
		Accessible: true,
		Title:      "Test Church",
		RawText:    "Welcome to Test Church. Tel: 02 1234 5678 Fax: 02-1234-5678",
	}, nil).Once()

	c := compmocks.NewMockCompleter(t)
	c.On("Complete", mock.Anything, mock.Anything, analysisInstruction).Return("", nil).Once()
	c.On("Complete", mock.Anything, mock.Anything, verificationInstruction).
		Return("PHONE_VALID: YES\nFAX_VALID: YES\nHOMEPAGE_VALID: YES", nil).Once()

	metrics := NewMetrics()
	orch := NewOrchestrator(Agents(Deps{Searcher: s, Fetcher: f, Completer: c}), metrics)
	r := NewRunner(orch, WithMetrics(metrics))
	r.now = func() time.Time { return fixedNow }

	recs := r.Run(context.Background(), "run-1", []model.Organization{{Name: "Test Church", Category: "church"}}, 0)
	require.Len(t, recs, 1)
	rec := recs[0]

	assert.Equal(t, "Test Church", rec.Name)
	assert.Equal(t, "https://test.or.kr", rec.Homepage)
	assert.Equal(t, model.HomepageOfficial, rec.HomepageType)
	assert.Equal(t, "02-1234-5678", rec.Phone)
	assert.Empty(t, rec.Fax)
	assert.InDelta(t, 0.9, rec.ConfidenceScores["phone"], 1e-9)
	assert.InDelta(t, 0.8, rec.ConfidenceScores["homepage"], 1e-9)
	assert.NotContains(t, rec.ConfidenceScores, "fax")

	md := rec.ProcessingMetadata
	assert.Equal(t, model.StageCompletion, md.FinalStage)
	assert.Zero(t, md.ErrorCount)
	assert.Empty(t, md.Errors)
	assert.False(t, md.Failed)
	assert.Equal(t, fixedNow, md.Timestamp)

	st := r.Stats()
	assert.Equal(t, model.AgentCounters{Skips: 1}, st.Agent("ContactPageSearch"))
	assert.Equal(t, model.AgentCounters{Skips: 1}, st.Agent("FaxSearch"))
	assert.Equal(t, model.AgentCounters{Executions: 1, Successes: 1}, st.Agent("DataValidation"))
	sum := st.Summary(time.Second)
	assert.Equal(t, 1, sum.Succeeded)
}

func TestRunner_EventsAndPersistence(t *testing.T) {
	st := storemocks.NewMockStore(t)
	st.On("SaveRecord", mock.Anything, "run-2", mock.Anything).Return(nil).Twice()
	st.On("EnqueueDLQ", mock.Anything, mock.MatchedBy(func(e resilience.DLQEntry) bool {
		return e.RunID == "run-2" && e.Kind == resilience.KindPermanent &&
			e.Error == "invalid input: name is blank" && e.ID != ""
	})).Return(nil).Once()

	events := make(chan Event, 8)
	r := NewRunner(NewOrchestrator([]Agent{addressAgent()}, nil), WithStore(st), WithEvents(events))

	recs := r.Run(context.Background(), "run-2", []model.Organization{{Name: "한빛"}, {Name: "   ", Phone: "02-555-1234"}}, 10)
	close(events)

	require.Len(t, recs, 2)
	assert.Equal(t, "주소 한빛", recs[0].Address)
	assert.True(t, recs[1].ProcessingMetadata.Failed)
	assert.Equal(t, "02-555-1234", recs[1].Phone)
	assert.Equal(t, []string{"invalid input: name is blank"}, recs[1].ProcessingMetadata.Errors)

	var got []EventKind
	var idx []int
	for ev := range events {
		got = append(got, ev.Kind)
		idx = append(idx, ev.Index)
	}
	assert.Equal(t, []EventKind{EventStarted, EventCompleted, EventStarted, EventFailed}, got)
	assert.Equal(t, []int{10, 10, 11, 11}, idx)

	sum := r.Stats().Summary(0)
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, 1, sum.Failed)
}

func TestRunner_CancelledContext(t *testing.T) {
	st := storemocks.NewMockStore(t)
	st.On("EnqueueDLQ", mock.Anything, mock.MatchedBy(func(e resilience.DLQEntry) bool {
		return e.Kind == resilience.KindTransient
	})).Return(nil).Twice()
	st.On("SaveRecord", mock.Anything, mock.Anything, mock.Anything).Return(nil).Twice()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(NewOrchestrator([]Agent{addressAgent()}, nil), WithStore(st))
	recs := r.Run(ctx, "run-3", []model.Organization{{Name: "a"}, {Name: "b"}}, 0)

	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.True(t, rec.ProcessingMetadata.Failed)
		assert.Empty(t, rec.Address)
		assert.Contains(t, rec.ProcessingMetadata.Errors[0], "cancelled")
	}
}

func TestRunner_PanicOutsideAgents(t *testing.T) {
	r := NewRunner(NewOrchestrator([]Agent{&fakeAgent{name: "Broken", namePanics: true}}, nil))

	recs := r.Run(context.Background(), "run-4", []model.Organization{{Name: "a", Email: "a@a.kr"}}, 0)

	require.Len(t, recs, 1)
	assert.True(t, recs[0].ProcessingMetadata.Failed)
	assert.Equal(t, "a@a.kr", recs[0].Email)
	assert.Equal(t, []string{"panic: name lookup failed"}, recs[0].ProcessingMetadata.Errors)
	assert.Equal(t, 1, r.Stats().Summary(0).Failed)
}

func TestRunner_StoreErrorsDoNotFailRecords(t *testing.T) {
	st := storemocks.NewMockStore(t)
	st.On("SaveRecord", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	r := NewRunner(NewOrchestrator([]Agent{addressAgent()}, nil), WithStore(st))
	recs := r.Run(context.Background(), "run-5", []model.Organization{{Name: "a"}}, 0)

	require.Len(t, recs, 1)
	assert.False(t, recs[0].ProcessingMetadata.Failed)
}

func TestValidateOrganization(t *testing.T) {
	assert.NoError(t, ValidateOrganization(model.Organization{Name: "한빛"}))

	err := ValidateOrganization(model.Organization{})
	require.Error(t, err)
	assert.Equal(t, "invalid input: name failed required", err.Error())

	err = ValidateOrganization(model.Organization{Name: "\t "})
	require.Error(t, err)
	assert.Equal(t, "invalid input: name is blank", err.Error())
}

func TestRunShards(t *testing.T) {
	orgs := []model.Organization{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}, {Name: "e"}}
	runners := []*Runner{
		NewRunner(NewOrchestrator([]Agent{addressAgent()}, nil)),
		NewRunner(NewOrchestrator([]Agent{addressAgent()}, nil)),
	}

	recs, stats := RunShards(context.Background(), "run-6", runners, orgs)

	require.Len(t, recs, 5)
	for i, rec := range recs {
		assert.Equal(t, orgs[i].Name, rec.Name)
		assert.Equal(t, "주소 "+orgs[i].Name, rec.Address)
	}
	assert.Equal(t, 3, runners[0].Stats().Summary(0).Total)
	assert.Equal(t, 2, runners[1].Stats().Summary(0).Total)

	sum := stats.Summary(0)
	assert.Equal(t, 5, sum.Total)
	assert.Equal(t, 5, sum.Succeeded)
	assert.Equal(t, model.AgentCounters{Executions: 5, Successes: 5}, sum.Agents["Address"])

	empty, _ := RunShards(context.Background(), "run-7", nil, orgs)
	assert.Len(t, empty, 5)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		n, k int
		want []Shard
	}{
		{0, 3, nil},
		{5, 2, []Shard{{0, 3}, {3, 5}}},
		{2, 4, []Shard{{0, 1}, {1, 2}}},
		{6, 3, []Shard{{0, 2}, {2, 4}, {4, 6}}},
		{3, 0, []Shard{{0, 3}}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Split(tt.n, tt.k), "Split(%d, %d)", tt.n, tt.k)
	}
}
