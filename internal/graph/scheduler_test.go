package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, site *fakeSite, sink *memorySink, cp *memoryCheckpointer) *Scheduler {
	t.Helper()
	opts := Options{Extractor: site, Sink: sink, CrawlID: "test"}
	if cp != nil {
		opts.Checkpointer = cp
	}
	s, err := NewScheduler(opts)
	require.NoError(t, err)
	return s
}

func TestSchedulerSeedScenario(t *testing.T) {
	t.Parallel()

	site := &fakeSite{
		movies: map[string]fakeMovie{"M1": {title: "M1", cast: []string{"P1", "P2"}}},
		people: map[string]fakePerson{"P1": {professions: []fakeProfession{{name: "actor", roles: []RoleRef{
			{MovieURL: "M1", Name: strPtr("Hero")},
			{MovieURL: "M2", Name: strPtr("Hero/Villain")},
		}}}}},
	}
	sink := &memorySink{}
	s := newTestScheduler(t, site, sink, nil)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, "M1"))
	require.NoError(t, s.Step(ctx))
	require.NoError(t, s.Step(ctx))

	assert.Equal(t, []NodeRef{
		{Kind: KindMovie, URL: "M1", ID: 1},
		{Kind: KindMovie, URL: "M2", ID: 2},
	}, s.Registry().Entries(KindMovie))
	assert.Equal(t, []NodeRef{
		{Kind: KindPerson, URL: "P1", ID: 1},
		{Kind: KindPerson, URL: "P2", ID: 2},
	}, s.Registry().Entries(KindPerson))

	assert.Equal(t, []Record{
		Role{ID: 1, PersonProfessionID: 1, MovieID: 1, Name: strPtr("Hero")},
		Role{ID: 2, PersonProfessionID: 1, MovieID: 2, Name: strPtr("Hero")},
		Role{ID: 3, PersonProfessionID: 1, MovieID: 2, Name: strPtr("Villain")},
	}, sink.table(TableRoles))

	assert.Equal(t, []NodeRef{{Kind: KindMovie, URL: "M2", ID: 2}}, s.frontier.Queued(KindMovie))
	assert.Equal(t, []NodeRef{{Kind: KindPerson, URL: "P2", ID: 2}}, s.frontier.Queued(KindPerson))
}

func TestSchedulerTurnAlternatesOnEmptyQueues(t *testing.T) {
	t.Parallel()

	site := &fakeSite{movies: map[string]fakeMovie{"M1": {}}}
	sink := &memorySink{}
	s := newTestScheduler(t, site, sink, nil)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, "M1"))
	assert.Equal(t, KindMovie, s.Turn())
	for i, want := range []Kind{KindPerson, KindMovie, KindPerson, KindMovie} {
		require.NoError(t, s.Step(ctx))
		assert.Equal(t, want, s.Turn(), "after step %d", i+1)
	}
	assert.True(t, s.IsDone())
	assert.Equal(t, 4, s.Stats().Steps)
	assert.Equal(t, 1, sink.batches)
}

func TestSchedulerRunVisitsEveryNodeOnce(t *testing.T) {
	t.Parallel()

	site := sampleSite()
	sink := &memorySink{}
	reporter := newCountingReporter()
	s, err := NewScheduler(Options{Extractor: site, Sink: sink, Reporter: reporter})
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background(), "M1"))
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []string{
		"movie:M1", "person:P1", "movie:M2", "person:P2",
		"movie:M3", "person:P3", "movie:M4",
	}, site.fetched)
	assert.Len(t, sink.table(TableMovies), 4)
	assert.Len(t, sink.table(TablePeople), 3)
	assert.Len(t, sink.table(TableProfessions), 3)

	stats := s.Stats()
	assert.Equal(t, 7, stats.Steps)
	assert.Equal(t, [2]int{3, 4}, stats.Discovered)
	assert.Equal(t, stats.Discovered, stats.Finished)
	assert.Equal(t, 4, reporter.discovered[KindMovie])
	assert.Equal(t, 3, reporter.visited[KindPerson])

	// Every role points at a movie that was itself persisted.
	persisted := map[int]bool{}
	for _, r := range sink.table(TableMovies) {
		persisted[r.(Movie).ID] = true
	}
	for _, r := range sink.table(TableRoles) {
		assert.True(t, persisted[r.(Role).MovieID], "dangling movie id %d", r.(Role).MovieID)
	}
}

func TestSchedulerFetchFatalPersistsBareRecord(t *testing.T) {
	t.Parallel()

	site := &fakeSite{broken: map[string]bool{"M1": true}}
	sink := &memorySink{}
	s := newTestScheduler(t, site, sink, nil)

	require.NoError(t, s.Start(context.Background(), "M1"))
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []Record{Movie{ID: 1, URL: "M1"}}, sink.records)
	assert.Equal(t, 1, s.Stats().Finished[KindMovie])
}

func TestSchedulerStructureUnrecognizedKeepsScalars(t *testing.T) {
	t.Parallel()

	site := &fakeSite{
		movies: map[string]fakeMovie{"M1": {title: "Alone", castErr: ErrStructureUnrecognized}},
	}
	sink := &memorySink{}
	s := newTestScheduler(t, site, sink, nil)

	require.NoError(t, s.Start(context.Background(), "M1"))
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []Record{Movie{ID: 1, URL: "M1", Title: strPtr("Alone")}}, sink.records)
	assert.Zero(t, s.Registry().Len(KindPerson))
}

func TestSchedulerStartTwice(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, &fakeSite{}, &memorySink{}, nil)
	require.NoError(t, s.Start(context.Background(), "M1"))
	assert.ErrorIs(t, s.Start(context.Background(), "M9"), ErrAlreadyStarted)
}

func TestSchedulerSinkFailureStopsCrawl(t *testing.T) {
	t.Parallel()

	cp := &memoryCheckpointer{}
	sink := &memorySink{failAt: 2}
	s := newTestScheduler(t, sampleSite(), sink, cp)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, "M1"))
	require.NoError(t, s.Step(ctx))
	saved := len(cp.saved)

	err := s.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, saved, len(cp.saved), "no checkpoint after a failed write")
	assert.Equal(t, err, s.Step(ctx))
}

func TestSchedulerCheckpointFailureStopsCrawl(t *testing.T) {
	t.Parallel()

	cp := &memoryCheckpointer{err: errors.New("bucket gone")}
	s := newTestScheduler(t, sampleSite(), &memorySink{}, cp)

	err := s.Start(context.Background(), "M1")
	require.Error(t, err)
	assert.Equal(t, err, s.Step(context.Background()))
}

func TestSchedulerRunHonoursCancellationAndStepLimit(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newTestScheduler(t, sampleSite(), &memorySink{}, nil)
	require.NoError(t, s.Start(context.Background(), "M1"))
	require.ErrorIs(t, s.Run(ctx), context.Canceled)
	assert.Zero(t, s.Stats().Steps)

	limited, err := NewScheduler(Options{Extractor: sampleSite(), Sink: &memorySink{}, MaxSteps: 3})
	require.NoError(t, err)
	require.NoError(t, limited.Start(context.Background(), "M1"))
	require.ErrorIs(t, limited.Run(context.Background()), ErrStepLimit)
	assert.Equal(t, 3, limited.Stats().Steps)
}

func TestSchedulerResumeMatchesUninterruptedRun(t *testing.T) {
	t.Parallel()

	reference := &memorySink{}
	s := newTestScheduler(t, sampleSite(), reference, nil)
	require.NoError(t, s.Start(context.Background(), "M1"))
	require.NoError(t, s.Run(context.Background()))
	total := s.Stats().Steps

	for pause := 0; pause < total; pause++ {
		t.Run(fmt.Sprintf("pause_after_%d", pause), func(t *testing.T) {
			t.Parallel()

			sink := &memorySink{}
			cp := &memoryCheckpointer{}
			first, err := NewScheduler(Options{Extractor: sampleSite(), Sink: sink, Checkpointer: cp, MaxSteps: pause, CrawlID: "test"})
			require.NoError(t, err)
			require.NoError(t, first.Start(context.Background(), "M1"))
			if pause > 0 {
				require.ErrorIs(t, first.Run(context.Background()), ErrStepLimit)
			}

			blob, err := json.Marshal(cp.last())
			require.NoError(t, err)
			var state State
			require.NoError(t, json.Unmarshal(blob, &state))

			second, err := RestoreScheduler(state, Options{Extractor: sampleSite(), Sink: sink, Checkpointer: cp})
			require.NoError(t, err)
			assert.Equal(t, "test", second.CrawlID())
			require.NoError(t, second.Run(context.Background()))

			assert.Equal(t, reference.records, sink.records)
			assert.Equal(t, s.State(), second.State())
		})
	}
}

func TestRestoreSchedulerRejectsInconsistentState(t *testing.T) {
	t.Parallel()

	cp := &memoryCheckpointer{}
	s := newTestScheduler(t, sampleSite(), &memorySink{}, cp)
	require.NoError(t, s.Start(context.Background(), "M1"))
	require.NoError(t, s.Step(context.Background()))
	good := s.State()
	require.Equal(t, good, cp.last())

	tests := []struct {
		name   string
		mutate func(*State)
	}{
		{name: "gap in registry", mutate: func(st *State) { st.People.Registry[1].ID = 5 }},
		{name: "queue not suffix", mutate: func(st *State) { st.People.Queue = st.People.Queue[1:] }},
		{name: "finished out of range", mutate: func(st *State) { st.Movies.Finished = 9 }},
		{name: "bad turn", mutate: func(st *State) { st.Turn = Kind(3) }},
		{name: "profession counter", mutate: func(st *State) { st.Counters.Profession = 4 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			blob, err := json.Marshal(good)
			require.NoError(t, err)
			var st State
			require.NoError(t, json.Unmarshal(blob, &st))
			tt.mutate(&st)
			_, err = RestoreScheduler(st, Options{Extractor: sampleSite(), Sink: &memorySink{}})
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}
}
