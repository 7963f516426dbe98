package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Options configures a Scheduler. Reporter and Checkpointer are optional;
// leave them as nil interfaces, not typed nil pointers.
type Options struct {
	Extractor    Extractor
	Sink         RecordSink
	Reporter     Reporter
	Checkpointer Checkpointer
	Logger       *zap.Logger
	// MaxSteps bounds a single Run call; zero means unbounded.
	MaxSteps int
	CrawlID  string
}

// Stats summarizes the progress of a crawl.
type Stats struct {
	Turn       Kind
	Steps      int
	Discovered [len(kinds)]int
	Finished   [len(kinds)]int
	Pending    [len(kinds)]int
}

// Scheduler drives the alternating two-queue traversal. It is not safe
// for concurrent use; exactly one goroutine calls Step at a time.
type Scheduler struct {
	extractor    Extractor
	sink         RecordSink
	reporter     Reporter
	checkpointer Checkpointer
	logger       *zap.Logger
	maxSteps     int

	crawlID   string
	seedURL   string
	frontier  *Frontier
	relations *relationTables
	turn      Kind
	steps     int
	finished  [len(kinds)]int

	// broken holds the first sink or checkpoint failure. Once set the
	// in-memory state is ahead of what is durable and the crawl must be
	// resumed from the last checkpoint.
	broken error
}

// NewScheduler returns a scheduler with an empty frontier.
func NewScheduler(opts Options) (*Scheduler, error) {
	if opts.Extractor == nil {
		return nil, errors.New("graph: extractor is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("graph: record sink is required")
	}
	if opts.MaxSteps < 0 {
		return nil, fmt.Errorf("graph: negative step limit %d", opts.MaxSteps)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		extractor:    opts.Extractor,
		sink:         opts.Sink,
		reporter:     opts.Reporter,
		checkpointer: opts.Checkpointer,
		logger:       logger.Named("scheduler"),
		maxSteps:     opts.MaxSteps,
		crawlID:      opts.CrawlID,
		frontier:     NewFrontier(),
		relations:    newRelationTables(),
		turn:         KindMovie,
	}
	s.frontier.onNew = s.discovered
	return s, nil
}

// RestoreScheduler rebuilds a scheduler from a validated checkpoint state.
func RestoreScheduler(state State, opts Options) (*Scheduler, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	s, err := NewScheduler(opts)
	if err != nil {
		return nil, err
	}
	if opts.CrawlID != "" && state.CrawlID != "" && opts.CrawlID != state.CrawlID {
		return nil, fmt.Errorf("%w: crawl id %q does not match %q", ErrInvalidState, state.CrawlID, opts.CrawlID)
	}
	if state.CrawlID != "" {
		s.crawlID = state.CrawlID
	}
	s.seedURL = state.SeedURL
	s.turn = state.Turn
	s.steps = state.Steps

	for _, kind := range kinds {
		ks := state.ForKind(kind)
		for _, entry := range ks.Registry {
			s.frontier.registry.Reserve(kind, entry.URL)
		}
		for _, entry := range ks.Queue {
			s.frontier.queues[kind].push(NodeRef{Kind: kind, URL: entry.URL, ID: entry.ID})
		}
		s.finished[kind] = ks.Finished
	}
	for _, p := range state.Professions {
		s.relations.professions[p.Name] = p.ID
	}
	s.relations.counters = state.Counters

	s.logger.Info("restored crawl",
		zap.Int("steps", s.steps),
		zap.Stringer("turn", s.turn),
		zap.Int("movies_pending", s.frontier.Pending(KindMovie)),
		zap.Int("people_pending", s.frontier.Pending(KindPerson)),
	)
	return s, nil
}

// Start registers the seed movie and takes the initial checkpoint.
func (s *Scheduler) Start(ctx context.Context, seedURL string) error {
	if seedURL == "" {
		return errors.New("graph: seed url is required")
	}
	for _, kind := range kinds {
		if s.frontier.registry.Len(kind) > 0 {
			return ErrAlreadyStarted
		}
	}
	s.seedURL = seedURL
	s.turn = KindMovie
	seed := s.frontier.Discover(KindMovie, seedURL)
	s.logger.Info("crawl started", zap.Int("seed_id", seed.ID))
	return s.checkpoint(ctx)
}

// Step visits at most one node of the current turn and flips the turn.
// The step runs to completion even if ctx is cancelled while it is in
// flight; callers observe cancellation between steps.
func (s *Scheduler) Step(ctx context.Context) error {
	if s.broken != nil {
		return s.broken
	}
	ctx = context.WithoutCancel(ctx)

	kind := s.turn
	if ref, ok := s.frontier.Next(kind); ok {
		started := time.Now()
		var batch []Record
		if kind == KindMovie {
			batch = s.visitMovie(ctx, ref)
		} else {
			batch = s.visitPerson(ctx, ref)
		}
		if err := s.sink.Write(ctx, batch); err != nil {
			s.broken = fmt.Errorf("write records of %s %d: %w", kind, ref.ID, err)
			return s.broken
		}
		s.finished[kind]++
		if s.reporter != nil {
			s.reporter.Visited(ref, s.finished[kind], time.Since(started))
		}
	}
	s.turn = kind.Opposite()
	s.steps++
	return s.checkpoint(ctx)
}

// IsDone reports whether both queues are drained.
func (s *Scheduler) IsDone() bool {
	return s.frontier.Empty()
}

// Run steps until the frontier drains, ctx is cancelled or the step
// budget is spent. Cancellation is observed only between steps.
func (s *Scheduler) Run(ctx context.Context) error {
	for taken := 0; !s.IsDone(); taken++ {
		if err := ctx.Err(); err != nil {
			s.logger.Info("crawl paused", zap.Int("steps", s.steps), zap.Error(err))
			return err
		}
		if s.maxSteps > 0 && taken >= s.maxSteps {
			s.logger.Info("crawl paused at step limit", zap.Int("steps", s.steps), zap.Int("limit", s.maxSteps))
			return ErrStepLimit
		}
		if err := s.Step(ctx); err != nil {
			return err
		}
	}
	s.logger.Info("crawl finished",
		zap.Int("steps", s.steps),
		zap.Int("movies", s.finished[KindMovie]),
		zap.Int("people", s.finished[KindPerson]),
	)
	return nil
}

// State returns a copy of the resumable state.
func (s *Scheduler) State() State {
	state := State{
		CrawlID:     s.crawlID,
		SeedURL:     s.seedURL,
		Turn:        s.turn,
		Steps:       s.steps,
		Professions: professionEntries(s.relations.professions),
		Counters:    s.relations.counters,
	}
	for _, kind := range kinds {
		*state.ForKind(kind) = KindState{
			Registry: toEntries(s.frontier.registry.Entries(kind)),
			Queue:    toEntries(s.frontier.Queued(kind)),
			Finished: s.finished[kind],
		}
	}
	return state
}

// Stats returns the current counters.
func (s *Scheduler) Stats() Stats {
	st := Stats{Turn: s.turn, Steps: s.steps, Finished: s.finished}
	for _, kind := range kinds {
		st.Discovered[kind] = s.frontier.registry.Len(kind)
		st.Pending[kind] = s.frontier.Pending(kind)
	}
	return st
}

// CrawlID returns the identifier of the crawl.
func (s *Scheduler) CrawlID() string { return s.crawlID }

// Turn returns the kind the next Step visits.
func (s *Scheduler) Turn() Kind { return s.turn }

// Registry exposes the identity registry for lookups.
func (s *Scheduler) Registry() *Registry { return s.frontier.registry }

func (s *Scheduler) visitMovie(ctx context.Context, ref NodeRef) []Record {
	record := Movie{ID: ref.ID, URL: ref.URL}
	page, err := s.extractor.Movie(ctx, ref.URL)
	if err != nil {
		s.logger.Error("movie skipped", zap.Int("id", ref.ID), zap.String("url", ref.URL), zap.Error(err))
		return []Record{record}
	}

	links, err := page.CastLinks()
	if err != nil {
		s.logger.Warn("movie cast unavailable", zap.Int("id", ref.ID), zap.String("url", ref.URL), zap.Error(err))
	}
	for _, link := range links {
		s.frontier.Discover(KindPerson, link)
	}

	record.Title = Opt(page.Title())
	record.Year = Opt(page.Year())
	record.PosterURL = Opt(page.PosterURL())
	record.Plot = Opt(page.Plot())
	record.Rating = Opt(page.Rating())
	return []Record{record}
}

func (s *Scheduler) visitPerson(ctx context.Context, ref NodeRef) []Record {
	record := Person{ID: ref.ID, URL: ref.URL}
	page, err := s.extractor.Person(ctx, ref.URL)
	if err != nil {
		s.logger.Error("person skipped", zap.Int("id", ref.ID), zap.String("url", ref.URL), zap.Error(err))
		return []Record{record}
	}

	record.FullName = Opt(page.FullName())
	record.BirthDate = Opt(page.BirthDate())
	record.DeathDate = Opt(page.DeathDate())
	record.ImageURL = Opt(page.ImageURL())
	batch := []Record{record}

	relations, err := aggregateRelations(ref, page, s.relations, s.frontier)
	if err != nil {
		s.logger.Warn("person relations incomplete", zap.Int("id", ref.ID), zap.String("url", ref.URL), zap.Error(err))
	}
	batch = append(batch, relations...)

	movies, err := page.MoviesInvolvedIn()
	if err != nil {
		s.logger.Warn("person filmography unavailable", zap.Int("id", ref.ID), zap.String("url", ref.URL), zap.Error(err))
	}
	for _, url := range movies {
		s.frontier.Discover(KindMovie, url)
	}
	return batch
}

func (s *Scheduler) discovered(ref NodeRef) {
	if s.reporter != nil {
		s.reporter.Discovered(ref, s.frontier.registry.Len(ref.Kind))
	}
}

func (s *Scheduler) checkpoint(ctx context.Context) error {
	if s.checkpointer == nil {
		return nil
	}
	if err := s.checkpointer.Save(ctx, s.State()); err != nil {
		s.broken = fmt.Errorf("checkpoint after step %d: %w", s.steps, err)
		return s.broken
	}
	return nil
}
