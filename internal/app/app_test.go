package app

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/moviegraph-crawler/internal/checkpoint"
	"github.com/JakeFAU/moviegraph-crawler/internal/config"
	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
	"github.com/JakeFAU/moviegraph-crawler/internal/sink"
)

type stubMovie struct {
	title string
	cast  []string
}

func (m stubMovie) Title() (string, bool)        { return m.title, m.title != "" }
func (stubMovie) Year() (int, bool)              { return 0, false }
func (stubMovie) PosterURL() (string, bool)      { return "", false }
func (stubMovie) Plot() (string, bool)           { return "", false }
func (stubMovie) Rating() (float64, bool)        { return 0, false }
func (m stubMovie) CastLinks() ([]string, error) { return m.cast, nil }

type stubPerson struct {
	name  string
	roles []graph.RoleRef
}

func (p stubPerson) FullName() (string, bool)              { return p.name, true }
func (stubPerson) BirthDate() (time.Time, bool)            { return time.Time{}, false }
func (stubPerson) DeathDate() (time.Time, bool)            { return time.Time{}, false }
func (stubPerson) ImageURL() (string, bool)                { return "", false }
func (stubPerson) Professions() ([]string, error)          { return []string{"aktor"}, nil }
func (stubPerson) ProfessionRating(string) (float64, bool) { return 0, false }
func (p stubPerson) ProfessionRoles(string) ([]graph.RoleRef, error) {
	return p.roles, nil
}

func (p stubPerson) MoviesInvolvedIn() ([]string, error) {
	out := make([]string, 0, len(p.roles))
	for _, r := range p.roles {
		out = append(out, r.MovieURL)
	}
	return out, nil
}

// stubSite: M1 casts P1, P1 played in M1 and M2, M2 has no cast.
type stubSite struct{}

func (stubSite) Movie(_ context.Context, url string) (graph.MoviePage, error) {
	switch url {
	case "m1":
		return stubMovie{title: "Rejs", cast: []string{"p1"}}, nil
	case "m2":
		return stubMovie{title: "Miś"}, nil
	}
	return nil, graph.ErrFetchFatal
}

func (stubSite) Person(context.Context, string) (graph.PersonPage, error) {
	hero := "Pasażer"
	return stubPerson{name: "Stanisław Tym", roles: []graph.RoleRef{
		{MovieURL: "m1", Name: &hero},
		{MovieURL: "m2"},
	}}, nil
}

func (stubSite) NormalizeSeed(seed string) (string, error) {
	if seed == "" {
		return "", errors.New("empty seed")
	}
	return seed, nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Crawl: config.CrawlConfig{StorageDir: t.TempDir()},
		Sink:  config.SinkConfig{Driver: sink.DriverCSV},
	}
}

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	a.newExtractor = func(config.Config, *zap.Logger) (extractor, func(), error) {
		return stubSite{}, func() {}, nil
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, a.Close(ctx))
	})
	return a
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestStartPauseAndResume(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	a := newTestApp(t, cfg)
	ctx := context.Background()

	res, err := a.Start(ctx, StartRequest{Seed: "m1", MaxSteps: 1})
	require.NoError(t, err)
	assert.True(t, res.Paused)
	assert.Equal(t, 1, res.Stats.Steps)
	assert.Equal(t, filepath.Join(cfg.Crawl.StorageDir, "checkpoint.json"), res.Checkpoint)

	_, err = a.Start(ctx, StartRequest{Seed: "m1"})
	require.ErrorIs(t, err, ErrCheckpointExists)

	resumed, err := a.Resume(ctx, ResumeRequest{})
	require.NoError(t, err)
	assert.False(t, resumed.Paused)
	assert.Equal(t, res.CrawlID, resumed.CrawlID)
	assert.Equal(t, 3, resumed.Stats.Steps)
	assert.Equal(t, 2, resumed.Stats.Finished[graph.KindMovie])
	assert.Equal(t, 1, resumed.Stats.Finished[graph.KindPerson])

	movies := readCSV(t, filepath.Join(cfg.Crawl.StorageDir, "Movies.csv"))
	require.Len(t, movies, 3)
	assert.Equal(t, []string{"1", "m1"}, movies[1][:2])
	assert.Equal(t, []string{"2", "m2"}, movies[2][:2])
	roles := readCSV(t, filepath.Join(cfg.Crawl.StorageDir, "Roles.csv"))
	assert.Len(t, roles, 3)

	cp, err := a.Inspect(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, res.CrawlID, cp.Meta.CrawlID)
	assert.Equal(t, sink.DriverCSV, cp.Meta.SinkDriver)
	assert.Equal(t, 3, cp.State.Steps)
}

func TestStartForceReplacesCheckpoint(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, testConfig(t))
	ctx := context.Background()

	first, err := a.Start(ctx, StartRequest{Seed: "m1", MaxSteps: 1})
	require.NoError(t, err)
	second, err := a.Start(ctx, StartRequest{Seed: "m1", Force: true})
	require.NoError(t, err)
	assert.NotEqual(t, first.CrawlID, second.CrawlID)
	assert.False(t, second.Paused)
}

func TestStartRejectsLockedStorage(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	a := newTestApp(t, cfg)

	held := flock.New(filepath.Join(cfg.Crawl.StorageDir, lockFileName))
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer held.Unlock() //nolint:errcheck // test cleanup

	_, err = a.Start(context.Background(), StartRequest{Seed: "m1"})
	require.ErrorIs(t, err, ErrStorageLocked)
}

func TestResumeRejectsSinkMismatch(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	a := newTestApp(t, cfg)
	_, err := a.Start(context.Background(), StartRequest{Seed: "m1", MaxSteps: 1})
	require.NoError(t, err)

	cfg.Sink.Driver = sink.DriverSQLite
	other := newTestApp(t, cfg)
	_, err = other.Resume(context.Background(), ResumeRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sink "csv"`)
}

func TestResumeMissingCheckpoint(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, testConfig(t))
	_, err := a.Resume(context.Background(), ResumeRequest{})
	require.ErrorIs(t, err, checkpoint.ErrCheckpointNotFound)
}

func TestStatusAPIServesHealth(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Status = config.StatusConfig{Enabled: true, Addr: "127.0.0.1:0"}
	a := newTestApp(t, cfg)
	require.NotEmpty(t, a.StatusAddr())

	resp, err := http.Get("http://" + a.StatusAddr() + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
