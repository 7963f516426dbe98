package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
)

// DefaultBaseURL is the site links are resolved against.
const DefaultBaseURL = "https://www.filmweb.pl"

// Filmweb implements graph.Extractor for Filmweb pages.
type Filmweb struct {
	pages   Fetcher
	cast    Fetcher
	resolve resolver
	logger  *zap.Logger
}

var _ graph.Extractor = (*Filmweb)(nil)

// FilmwebOption customizes a Filmweb extractor.
type FilmwebOption func(*Filmweb)

// WithCastFetcher routes cast sub-page requests through fetcher, e.g. a
// headless browser.
func WithCastFetcher(fetcher Fetcher) FilmwebOption {
	return func(f *Filmweb) {
		if fetcher != nil {
			f.cast = fetcher
		}
	}
}

// NewFilmweb returns an extractor fetching through pages. Failures of
// pages are expected to wrap graph.ErrFetchFatal already.
func NewFilmweb(pages Fetcher, baseURL string, logger *zap.Logger, opts ...FilmwebOption) (*Filmweb, error) {
	if pages == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	res, err := newResolver(baseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Filmweb{pages: pages, cast: pages, resolve: res, logger: logger.Named("filmweb")}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Movie fetches a movie page and its cast and crew sub-pages. Only the
// main page is mandatory.
func (f *Filmweb) Movie(ctx context.Context, url string) (graph.MoviePage, error) {
	doc, err := f.load(ctx, f.pages, url)
	if err != nil {
		return nil, err
	}
	base := strings.TrimRight(url, "/")
	actors, err := f.load(ctx, f.cast, base+"/cast/actors")
	if err != nil {
		f.logger.Debug("cast sub-page unavailable", zap.String("url", url), zap.Error(err))
	}
	crew, err := f.load(ctx, f.cast, base+"/cast/crew")
	if err != nil {
		f.logger.Debug("crew sub-page unavailable", zap.String("url", url), zap.Error(err))
	}
	return &MoviePage{doc: doc, actors: actors, crew: crew, resolve: f.resolve}, nil
}

// Person fetches a person page.
func (f *Filmweb) Person(ctx context.Context, url string) (graph.PersonPage, error) {
	doc, err := f.load(ctx, f.pages, url)
	if err != nil {
		return nil, err
	}
	return &PersonPage{doc: doc, resolve: f.resolve}, nil
}

// NormalizeSeed resolves and normalizes a seed URL the same way links
// found on pages are, so the seed is not rediscovered under another key.
func (f *Filmweb) NormalizeSeed(seed string) (string, error) {
	out, ok := f.resolve.resolve(seed)
	if !ok {
		return "", fmt.Errorf("invalid seed url %q", seed)
	}
	return out, nil
}

func (f *Filmweb) load(ctx context.Context, fetcher Fetcher, url string) (*goquery.Document, error) {
	body, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}
