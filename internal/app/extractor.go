package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/moviegraph-crawler/internal/config"
	"github.com/JakeFAU/moviegraph-crawler/internal/extract"
	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
)

// extractor is what a crawl needs from the site adapter.
type extractor interface {
	graph.Extractor
	NormalizeSeed(seed string) (string, error)
}

// newFilmweb builds the Filmweb adapter: colly pages behind the retry
// policy, optionally with Chrome for the cast sub-pages. The returned
// func releases the browser.
func newFilmweb(cfg config.Config, logger *zap.Logger) (extractor, func(), error) {
	policy := cfg.RetryPolicy()
	pages := extract.NewRetryingFetcher(extract.NewCollyFetcher(cfg.CollyConfig()), policy, logger)

	var opts []extract.FilmwebOption
	release := func() {}
	if cfg.Headless.Enabled {
		headless := extract.NewHeadlessFetcher(cfg.HeadlessFetcherConfig())
		opts = append(opts, extract.WithCastFetcher(extract.NewRetryingFetcher(headless, policy, logger)))
		release = headless.Close
	}
	site, err := extract.NewFilmweb(pages, cfg.HTTP.BaseURL, logger, opts...)
	if err != nil {
		release()
		return nil, func() {}, fmt.Errorf("init filmweb extractor: %w", err)
	}
	return site, release, nil
}
