// Package extract fetches Filmweb pages and exposes their fields through
// the graph.MoviePage and graph.PersonPage accessors.
//
// Fetching is split from parsing: a Fetcher returns raw HTML (plain HTTP
// through colly, or a rendered DOM through headless Chrome), a retrying
// wrapper owns the transient-failure policy, and the page types query the
// parsed document with goquery. Every scalar accessor reports absence
// through its ok result rather than an error.
package extract
