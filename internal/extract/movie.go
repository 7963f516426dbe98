package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
)

// MoviePage reads a Filmweb movie page and its cast sub-pages. The
// sub-page documents are nil when they could not be fetched.
type MoviePage struct {
	doc     *goquery.Document
	actors  *goquery.Document
	crew    *goquery.Document
	resolve resolver
}

var _ graph.MoviePage = (*MoviePage)(nil)

// Title implements graph.MoviePage.
func (p *MoviePage) Title() (string, bool) {
	return nonEmpty(p.doc.Find("h1.filmTitle a").First().AttrOr("title", ""))
}

// Year returns the first year inside the title's parenthesis, so a
// series running "(2001-2004)" yields 2001.
func (p *MoviePage) Year() (int, bool) {
	text := p.doc.Find("h1.filmTitle span.halfSize").First().Text()
	open := strings.Index(text, "(")
	if open < 0 {
		return 0, false
	}
	text = text[open+1:]
	if end := strings.Index(text, ")"); end >= 0 {
		text = text[:end]
	}
	text, _, _ = strings.Cut(text, "-")
	year, err := strconv.Atoi(digits(text))
	if err != nil {
		return 0, false
	}
	return year, true
}

// PosterURL implements graph.MoviePage.
func (p *MoviePage) PosterURL() (string, bool) {
	return nonEmpty(p.doc.Find("img[itemprop=image]").First().AttrOr("src", ""))
}

// Plot implements graph.MoviePage.
func (p *MoviePage) Plot() (string, bool) {
	return nonEmpty(p.doc.Find("div.filmPlot").First().Text())
}

// Rating implements graph.MoviePage.
func (p *MoviePage) Rating() (float64, bool) {
	return parseRating(p.doc.Find("div.filmRateBox span[itemprop=ratingValue]").First().Text())
}

// CastLinks returns cast then crew person URLs in page order without
// duplicates. The dedicated cast sub-pages are preferred; the legacy
// cast block on the movie page is the fallback.
func (p *MoviePage) CastLinks() ([]string, error) {
	var rows []*goquery.Selection
	actorForm := castForm(p.actors)
	crewForm := castForm(p.crew)
	if actorForm != nil && crewForm != nil {
		rows = append(rows, actorForm.Find("tr[data-role]"), crewForm.Find("tr[data-role]"))
	} else {
		block := p.doc.Find("div.filmCastWrapper").First()
		if block.Length() == 0 {
			return nil, fmt.Errorf("%w: no cast table", graph.ErrStructureUnrecognized)
		}
		rows = append(rows, block.Find("tr.cast"), block.Find("tr.creator"))
	}

	seen := make(map[string]struct{})
	var links []string
	for _, sel := range rows {
		sel.Each(func(_ int, row *goquery.Selection) {
			href, ok := row.Find(`a[rel="v:starring"]`).First().Attr("href")
			if !ok {
				return
			}
			link, ok := p.resolve.resolve(href)
			if !ok {
				return
			}
			if _, dup := seen[link]; dup {
				return
			}
			seen[link] = struct{}{}
			links = append(links, link)
		})
	}
	return links, nil
}

func castForm(doc *goquery.Document) *goquery.Selection {
	if doc == nil {
		return nil
	}
	form := doc.Find("form.filmCastWrapper").First()
	if form.Length() == 0 {
		return nil
	}
	return form
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseRating accepts both "7,5" and "7.5".
func parseRating(text string) (float64, bool) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if text == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
