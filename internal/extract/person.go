package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
)

// PersonPage reads a Filmweb person page.
type PersonPage struct {
	doc     *goquery.Document
	resolve resolver
}

var _ graph.PersonPage = (*PersonPage)(nil)

// FullName implements graph.PersonPage.
func (p *PersonPage) FullName() (string, bool) {
	return nonEmpty(p.doc.Find("h1.personName").First().Text())
}

// ImageURL implements graph.PersonPage.
func (p *PersonPage) ImageURL() (string, bool) {
	return nonEmpty(p.doc.Find("img[itemprop=image]").First().AttrOr("src", ""))
}

// BirthDate implements graph.PersonPage.
func (p *PersonPage) BirthDate() (time.Time, bool) {
	return p.date("birthDate")
}

// DeathDate implements graph.PersonPage.
func (p *PersonPage) DeathDate() (time.Time, bool) {
	return p.date("deathDate")
}

func (p *PersonPage) date(itemprop string) (time.Time, bool) {
	span := p.doc.Find(fmt.Sprintf("span[itemprop=%s]", itemprop)).First()
	if span.Length() == 0 {
		return time.Time{}, false
	}
	if content, ok := span.Attr("content"); ok {
		if date, ok := parseISODate(content); ok {
			return date, true
		}
	}
	return parsePolishDate(span.Text())
}

// Professions returns the filmography section labels in page order.
func (p *PersonPage) Professions() ([]string, error) {
	table := p.doc.Find("table.filmographyTable").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: no filmography table", graph.ErrStructureUnrecognized)
	}
	var out []string
	table.Find("thead[data-profession]").Each(func(_ int, s *goquery.Selection) {
		if name, ok := nonEmpty(s.AttrOr("data-profession", "")); ok {
			out = append(out, name)
		}
	})
	return out, nil
}

// ProfessionRating implements graph.PersonPage.
func (p *PersonPage) ProfessionRating(profession string) (float64, bool) {
	box := withAttr(p.doc.Find("div[data-prof]"), "data-prof", profession)
	return parseRating(box.Find("span[itemprop=ratingValue]").First().Text())
}

// ProfessionRoles returns the rows of one profession's filmography
// section. Rows without a movie link are skipped.
func (p *PersonPage) ProfessionRoles(profession string) ([]graph.RoleRef, error) {
	body := withAttr(p.doc.Find("tbody[data-profession]"), "data-profession", profession)
	if body.Length() == 0 {
		return nil, fmt.Errorf("%w: no roles for %q", graph.ErrStructureUnrecognized, profession)
	}
	var roles []graph.RoleRef
	body.Find("tr").Each(func(_ int, row *goquery.Selection) {
		href, ok := row.Find("td.ft a").First().Attr("href")
		if !ok {
			return
		}
		movie, ok := p.resolve.resolve(href)
		if !ok {
			return
		}
		ref := graph.RoleRef{MovieURL: movie}
		if text := row.Find("td.rt p.roleText").First(); text.Length() > 0 {
			name := strings.TrimSpace(text.Text())
			ref.Name = &name
		}
		roles = append(roles, ref)
	})
	return roles, nil
}

// MoviesInvolvedIn returns the distinct movie URLs of every profession
// in order of first appearance.
func (p *PersonPage) MoviesInvolvedIn() ([]string, error) {
	professions, err := p.Professions()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var movies []string
	for _, profession := range professions {
		roles, err := p.ProfessionRoles(profession)
		if err != nil {
			continue
		}
		for _, role := range roles {
			if _, dup := seen[role.MovieURL]; dup {
				continue
			}
			seen[role.MovieURL] = struct{}{}
			movies = append(movies, role.MovieURL)
		}
	}
	return movies, nil
}

// withAttr keeps the first element whose attr equals value. Profession
// labels are compared verbatim instead of being spliced into a selector.
func withAttr(sel *goquery.Selection, attr, value string) *goquery.Selection {
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr(attr, "") == value
	}).First()
}
