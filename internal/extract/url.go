package extract

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL lowercases the scheme and host, strips default ports and
// the fragment, and sorts query parameters so that equivalent links map
// to one registry key.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.Fragment = ""
	u.RawFragment = ""
	if u.RawQuery != "" {
		u.RawQuery = u.Query().Encode()
	}
	return u.String(), nil
}

// resolver turns page-relative hrefs into normalized absolute URLs.
type resolver struct {
	base *url.URL
}

func newResolver(baseURL string) (resolver, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return resolver{}, fmt.Errorf("parse base url: %w", err)
	}
	if !base.IsAbs() {
		return resolver{}, fmt.Errorf("base url %q is not absolute", baseURL)
	}
	return resolver{base: base}, nil
}

func (r resolver) resolve(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	out, err := NormalizeURL(r.base.ResolveReference(ref).String())
	if err != nil {
		return "", false
	}
	return out, true
}
