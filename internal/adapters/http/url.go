package http

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildURL joins base, path and query into a request URL. path replaces any
// path on base. Query names and values are percent-encoded with a literal
// "+" written as %2B and a space as %20, so servers never read "+" as space.
func BuildURL(base, path string, query []QueryItem) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base url %q: missing scheme or host", base)
	}

	u.Path = path
	u.RawPath = ""
	u.RawQuery = encodeQuery(query)
	u.Fragment = ""
	return u.String(), nil
}

func encodeQuery(query []QueryItem) string {
	if len(query) == 0 {
		return ""
	}
	var b strings.Builder
	for i, q := range query {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escape(q.Name))
		b.WriteByte('=')
		b.WriteString(escape(q.Value))
	}
	return b.String()
}

// escape is url.QueryEscape with spaces as %20. QueryEscape already turns a
// literal "+" into %2B, so any "+" left in its output stands for a space.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
