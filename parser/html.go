package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var lineBreak = regexp.MustCompile(`(?i)<br\s*/?>`)

func newDocument(markup string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// cleanText collapses runs of whitespace the way a browser renders them.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func selText(sel *goquery.Selection) string {
	return cleanText(sel.Text())
}

// textLines splits an element's text on <br> and newlines, dropping blanks.
func textLines(sel *goquery.Selection) []string {
	inner, err := sel.Html()
	if err != nil {
		return nil
	}
	inner = lineBreak.ReplaceAllString(inner, "\n")
	frag, err := goquery.NewDocumentFromReader(strings.NewReader(inner))
	if err != nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(frag.Text(), "\n") {
		if line = cleanText(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// resolveURL makes href absolute against base. Fragments are dropped so the
// result is usable as an identity.
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "tel:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != "" {
		if b, err := url.Parse(base); err == nil {
			ref = b.ResolveReference(ref)
		}
	}
	if ref.Host == "" {
		return ""
	}
	if ref.Scheme == "" {
		ref.Scheme = "https"
	}
	ref.Fragment = ""
	return ref.String()
}

// nextLink returns the absolute target of a rel="next" pager link, if any.
func nextLink(doc *goquery.Document, pageURL string) string {
	href, ok := doc.Find("a[rel='next']").First().Attr("href")
	if !ok {
		return ""
	}
	next := resolveURL(pageURL, href)
	if next == pageURL {
		return ""
	}
	return next
}

// withQuery sets key=value on rawURL, keeping the rest of the query intact.
func withQuery(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
