package crawler

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NormalizeLink resolves a raw hyperlink reference against its base page and
// canonicalizes it into a comparable URL key:
//
//   - host lowercased, fragment stripped, query preserved
//   - trailing slash trimmed (except for the root path), so /about and
//     /about/ collapse into one visit
//
// Returns false when the link is unusable: parse failure, non-http(s) scheme,
// a hostname other than the seed's, or a non-content file extension.
func NormalizeLink(base *url.URL, href, seedHost string, skipExts []string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)

	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if !strings.EqualFold(abs.Hostname(), seedHost) {
		return "", false
	}

	key := CanonicalKey(abs)

	lower := strings.ToLower(key)
	for _, ext := range skipExts {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return "", false
		}
	}

	return key, true
}

// CanonicalKey builds the visited-set key for an absolute URL. The key is
// itself a fetchable URL.
func CanonicalKey(u *url.URL) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(u.Scheme))
	b.WriteString("://")
	b.WriteString(strings.ToLower(u.Host))

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}
	b.WriteString(path)

	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	return b.String()
}

// ExtractLinks collects the normalized internal links of a parsed page.
// Duplicates collapse via set semantics; unusable links are dropped silently.
func ExtractLinks(doc *goquery.Document, base *url.URL, seedHost string, skipExts []string) map[string]struct{} {
	links := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		if key, ok := NormalizeLink(base, href, seedHost, skipExts); ok {
			links[key] = struct{}{}
		}
	})
	return links
}

// Prioritize orders candidate links by descending keyword score. The score of
// a link is the number of priority keywords appearing anywhere in the URL
// (case-insensitive substring match). The sort is stable over a
// lexicographically ordered input, so output is deterministic.
func Prioritize(links map[string]struct{}, keywords []string) []string {
	ordered := make([]string, 0, len(links))
	for link := range links {
		ordered = append(ordered, link)
	}
	sort.Strings(ordered)

	scores := make(map[string]int, len(ordered))
	for _, link := range ordered {
		scores[link] = Score(link, keywords)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return scores[ordered[i]] > scores[ordered[j]]
	})
	return ordered
}

// Score counts the priority keywords contained in the URL.
func Score(link string, keywords []string) int {
	lower := strings.ToLower(link)
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			n++
		}
	}
	return n
}
