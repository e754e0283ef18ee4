package extract

import "strings"

// resolveHref turns an href into an absolute URL. Query-only hrefs resolve
// against the page the link was found on, root-relative hrefs against the
// site base; anything else is returned as-is.
func resolveHref(baseURL, pageURL, href string) string {
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "?"):
		if i := strings.IndexByte(pageURL, '?'); i >= 0 {
			return pageURL[:i] + href
		}
		return pageURL + href
	case strings.HasPrefix(href, "/"):
		return strings.TrimSuffix(baseURL, "/") + href
	default:
		return href
	}
}

// canonicalListingURL strips the trailing variant segment so every colorway of
// one product maps onto the same product key.
func canonicalListingURL(url string) string {
	trimmed := strings.TrimSuffix(url, "/")
	if i := strings.LastIndexByte(trimmed, '/'); i > len("https://") {
		return trimmed[:i]
	}
	return trimmed
}
