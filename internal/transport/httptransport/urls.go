package httptransport

import (
	"fmt"
	"net/url"
	"strings"
)

// join builds <serverURL>/api/v1/<segments…>/ with a trailing slash, plus
// an optional query string.
func join(serverURL string, query url.Values, segments ...string) string {
	path := strings.TrimRight(serverURL, "/") + "/api/v1"
	for _, s := range segments {
		path += "/" + s
	}
	path += "/"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return path
}

func listQuery(stoken, iterator *string, limit int, withCollection bool, prefetch string) url.Values {
	q := url.Values{}
	if stoken != nil {
		q.Set("stoken", *stoken)
	}
	if iterator != nil {
		q.Set("iterator", *iterator)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if withCollection {
		q.Set("withCollection", "true")
	}
	if prefetch != "" {
		q.Set("prefetch", prefetch)
	}
	return q
}
