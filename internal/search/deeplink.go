package search

import (
	"fmt"
	"net/url"
)

// DeepLinkParam is the query parameter carrying the selected destination.
const DeepLinkParam = "destination"

// DeepLink returns page with its destination query parameter set to name.
// Other query parameters and the fragment are kept.
func DeepLink(page, name string) (string, error) {
	u, err := url.Parse(page)
	if err != nil {
		return "", fmt.Errorf("parsing page address %q: %w", page, err)
	}

	q := u.Query()
	q.Set(DeepLinkParam, name)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
