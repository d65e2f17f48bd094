// Package cards produces the URLs printed onto physical cards. The query
// shape is frozen: cards in the wild encode exactly this form, so the
// format must never change.
package cards

import (
	"errors"
	"net/url"
	"strings"
)

// PlayURL renders the trigger URL for a card: <base>/play?h=<cardID> with
// an optional &y=<source> fallback hint appended. Trailing slashes on the
// base are trimmed so configured endpoints with and without one print the
// same URL.
func PlayURL(baseURL, cardID, source string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return "", errors.New("base URL is required")
	}
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return "", errors.New("card id is required")
	}

	query := url.Values{}
	query.Set("h", cardID)
	if source = strings.TrimSpace(source); source != "" {
		query.Set("y", source)
	}
	return base + "/play?" + query.Encode(), nil
}
