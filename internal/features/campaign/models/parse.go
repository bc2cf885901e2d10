package models

import (
	"fmt"
	"net/url"
	"strings"
)

// TweetIDFromURL extracts the numeric status id from a tweet URL of
// the form https://twitter.com/<user>/status/<id> (or the x.com
// equivalent).
func TweetIDFromURL(postURL string) (string, error) {
	u, err := url.Parse(postURL)
	if err != nil {
		return "", fmt.Errorf("invalid post url: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p == "status" || p == "statuses" {
			if i+1 < len(parts) && parts[i+1] != "" {
				return parts[i+1], nil
			}
		}
	}
	return "", fmt.Errorf("no status id in post url %q", postURL)
}
