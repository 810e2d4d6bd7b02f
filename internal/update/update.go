// Package update checks the GitHub releases API for a newer pepe release.
package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultURL     = "https://api.github.com/repos/pepe-http/pepe/releases/latest"
	InstallCommand = "go install github.com/pepe-http/pepe/cmd/pepe@latest"
)

var ErrNoRelease = errors.New("no release tag in response")

// Release is the outcome of a check.
type Release struct {
	Current string
	Latest  string
}

// Newer reports whether the latest release differs from the running one.
func (r Release) Newer() bool {
	return r.Latest != "" && r.Latest != r.Current
}

// Checker queries a releases endpoint.
type Checker struct {
	Client    *http.Client
	URL       string
	UserAgent string
}

func NewChecker(userAgent string) *Checker {
	return &Checker{
		Client:    &http.Client{Timeout: 5 * time.Second},
		URL:       DefaultURL,
		UserAgent: userAgent,
	}
}

// Check fetches the latest release tag. Leading "v" prefixes are ignored on
// both sides of the comparison.
func (c *Checker) Check(ctx context.Context, current string) (Release, error) {
	rel := Release{Current: strings.TrimPrefix(current, "v")}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return rel, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return rel, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return rel, fmt.Errorf("release check: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return rel, err
	}
	tag := gjson.GetBytes(body, "tag_name").String()
	if tag == "" {
		return rel, ErrNoRelease
	}
	rel.Latest = strings.TrimPrefix(tag, "v")
	return rel, nil
}
