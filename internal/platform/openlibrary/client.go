// Package openlibrary is a small client for the public Open Library API, used
// to import real catalog data.
package openlibrary

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultBaseURL  = "https://openlibrary.org"
	coversBaseURL   = "https://covers.openlibrary.org"
	searchFieldList = "key,title,author_name,author_key,isbn,first_publish_year"
)

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
}

// NewClient builds a client limited to rps requests per second. Requests
// failing with 429 or 5xx are retried up to maxRetries times with
// exponential backoff.
func NewClient(userAgent string, rps int, maxRetries int) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		userAgent:  userAgent,
		baseURL:    defaultBaseURL,
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
		maxRetries: maxRetries,
	}
}

// WithBaseURL points the client at another host. Used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// SearchDoc is one hit of search.json.
type SearchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorNames      []string `json:"author_name"`
	AuthorKeys       []string `json:"author_key"`
	ISBN             []string `json:"isbn"`
	FirstPublishYear int      `json:"first_publish_year"`
}

type SearchResponse struct {
	NumFound int         `json:"numFound"`
	Docs     []SearchDoc `json:"docs"`
}

// AuthorDetails matches authors/{key}.json
type AuthorDetails struct {
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
	// Bio is either a string or {"type": ..., "value": ...}.
	Bio any `json:"bio"`
}

func (a AuthorDetails) BioText() string {
	switch bio := a.Bio.(type) {
	case string:
		return bio
	case map[string]any:
		if v, ok := bio["value"].(string); ok {
			return v
		}
	}
	return ""
}

// SearchBySubject returns up to limit works tagged with subject.
func (c *Client) SearchBySubject(ctx context.Context, subject string, limit int) (*SearchResponse, error) {
	u := fmt.Sprintf("%s/search.json?q=%s&fields=%s&limit=%d",
		c.baseURL, url.QueryEscape("subject:"+subject), searchFieldList, limit)

	var res SearchResponse
	if err := c.get(ctx, u, &res); err != nil {
		return nil, fmt.Errorf("search subject %q: %w", subject, err)
	}
	return &res, nil
}

func (c *Client) GetAuthor(ctx context.Context, authorKey string) (*AuthorDetails, error) {
	key := strings.TrimPrefix(authorKey, "/authors/")
	u := fmt.Sprintf("%s/authors/%s.json", c.baseURL, url.PathEscape(key))

	var res AuthorDetails
	if err := c.get(ctx, u, &res); err != nil {
		return nil, fmt.Errorf("get author %s: %w", key, err)
	}
	return &res, nil
}

// CoverURL is the large cover image of an ISBN.
func CoverURL(isbn string) string {
	return fmt.Sprintf("%s/b/isbn/%s-L.jpg", coversBaseURL, url.PathEscape(isbn))
}

func (c *Client) get(ctx context.Context, u string, target any) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// 1s, 2s, 4s...
			backoff := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		retry, err := c.do(ctx, u, target)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, u string, target any) (retry bool, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, err
	}
	return false, json.NewDecoder(resp.Body).Decode(target)
}
