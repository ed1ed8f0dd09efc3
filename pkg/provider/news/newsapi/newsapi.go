// Package newsapi provides a news provider backed by newsapi.org. It
// implements the news.Provider interface.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bkaraca/dinle/pkg/provider/news"
)

const (
	defaultBaseURL     = "https://newsapi.org"
	headlinesEndpoint  = "/v2/top-headlines"
	everythingEndpoint = "/v2/everything"
	defaultCountry     = "tr"
	defaultLanguage    = "tr"
	defaultPageSize    = 5
	defaultTimeout     = 10 * time.Second
)

// Option is a functional option for configuring the NewsAPI Provider.
type Option func(*Provider)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithCountry sets the country for top headlines. Defaults to "tr".
func WithCountry(country string) Option {
	return func(p *Provider) {
		p.country = country
	}
}

// WithPageSize sets how many articles each call returns. Defaults to 5.
func WithPageSize(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 10 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// Provider implements news.Provider backed by newsapi.org.
type Provider struct {
	apiKey     string
	baseURL    string
	country    string
	language   string
	pageSize   int
	httpClient *http.Client
}

// New creates a new NewsAPI Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("newsapi: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		country:  defaultCountry,
		language: defaultLanguage,
		pageSize: defaultPageSize,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// apiResponse is the envelope every NewsAPI endpoint returns.
type apiResponse struct {
	Status       string       `json:"status"`
	Code         string       `json:"code"`
	Message      string       `json:"message"`
	TotalResults int          `json:"totalResults"`
	Articles     []apiArticle `json:"articles"`
}

// apiArticle mirrors a single article entry.
type apiArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

// TopHeadlines implements news.Provider.
func (p *Provider) TopHeadlines(ctx context.Context, category string) ([]news.Article, error) {
	params := url.Values{}
	params.Set("country", p.country)
	params.Set("pageSize", fmt.Sprint(p.pageSize))
	if category != "" {
		params.Set("category", category)
	}
	return p.fetch(ctx, headlinesEndpoint, params)
}

// Search implements news.Provider.
func (p *Provider) Search(ctx context.Context, query string) ([]news.Article, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("newsapi: query must not be empty")
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("language", p.language)
	params.Set("sortBy", "relevancy")
	params.Set("pageSize", fmt.Sprint(p.pageSize))
	return p.fetch(ctx, everythingEndpoint, params)
}

// fetch performs one GET request against the given endpoint and maps the
// response envelope onto Article values.
func (p *Provider) fetch(ctx context.Context, endpoint string, params url.Values) ([]news.Article, error) {
	reqURL := p.baseURL + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("newsapi: create request: %w", err)
	}
	req.Header.Set("X-Api-Key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi: GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	var ar apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("newsapi: decode response: %w", err)
	}

	// NewsAPI reports failures in the envelope, with the HTTP status to match.
	if ar.Status != "ok" {
		if ar.Message != "" {
			return nil, fmt.Errorf("newsapi: %s: %s", ar.Code, ar.Message)
		}
		return nil, fmt.Errorf("newsapi: unexpected status %d", resp.StatusCode)
	}

	articles := make([]news.Article, 0, len(ar.Articles))
	for _, a := range ar.Articles {
		if a.Title == "" {
			continue
		}
		articles = append(articles, news.Article{
			Title:       a.Title,
			Description: a.Description,
			Source:      a.Source.Name,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
		})
	}
	return articles, nil
}

// Ensure Provider implements news.Provider at compile time.
var _ news.Provider = (*Provider)(nil)
