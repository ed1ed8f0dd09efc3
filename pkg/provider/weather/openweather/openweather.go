// Package openweather provides a weather provider backed by the
// OpenWeatherMap current weather API. It implements the weather.Provider
// interface.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bkaraca/dinle/pkg/provider/weather"
)

const (
	defaultBaseURL  = "https://api.openweathermap.org"
	weatherEndpoint = "/data/2.5/weather"
	defaultLanguage = "tr"
	defaultUnits    = "metric"
	defaultTimeout  = 10 * time.Second
)

// Option is a functional option for configuring the OpenWeatherMap Provider.
type Option func(*Provider)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLanguage sets the language for condition descriptions. Defaults to "tr".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 10 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// Provider implements weather.Provider backed by OpenWeatherMap.
type Provider struct {
	apiKey     string
	baseURL    string
	language   string
	units      string
	httpClient *http.Client
}

// New creates a new OpenWeatherMap Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openweather: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		language: defaultLanguage,
		units:    defaultUnits,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// currentResponse mirrors the subset of the /data/2.5/weather response the
// assistant uses.
type currentResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	DT      int64  `json:"dt"`
	Message string `json:"message"`
}

// Current implements weather.Provider.
func (p *Provider) Current(ctx context.Context, city string) (*weather.Report, error) {
	if strings.TrimSpace(city) == "" {
		return nil, errors.New("openweather: city must not be empty")
	}

	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", p.apiKey)
	params.Set("lang", p.language)
	params.Set("units", p.units)

	reqURL := p.baseURL + weatherEndpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("openweather: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openweather: GET %s: %w", weatherEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Error bodies carry a human-readable message ("city not found").
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("openweather: status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("openweather: unexpected status %d", resp.StatusCode)
	}

	var cr currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("openweather: decode response: %w", err)
	}

	report := &weather.Report{
		Location:    cr.Name,
		Temperature: cr.Main.Temp,
		Humidity:    cr.Main.Humidity,
		WindSpeed:   cr.Wind.Speed,
		Timestamp:   time.Unix(cr.DT, 0),
	}
	if report.Location == "" {
		report.Location = city
	}
	if len(cr.Weather) > 0 {
		report.Condition = cr.Weather[0].Description
	}
	return report, nil
}

// Ensure Provider implements weather.Provider at compile time.
var _ weather.Provider = (*Provider)(nil)
