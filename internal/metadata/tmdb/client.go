// Package tmdb provides a client for The Movie Database API.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinemarco/cinemarco/internal/config"
)

var (
	ErrAPIKeyMissing = errors.New("TMDB API key is not configured")
	ErrNotFound      = errors.New("title not found")
	ErrAPIError      = errors.New("TMDB API error")
	ErrRateLimited   = errors.New("TMDB API rate limited")
)

// Client is a TMDB API client.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	logger     zerolog.Logger
}

// NewClient creates a new TMDB client.
func NewClient(cfg config.TMDBConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "tmdb").Logger(),
	}
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Test verifies connectivity to the TMDB API.
func (c *Client) Test(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/configuration", c.config.BaseURL)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)

	var result struct {
		Images struct {
			BaseURL string `json:"base_url"`
		} `json:"images"`
	}
	return c.doRequest(ctx, endpoint, params, &result)
}

// SearchMovies searches for movies by query with optional year filter.
// Results are ordered by popularity weighted with vote count.
func (c *Client) SearchMovies(ctx context.Context, query string, year int) ([]Result, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/search/movie", c.config.BaseURL)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("query", query)
	params.Set("include_adult", "false")
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}

	var response SearchMoviesResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(response.Results))
	for _, m := range response.Results {
		results = append(results, Result{
			TmdbID:     m.ID,
			Title:      m.Title,
			Year:       yearOf(m.ReleaseDate),
			Overview:   m.Overview,
			PosterURL:  c.posterURL(m.PosterPath),
			Popularity: m.Popularity,
			VoteCount:  m.VoteCount,
		})
	}
	sortByRelevance(results)

	c.logger.Debug().
		Str("query", query).
		Int("year", year).
		Int("results", len(results)).
		Msg("Movie search completed")

	return results, nil
}

// SearchSeries searches for TV series by query with optional year filter.
func (c *Client) SearchSeries(ctx context.Context, query string, year int) ([]Result, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/search/tv", c.config.BaseURL)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("query", query)
	params.Set("include_adult", "false")
	if year > 0 {
		params.Set("first_air_date_year", strconv.Itoa(year))
	}

	var response SearchTVResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(response.Results))
	for _, s := range response.Results {
		results = append(results, Result{
			TmdbID:     s.ID,
			Title:      s.Name,
			Year:       yearOf(s.FirstAirDate),
			Overview:   s.Overview,
			PosterURL:  c.posterURL(s.PosterPath),
			Popularity: s.Popularity,
			VoteCount:  s.VoteCount,
		})
	}
	sortByRelevance(results)

	c.logger.Debug().
		Str("query", query).
		Int("year", year).
		Int("results", len(results)).
		Msg("TV search completed")

	return results, nil
}

// GetMovie gets detailed movie info by TMDB ID.
func (c *Client) GetMovie(ctx context.Context, id int) (*Result, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/movie/%d", c.config.BaseURL, id)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)

	var details MovieDetails
	if err := c.doRequest(ctx, endpoint, params, &details); err != nil {
		return nil, err
	}

	return &Result{
		TmdbID:    details.ID,
		Title:     details.Title,
		Year:      yearOf(details.ReleaseDate),
		Overview:  details.Overview,
		PosterURL: c.posterURL(details.PosterPath),
	}, nil
}

// GetSeries gets detailed TV series info by TMDB ID.
func (c *Client) GetSeries(ctx context.Context, id int) (*Result, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/tv/%d", c.config.BaseURL, id)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)

	var details TVDetails
	if err := c.doRequest(ctx, endpoint, params, &details); err != nil {
		return nil, err
	}

	return &Result{
		TmdbID:    details.ID,
		Title:     details.Name,
		Year:      yearOf(details.FirstAirDate),
		Overview:  details.Overview,
		PosterURL: c.posterURL(details.PosterPath),
	}, nil
}

// doRequest performs an HTTP GET request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("message", errResp.StatusMessage).
				Msg("TMDB API error")
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API key", ErrAPIError)
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) posterURL(path string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/w342%s", c.config.ImageBaseURL, path)
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// sortByRelevance orders results by popularity, using vote count to break
// ties between similarly popular titles.
func sortByRelevance(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Popularity != results[j].Popularity {
			return results[i].Popularity > results[j].Popularity
		}
		return results[i].VoteCount > results[j].VoteCount
	})
}
