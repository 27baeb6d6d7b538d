package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cinemarco/cinemarco/internal/config"
)

func newTestClient(serverURL string) *Client {
	return NewClient(config.TMDBConfig{
		APIKey:       "test-key",
		BaseURL:      serverURL,
		ImageBaseURL: "https://image.tmdb.org/t/p",
		Timeout:      5,
	}, zerolog.Nop())
}

func TestSearchMovies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/movie" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != "The Matrix" {
			t.Errorf("query = %q, want %q", got, "The Matrix")
		}
		if got := r.URL.Query().Get("year"); got != "1999" {
			t.Errorf("year = %q, want %q", got, "1999")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"page":1,"results":[
			{"id":604,"title":"The Matrix Reloaded","release_date":"2003-05-15","popularity":45.1,"vote_count":12000},
			{"id":603,"title":"The Matrix","release_date":"1999-03-31","poster_path":"/abc.jpg","popularity":80.5,"vote_count":25000}
		],"total_pages":1,"total_results":2}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	results, err := client.SearchMovies(context.Background(), "The Matrix", 1999)
	if err != nil {
		t.Fatalf("SearchMovies() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("SearchMovies() returned %d results, want 2", len(results))
	}
	// Most popular first
	if results[0].TmdbID != 603 {
		t.Errorf("results[0].TmdbID = %d, want 603", results[0].TmdbID)
	}
	if results[0].Year != 1999 {
		t.Errorf("results[0].Year = %d, want 1999", results[0].Year)
	}
	if results[0].PosterURL != "https://image.tmdb.org/t/p/w342/abc.jpg" {
		t.Errorf("results[0].PosterURL = %q", results[0].PosterURL)
	}
}

func TestSearchSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/tv" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"page":1,"results":[
			{"id":1396,"name":"Breaking Bad","first_air_date":"2008-01-20","popularity":300.2,"vote_count":9000}
		],"total_pages":1,"total_results":1}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	results, err := client.SearchSeries(context.Background(), "Breaking Bad", 0)
	if err != nil {
		t.Fatalf("SearchSeries() error = %v", err)
	}
	if len(results) != 1 || results[0].TmdbID != 1396 {
		t.Fatalf("SearchSeries() = %v, want one result 1396", results)
	}
	if results[0].Year != 2008 {
		t.Errorf("Year = %d, want 2008", results[0].Year)
	}
}

func TestGetMovie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/603" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":603,"title":"The Matrix","release_date":"1999-03-31","overview":"A hacker learns the truth."}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	movie, err := client.GetMovie(context.Background(), 603)
	if err != nil {
		t.Fatalf("GetMovie() error = %v", err)
	}
	if movie.Title != "The Matrix" || movie.Year != 1999 {
		t.Errorf("GetMovie() = %+v", movie)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"unauthorized", http.StatusUnauthorized, ErrAPIError},
		{"server error", http.StatusInternalServerError, ErrAPIError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"status_code":1,"status_message":"error"}`))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.GetMovie(context.Background(), 1)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("GetMovie() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUnconfiguredClient(t *testing.T) {
	client := NewClient(config.TMDBConfig{}, zerolog.Nop())

	if _, err := client.SearchMovies(context.Background(), "anything", 0); !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("SearchMovies() error = %v, want ErrAPIKeyMissing", err)
	}
	if _, err := client.GetSeries(context.Background(), 1); !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("GetSeries() error = %v, want ErrAPIKeyMissing", err)
	}
}
