package watchimport

import (
	"context"

	"github.com/cinemarco/cinemarco/internal/library"
	"github.com/cinemarco/cinemarco/internal/metadata/tmdb"
)

// tmdbCatalog adapts the TMDB client to the Catalog interface.
type tmdbCatalog struct {
	client *tmdb.Client
}

// NewTMDBCatalog wraps a TMDB client as an import catalog.
func NewTMDBCatalog(client *tmdb.Client) Catalog {
	return &tmdbCatalog{client: client}
}

func (c *tmdbCatalog) Search(ctx context.Context, title string, year int, mediaType library.MediaType) ([]Candidate, error) {
	return c.search(ctx, title, year, mediaType)
}

func (c *tmdbCatalog) SearchFreeText(ctx context.Context, query string, mediaType library.MediaType) ([]Candidate, error) {
	return c.search(ctx, query, 0, mediaType)
}

func (c *tmdbCatalog) search(ctx context.Context, query string, year int, mediaType library.MediaType) ([]Candidate, error) {
	var results []tmdb.Result
	var err error
	if mediaType == library.MediaTypeSeries {
		results, err = c.client.SearchSeries(ctx, query, year)
	} else {
		results, err = c.client.SearchMovies(ctx, query, year)
	}
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, Candidate{
			TmdbID:    r.TmdbID,
			Title:     r.Title,
			Year:      r.Year,
			PosterURL: r.PosterURL,
			MediaType: mediaType,
		})
	}
	return candidates, nil
}
