package tmdb

// MovieResult is a single movie from a TMDB search response.
type MovieResult struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	Popularity  float64 `json:"popularity"`
	VoteCount   int     `json:"vote_count"`
}

// TVResult is a single series from a TMDB search response.
type TVResult struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	FirstAirDate string  `json:"first_air_date"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	Popularity   float64 `json:"popularity"`
	VoteCount    int     `json:"vote_count"`
}

// SearchMoviesResponse is the TMDB /search/movie response.
type SearchMoviesResponse struct {
	Page         int           `json:"page"`
	Results      []MovieResult `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

// SearchTVResponse is the TMDB /search/tv response.
type SearchTVResponse struct {
	Page         int        `json:"page"`
	Results      []TVResult `json:"results"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
}

// MovieDetails is the TMDB /movie/{id} response.
type MovieDetails struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	Overview    string `json:"overview"`
	PosterPath  string `json:"poster_path"`
	Runtime     int    `json:"runtime"`
}

// TVDetails is the TMDB /tv/{id} response.
type TVDetails struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	FirstAirDate     string `json:"first_air_date"`
	Overview         string `json:"overview"`
	PosterPath       string `json:"poster_path"`
	NumberOfSeasons  int    `json:"number_of_seasons"`
	NumberOfEpisodes int    `json:"number_of_episodes"`
}

// ErrorResponse is the TMDB API error body.
type ErrorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

// Result is a normalized search result for either media type.
type Result struct {
	TmdbID     int     `json:"tmdbId"`
	Title      string  `json:"title"`
	Year       int     `json:"year,omitempty"`
	Overview   string  `json:"overview,omitempty"`
	PosterURL  string  `json:"posterUrl,omitempty"`
	Popularity float64 `json:"popularity,omitempty"`
	VoteCount  int     `json:"voteCount,omitempty"`
}
