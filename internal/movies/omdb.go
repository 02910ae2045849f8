package movies

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"quiz-portal/internal/domain"
	"quiz-portal/internal/metrics"

	"github.com/sirupsen/logrus"
)

const (
	maxSuggestions = 8
	minQueryLength = 2
)

// Title is one search suggestion.
type Title struct {
	Title  string `json:"title"`
	Year   string `json:"year"`
	IMDbID string `json:"imdbId"`
	Poster string `json:"poster"`
}

// Movie is a resolved title with its rating.
type Movie struct {
	Title  string  `json:"title"`
	Year   string  `json:"year"`
	Rating float64 `json:"rating"`
}

// Client talks to the OMDb API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logrus.Entry
	metrics    *metrics.Metrics
}

func NewClient(baseURL, apiKey string, log *logrus.Entry, m *metrics.Metrics) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log.WithField("component", "omdb"),
		metrics:    m,
	}
}

type searchResponse struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
	Search   []struct {
		Title  string `json:"Title"`
		Year   string `json:"Year"`
		IMDbID string `json:"imdbID"`
		Poster string `json:"Poster"`
	} `json:"Search"`
}

type titleResponse struct {
	Response   string `json:"Response"`
	Error      string `json:"Error"`
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	IMDbRating string `json:"imdbRating"`
}

// SearchTitles returns up to 8 suggestions for incremental search.
// Queries shorter than two characters and API failures yield an empty list.
func (c *Client) SearchTitles(ctx context.Context, query string) []Title {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minQueryLength {
		return []Title{}
	}

	params := url.Values{}
	params.Set("s", query)
	params.Set("type", "movie")
	params.Set("apikey", c.apiKey)

	var resp searchResponse
	err := c.get(ctx, params, &resp)
	c.metrics.ObserveExternal("omdb_search", err)
	if err != nil {
		c.log.WithError(err).WithField("query", query).Warn("movie search failed")
		return []Title{}
	}
	if resp.Response == "False" || len(resp.Search) == 0 {
		return []Title{}
	}

	n := len(resp.Search)
	if n > maxSuggestions {
		n = maxSuggestions
	}
	out := make([]Title, 0, n)
	for _, r := range resp.Search[:n] {
		out = append(out, Title{Title: r.Title, Year: r.Year, IMDbID: r.IMDbID, Poster: r.Poster})
	}
	return out
}

// FetchMovie resolves one title. ErrMovieNotFound when the API has no match or no rating.
func (c *Client) FetchMovie(ctx context.Context, title string) (Movie, error) {
	params := url.Values{}
	params.Set("t", strings.TrimSpace(title))
	params.Set("apikey", c.apiKey)

	var resp titleResponse
	err := c.get(ctx, params, &resp)
	c.metrics.ObserveExternal("omdb_title", err)
	if err != nil {
		return Movie{}, fmt.Errorf("fetch movie data: %w", err)
	}
	if resp.Response == "False" {
		return Movie{}, fmt.Errorf("%w: %q", domain.ErrMovieNotFound, title)
	}
	rating, err := strconv.ParseFloat(resp.IMDbRating, 64)
	if err != nil {
		return Movie{}, fmt.Errorf("%w: %q has no rating", domain.ErrMovieNotFound, title)
	}
	return Movie{Title: resp.Title, Year: resp.Year, Rating: rating}, nil
}

// FetchRating resolves one movie's numeric rating.
func (c *Client) FetchRating(ctx context.Context, title string) (float64, error) {
	movie, err := c.FetchMovie(ctx, title)
	if err != nil {
		return 0, err
	}
	return movie.Rating, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("omdb returned %s: %s", resp.Status, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode omdb response: %w", err)
	}
	return nil
}
