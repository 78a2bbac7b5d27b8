package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"mediatrack/pkg/models"
)

const tvmazeBase = "https://api.tvmaze.com"

// TVMaze searches TV shows through the TVMaze REST API.
type TVMaze struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewTVMaze(opts ClientOptions) *TVMaze {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = tvmazeBase
	}
	return &TVMaze{
		baseURL: base,
		apiKey:  opts.APIKey,
		http:    opts.httpClient(),
		limiter: opts.limiter(),
		logger:  opts.logger(),
	}
}

func (t *TVMaze) Name() models.Source       { return models.SourceTVMaze }
func (t *TVMaze) Category() models.Category { return models.CategorySeries }
func (t *TVMaze) Label() string             { return "TVMaze" }

func (t *TVMaze) Search(ctx context.Context, query string, limit int) []models.Candidate {
	results, err := t.search(ctx, query, limit)
	if err != nil {
		t.logger.Warn("tvmaze search failed", "query", query, "error", err)
		return []models.Candidate{}
	}
	return results
}

type tvmazeShow struct {
	ID             int      `json:"id"`
	URL            string   `json:"url"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Genres         []string `json:"genres"`
	Status         string   `json:"status"`
	Runtime        *int     `json:"runtime"`
	AverageRuntime *int     `json:"averageRuntime"`
	Premiered      *string  `json:"premiered"`
	Rating         *struct {
		Average *float64 `json:"average"`
	} `json:"rating"`
	Weight  int `json:"weight"`
	Network *struct {
		Name string `json:"name"`
	} `json:"network"`
	WebChannel *struct {
		Name string `json:"name"`
	} `json:"webChannel"`
	Image *struct {
		Medium   string `json:"medium"`
		Original string `json:"original"`
	} `json:"image"`
	Summary *string `json:"summary"`
}

type tvmazeResult struct {
	Score float64    `json:"score"`
	Show  tvmazeShow `json:"show"`
}

func (t *TVMaze) search(ctx context.Context, query string, limit int) ([]models.Candidate, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, wrapError("tvmaze", "rate limit", err)
	}

	params := url.Values{}
	params.Set("q", query)
	searchURL := t.baseURL + "/search/shows?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, wrapError("tvmaze", "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, wrapError("tvmaze", "request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, wrapError("tvmaze", "search", statusError(resp.StatusCode))
	}

	var raw []tvmazeResult
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, wrapError("tvmaze", "decode", fmt.Errorf("%w: %v", ErrDecode, err))
	}

	t.logger.Debug("tvmaze search results", "query", query, "count", len(raw))

	limit = ClampLimit(limit)
	results := make([]models.Candidate, 0, min(len(raw), limit))
	for _, r := range raw {
		if len(results) >= limit {
			break
		}
		c, ok := r.Show.candidate()
		if !ok {
			continue
		}
		results = append(results, c)
	}
	return results, nil
}

func (s tvmazeShow) candidate() (models.Candidate, bool) {
	title := strings.TrimSpace(s.Name)
	if s.ID == 0 || title == "" {
		return models.Candidate{}, false
	}

	cover := ""
	if s.Image != nil {
		cover = firstNonEmpty(s.Image.Original, s.Image.Medium)
	}

	duration := s.Runtime
	if duration == nil {
		duration = s.AverageRuntime
	}

	studios := []string{}
	switch {
	case s.Network != nil && s.Network.Name != "":
		studios = append(studios, s.Network.Name)
	case s.WebChannel != nil && s.WebChannel.Name != "":
		studios = append(studios, s.WebChannel.Name)
	}

	genres := s.Genres
	if genres == nil {
		genres = []string{}
	}

	c := models.Candidate{
		Source:      models.SourceTVMaze,
		ExternalID:  strconv.Itoa(s.ID),
		Title:       title,
		Description: CleanDescription(deref(s.Summary)),
		CoverImage:  cover,
		Format:      s.Type,
		Status:      s.Status,
		Duration:    duration,
		Genres:      genres,
		Popularity:  s.Weight,
		Studios:     studios,
		URL:         s.URL,
		Year:        premieredYear(deref(s.Premiered)),
	}
	if s.Rating != nil && s.Rating.Average != nil {
		c.Score = *s.Rating.Average
	}
	return c, true
}

// premieredYear extracts the year of a "YYYY-MM-DD" date, 0 if absent.
func premieredYear(premiered string) int {
	y, _, _ := strings.Cut(premiered, "-")
	n, err := strconv.Atoi(y)
	if err != nil {
		return 0
	}
	return n
}
