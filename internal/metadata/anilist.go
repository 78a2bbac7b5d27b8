package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"mediatrack/pkg/models"
)

const anilistBase = "https://graphql.anilist.co"

const anilistSearchQuery = `
query ($search: String, $perPage: Int) {
  Page(page: 1, perPage: $perPage) {
    media(search: $search, type: ANIME, sort: POPULARITY_DESC) {
      id
      title { romaji english native }
      description
      coverImage { large medium }
      bannerImage
      format
      status
      episodes
      duration
      genres
      averageScore
      popularity
      season
      seasonYear
      studios { nodes { name } }
      siteUrl
    }
  }
}`

// AniList searches anime through the AniList GraphQL API.
type AniList struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewAniList(opts ClientOptions) *AniList {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = anilistBase
	}
	return &AniList{
		baseURL: base,
		http:    opts.httpClient(),
		limiter: opts.limiter(),
		logger:  opts.logger(),
	}
}

func (a *AniList) Name() models.Source       { return models.SourceAniList }
func (a *AniList) Category() models.Category { return models.CategoryAnime }
func (a *AniList) Label() string             { return "AniList" }

func (a *AniList) Search(ctx context.Context, query string, limit int) []models.Candidate {
	results, err := a.search(ctx, query, limit)
	if err != nil {
		a.logger.Warn("anilist search failed", "query", query, "error", err)
		return []models.Candidate{}
	}
	return results
}

type anilistRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type anilistMedia struct {
	ID    int `json:"id"`
	Title struct {
		Romaji  *string `json:"romaji"`
		English *string `json:"english"`
		Native  *string `json:"native"`
	} `json:"title"`
	Description *string `json:"description"`
	CoverImage  *struct {
		Large  *string `json:"large"`
		Medium *string `json:"medium"`
	} `json:"coverImage"`
	BannerImage  *string  `json:"bannerImage"`
	Format       *string  `json:"format"`
	Status       *string  `json:"status"`
	Episodes     *int     `json:"episodes"`
	Duration     *int     `json:"duration"`
	Genres       []string `json:"genres"`
	AverageScore *int     `json:"averageScore"`
	Popularity   *int     `json:"popularity"`
	Season       *string  `json:"season"`
	SeasonYear   *int     `json:"seasonYear"`
	Studios      *struct {
		Nodes []struct {
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"studios"`
	SiteURL *string `json:"siteUrl"`
}

type anilistResponse struct {
	Data struct {
		Page struct {
			Media []anilistMedia `json:"media"`
		} `json:"Page"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (a *AniList) search(ctx context.Context, query string, limit int) ([]models.Candidate, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, wrapError("anilist", "rate limit", err)
	}

	body, err := json.Marshal(anilistRequest{
		Query: anilistSearchQuery,
		Variables: map[string]any{
			"search":  query,
			"perPage": ClampLimit(limit),
		},
	})
	if err != nil {
		return nil, wrapError("anilist", "encode", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, wrapError("anilist", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, wrapError("anilist", "request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, wrapError("anilist", "search", statusError(resp.StatusCode))
	}

	var out anilistResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, wrapError("anilist", "decode", fmt.Errorf("%w: %v", ErrDecode, err))
	}
	if len(out.Errors) > 0 {
		return nil, wrapError("anilist", "search", fmt.Errorf("%w: %s", ErrUpstream, out.Errors[0].Message))
	}

	a.logger.Debug("anilist search results", "query", query, "count", len(out.Data.Page.Media))

	results := make([]models.Candidate, 0, len(out.Data.Page.Media))
	for _, m := range out.Data.Page.Media {
		c, ok := m.candidate()
		if !ok {
			continue
		}
		results = append(results, c)
	}
	return results, nil
}

func (m anilistMedia) candidate() (models.Candidate, bool) {
	title := firstNonEmpty(deref(m.Title.Romaji), deref(m.Title.English), deref(m.Title.Native))
	if m.ID == 0 || title == "" {
		return models.Candidate{}, false
	}

	cover := ""
	if m.CoverImage != nil {
		cover = firstNonEmpty(deref(m.CoverImage.Large), deref(m.CoverImage.Medium))
	}

	studios := []string{}
	if m.Studios != nil {
		for _, n := range m.Studios.Nodes {
			if n.Name != "" {
				studios = append(studios, n.Name)
			}
		}
	}

	genres := m.Genres
	if genres == nil {
		genres = []string{}
	}

	c := models.Candidate{
		Source:       models.SourceAniList,
		ExternalID:   strconv.Itoa(m.ID),
		Title:        title,
		TitleEnglish: deref(m.Title.English),
		TitleNative:  deref(m.Title.Native),
		Description:  CleanDescription(deref(m.Description)),
		CoverImage:   cover,
		BannerImage:  deref(m.BannerImage),
		Format:       deref(m.Format),
		Status:       deref(m.Status),
		Episodes:     m.Episodes,
		Duration:     m.Duration,
		Genres:       genres,
		Season:       deref(m.Season),
		Studios:      studios,
		URL:          deref(m.SiteURL),
	}
	if m.AverageScore != nil {
		c.Score = float64(*m.AverageScore)
	}
	if m.Popularity != nil {
		c.Popularity = *m.Popularity
	}
	if m.SeasonYear != nil {
		c.Year = *m.SeasonYear
	}
	return c, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
