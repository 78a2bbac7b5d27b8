// Package metadata searches external catalogs (AniList, TVMaze) and turns
// their responses into models.Candidate records.
package metadata

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"mediatrack/pkg/models"
)

// Provider is implemented by every external metadata source.
//
// Search never fails: transport and decode problems are logged and turn
// into an empty result, so one broken provider cannot break a search.
type Provider interface {
	Name() models.Source
	// Category is the catalog category imported candidates are filed under.
	Category() models.Category
	// Label is the human readable provenance stored as the entry platform.
	Label() string
	Search(ctx context.Context, query string, limit int) []models.Candidate
}

const (
	DefaultTimeout = 10 * time.Second
	DefaultLimit   = 20
	MaxLimit       = 50
)

// ClientOptions configures a provider HTTP client.
type ClientOptions struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerMinute int
	Logger            *slog.Logger
}

func (o ClientOptions) httpClient() *http.Client {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (o ClientOptions) limiter() *rate.Limiter {
	if o.RequestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(o.RequestsPerMinute)), 5)
}

func (o ClientOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// ClampLimit bounds a per-provider result limit to [1, MaxLimit];
// non-positive values fall back to DefaultLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
