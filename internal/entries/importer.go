package entries

import (
	"context"
	"fmt"
	"strings"

	"mediatrack/internal/metadata"
	"mediatrack/pkg/database"
	"mediatrack/pkg/models"
)

// SourceLookup resolves the provider a candidate came from.
type SourceLookup interface {
	Lookup(source models.Source) (metadata.Provider, bool)
}

// Importer turns a provider candidate into a persisted entry.
type Importer struct {
	Repo    *Repo
	Sources SourceLookup
}

func NewImporter(repo *Repo, sources SourceLookup) *Importer {
	return &Importer{Repo: repo, Sources: sources}
}

// Import validates and normalizes c and stores it for userID, returning the new
// entry id. A candidate the user already imported yields *DuplicateError.
func (im *Importer) Import(ctx context.Context, userID string, c models.Candidate) (int64, error) {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return 0, ErrMissingTitle
	}

	provider, ok := im.Sources.Lookup(models.Source(strings.TrimSpace(string(c.Source))))
	if !ok {
		return 0, fmt.Errorf("%w: unknown source %q", ErrInvalidPayload, c.Source)
	}

	externalID := strings.TrimSpace(c.ExternalID)
	source := string(provider.Name())

	if id, found, err := im.Repo.ExistsForUser(ctx, userID, externalID, source); err != nil {
		return 0, err
	} else if found {
		return 0, &DuplicateError{ExistingID: id}
	}

	e := &models.Entry{
		UserID:          userID,
		Title:           truncateRunes(title, models.MaxTitleLength),
		Category:        provider.Category(),
		Status:          models.StatusPending,
		Platform:        provider.Label(),
		ProgressCurrent: 0,
		ProgressTotal:   positive(c.Episodes),
		EpisodesCount:   positive(c.Episodes),
		DurationMinutes: positive(c.Duration),
		Notes:           metadata.SanitizeDescription(c.Description),
		ExternalLink:    strings.TrimSpace(c.URL),
		ExternalID:      externalID,
		ExternalSource:  source,
		CoverImage:      strings.TrimSpace(c.CoverImage),
	}

	id, err := im.Repo.Create(ctx, e)
	if err != nil {
		// lost a race against a concurrent import of the same candidate
		if database.IsUniqueViolation(err) {
			if existing, found, lookupErr := im.Repo.ExistsForUser(ctx, userID, externalID, source); lookupErr == nil && found {
				return 0, &DuplicateError{ExistingID: existing}
			}
		}
		return 0, err
	}
	return id, nil
}

func positive(p *int) *int {
	if p == nil || *p <= 0 {
		return nil
	}
	v := *p
	return &v
}
