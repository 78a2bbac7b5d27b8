package entries

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"mediatrack/pkg/models"
)

// HistoryRecorder stores progress changes. It is optional.
type HistoryRecorder interface {
	Add(ctx context.Context, h models.ProgressHistory) error
}

// Service holds the entry operations that sit above plain storage. The acting
// user is always passed in explicitly.
type Service struct {
	Repo    *Repo
	History HistoryRecorder
	Logger  *slog.Logger
}

func NewService(repo *Repo, history HistoryRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Repo: repo, History: history, Logger: logger}
}

func (s *Service) load(ctx context.Context, userID string, id int64) (*models.Entry, error) {
	e, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}
	return e, nil
}

func (s *Service) Detail(ctx context.Context, userID string, id int64) (*models.EntryDetail, error) {
	e, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	d := e.Detail()
	return &d, nil
}

// UpdateFields applies the allow-listed fields of raw to the entry. It returns
// ErrNoChanges when no field carried a usable value.
func (s *Service) UpdateFields(ctx context.Context, userID string, id int64, raw map[string]json.RawMessage) (*models.Entry, []string, error) {
	e, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}

	updates := ParseFieldUpdates(raw)
	if len(updates) == 0 {
		return nil, nil, ErrNoChanges
	}

	previous := e.ProgressCurrent
	applied := make([]string, 0, len(updates))
	for _, u := range updates {
		u.Apply(e)
		applied = append(applied, u.Field())
	}

	if err := s.save(ctx, e, previous); err != nil {
		return nil, nil, err
	}
	return e, applied, nil
}

// EditInput is the full edit form. Nil pointers leave a field unchanged except
// ProgressTotal and Rating, which are cleared when their Clear flag is set.
type EditInput struct {
	Status          *models.Status
	ProgressCurrent *int
	ProgressTotal   *int
	ClearTotal      bool
	Rating          *int
	ClearRating     bool
	Notes           *string
	TagIDs          *[]int64
}

func (s *Service) Edit(ctx context.Context, userID string, id int64, in EditInput) (*models.Entry, error) {
	e, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	previous := e.ProgressCurrent
	if in.Status != nil {
		e.Status = *in.Status
	}
	if in.ProgressCurrent != nil {
		e.ProgressCurrent = *in.ProgressCurrent
	}
	switch {
	case in.ClearTotal:
		e.ProgressTotal = nil
	case in.ProgressTotal != nil:
		e.ProgressTotal = in.ProgressTotal
	}
	switch {
	case in.ClearRating:
		e.Rating = nil
	case in.Rating != nil:
		e.Rating = in.Rating
	}
	if in.Notes != nil {
		e.Notes = *in.Notes
	}

	if in.TagIDs != nil {
		if err := s.Repo.SetTags(ctx, userID, id, *in.TagIDs); err != nil {
			return nil, err
		}
	}
	if err := s.save(ctx, e, previous); err != nil {
		return nil, err
	}
	return s.load(ctx, userID, id)
}

// CreateManual stores an entry typed in by the user, optionally tagged.
func (s *Service) CreateManual(ctx context.Context, e *models.Entry, tagIDs []int64) (*models.Entry, error) {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return nil, ErrMissingTitle
	}
	e.Title = truncateRunes(e.Title, models.MaxTitleLength)
	if e.Status == "" {
		e.Status = models.StatusPending
	}

	id, err := s.Repo.Create(ctx, e)
	if err != nil {
		return nil, err
	}
	if len(tagIDs) > 0 {
		if err := s.Repo.SetTags(ctx, e.UserID, id, tagIDs); err != nil {
			if _, delErr := s.Repo.Delete(ctx, e.UserID, id); delErr != nil {
				s.Logger.Error("rollback created entry failed", "entry_id", id, "error", delErr)
			}
			return nil, err
		}
	}
	if e.ProgressCurrent > 0 {
		s.record(ctx, e, 0)
	}
	return s.load(ctx, e.UserID, id)
}

func (s *Service) save(ctx context.Context, e *models.Entry, previousProgress int) error {
	if err := s.Repo.Update(ctx, e); err != nil {
		return err
	}
	if e.ProgressCurrent != previousProgress {
		s.record(ctx, e, previousProgress)
	}
	return nil
}

// record never fails the caller; errors are logged.
func (s *Service) record(ctx context.Context, e *models.Entry, previous int) {
	if s.History == nil {
		return
	}
	err := s.History.Add(ctx, models.ProgressHistory{
		EntryID:  e.ID,
		UserID:   e.UserID,
		Previous: previous,
		Current:  e.ProgressCurrent,
		At:       time.Now().UTC(),
	})
	if err != nil {
		s.Logger.Warn("record progress history failed",
			"entry_id", e.ID,
			"user_id", e.UserID,
			"error", err,
		)
	}
}
