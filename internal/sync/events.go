package sync

import (
	"time"

	"mediatrack/pkg/models"
)

const (
	EntryCreated = "entry.created"
	EntryUpdated = "entry.updated"
	EntryDeleted = "entry.deleted"
)

// EntryEvent is pushed to every live connection of the entry's owner.
type EntryEvent struct {
	Type            string    `json:"type"`
	UserID          string    `json:"user_id"`
	EntryID         int64     `json:"entry_id"`
	Title           string    `json:"title,omitempty"`
	Status          string    `json:"status,omitempty"`
	ProgressCurrent int       `json:"progress_current,omitempty"`
	At              time.Time `json:"at"`
}

func NewEntryEvent(typ string, e *models.Entry) EntryEvent {
	return EntryEvent{
		Type:            typ,
		UserID:          e.UserID,
		EntryID:         e.ID,
		Title:           e.Title,
		Status:          string(e.Status),
		ProgressCurrent: e.ProgressCurrent,
		At:              time.Now().UTC(),
	}
}
