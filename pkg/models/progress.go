package models

import "time"

// ProgressHistory records one change of an entry's current progress.
type ProgressHistory struct {
	EntryID  int64     `json:"entry_id"`
	UserID   string    `json:"user_id"`
	Previous int       `json:"previous"`
	Current  int       `json:"current"`
	At       time.Time `json:"at"`
}
