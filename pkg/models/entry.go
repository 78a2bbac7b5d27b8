package models

import (
	"math"
	"time"
)

type Category string

const (
	CategoryAnime  Category = "anime"
	CategorySeries Category = "series"
	CategoryMovie  Category = "movie"
	CategoryManga  Category = "manga"
	CategoryManhwa Category = "manhwa"
	CategoryBook   Category = "book"
	CategoryGame   Category = "game"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryAnime, CategorySeries, CategoryMovie, CategoryManga, CategoryManhwa, CategoryBook, CategoryGame,
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

func (c Category) Label() string {
	return categoryLabels[c]
}

var categoryLabels = map[Category]string{
	CategoryAnime:  "Anime",
	CategorySeries: "Series",
	CategoryMovie:  "Movie",
	CategoryManga:  "Manga",
	CategoryManhwa: "Manhwa",
	CategoryBook:   "Book",
	CategoryGame:   "Video game",
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDropped    Status = "dropped"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusDropped}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s Status) Label() string {
	return statusLabels[s]
}

var statusLabels = map[Status]string{
	StatusPending:    "Pending",
	StatusInProgress: "In progress",
	StatusCompleted:  "Completed",
	StatusDropped:    "Dropped",
}

const (
	MaxTitleLength = 255
	MinRating      = 1
	MaxRating      = 10
)

// Entry is one item of a user's catalog.
type Entry struct {
	ID              int64     `json:"id"`
	UserID          string    `json:"user_id"`
	Title           string    `json:"title"`
	Category        Category  `json:"category"`
	Status          Status    `json:"status"`
	Platform        string    `json:"platform"`
	ProgressCurrent int       `json:"progress_current"`
	ProgressTotal   *int      `json:"progress_total"`
	EpisodesCount   *int      `json:"episodes_count"`
	DurationMinutes *int      `json:"duration_minutes"`
	Rating          *int      `json:"rating"`
	Notes           string    `json:"notes"`
	ExternalLink    string    `json:"external_link"`
	ExternalID      string    `json:"external_id"`
	ExternalSource  string    `json:"external_source"`
	CoverImage      string    `json:"cover_image"`
	Tags            []Tag     `json:"tags"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EntryDetail is the flattened read projection served by the detail endpoint.
type EntryDetail struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Category        Category  `json:"category"`
	CategoryLabel   string    `json:"category_label"`
	Status          Status    `json:"status"`
	StatusLabel     string    `json:"status_label"`
	Platform        string    `json:"platform"`
	ProgressCurrent int       `json:"progress_current"`
	ProgressTotal   *int      `json:"progress_total"`
	ProgressPercent int       `json:"progress_percent"`
	EpisodesCount   *int      `json:"episodes_count"`
	DurationMinutes *int      `json:"duration_minutes"`
	Rating          *int      `json:"rating"`
	Notes           string    `json:"notes"`
	ExternalLink    string    `json:"external_link"`
	ExternalID      string    `json:"external_id"`
	ExternalSource  string    `json:"external_source"`
	CoverImage      string    `json:"cover_image"`
	Tags            []Tag     `json:"tags"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (e Entry) Detail() EntryDetail {
	tags := e.Tags
	if tags == nil {
		tags = []Tag{}
	}
	return EntryDetail{
		ID:              e.ID,
		Title:           e.Title,
		Category:        e.Category,
		CategoryLabel:   e.Category.Label(),
		Status:          e.Status,
		StatusLabel:     e.Status.Label(),
		Platform:        e.Platform,
		ProgressCurrent: e.ProgressCurrent,
		ProgressTotal:   e.ProgressTotal,
		ProgressPercent: ProgressPercent(e.ProgressCurrent, e.ProgressTotal),
		EpisodesCount:   e.EpisodesCount,
		DurationMinutes: e.DurationMinutes,
		Rating:          e.Rating,
		Notes:           e.Notes,
		ExternalLink:    e.ExternalLink,
		ExternalID:      e.ExternalID,
		ExternalSource:  e.ExternalSource,
		CoverImage:      e.CoverImage,
		Tags:            tags,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

// ProgressPercent returns round(current/total*100), or 0 when total is unset or zero.
func ProgressPercent(current int, total *int) int {
	if total == nil || *total == 0 {
		return 0
	}
	return int(math.Round(float64(current) / float64(*total) * 100))
}

// StatusStats holds per-status entry counts for one user.
type StatusStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Dropped    int `json:"dropped"`
}
