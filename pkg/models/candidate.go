package models

// Source identifies the external metadata provider a candidate came from.
type Source string

const (
	SourceAniList Source = "anilist"
	SourceTVMaze  Source = "tvmaze"
)

// Candidate is the normalized, transient form of a provider search result.
//
// Every provider maps its own response shape into this structure; the
// pair (Source, ExternalID) identifies a candidate within one search.
type Candidate struct {
	Source       Source   `json:"source"`
	ExternalID   string   `json:"external_id"`
	Title        string   `json:"title"`
	TitleEnglish string   `json:"title_english"`
	TitleNative  string   `json:"title_native"`
	Description  string   `json:"description"`
	CoverImage   string   `json:"cover_image"`
	BannerImage  string   `json:"banner_image"`
	Format       string   `json:"format"`
	Status       string   `json:"status"`
	Episodes     *int     `json:"episodes"`
	Duration     *int     `json:"duration"`
	Genres       []string `json:"genres"`
	Score        float64  `json:"score"`
	Popularity   int      `json:"popularity"`
	Season       string   `json:"season"`
	Year         int      `json:"year"`
	Studios      []string `json:"studios"`
	URL          string   `json:"url"`
}

// Key returns the dedup key of the candidate.
func (c Candidate) Key() string {
	return string(c.Source) + ":" + c.ExternalID
}
