package models

// Metadata holds the canonical facts for a title, used by title matching.
type Metadata struct {
	Titles []string `json:"titles"`
	Year   int      `json:"year,omitempty"`
	// EndYear is set for series that have finished airing.
	EndYear int `json:"endYear,omitempty"`
}
