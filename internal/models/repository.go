package models

import "time"

// RepositoryCard is one repository as published to the repos dataset.
// UpdatedAt is the last push time; it only drives ranking and is never
// serialized.
type RepositoryCard struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Stars       string    `json:"stars"`
	Lang        string    `json:"lang"`
	URL         string    `json:"url"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Featured    bool      `json:"featured,omitempty"`
	UpdatedAt   time.Time `json:"-"`
}
