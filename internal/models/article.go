package models

// Article is one blog post as published to the articles dataset.
type Article struct {
	Title     string `json:"title"`
	Date      string `json:"date"`
	Tag       string `json:"tag"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
}
