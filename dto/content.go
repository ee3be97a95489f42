package dto

import "time"

// Article is a normalized CMS blog post.
type Article struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	Body        string    `json:"body,omitempty"`
	Author      string    `json:"author"`
	Category    string    `json:"category"`
	CoverURL    string    `json:"cover_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

type ArticleListResponse struct {
	Articles []Article `json:"articles"`
	Total    int       `json:"total"`
}
