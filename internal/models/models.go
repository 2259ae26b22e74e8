package models

import (
	"strconv"
	"time"
)

// Post is a normalized Reddit submission row. Every field is populated for
// every post, with empty/zero values standing in for data the API omitted,
// so the CSV sink always receives a fully shaped row.
type Post struct {
	Subreddit   string `json:"subreddit"`
	ID          string `json:"id"`
	Score       string `json:"score"`
	NumReplies  int    `json:"num_replies"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	IsSelf      bool   `json:"is_self"`
	Domain      string `json:"domain"`
	URL         string `json:"url"`
	Permalink   string `json:"permalink"`
	UpvoteRatio string `json:"upvote_ratio"`
	DateCreated string `json:"date_created"` // "2006-01-02 15:04:05" UTC, or "" when unknown
}

// PostHeader is the CSV header row, in output column order.
var PostHeader = []string{
	"subreddit", "id", "score", "numReplies", "author", "title", "text",
	"is_self", "domain", "url", "permalink", "upvote_ratio", "date_created",
}

// Fields returns the post's values in PostHeader order.
func (p Post) Fields() []string {
	return []string{
		p.Subreddit, p.ID, p.Score, strconv.Itoa(p.NumReplies), p.Author, p.Title, p.Text,
		strconv.FormatBool(p.IsSelf), p.Domain, p.URL, p.Permalink, p.UpvoteRatio, p.DateCreated,
	}
}

// RunReport summarizes one completed collection run.
type RunReport struct {
	StartedAt         time.Time `json:"started_at"`
	Duration          string    `json:"duration"`
	AuthorsDiscovered int       `json:"authors_discovered"`
	AuthorTarget      int       `json:"author_target"`
	DiscoveryAttempts int       `json:"discovery_attempts"`
	DiscoveryRows     int       `json:"discovery_rows"`
	BackfillRows      int       `json:"backfill_rows"`
	TotalRows         int       `json:"total_rows"`
	OutputFile        string    `json:"output_file"`
	StopReason        string    `json:"stop_reason"` // "target reached" or "attempts exhausted"
}
