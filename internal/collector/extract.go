package collector

import (
	"fmt"
	"time"

	"github.com/corpustools/reddit-author-collector/internal/models"
	"github.com/corpustools/reddit-author-collector/internal/pullpush"
)

const createdLayout = "2006-01-02 15:04:05"

// Extract normalizes one raw record into a Post. It is total: every output
// field is populated, with missing or malformed source data replaced by empty
// values. It never returns an error.
func Extract(rec pullpush.Record) models.Post {
	subreddit := rec.String("subreddit", "subreddit_name")
	id := rec.String("id", "post_id")
	text := rec.String(pullpush.TextKeys...)

	post := models.Post{
		Subreddit:   subreddit,
		ID:          id,
		Score:       rec.String(pullpush.ScoreKeys...),
		NumReplies:  rec.Int(pullpush.NumCommentsKeys...),
		Author:      rec.Author(),
		Title:       rec.String(pullpush.TitleKeys...),
		Text:        text,
		Domain:      rec.String("domain"),
		URL:         rec.String("url"),
		Permalink:   rec.String("permalink"),
		UpvoteRatio: rec.String("upvote_ratio"),
		DateCreated: formatCreated(rec),
	}

	if post.Permalink == "" {
		post.Permalink = fmt.Sprintf("/r/%s/comments/%s", subreddit, id)
	}

	// An explicit is_self wins; otherwise a non-empty body implies a self post.
	if isSelf, ok := rec["is_self"].(bool); ok {
		post.IsSelf = isSelf
	} else {
		post.IsSelf = text != ""
	}

	return post
}

// formatCreated renders the creation time as an ISO-style UTC string. A
// non-numeric value falls back to its raw string form, absence to "".
func formatCreated(rec pullpush.Record) string {
	ts, ok := rec.CreatedUnix()
	if ok {
		return time.Unix(ts, 0).UTC().Format(createdLayout)
	}
	return rec.String(pullpush.CreatedKeys...)
}
