package pullpush

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Client queries the PullPush submission search endpoint.
type Client struct {
	baseURL    string
	pageSize   int
	maxRetries int
	client     *resty.Client
	sleep      func(time.Duration)
}

// Query describes one search window. Zero-valued fields are omitted from the
// request.
type Query struct {
	Subreddit  string
	Author     string
	After      int64
	Before     int64
	LinkFilter bool
}

// NewClient creates a new PullPush client
func NewClient(baseURL string, pageSize, maxRetries int) *Client {
	return &Client{
		baseURL:    baseURL,
		pageSize:   pageSize,
		maxRetries: maxRetries,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "Reddit-Author-Collector/1.0"),
		sleep: time.Sleep,
	}
}

// Search runs one paginated query, sorted ascending by creation time.
// Transport failures, non-200 statuses, and undecodable bodies are retried
// with exponential backoff (2^attempt seconds). When retries are exhausted
// the call degrades to an empty page rather than surfacing an error; a round
// with no data is an expected outcome for the collection loops.
func (c *Client) Search(ctx context.Context, q Query) []Record {
	params := map[string]string{
		"size":      strconv.Itoa(c.pageSize),
		"sort":      "asc",
		"sort_type": "created_utc",
	}
	if q.LinkFilter {
		params["filter"] = "link"
	}
	if q.Subreddit != "" {
		params["subreddit"] = q.Subreddit
	}
	if q.Author != "" {
		params["author"] = q.Author
	}
	if q.After != 0 {
		params["after"] = strconv.FormatInt(q.After, 10)
	}
	if q.Before != 0 {
		params["before"] = strconv.FormatInt(q.Before, 10)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<uint(attempt)) * time.Second
			logrus.Warnf("Request error for subreddit=%q author=%q: %v. Retry %d/%d after %v",
				q.Subreddit, q.Author, lastErr, attempt, c.maxRetries, wait)
			c.sleep(wait)
		}

		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(c.baseURL)
		if err != nil {
			lastErr = err
			continue
		}
		if !resp.IsSuccess() {
			lastErr = fmt.Errorf("pullpush returned status %d", resp.StatusCode())
			continue
		}

		records, err := unwrap(resp.Body())
		if err != nil {
			lastErr = err
			continue
		}
		return records
	}

	logrus.Errorf("Giving up on subreddit=%q author=%q after %d retries: %v",
		q.Subreddit, q.Author, c.maxRetries, lastErr)
	return nil
}

// unwrap normalizes the varying response envelope into a flat record list.
// The list may sit under "data", "results", or "posts", and may be nested one
// level further under "children" or "items".
func unwrap(body []byte) ([]Record, error) {
	var envelope map[string]interface{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	var payload interface{}
	for _, key := range []string{"data", "results", "posts"} {
		if value, ok := envelope[key]; ok && !isEmptyPayload(value) {
			payload = value
			break
		}
	}

	if nested, ok := payload.(map[string]interface{}); ok {
		if children, ok := nested["children"]; ok && !isEmptyPayload(children) {
			payload = children
		} else {
			payload = nested["items"]
		}
	}

	list, ok := payload.([]interface{})
	if !ok {
		if payload == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("unexpected response payload of type %T", payload)
	}

	records := make([]Record, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			records = append(records, Record(m))
		}
	}
	return records, nil
}

func isEmptyPayload(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case []interface{}:
		return len(v) == 0
	case map[string]interface{}:
		return len(v) == 0
	}
	return false
}
