package pullpush

import (
	"strconv"
)

// Record is one raw submission as returned by the search API. PullPush does
// not guarantee a response schema, so records stay opaque maps and readers go
// through the candidate-key helpers below.
type Record map[string]interface{}

// Candidate key lists for logical fields whose name varies across API
// versions and mirrors. Earlier keys win.
var (
	TitleKeys       = []string{"title", "post_title", "link_title"}
	TextKeys        = []string{"selftext", "self_text", "body", "text", "raw_text", "content"}
	NumCommentsKeys = []string{"num_comments", "numReplies", "num_replies", "comments"}
	ScoreKeys       = []string{"score", "ups", "points"}
	CreatedKeys     = []string{"created_utc", "created", "created_at", "timestamp"}
)

// Get scans the candidate keys in order and returns the first value that is
// present and not nil, an empty string, or an empty list.
func (r Record) Get(candidates ...string) (interface{}, bool) {
	for _, key := range candidates {
		value, ok := r[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			if v == "" {
				continue
			}
		case []interface{}:
			if len(v) == 0 {
				continue
			}
		}
		return value, true
	}
	return nil, false
}

// String is Get rendered as a string, with "" when no candidate matches.
// Numbers keep their shortest decimal form, so a JSON 42 comes back as "42".
func (r Record) String(candidates ...string) string {
	value, ok := r.Get(candidates...)
	if !ok {
		return ""
	}
	return stringify(value)
}

// Int is Get coerced to an int, with 0 when no candidate holds a number.
func (r Record) Int(candidates ...string) int {
	value, ok := r.Get(candidates...)
	if !ok {
		return 0
	}
	switch v := value.(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// Author returns the record's author name, or "" when missing.
func (r Record) Author() string {
	return r.String("author", "username")
}

// HasTitle reports whether the record carries a usable title, the heuristic
// for "this is a submission, not a comment or malformed record".
func (r Record) HasTitle() bool {
	_, ok := r.Get(TitleKeys...)
	return ok
}

// CreatedUnix returns the record's creation time as a Unix timestamp. The
// second return is false when no candidate key holds a numeric value, which
// callers must treat as "cannot page past this record".
func (r Record) CreatedUnix() (int64, bool) {
	value, ok := r.Get(CreatedKeys...)
	if !ok {
		return 0, false
	}
	return asInt64(value)
}

func asInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case float64:
		return int64(v), true
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
