package pullpush

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Get(t *testing.T) {
	tests := []struct {
		name       string
		record     Record
		candidates []string
		expected   interface{}
		found      bool
	}{
		{
			name:       "First candidate wins",
			record:     Record{"selftext": "hello", "body": "world"},
			candidates: TextKeys,
			expected:   "hello",
			found:      true,
		},
		{
			name:       "Empty string is skipped",
			record:     Record{"selftext": "", "body": "hello"},
			candidates: TextKeys,
			expected:   "hello",
			found:      true,
		},
		{
			name:       "Nil is skipped",
			record:     Record{"selftext": nil, "body": "hello"},
			candidates: TextKeys,
			expected:   "hello",
			found:      true,
		},
		{
			name:       "Empty list is skipped",
			record:     Record{"selftext": []interface{}{}, "body": "hello"},
			candidates: TextKeys,
			expected:   "hello",
			found:      true,
		},
		{
			name:       "No candidate present",
			record:     Record{"unrelated": "x"},
			candidates: TextKeys,
			expected:   nil,
			found:      false,
		},
		{
			name:       "Zero number is kept",
			record:     Record{"score": float64(0)},
			candidates: ScoreKeys,
			expected:   float64(0),
			found:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, ok := tt.record.Get(tt.candidates...)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, value)
		})
	}
}

func TestRecord_String(t *testing.T) {
	tests := []struct {
		name     string
		record   Record
		keys     []string
		expected string
	}{
		{
			name:     "String value",
			record:   Record{"title": "Hello"},
			keys:     TitleKeys,
			expected: "Hello",
		},
		{
			name:     "Integer number",
			record:   Record{"score": float64(42)},
			keys:     ScoreKeys,
			expected: "42",
		},
		{
			name:     "Fractional number",
			record:   Record{"upvote_ratio": 0.87},
			keys:     []string{"upvote_ratio"},
			expected: "0.87",
		},
		{
			name:     "Missing value",
			record:   Record{},
			keys:     TitleKeys,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.record.String(tt.keys...))
		})
	}
}

func TestRecord_Int(t *testing.T) {
	assert.Equal(t, 7, Record{"num_comments": float64(7)}.Int(NumCommentsKeys...))
	assert.Equal(t, 7, Record{"numReplies": "7"}.Int(NumCommentsKeys...))
	assert.Equal(t, 0, Record{}.Int(NumCommentsKeys...))
	assert.Equal(t, 0, Record{"num_comments": "many"}.Int(NumCommentsKeys...))
}

func TestRecord_CreatedUnix(t *testing.T) {
	tests := []struct {
		name     string
		record   Record
		expected int64
		ok       bool
	}{
		{
			name:     "Numeric created_utc",
			record:   Record{"created_utc": float64(1609459200)},
			expected: 1609459200,
			ok:       true,
		},
		{
			name:     "Numeric string",
			record:   Record{"created": "1609459200"},
			expected: 1609459200,
			ok:       true,
		},
		{
			name:   "Non-numeric string",
			record: Record{"created_utc": "yesterday"},
			ok:     false,
		},
		{
			name:   "Missing",
			record: Record{},
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, ok := tt.record.CreatedUnix()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, ts)
		})
	}
}

func TestRecord_HasTitle(t *testing.T) {
	assert.True(t, Record{"title": "Hello"}.HasTitle())
	assert.True(t, Record{"link_title": "Hello"}.HasTitle())
	assert.False(t, Record{"title": ""}.HasTitle())
	assert.False(t, Record{"body": "a comment"}.HasTitle())
}

func TestRecord_Author(t *testing.T) {
	assert.Equal(t, "alice", Record{"author": "alice"}.Author())
	assert.Equal(t, "bob", Record{"username": "bob"}.Author())
	assert.Equal(t, "", Record{}.Author())
}

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		count   int
		wantErr bool
	}{
		{
			name:  "List under data",
			body:  `{"data":[{"title":"a"},{"title":"b"}]}`,
			count: 2,
		},
		{
			name:  "List under results",
			body:  `{"results":[{"title":"a"}]}`,
			count: 1,
		},
		{
			name:  "List under posts",
			body:  `{"posts":[{"title":"a"}]}`,
			count: 1,
		},
		{
			name:  "Nested under children",
			body:  `{"data":{"children":[{"title":"a"},{"title":"b"},{"title":"c"}]}}`,
			count: 3,
		},
		{
			name:  "Nested under items",
			body:  `{"results":{"items":[{"title":"a"}]}}`,
			count: 1,
		},
		{
			name:  "Empty data falls through to posts",
			body:  `{"data":[],"posts":[{"title":"a"}]}`,
			count: 1,
		},
		{
			name:  "No recognized key",
			body:  `{"other":true}`,
			count: 0,
		},
		{
			name:  "Non-object items are dropped",
			body:  `{"data":[{"title":"a"},"junk",3]}`,
			count: 1,
		},
		{
			name:    "Invalid JSON",
			body:    `not json`,
			wantErr: true,
		},
		{
			name:    "Payload of unexpected type",
			body:    `{"data":"oops"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := unwrap([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, records, tt.count)
		})
	}
}
