package stock

import (
	"strings"
	"time"
)

// EmbedFields is the set of values written into a file's metadata segments.
// Author, copyright and rating are fixed at embed time and never taken from
// the AI result or the caller.
type EmbedFields struct {
	Title       string
	Description string
	Keywords    []string
	Author      string
	Copyright   string
	Rating      int
	Time        time.Time
}

// NewEmbedFields derives the embedded values for a result at time now.
func NewEmbedFields(r *Result, now time.Time) EmbedFields {
	fields := EmbedFields{
		Author:    Author,
		Copyright: Copyright(now),
		Rating:    Rating,
		Time:      now,
	}

	if r != nil {
		fields.Title = strings.TrimSpace(r.Title)
		fields.Description = strings.TrimSpace(r.Description)
		fields.Keywords = r.UniqueKeywords()
	}

	return fields
}
