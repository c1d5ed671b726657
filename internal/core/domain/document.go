package domain

import "time"

// Document represents a stored requirement document.
// The extraction engine itself never fetches documents; it receives the
// Content of one of these from a caller or a DocumentStore.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Title is the human-readable title, usually taken from the first
	// markdown heading or the file name.
	Title string

	// URI is the original location (file path, URL, etc).
	URI string

	// Content is the full UTF-8, newline-delimited document text.
	Content string

	// CreatedAt is when the document was first stored.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time
}
