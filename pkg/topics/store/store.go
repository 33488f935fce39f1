package store

import (
	"context"
	"time"
)

// Store is the storage collaborator for the topic extractor: it serves
// dialogs and their messages and keeps the results of extraction runs.
type Store interface {
	Close() error

	// Dialogs
	UpsertDialog(ctx context.Context, d Dialog) error
	GetDialog(ctx context.Context, id int64) (Dialog, bool, error)
	GetDialogs(ctx context.Context) ([]Dialog, error)

	// Messages. Reads return an empty slice, not an error, when the dialog
	// has no messages.
	WriteMessages(ctx context.Context, dialogID int64, msgs []Message) error
	ReadMessages(ctx context.Context, dialog Dialog) ([]Message, error)
	ReadMessagesRange(ctx context.Context, dialog Dialog, from, to int64) ([]Message, error)

	// Runs
	SaveRun(ctx context.Context, r Run) error
	GetRuns(ctx context.Context, dialogID int64) ([]Run, error)
}

// Dialog is a chat, channel or private conversation.
type Dialog struct {
	ID       int64
	Username string
	Title    string
}

// Name returns the best human-readable label for the dialog.
func (d Dialog) Name() string {
	if d.Username != "" {
		return d.Username
	}
	return d.Title
}

// Message is a single stored message. Text already carries the media caption
// when the message body was empty.
type Message struct {
	ID       int64
	DialogID int64
	Text     string
	Date     int64 // epoch seconds
}

// Run is the persisted output of one inference engine over one dialog.
type Run struct {
	ID        string
	DialogID  int64
	Engine    string
	Params    string // JSON-encoded inference.Params
	CreatedAt time.Time
	Topics    [][]TopicWord
}

// TopicWord is one weighted word of a persisted topic.
type TopicWord struct {
	Word   string
	Weight float64
}

// ValidRange reports whether [from, to) is a usable date range. Both bounds
// zero, or from >= to, mean "no valid range": callers read all messages.
func ValidRange(from, to int64) bool {
	return (from != 0 || to != 0) && from < to
}
