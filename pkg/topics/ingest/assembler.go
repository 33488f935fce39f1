package ingest

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/comrados/crawlergram/pkg/topics/store"
)

// AssembleOptions controls how a dialog's messages become documents.
type AssembleOptions struct {
	// Threshold is the minimum message count for one-document-per-message.
	// Dialogs with fewer messages are merged. Zero or less disables merging.
	Threshold int

	// Window, when positive, splits a merged dialog into one document per
	// fixed time window anchored at the earliest message.
	Window time.Duration
}

// Assemble turns a dialog's ordered messages into documents. Dialogs at or
// above the threshold keep one document per message; sparse dialogs are
// concatenated. Blank documents are dropped.
func Assemble(dialogID int64, msgs []store.Message, opts AssembleOptions) []*Document {
	if len(msgs) == 0 {
		return nil
	}

	if len(msgs) >= opts.Threshold {
		docs := make([]*Document, 0, len(msgs))
		for _, m := range msgs {
			doc := &Document{
				DialogID:  dialogID,
				MessageID: m.ID,
				From:      m.Date,
				To:        m.Date,
				Text:      m.Text,
			}
			if doc.IsBlank() {
				continue
			}
			docs = append(docs, doc)
		}
		return docs
	}

	if opts.Window <= 0 {
		if doc := merge(dialogID, msgs); !doc.IsBlank() {
			return []*Document{doc}
		}
		return nil
	}

	var docs []*Document
	for _, group := range windows(msgs, int64(opts.Window/time.Second)) {
		if doc := merge(dialogID, group); !doc.IsBlank() {
			docs = append(docs, doc)
		}
	}
	return docs
}

// merge concatenates message texts into a single document.
func merge(dialogID int64, msgs []store.Message) *Document {
	texts := make([]string, len(msgs))
	from, to := msgs[0].Date, msgs[0].Date
	for i, m := range msgs {
		texts[i] = m.Text
		if m.Date < from {
			from = m.Date
		}
		if m.Date > to {
			to = m.Date
		}
	}
	return &Document{
		DialogID: dialogID,
		From:     from,
		To:       to,
		Merged:   true,
		Text:     strings.Join(texts, " "),
	}
}

// windows groups messages into consecutive buckets of size seconds, anchored
// at the earliest date. Buckets are ordered by time; message order inside a
// bucket is preserved.
func windows(msgs []store.Message, size int64) [][]store.Message {
	if size <= 0 {
		return [][]store.Message{msgs}
	}

	start := msgs[0].Date
	for _, m := range msgs {
		start = min(start, m.Date)
	}

	buckets := make(map[int64][]store.Message)
	for _, m := range msgs {
		k := (m.Date - start) / size
		buckets[k] = append(buckets[k], m)
	}

	keys := slices.Sorted(maps.Keys(buckets))
	groups := make([][]store.Message, len(keys))
	for i, k := range keys {
		groups[i] = buckets[k]
	}
	return groups
}
