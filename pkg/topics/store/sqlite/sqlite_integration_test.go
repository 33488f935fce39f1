package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/comrados/crawlergram/pkg/topics/store"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestSQLiteIntegrationBasic tests dialog and message round trips
func TestSQLiteIntegrationBasic(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	dialogs := []store.Dialog{
		{ID: 2, Username: "second", Title: "Second Chat"},
		{ID: 1, Username: "first", Title: "First Chat"},
	}
	for _, d := range dialogs {
		if err := st.UpsertDialog(ctx, d); err != nil {
			t.Fatalf("UpsertDialog: %v", err)
		}
	}

	got, err := st.GetDialogs(ctx)
	if err != nil {
		t.Fatalf("GetDialogs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 dialogs, got %d", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 2 {
		t.Errorf("Dialogs should be ordered by ID, got %+v", got)
	}

	msgs := []store.Message{
		{ID: 3, Text: "third", Date: 300},
		{ID: 1, Text: "first", Date: 100},
		{ID: 2, Text: "second", Date: 200},
	}
	if err := st.WriteMessages(ctx, 1, msgs); err != nil {
		t.Fatalf("WriteMessages: %v", err)
	}

	read, err := st.ReadMessages(ctx, store.Dialog{ID: 1})
	if err != nil {
		t.Fatalf("ReadMessages: %v", err)
	}
	if len(read) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(read))
	}
	for i, want := range []string{"first", "second", "third"} {
		if read[i].Text != want {
			t.Errorf("Message %d: got %q, want %q", i, read[i].Text, want)
		}
		if read[i].DialogID != 1 {
			t.Errorf("Message %d: dialog ID %d, want 1", i, read[i].DialogID)
		}
	}
}

func TestSQLiteDialogUpdate(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	st.UpsertDialog(ctx, store.Dialog{ID: 5, Username: "old"})
	st.UpsertDialog(ctx, store.Dialog{ID: 5, Username: "new", Title: "Renamed"})

	d, found, err := st.GetDialog(ctx, 5)
	if err != nil {
		t.Fatalf("GetDialog: %v", err)
	}
	if !found {
		t.Fatal("Dialog should be found")
	}
	if d.Username != "new" || d.Title != "Renamed" {
		t.Errorf("Dialog should be updated, got %+v", d)
	}

	_, found, err = st.GetDialog(ctx, 404)
	if err != nil {
		t.Fatalf("GetDialog missing: %v", err)
	}
	if found {
		t.Error("Missing dialog should not be found")
	}
}

func TestSQLiteReadMessagesEmpty(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	st.UpsertDialog(ctx, store.Dialog{ID: 9})

	msgs, err := st.ReadMessages(ctx, store.Dialog{ID: 9})
	if err != nil {
		t.Fatalf("ReadMessages should not fail on empty dialog: %v", err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", msgs)
	}
}

func TestSQLiteReadMessagesRange(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	st.UpsertDialog(ctx, store.Dialog{ID: 1})
	st.WriteMessages(ctx, 1, []store.Message{
		{ID: 1, Text: "a", Date: 100},
		{ID: 2, Text: "b", Date: 200},
		{ID: 3, Text: "c", Date: 300},
		{ID: 4, Text: "d", Date: 400},
	})

	tests := []struct {
		name     string
		from, to int64
		want     int
	}{
		{"valid range", 200, 400, 2},
		{"both zero reads all", 0, 0, 4},
		{"inverted reads all", 400, 200, 4},
		{"equal bounds read all", 300, 300, 4},
		{"open start", 0, 250, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := st.ReadMessagesRange(ctx, store.Dialog{ID: 1}, tt.from, tt.to)
			if err != nil {
				t.Fatalf("ReadMessagesRange: %v", err)
			}
			if len(msgs) != tt.want {
				t.Errorf("Expected %d messages, got %d", tt.want, len(msgs))
			}
		})
	}
}

func TestSQLiteWriteMessagesReplace(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	st.UpsertDialog(ctx, store.Dialog{ID: 1})
	st.WriteMessages(ctx, 1, []store.Message{{ID: 1, Text: "draft", Date: 1}})
	st.WriteMessages(ctx, 1, []store.Message{{ID: 1, Text: "edited", Date: 2}})

	msgs, _ := st.ReadMessages(ctx, store.Dialog{ID: 1})
	if len(msgs) != 1 {
		t.Fatalf("Rewriting a message should not duplicate it, got %d", len(msgs))
	}
	if msgs[0].Text != "edited" {
		t.Errorf("Expected edited text, got %q", msgs[0].Text)
	}
}

func TestSQLiteRuns(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	st.UpsertDialog(ctx, store.Dialog{ID: 1})

	run := store.Run{
		ID:        "01HZY0000000000000000000AA",
		DialogID:  1,
		Engine:    "gsdmm",
		Params:    `{"topics":2}`,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Topics: [][]store.TopicWord{
			{{Word: "golang", Weight: 0.4}, {Word: "rust", Weight: 0.2}},
			{{Word: "coffee", Weight: 0.7}},
		},
	}
	if err := st.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	runs, err := st.GetRuns(ctx, 1)
	if err != nil {
		t.Fatalf("GetRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.Engine != "gsdmm" || got.Params != run.Params {
		t.Errorf("Run fields mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("CreatedAt mismatch: got %v, want %v", got.CreatedAt, run.CreatedAt)
	}
	if len(got.Topics) != 2 {
		t.Fatalf("Expected 2 topics, got %d", len(got.Topics))
	}
	if got.Topics[0][0].Word != "golang" || got.Topics[0][1].Word != "rust" {
		t.Errorf("Topic words should keep rank order, got %+v", got.Topics[0])
	}

	// Saving again replaces topics
	run.Topics = [][]store.TopicWord{{{Word: "only", Weight: 1}}}
	if err := st.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun again: %v", err)
	}
	runs, _ = st.GetRuns(ctx, 1)
	if len(runs) != 1 || len(runs[0].Topics) != 1 || runs[0].Topics[0][0].Word != "only" {
		t.Errorf("Second save should replace topics, got %+v", runs)
	}
}

// TestSQLiteConcurrentWrites tests that parallel writers all succeed
func TestSQLiteConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	for d := int64(1); d <= 4; d++ {
		if err := st.UpsertDialog(ctx, store.Dialog{ID: d}); err != nil {
			t.Fatalf("UpsertDialog: %v", err)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for d := int64(1); d <= 4; d++ {
		wg.Add(1)
		go func(dialogID int64) {
			defer wg.Done()
			msgs := make([]store.Message, 20)
			for i := range msgs {
				msgs[i] = store.Message{ID: int64(i + 1), Text: "hello", Date: int64(i)}
			}
			if err := st.WriteMessages(ctx, dialogID, msgs); err != nil {
				errs <- err
			}
		}(d)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent WriteMessages: %v", err)
	}

	for d := int64(1); d <= 4; d++ {
		msgs, err := st.ReadMessages(ctx, store.Dialog{ID: d})
		if err != nil {
			t.Fatalf("ReadMessages: %v", err)
		}
		if len(msgs) != 20 {
			t.Errorf("Dialog %d: expected 20 messages, got %d", d, len(msgs))
		}
	}
}

// TestSQLiteConcurrentSaveRun tests parallel run saves, as done by batch
// extraction with several workers
func TestSQLiteConcurrentSaveRun(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run := store.Run{
				ID:        fmt.Sprintf("run-%02d", i),
				DialogID:  int64(i%2 + 1),
				Engine:    "gsdmm",
				CreatedAt: time.Unix(int64(1000+i), 0),
			}
			for k := 0; k < 10; k++ {
				topic := make([]store.TopicWord, 10)
				for w := range topic {
					topic[w] = store.TopicWord{Word: fmt.Sprintf("w%d", w), Weight: float64(10 - w)}
				}
				run.Topics = append(run.Topics, topic)
			}
			if err := st.SaveRun(ctx, run); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent SaveRun: %v", err)
	}

	total := 0
	for d := int64(1); d <= 2; d++ {
		runs, err := st.GetRuns(ctx, d)
		if err != nil {
			t.Fatalf("GetRuns: %v", err)
		}
		for _, r := range runs {
			if len(r.Topics) != 10 {
				t.Errorf("Run %s: expected 10 topics, got %d", r.ID, len(r.Topics))
			}
		}
		total += len(runs)
	}
	if total != n {
		t.Errorf("Expected %d runs, got %d", n, total)
	}
}

// TestSQLiteForeignKeys tests that messages require an existing dialog
func TestSQLiteForeignKeys(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	err := st.WriteMessages(ctx, 42, []store.Message{{ID: 1, Text: "orphan"}})
	if err == nil {
		t.Error("Expected foreign key violation for unknown dialog")
	}
}
