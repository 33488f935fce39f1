package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/comrados/crawlergram/pkg/topics/store"
)

func TestDialogs_OrderedByID(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.UpsertDialog(ctx, store.Dialog{ID: 3, Username: "c"})
	s.UpsertDialog(ctx, store.Dialog{ID: 1, Username: "a"})
	s.UpsertDialog(ctx, store.Dialog{ID: 2, Username: "b"})

	dialogs, err := s.GetDialogs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(dialogs) != 3 {
		t.Fatalf("expected 3 dialogs, got %d", len(dialogs))
	}
	for i, want := range []int64{1, 2, 3} {
		if dialogs[i].ID != want {
			t.Errorf("position %d: expected dialog %d, got %d", i, want, dialogs[i].ID)
		}
	}
}

func TestMessages_SortedByDate(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.WriteMessages(ctx, 1, []store.Message{
		{ID: 2, Text: "later", Date: 20},
		{ID: 1, Text: "earlier", Date: 10},
	})

	msgs, err := s.ReadMessages(ctx, store.Dialog{ID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Text != "earlier" {
		t.Fatalf("expected messages sorted by date, got %+v", msgs)
	}
	if msgs[0].DialogID != 1 {
		t.Errorf("expected dialog ID to be stamped, got %d", msgs[0].DialogID)
	}
}

func TestMessages_EmptyDialog(t *testing.T) {
	s := New()
	msgs, err := s.ReadMessages(context.Background(), store.Dialog{ID: 42})
	if err != nil {
		t.Fatalf("expected no error for empty dialog, got %v", err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Errorf("expected empty slice, got %#v", msgs)
	}
}

func TestMessages_Range(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.WriteMessages(ctx, 1, []store.Message{
		{ID: 1, Date: 10}, {ID: 2, Date: 20}, {ID: 3, Date: 30},
	})

	msgs, _ := s.ReadMessagesRange(ctx, store.Dialog{ID: 1}, 15, 30)
	if len(msgs) != 1 || msgs[0].ID != 2 {
		t.Errorf("expected only message 2 in [15,30), got %+v", msgs)
	}

	msgs, _ = s.ReadMessagesRange(ctx, store.Dialog{ID: 1}, 30, 15)
	if len(msgs) != 3 {
		t.Errorf("inverted range should read all, got %d", len(msgs))
	}
}

func TestMessages_ReadErr(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.ReadErr = boom

	_, err := s.ReadMessages(context.Background(), store.Dialog{ID: 1})
	if !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}
}

func TestRuns_ReplaceByID(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.SaveRun(ctx, store.Run{ID: "a", DialogID: 1, Engine: "gsdmm"})
	s.SaveRun(ctx, store.Run{ID: "b", DialogID: 1, Engine: "gslda"})
	s.SaveRun(ctx, store.Run{ID: "a", DialogID: 1, Engine: "vblda"})

	runs, _ := s.GetRuns(ctx, 1)
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Engine != "vblda" {
		t.Errorf("expected run a replaced in place, got %q", runs[0].Engine)
	}
}
