package export

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/comrados/crawlergram/pkg/topics/store"
)

// Importer loads Telegram Desktop exports into a store.
type Importer struct {
	Store  store.Store
	Logger *slog.Logger

	// DialogID is assigned to HTML exports, which carry no chat ID. Zero
	// derives a stable ID from the chat title.
	DialogID int64

	// Location is the exporter's time zone, used for dates written without
	// an offset. Nil means time.Local.
	Location *time.Location
}

// Summary counts what an import wrote.
type Summary struct {
	Dialogs  int
	Messages int
}

// Import reads path and writes its dialogs and messages. path may be a
// result.json, a messages*.html page, or an export directory containing
// either.
func (im *Importer) Import(ctx context.Context, path string) (Summary, error) {
	chats, err := im.read(path)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, c := range chats {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := im.Store.UpsertDialog(ctx, c.Dialog); err != nil {
			return sum, fmt.Errorf("store dialog %d: %w", c.Dialog.ID, err)
		}
		if err := im.Store.WriteMessages(ctx, c.Dialog.ID, c.Messages); err != nil {
			return sum, fmt.Errorf("store messages of %d: %w", c.Dialog.ID, err)
		}
		im.logger().Info("imported dialog", "dialog", c.Dialog.ID, "title", c.Dialog.Title, "messages", len(c.Messages))
		sum.Dialogs++
		sum.Messages += len(c.Messages)
	}
	return sum, nil
}

func (im *Importer) read(path string) ([]Chat, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return im.readFile(path)
	}

	if p := filepath.Join(path, "result.json"); fileExists(p) {
		return im.readFile(p)
	}

	pages, err := filepath.Glob(filepath.Join(path, "messages*.html"))
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%s: no result.json or messages*.html", path)
	}
	sortPages(pages)
	return im.readHTML(pages)
}

func (im *Importer) readFile(path string) ([]Chat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		chats, err := ReadJSON(f, im.Location)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return chats, nil
	case ".html", ".htm":
		return im.readHTML([]string{path})
	}
	return nil, fmt.Errorf("%s: unsupported export file", path)
}

// readHTML merges the pages of one chat.
func (im *Importer) readHTML(pages []string) ([]Chat, error) {
	var chat Chat
	for _, p := range pages {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		title, msgs, err := ReadHTML(f, im.Location)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if chat.Dialog.Title == "" {
			chat.Dialog.Title = title
		}
		chat.Messages = append(chat.Messages, msgs...)
		im.logger().Debug("read export page", "path", p, "messages", len(msgs))
	}

	chat.Dialog.ID = im.DialogID
	if chat.Dialog.ID == 0 {
		chat.Dialog.ID = TitleID(chat.Dialog.Title)
	}
	for i := range chat.Messages {
		chat.Messages[i].DialogID = chat.Dialog.ID
	}
	return []Chat{chat}, nil
}

func (im *Importer) logger() *slog.Logger {
	if im.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return im.Logger
}

// TitleID derives a positive dialog ID from a chat title.
func TitleID(title string) int64 {
	h := fnv.New64a()
	h.Write([]byte(title))
	return int64(h.Sum64() >> 1)
}

// sortPages orders messages.html, messages2.html, ..., messages10.html.
func sortPages(pages []string) {
	num := func(p string) int {
		base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		n := 0
		fmt.Sscanf(strings.TrimPrefix(base, "messages"), "%d", &n)
		return n
	}
	sort.SliceStable(pages, func(i, j int) bool { return num(pages[i]) < num(pages[j]) })
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
