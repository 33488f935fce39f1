package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/comrados/crawlergram/pkg/topics/store"
)

// Chat is one dialog read from an export together with its messages.
type Chat struct {
	Dialog   store.Dialog
	Messages []store.Message
}

// jsonChat mirrors a chat object of a Telegram Desktop result.json.
type jsonChat struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Type     string        `json:"type"`
	Messages []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	ID           int64    `json:"id"`
	Type         string   `json:"type"`
	Date         string   `json:"date"`
	DateUnix     string   `json:"date_unixtime"`
	Text         richText `json:"text"`
	TextEntities []entity `json:"text_entities"`
	Caption      richText `json:"caption"`
}

type entity struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// richText is either a plain string or an array mixing strings and
// formatted entities.
type richText string

func (t *richText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = richText(s)
		return nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("text is neither string nor array: %w", err)
	}
	var b strings.Builder
	for _, p := range parts {
		var s string
		if err := json.Unmarshal(p, &s); err == nil {
			b.WriteString(s)
			continue
		}
		var e entity
		if err := json.Unmarshal(p, &e); err != nil {
			return err
		}
		b.WriteString(e.Text)
	}
	*t = richText(b.String())
	return nil
}

// text returns the message text, falling back to entities and the media
// caption.
func (m jsonMessage) text() string {
	if m.Text != "" {
		return string(m.Text)
	}
	if len(m.TextEntities) > 0 {
		var b strings.Builder
		for _, e := range m.TextEntities {
			b.WriteString(e.Text)
		}
		return b.String()
	}
	return string(m.Caption)
}

// date prefers date_unixtime. Older exports only carry date, written in the
// exporter's local time.
func (m jsonMessage) date(loc *time.Location) (int64, error) {
	if m.DateUnix != "" {
		return strconv.ParseInt(m.DateUnix, 10, 64)
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", m.Date, loc)
	if err != nil {
		return 0, fmt.Errorf("message %d: %w", m.ID, err)
	}
	return t.Unix(), nil
}

// ReadJSON parses a Telegram Desktop JSON export. Both single chat exports
// and full account exports (chats.list) are accepted. Service messages and
// messages without text are skipped. Dates without a unix timestamp are read
// in loc; nil means time.Local.
func ReadJSON(r io.Reader, loc *time.Location) ([]Chat, error) {
	if loc == nil {
		loc = time.Local
	}
	var root struct {
		jsonChat
		Chats *struct {
			List []jsonChat `json:"list"`
		} `json:"chats"`
	}
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}

	raw := []jsonChat{root.jsonChat}
	if root.Chats != nil {
		raw = root.Chats.List
	}

	var chats []Chat
	for _, c := range raw {
		if c.ID == 0 && len(c.Messages) == 0 {
			continue
		}
		chat := Chat{Dialog: store.Dialog{ID: c.ID, Title: c.Name}}
		for _, m := range c.Messages {
			if m.Type != "" && m.Type != "message" {
				continue
			}
			text := strings.TrimSpace(m.text())
			if text == "" {
				continue
			}
			date, err := m.date(loc)
			if err != nil {
				return nil, fmt.Errorf("chat %d: %w", c.ID, err)
			}
			chat.Messages = append(chat.Messages, store.Message{
				ID:       m.ID,
				DialogID: c.ID,
				Text:     text,
				Date:     date,
			})
		}
		chats = append(chats, chat)
	}
	return chats, nil
}
