package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/comrados/crawlergram/pkg/topics/store"
)

var htmlDateLayouts = []string{
	"02.01.2006 15:04:05 UTC-07:00",
	"02.01.2006 15:04:05",
}

// ReadHTML parses one messages*.html page of a Telegram Desktop HTML export.
// It returns the chat title from the page header and the text messages in
// page order. Dialog IDs are left zero; the page does not carry one. Dates
// without a UTC offset are read in loc; nil means time.Local.
func ReadHTML(r io.Reader, loc *time.Location) (string, []store.Message, error) {
	if loc == nil {
		loc = time.Local
	}
	doc, err := html.Parse(r)
	if err != nil {
		return "", nil, fmt.Errorf("parse html: %w", err)
	}

	var (
		title string
		msgs  []store.Message
		walk  func(*html.Node) error
	)
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode && n.Data == "div" {
			switch {
			case hasClass(n, "page_header") && title == "":
				if t := find(n, "text"); t != nil {
					title = strings.TrimSpace(textContent(t))
				}
				return nil
			case hasClass(n, "message") && hasClass(n, "default"):
				m, ok, err := parseMessage(n, loc)
				if err != nil {
					return err
				}
				if ok {
					msgs = append(msgs, m)
				}
				return nil
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(doc); err != nil {
		return "", nil, err
	}
	return title, msgs, nil
}

func parseMessage(n *html.Node, loc *time.Location) (store.Message, bool, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(attr(n, "id"), "message"), 10, 64)
	if err != nil {
		return store.Message{}, false, fmt.Errorf("message id %q: %w", attr(n, "id"), err)
	}

	textNode := find(n, "text")
	if textNode == nil {
		// Media without a caption: fall back to the attachment description
		if media := find(n, "media_wrap"); media != nil {
			textNode = find(media, "description")
		}
	}
	if textNode == nil {
		return store.Message{}, false, nil
	}
	text := strings.TrimSpace(textContent(textNode))
	if text == "" {
		return store.Message{}, false, nil
	}

	dateNode := find(n, "date")
	if dateNode == nil {
		return store.Message{}, false, fmt.Errorf("message %d: no date", id)
	}
	date, err := parseDate(attr(dateNode, "title"), loc)
	if err != nil {
		return store.Message{}, false, fmt.Errorf("message %d: %w", id, err)
	}

	return store.Message{ID: id, Text: text, Date: date}, true, nil
}

func parseDate(s string, loc *time.Location) (int64, error) {
	var lastErr error
	for _, layout := range htmlDateLayouts {
		t, err := time.ParseInLocation(layout, strings.TrimSpace(s), loc)
		if err == nil {
			return t.Unix(), nil
		}
		lastErr = err
	}
	return 0, lastErr
}

// textContent concatenates the text nodes below n. Line breaks become
// newlines.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

// find returns the first descendant div with the given class.
func find(n *html.Node, class string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "div" && hasClass(c, class) {
			return c
		}
		if found := find(c, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
