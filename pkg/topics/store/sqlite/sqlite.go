package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/comrados/crawlergram/pkg/topics/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode, a busy timeout and
// foreign keys enabled. All access goes through a single connection.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS dialogs (
	id INTEGER PRIMARY KEY,
	username TEXT,
	title TEXT
);

CREATE TABLE IF NOT EXISTS messages (
	dialog_id INTEGER NOT NULL,
	id INTEGER NOT NULL,
	text TEXT NOT NULL DEFAULT '',
	date INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY(dialog_id, id),
	FOREIGN KEY(dialog_id) REFERENCES dialogs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS messages_dialog_date ON messages(dialog_id, date);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	dialog_id INTEGER NOT NULL,
	engine TEXT NOT NULL,
	params TEXT,
	created_at TEXT
);

CREATE TABLE IF NOT EXISTS run_topics (
	run_id TEXT NOT NULL,
	topic INTEGER NOT NULL,
	rank INTEGER NOT NULL,
	word TEXT NOT NULL,
	weight REAL NOT NULL,
	PRIMARY KEY(run_id, topic, rank),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertDialog inserts or updates a dialog
func (s *sqliteStore) UpsertDialog(ctx context.Context, d store.Dialog) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO dialogs (id, username, title) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	username=excluded.username,
	title=excluded.title;
`, d.ID, d.Username, d.Title)
	return err
}

// GetDialog returns a dialog by ID
func (s *sqliteStore) GetDialog(ctx context.Context, id int64) (store.Dialog, bool, error) {
	var d store.Dialog
	err := s.db.QueryRowContext(ctx, `SELECT id, username, title FROM dialogs WHERE id=?`, id).
		Scan(&d.ID, &d.Username, &d.Title)
	if err == sql.ErrNoRows {
		return store.Dialog{}, false, nil
	}
	if err != nil {
		return store.Dialog{}, false, err
	}
	return d, true, nil
}

// GetDialogs returns all dialogs ordered by ID
func (s *sqliteStore) GetDialogs(ctx context.Context) ([]store.Dialog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username, title FROM dialogs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dialogs []store.Dialog
	for rows.Next() {
		var d store.Dialog
		if err := rows.Scan(&d.ID, &d.Username, &d.Title); err != nil {
			return nil, err
		}
		dialogs = append(dialogs, d)
	}
	return dialogs, rows.Err()
}

// WriteMessages stores messages of a dialog, replacing messages with the same ID
func (s *sqliteStore) WriteMessages(ctx context.Context, dialogID int64, msgs []store.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO messages (dialog_id, id, text, date) VALUES (?, ?, ?, ?)
ON CONFLICT(dialog_id, id) DO UPDATE SET
	text=excluded.text,
	date=excluded.date;
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range msgs {
		if _, err := stmt.ExecContext(ctx, dialogID, m.ID, m.Text, m.Date); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ReadMessages returns all messages of a dialog ordered by date
func (s *sqliteStore) ReadMessages(ctx context.Context, dialog store.Dialog) ([]store.Message, error) {
	return s.queryMessages(ctx, `
SELECT id, dialog_id, text, date FROM messages
WHERE dialog_id = ?
ORDER BY date, id;
`, dialog.ID)
}

// ReadMessagesRange returns messages of a dialog with from <= date < to.
// An invalid range reads all messages.
func (s *sqliteStore) ReadMessagesRange(ctx context.Context, dialog store.Dialog, from, to int64) ([]store.Message, error) {
	if !store.ValidRange(from, to) {
		return s.ReadMessages(ctx, dialog)
	}
	return s.queryMessages(ctx, `
SELECT id, dialog_id, text, date FROM messages
WHERE dialog_id = ? AND date >= ? AND date < ?
ORDER BY date, id;
`, dialog.ID, from, to)
}

// SaveRun stores a run and its topics
func (s *sqliteStore) SaveRun(ctx context.Context, r store.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, dialog_id, engine, params, created_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	dialog_id=excluded.dialog_id,
	engine=excluded.engine,
	params=excluded.params,
	created_at=excluded.created_at;
`, r.ID, r.DialogID, r.Engine, r.Params, r.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_topics WHERE run_id=?`, r.ID); err != nil {
		return err
	}
	for topic, words := range r.Topics {
		for rank, w := range words {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_topics (run_id, topic, rank, word, weight) VALUES (?, ?, ?, ?, ?)`,
				r.ID, topic, rank, w.Word, w.Weight,
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// GetRuns returns all runs of a dialog, oldest first
func (s *sqliteStore) GetRuns(ctx context.Context, dialogID int64) ([]store.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, dialog_id, engine, params, created_at FROM runs
WHERE dialog_id = ?
ORDER BY created_at, id;
`, dialogID)
	if err != nil {
		return nil, err
	}

	var runs []store.Run
	for rows.Next() {
		var (
			r       store.Run
			params  sql.NullString
			created string
		)
		if err := rows.Scan(&r.ID, &r.DialogID, &r.Engine, &params, &created); err != nil {
			rows.Close()
			return nil, err
		}
		r.Params = params.String
		if parsed, perr := time.Parse(time.RFC3339Nano, created); perr == nil {
			r.CreatedAt = parsed
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range runs {
		topics, err := s.loadRunTopics(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Topics = topics
	}
	return runs, nil
}

func (s *sqliteStore) loadRunTopics(ctx context.Context, runID string) ([][]store.TopicWord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT topic, word, weight FROM run_topics
WHERE run_id = ?
ORDER BY topic, rank;
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics [][]store.TopicWord
	for rows.Next() {
		var (
			topic int
			w     store.TopicWord
		)
		if err := rows.Scan(&topic, &w.Word, &w.Weight); err != nil {
			return nil, err
		}
		for len(topics) <= topic {
			topics = append(topics, nil)
		}
		topics[topic] = append(topics[topic], w)
	}
	return topics, rows.Err()
}

func (s *sqliteStore) queryMessages(ctx context.Context, query string, args ...interface{}) ([]store.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []store.Message{}
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.DialogID, &m.Text, &m.Date); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
