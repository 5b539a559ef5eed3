// Package journal keeps a local, durable record of every step a cascading
// deletion performed. Best-effort steps only emit log lines at the point of
// failure; the journal makes those partial-failure outcomes inspectable
// after the fact.
package journal

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS deletion_steps (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	operation  TEXT NOT NULL,
	entity_id  INTEGER NOT NULL,
	step       TEXT NOT NULL,
	ok         INTEGER NOT NULL,
	count      INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deletion_steps_operation ON deletion_steps (operation, entity_id);
`

// Entry is one recorded step outcome.
type Entry struct {
	Operation string `db:"operation" json:"operation"`
	EntityID  int64  `db:"entity_id" json:"entity_id"`
	Step      string `db:"step" json:"step"`
	OK        bool   `db:"ok" json:"ok"`
	Count     int    `db:"count" json:"count"`
	Error     string `db:"error" json:"error,omitempty"`
}

// Row is an Entry as read back from the journal.
type Row struct {
	ID        int64 `db:"id" json:"id"`
	Entry
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Journal struct {
	db *sqlx.DB
}

// Open opens (and bootstraps) the sqlite journal at path.
func Open(path string) (*Journal, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Str("path", path).Msg("Deletion journal opened")
	return &Journal{db: db}, nil
}

// Record appends one step outcome.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO deletion_steps (operation, entity_id, step, ok, count, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Operation, e.EntityID, e.Step, e.OK, e.Count, e.Error, time.Now().UTC())
	return err
}

// Recent returns the newest step records, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Row, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []Row
	err := j.db.SelectContext(ctx, &rows,
		`SELECT id, operation, entity_id, step, ok, count, error, created_at
		 FROM deletion_steps ORDER BY id DESC LIMIT ?`, limit)
	return rows, err
}

func (j *Journal) Close() error {
	return j.db.Close()
}
