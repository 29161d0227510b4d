package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/confucious/gamebot/internal/channel"
	"github.com/confucious/gamebot/internal/ids"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS channel_states (
	team_id    TEXT NOT NULL,
	channel_id TEXT NOT NULL,
	sequence   INTEGER NOT NULL,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (team_id, channel_id)
)`

// SQLite is the single-file backend for one bot process.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create channel_states: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context, key ids.ChannelKey) (channel.State, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM channel_states WHERE team_id = ? AND channel_id = ?`,
		string(key.Team), string(key.Channel),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return channel.New(key), nil
	}
	if err != nil {
		return channel.State{}, err
	}
	return channel.Decode([]byte(payload))
}

func (s *SQLite) Save(ctx context.Context, st channel.State, prevSequence uint64) error {
	payload, err := channel.Encode(st)
	if err != nil {
		return err
	}

	var res sql.Result
	if prevSequence == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO channel_states(team_id, channel_id, sequence, payload) VALUES(?,?,?,?)`,
			string(st.Key.Team), string(st.Key.Channel), int64(st.Sequence), string(payload),
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE channel_states SET sequence = ?, payload = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE team_id = ? AND channel_id = ? AND sequence = ?`,
			int64(st.Sequence), string(payload), string(st.Key.Team), string(st.Key.Channel), int64(prevSequence),
		)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
