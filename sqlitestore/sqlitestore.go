// Package sqlitestore persists the sidekick key/value partitions in a local
// SQLite database. It implements the engine storage contract for embedding
// hosts that need state to survive restarts, like the CLI.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hlxsites/sidekick-config/engine"
)

type Store struct {
	db *sql.DB
}

var _ engine.Storage = (*Store)(nil)

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	schema := `CREATE TABLE IF NOT EXISTS kv (
		partition TEXT NOT NULL,
		key       TEXT NOT NULL,
		value     BLOB NOT NULL,
		PRIMARY KEY (partition, key)
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, partition engine.Partition, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM kv WHERE partition = ? AND key = ?",
		string(partition), key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, partition engine.Partition, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO kv (partition, key, value) VALUES (?, ?, ?) ON CONFLICT (partition, key) DO UPDATE SET value = excluded.value",
		string(partition), key, value)
	return err
}

func (s *Store) Remove(ctx context.Context, partition engine.Partition, key string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM kv WHERE partition = ? AND key = ?",
		string(partition), key)
	return err
}

func (s *Store) Clear(ctx context.Context, partition engine.Partition) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM kv WHERE partition = ?",
		string(partition))
	return err
}
