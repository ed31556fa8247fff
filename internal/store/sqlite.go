package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore is an Index persisted in a SQLite database. Each row keeps its cells as a JSON
// object next to the key columns used for lookups.
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. ":memory:" is accepted.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: SQLite has a single writer and ":memory:" is per connection.
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS observation_columns (
			pos  INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS observations (
			line      INTEGER PRIMARY KEY,
			city_name TEXT NOT NULL,
			date      TEXT NOT NULL,
			data      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_observations_city_date ON observations(city_name, date)`,
	}
	for _, stmt := range stmts {
		if _, err := s.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Load replaces every stored row in a single transaction.
func (s *SQLiteStore) Load(columns []string, rows [][]string) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM observations`); err != nil {
		return fmt.Errorf("clear observations: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM observation_columns`); err != nil {
		return fmt.Errorf("clear columns: %w", err)
	}

	for i, c := range columns {
		if _, err := tx.Exec(`INSERT INTO observation_columns (pos, name) VALUES (?, ?)`, i, c); err != nil {
			return fmt.Errorf("insert column %q: %w", c, err)
		}
	}

	stmt, err := tx.Prepare(`INSERT INTO observations (line, city_name, date, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, obs := range toObservations(columns, rows) {
		data, err := json.Marshal(obs.Values)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(obs.Line, obs.City(), obs.Date(), string(data)); err != nil {
			return fmt.Errorf("insert line %d: %w", obs.Line, err)
		}
	}

	return tx.Commit()
}

// Columns returns the aggregate header in order.
func (s *SQLiteStore) Columns() ([]string, error) {
	rows, err := s.conn.Query(`SELECT name FROM observation_columns ORDER BY pos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// Get returns every observation for city on date.
func (s *SQLiteStore) Get(city, date string) ([]Observation, error) {
	return s.Range(city, date, date)
}

// Range returns all observations for city between from and to (inclusive).
func (s *SQLiteStore) Range(city, from, to string) ([]Observation, error) {
	rows, err := s.conn.Query(
		`SELECT line, data FROM observations
		 WHERE city_name = ? AND date >= ? AND date <= ?
		 ORDER BY date, line`,
		city, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Observation
	for rows.Next() {
		var (
			obs  Observation
			data string
		)
		if err := rows.Scan(&obs.Line, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &obs.Values); err != nil {
			return nil, fmt.Errorf("decode line %d: %w", obs.Line, err)
		}
		result = append(result, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
