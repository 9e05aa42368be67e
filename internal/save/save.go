// Copyright 2026 The Nobody Authors
// SPDX-License-Identifier: MIT

// Package save persists slot-based game snapshots in SQLite.
package save

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Version is the save format version written by this build.
const Version = "1"

// ErrNotFound means the requested slot holds no save.
var ErrNotFound = errors.New("save not found")

// SaveData is the payload stored in a slot.
type SaveData struct {
	Version    string          `json:"version"`
	PlayerName string          `json:"player_name"`
	PlayerAge  int             `json:"player_age"`
	Snapshot   json.RawMessage `json:"snapshot"`
}

// NewSaveData builds a current-version SaveData with the snapshot
// serialized to JSON.
func NewSaveData(playerName string, playerAge int, snapshot any) (SaveData, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return SaveData{}, fmt.Errorf("serialize snapshot: %w", err)
	}
	return SaveData{
		Version:    Version,
		PlayerName: playerName,
		PlayerAge:  playerAge,
		Snapshot:   raw,
	}, nil
}

func (d SaveData) validate() error {
	if d.Version == "" {
		return errors.New("save data version is empty")
	}
	if d.Version != Version {
		return fmt.Errorf("incompatible save version: %s, expected %s", d.Version, Version)
	}
	if d.PlayerName == "" {
		return errors.New("player name is empty in save data")
	}
	return nil
}

// SaveInfo is per-slot metadata.
type SaveInfo struct {
	Slot       int
	SaveID     string
	Version    string
	CreatedAt  time.Time
	PlayerName string
	PlayerAge  int
}

const createSavesTable = `
CREATE TABLE IF NOT EXISTS saves (
	slot INTEGER PRIMARY KEY,
	save_id TEXT NOT NULL,
	version TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	player_name TEXT NOT NULL,
	player_age INTEGER NOT NULL,
	snapshot BLOB NOT NULL
);
`

// Store is a slot-based save store backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the save database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open save db: %w", err)
	}
	if _, err := db.Exec(createSavesTable); err != nil {
		db.Close() //nolint:errcheck // open already failed
		return nil, fmt.Errorf("migrate save db: %w", err)
	}
	return &Store{db: db}, nil
}

// Save writes data into slot, replacing any previous save there. Each
// write gets a fresh save id.
func (s *Store) Save(slot int, data SaveData) error {
	if err := data.validate(); err != nil {
		return err
	}

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO saves (slot, save_id, version, created_at, player_name, player_age, snapshot)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		slot, uuid.NewString(), data.Version, time.Now().UTC(),
		data.PlayerName, data.PlayerAge, []byte(data.Snapshot),
	)
	if err != nil {
		return fmt.Errorf("save slot %d: %w", slot, err)
	}
	return nil
}

// Load reads the save in slot and validates it.
func (s *Store) Load(slot int) (*SaveData, error) {
	var data SaveData
	var snapshot []byte
	err := s.db.QueryRow(
		`SELECT version, player_name, player_age, snapshot FROM saves WHERE slot = ?`, slot,
	).Scan(&data.Version, &data.PlayerName, &data.PlayerAge, &snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: slot %d", ErrNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("load slot %d: %w", slot, err)
	}

	data.Snapshot = snapshot
	if err := data.validate(); err != nil {
		return nil, err
	}
	return &data, nil
}

// List returns metadata for every occupied slot, ordered by slot.
func (s *Store) List() ([]SaveInfo, error) {
	rows, err := s.db.Query(
		`SELECT slot, save_id, version, created_at, player_name, player_age
		 FROM saves ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var infos []SaveInfo
	for rows.Next() {
		var info SaveInfo
		if err := rows.Scan(&info.Slot, &info.SaveID, &info.Version,
			&info.CreatedAt, &info.PlayerName, &info.PlayerAge); err != nil {
			return nil, fmt.Errorf("scan save row: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes the save in slot.
func (s *Store) Delete(slot int) error {
	res, err := s.db.Exec(`DELETE FROM saves WHERE slot = ?`, slot)
	if err != nil {
		return fmt.Errorf("delete slot %d: %w", slot, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: slot %d", ErrNotFound, slot)
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
