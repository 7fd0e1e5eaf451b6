// Package session persists each user's most recent search result set.
// A new search fully replaces the previous set; downloads may only refer
// to tracks from that latest set.
package session

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"dab-tg-bot/internal/dab"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
}

// Open connects to the SQLite store and runs the embedded schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	// WAL mode so a long search insert doesn't block concurrent lookups
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA cache_size=-2000;"); err != nil {
		return err
	}
	_, err := db.Exec(schema)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

// SaveSearch replaces the user's previous result set in one transaction.
func (s *Store) SaveSearch(userID int64, tracks []dab.Track) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM last_search WHERE user_id = ?", userID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO last_search (user_id, position, track_id, title, artist, album_title, album_cover)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range tracks {
		if _, err := stmt.Exec(userID, i, t.ID.String(), t.Title, t.Artist, t.AlbumTitle, t.AlbumCover); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LastSearch returns the user's most recent result set in search order.
// An empty slice means the user has not searched yet (or found nothing).
func (s *Store) LastSearch(userID int64) ([]dab.Track, error) {
	rows, err := s.db.Query(`
		SELECT track_id, title, artist, album_title, album_cover
		FROM last_search WHERE user_id = ? ORDER BY position`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []dab.Track
	for rows.Next() {
		var t dab.Track
		var id string
		if err := rows.Scan(&id, &t.Title, &t.Artist, &t.AlbumTitle, &t.AlbumCover); err != nil {
			return nil, err
		}
		t.ID = dab.TrackID(id)
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// Find looks up a track by exact id within the user's latest result set.
func (s *Store) Find(userID int64, trackID string) (dab.Track, bool, error) {
	var t dab.Track
	var id string
	err := s.db.QueryRow(`
		SELECT track_id, title, artist, album_title, album_cover
		FROM last_search WHERE user_id = ? AND track_id = ?`, userID, trackID).
		Scan(&id, &t.Title, &t.Artist, &t.AlbumTitle, &t.AlbumCover)
	if err == sql.ErrNoRows {
		return dab.Track{}, false, nil
	}
	if err != nil {
		return dab.Track{}, false, err
	}
	t.ID = dab.TrackID(id)
	return t, true, nil
}
