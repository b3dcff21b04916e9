// Package session owns the client's only durable local state: stored
// identities (bearer tokens), the active selection, per-room favorites, the
// holdings sort preference, and last-read marks. Everything else is rebuilt
// from the remote API on load.
package session

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ahitposter/Brovado/internal/models"
)

type Store struct {
	conn *sql.DB
}

// Open opens (creating if needed) the local store at path. Use ":memory:"
// in tests.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	// WAL lets the TUI read while the feed writes read marks.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := conn.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS identities (
		address TEXT PRIMARY KEY,
		token TEXT NOT NULL,
		display_name TEXT,
		avatar_url TEXT,
		expires_at INTEGER NOT NULL DEFAULT 0,
		added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS favorites (
		address TEXT NOT NULL,
		chat_room_id TEXT NOT NULL,
		PRIMARY KEY (address, chat_room_id)
	);

	CREATE TABLE IF NOT EXISTS read_marks (
		address TEXT NOT NULL,
		chat_room_id TEXT NOT NULL,
		last_read INTEGER NOT NULL,
		PRIMARY KEY (address, chat_room_id)
	);

	CREATE INDEX IF NOT EXISTS idx_favorites_address ON favorites(address);
	CREATE INDEX IF NOT EXISTS idx_read_marks_address ON read_marks(address);
	`

	_, err := s.conn.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// SaveIdentity inserts or replaces an identity keyed by address.
func (s *Store) SaveIdentity(id models.Identity) error {
	if id.Address == "" || id.Token == "" {
		return fmt.Errorf("identity requires address and token")
	}
	_, err := s.conn.Exec(`
		INSERT INTO identities (address, token, display_name, avatar_url, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			token = excluded.token,
			display_name = excluded.display_name,
			avatar_url = excluded.avatar_url,
			expires_at = excluded.expires_at
	`, id.Address, id.Token, id.DisplayName, id.AvatarURL, id.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	return nil
}

// DeleteIdentity removes a stored identity and its per-room state. If it was
// the active selection, the selection is cleared.
func (s *Store) DeleteIdentity(address string) error {
	if _, err := s.conn.Exec("DELETE FROM identities WHERE address = ?", address); err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	s.conn.Exec("DELETE FROM favorites WHERE address = ?", address)
	s.conn.Exec("DELETE FROM read_marks WHERE address = ?", address)

	if active, ok, _ := s.Active(); ok && active.Address == address {
		s.conn.Exec("DELETE FROM preferences WHERE key = 'active_identity'")
	}
	return nil
}

// Identities returns all stored identities, newest first. Rows that no
// longer parse are skipped, not fatal: missing or malformed local state
// reads as absent.
func (s *Store) Identities() ([]models.Identity, error) {
	rows, err := s.conn.Query(`
		SELECT address, token, display_name, avatar_url, expires_at
		FROM identities ORDER BY added_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer rows.Close()

	var out []models.Identity
	for rows.Next() {
		var id models.Identity
		var displayName, avatarURL sql.NullString
		var expiresAt int64
		if err := rows.Scan(&id.Address, &id.Token, &displayName, &avatarURL, &expiresAt); err != nil {
			continue
		}
		if id.Address == "" || id.Token == "" {
			continue
		}
		id.DisplayName = displayName.String
		id.AvatarURL = avatarURL.String
		if expiresAt > 0 {
			id.ExpiresAt = time.UnixMilli(expiresAt)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SetActive pins the active identity selection.
func (s *Store) SetActive(address string) error {
	return s.setPreference("active_identity", address)
}

// Active returns the active identity, if one is stored and still present.
func (s *Store) Active() (models.Identity, bool, error) {
	address, err := s.preference("active_identity")
	if err != nil || address == "" {
		return models.Identity{}, false, err
	}

	ids, err := s.Identities()
	if err != nil {
		return models.Identity{}, false, err
	}
	for _, id := range ids {
		if id.Address == address {
			return id, true, nil
		}
	}
	return models.Identity{}, false, nil
}

// SetSortPreference stores the holdings sort order.
func (s *Store) SetSortPreference(pref string) error {
	return s.setPreference("holdings_sort", pref)
}

// SortPreference returns the stored holdings sort order, empty if unset.
func (s *Store) SortPreference() string {
	value, _ := s.preference("holdings_sort")
	return value
}

func (s *Store) setPreference(key, value string) error {
	_, err := s.conn.Exec(`
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save preference %s: %w", key, err)
	}
	return nil
}

func (s *Store) preference(key string) (string, error) {
	var value string
	err := s.conn.QueryRow("SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, nil
}

// ToggleFavorite flips the favorite flag for one room under one identity and
// returns the new state.
func (s *Store) ToggleFavorite(address, chatRoomID string) (bool, error) {
	res, err := s.conn.Exec(
		"DELETE FROM favorites WHERE address = ? AND chat_room_id = ?",
		address, chatRoomID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to toggle favorite: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}

	_, err = s.conn.Exec(
		"INSERT INTO favorites (address, chat_room_id) VALUES (?, ?)",
		address, chatRoomID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to toggle favorite: %w", err)
	}
	return true, nil
}

// Favorites returns the favorite room set for one identity.
func (s *Store) Favorites(address string) (map[string]bool, error) {
	rows, err := s.conn.Query("SELECT chat_room_id FROM favorites WHERE address = ?", address)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var room string
		if err := rows.Scan(&room); err != nil {
			continue
		}
		out[room] = true
	}
	return out, rows.Err()
}

// MarkRead records the last-read timestamp for one room. Marks only move
// forward.
func (s *Store) MarkRead(address, chatRoomID string, ts int64) error {
	_, err := s.conn.Exec(`
		INSERT INTO read_marks (address, chat_room_id, last_read) VALUES (?, ?, ?)
		ON CONFLICT(address, chat_room_id) DO UPDATE SET
			last_read = MAX(last_read, excluded.last_read)
	`, address, chatRoomID, ts)
	if err != nil {
		return fmt.Errorf("failed to mark read: %w", err)
	}
	return nil
}

// ReadMarks returns all last-read timestamps for one identity.
func (s *Store) ReadMarks(address string) (map[string]int64, error) {
	rows, err := s.conn.Query("SELECT chat_room_id, last_read FROM read_marks WHERE address = ?", address)
	if err != nil {
		return nil, fmt.Errorf("failed to list read marks: %w", err)
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var room string
		var ts int64
		if err := rows.Scan(&room, &ts); err != nil {
			continue
		}
		out[room] = ts
	}
	return out, rows.Err()
}
