package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Preference returns the stored value for key and whether it was set.
func (s *Store) Preference(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT pref_value
		FROM preferences
		WHERE pref_key = ?
	`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select preference %q: %w", key, err)
	}
	return value, true, nil
}

// SetPreference upserts a preference value.
func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO preferences (pref_key, pref_value)
		VALUES (?, ?)
		ON CONFLICT (pref_key) DO UPDATE SET pref_value = excluded.pref_value
	`), key, value); err != nil {
		return fmt.Errorf("upsert preference %q: %w", key, err)
	}
	return nil
}

// Preferences returns every stored preference.
func (s *Store) Preferences(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT pref_key, pref_value FROM preferences`)
	if err != nil {
		return nil, fmt.Errorf("select preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		prefs[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preferences: %w", err)
	}
	return prefs, nil
}
