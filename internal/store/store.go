package store

import "database/sql"

// Store provides access to all journal repositories.
type Store struct {
	db       *sql.DB
	sessions *SessionStore
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:       db,
		sessions: NewSessionStore(db),
	}
}

func (s *Store) Sessions() *SessionStore {
	return s.sessions
}

func (s *Store) Close() error {
	return s.db.Close()
}
