package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"memebid-service/internal/domain/meme"
	"memebid-service/internal/domain/shared"

	"github.com/google/uuid"
)

// Seed is the JSON document accepted by LoadSeed
type Seed struct {
	Users []shared.User `json:"users"`
	Memes []meme.Meme   `json:"memes"`
}

// LoadSeedFile loads the seed document at path
func (s *Store) LoadSeedFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	return s.LoadSeed(f)
}

// LoadSeed adds every user and meme in the document. Nothing is stored if any entry is invalid.
func (s *Store) LoadSeed(r io.Reader) error {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("failed to decode seed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[uuid.UUID]bool, len(s.users)+len(seed.Users))
	for id := range s.users {
		known[id] = true
	}
	for i, u := range seed.Users {
		if u.ID == uuid.Nil || u.Username == "" {
			return fmt.Errorf("seed user %d needs an id and a username", i)
		}
		if u.WalletBalance.IsNegative() {
			return fmt.Errorf("seed user %s has a negative wallet balance", u.Username)
		}
		known[u.ID] = true
	}
	for i, m := range seed.Memes {
		if m.ID == uuid.Nil {
			return fmt.Errorf("seed meme %d needs an id", i)
		}
		if !known[m.CreatorID] || !known[m.OwnerID] {
			return fmt.Errorf("seed meme %s: %w", m.ID, shared.ErrUserNotFound)
		}
	}

	now := time.Now().UTC()
	for _, u := range seed.Users {
		s.users[u.ID] = u
	}
	for _, m := range seed.Memes {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		s.memes[m.ID] = m
	}
	return nil
}
