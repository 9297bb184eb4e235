// Package session keeps table state for players who have no server-side
// account: guests, and local CLI play.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/quartz"
	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/fileutil"
	"github.com/lox/blackjack/internal/game"
)

// ErrNotFound is returned by Load when nothing was saved for the user.
var ErrNotFound = errors.New("session: not found")

// Store saves and restores game.State.
type Store interface {
	Load(ctx context.Context, userID string) (game.State, error)
	Save(ctx context.Context, state game.State) error
	// Clear discards saved progress and returns the fresh state, holding
	// the starting bankroll.
	Clear(ctx context.Context, userID string) (game.State, error)
}

func fresh(userID string, starting decimal.Decimal, clock quartz.Clock) game.State {
	return game.State{
		UserID:   userID,
		Bankroll: starting,
		LastBet:  decimal.Zero,
		SavedAt:  clock.Now(),
	}
}

// FileStore keeps one JSON file per user under a directory.
type FileStore struct {
	dir      string
	starting decimal.Decimal
	clock    quartz.Clock
}

// NewFileStore stores sessions under dir. starting is the bankroll Clear
// restores.
func NewFileStore(dir string, starting decimal.Decimal, clock quartz.Clock) *FileStore {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &FileStore{dir: dir, starting: starting, clock: clock}
}

// path hashes the user ID so arbitrary IDs make safe file names.
func (s *FileStore) path(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:16])+".json")
}

func (s *FileStore) Load(_ context.Context, userID string) (game.State, error) {
	data, err := os.ReadFile(s.path(userID))
	if errors.Is(err, os.ErrNotExist) {
		return game.State{}, fmt.Errorf("session for %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return game.State{}, fmt.Errorf("read session: %w", err)
	}
	var state game.State
	if err := json.Unmarshal(data, &state); err != nil {
		return game.State{}, fmt.Errorf("decode session for %s: %w", userID, err)
	}
	if state.UserID != userID {
		return game.State{}, fmt.Errorf("session file belongs to %q, not %q", state.UserID, userID)
	}
	return state, nil
}

func (s *FileStore) Save(_ context.Context, state game.State) error {
	if state.UserID == "" {
		return errors.New("session: state has no user")
	}
	return fileutil.WriteAtomic(s.path(state.UserID), 0o600, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	})
}

func (s *FileStore) Clear(ctx context.Context, userID string) (game.State, error) {
	state := fresh(userID, s.starting, s.clock)
	if err := s.Save(ctx, state); err != nil {
		return game.State{}, err
	}
	return state, nil
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	states   map[string]game.State
	starting decimal.Decimal
	clock    quartz.Clock
}

// NewMemoryStore returns an empty store; starting is the bankroll Clear
// restores.
func NewMemoryStore(starting decimal.Decimal, clock quartz.Clock) *MemoryStore {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &MemoryStore{states: make(map[string]game.State), starting: starting, clock: clock}
}

func (s *MemoryStore) Load(_ context.Context, userID string) (game.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok {
		return game.State{}, fmt.Errorf("session for %s: %w", userID, ErrNotFound)
	}
	return state, nil
}

func (s *MemoryStore) Save(_ context.Context, state game.State) error {
	if state.UserID == "" {
		return errors.New("session: state has no user")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.UserID] = state
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, userID string) (game.State, error) {
	state := fresh(userID, s.starting, s.clock)
	return state, s.Save(ctx, state)
}
