package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrEmptyQuestion is returned when adding an entry without a question.
	ErrEmptyQuestion = errors.New("knowledge: question cannot be empty")
	// ErrEmptyAnswer is returned when adding an entry without an answer.
	ErrEmptyAnswer = errors.New("knowledge: answer cannot be empty")
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("knowledge: unknown backend")
	// ErrUnreadable is returned by Load when the backend could not be read.
	ErrUnreadable = errors.New("knowledge: store unreadable")
)

// Backend is the durable storage under a Store.
type Backend interface {
	// Read returns the persisted knowledge base. A backend that has never been
	// written returns an empty base and no error.
	Read(ctx context.Context) (*KnowledgeBase, error)

	// Write replaces the persisted knowledge base with kb.
	Write(ctx context.Context, kb *KnowledgeBase) error

	// Name identifies the backend in logs.
	Name() string

	Close() error
}

// Options selects and configures a backend for Open.
type Options struct {
	Backend    string // "json" or "sqlite"
	Path       string
	MaxRetries int
	RetryDelay time.Duration
}

// Open builds the backend described by opts and wraps it in a Store.
func Open(opts Options) (*Store, error) {
	policy := RetryPolicy{MaxRetries: uint64(max(opts.MaxRetries, 0)), BaseDelay: opts.RetryDelay}

	switch strings.ToLower(opts.Backend) {
	case "", "json":
		return NewStore(NewFileStore(opts.Path, policy)), nil
	case "sqlite":
		backend, err := NewSQLiteStore(opts.Path, policy)
		if err != nil {
			return nil, err
		}
		return NewStore(backend), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, opts.Backend)
	}
}

// Store is the in-memory knowledge base with write-through persistence.
// It is loaded once and then mutated only by Add (or replaced by Save).
//
// Add holds a mutex across the mutation and the flush. A single-session
// assistant never contends on it; a multi-session deployment would replace
// it with a transactional backend guard.
type Store struct {
	backend Backend

	mu sync.Mutex
	kb *KnowledgeBase
}

// NewStore wraps backend. The store is empty until Load is called.
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		kb:      NewKnowledgeBase(),
	}
}

// Load reads the backend into memory and returns a snapshot. A missing
// store is an empty base. An unreadable store is also loaded as an empty
// base, which is returned together with an ErrUnreadable error; the store
// stays usable and the next write replaces the unreadable data.
func (s *Store) Load(ctx context.Context) (*KnowledgeBase, error) {
	kb, readErr := s.backend.Read(ctx)
	var err error
	if readErr != nil {
		log.Error().Err(readErr).Str("backend", s.backend.Name()).Msg("knowledge store unreadable, starting with empty knowledge base")
		kb = NewKnowledgeBase()
		err = fmt.Errorf("%w: %w", ErrUnreadable, readErr)
	}

	s.mu.Lock()
	s.kb = kb
	s.mu.Unlock()

	log.Info().Str("backend", s.backend.Name()).Int("entries", kb.Len()).Msg("knowledge base loaded")
	return kb.Clone(), err
}

// Save replaces the in-memory base with kb and overwrites the backend.
func (s *Store) Save(ctx context.Context, kb *KnowledgeBase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := kb.Clone()
	if err := s.backend.Write(ctx, next); err != nil {
		return fmt.Errorf("save knowledge base: %w", err)
	}
	s.kb = next
	return nil
}

// Add inserts or overwrites the answer for question and persists before
// returning. If the write fails the in-memory change is rolled back, so a
// question is never answerable in this session yet missing after restart.
func (s *Store) Add(ctx context.Context, question, answer string) error {
	if strings.TrimSpace(question) == "" {
		return ErrEmptyQuestion
	}
	if strings.TrimSpace(answer) == "" {
		return ErrEmptyAnswer
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.kb.Set(question, answer)
	if err := s.backend.Write(ctx, s.kb); err != nil {
		if existed {
			s.kb.Set(question, previous)
		} else {
			s.kb.remove(question)
		}
		log.Error().Err(err).Str("question", question).Msg("failed to persist learned answer, rolled back")
		return fmt.Errorf("persist %q: %w", question, err)
	}

	log.Debug().Str("question", question).Bool("overwrite", existed).Msg("knowledge entry saved")
	return nil
}

// Answer returns the stored answer for an exact question.
func (s *Store) Answer(question string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kb.Get(question)
}

// Snapshot returns a copy of the current knowledge base.
func (s *Store) Snapshot() *KnowledgeBase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kb.Clone()
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kb.Len()
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
