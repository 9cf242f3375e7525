// Package session holds the selection state of one sentence under
// inspection: which words are selected, their resolved candidates, the
// definition chosen for each and any custom draft being edited.
//
// A Session is safe for concurrent use. Resolutions run in their own
// goroutines and land in the session only if the word is still selected
// under the same selection it was started for.
package session

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/valpere/lexipop/internal/logging"
	"github.com/valpere/lexipop/internal/resolver"
)

var (
	ErrClosed           = errors.New("session closed")
	ErrUnknownWord      = errors.New("word is not a token of the sentence")
	ErrNotSelected      = errors.New("word is not selected")
	ErrNotResolved      = errors.New("word has no definitions yet")
	ErrUnknownCandidate = errors.New("definition is not a candidate for this word")
	ErrEmptyDraft       = errors.New("custom definition is empty")
)

type State int

const (
	StateUnselected State = iota
	StatePending
	StateResolved
	StateChosen
)

func (s State) String() string {
	switch s {
	case StateUnselected:
		return "unselected"
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateChosen:
		return "chosen"
	default:
		return "unknown"
	}
}

// Event reports that word entered State.
type Event struct {
	Word  string
	State State
}

// Committed is what the host receives on Commit. Words lists every selected
// word in selection order; Definitions holds only the words with a chosen
// definition.
type Committed struct {
	Sentence    string
	Words       []string
	Definitions map[string]string
}

// Resolver is satisfied by *cache.Cache.
type Resolver interface {
	GetOrResolve(ctx context.Context, word string) resolver.Resolution
}

type wordState struct {
	gen        uint64
	state      State
	resolution resolver.Resolution
	candidates []string
	chosen     string
	draft      string
}

type Session struct {
	sentence string
	tokens   []string
	known    map[string]struct{}
	resolver Resolver
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	autoChoose bool

	mu       sync.Mutex
	closed   bool
	order    []string
	words    map[string]*wordState
	gen      uint64
	updates  chan Event
	inflight int
	idle     chan struct{}
}

type Option func(*Session)

// WithUpdateBuffer sets the capacity of the Updates channel. Default 64.
func WithUpdateBuffer(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.updates = make(chan Event, n)
		}
	}
}

// WithAutoChoose makes a word that resolves to exactly one usable candidate
// go straight to chosen.
func WithAutoChoose() Option {
	return func(s *Session) { s.autoChoose = true }
}

// New opens a session for sentence. Resolutions run under a child of ctx
// that is cancelled when the session closes.
func New(ctx context.Context, sentence string, r Resolver, opts ...Option) *Session {
	tokens := strings.Fields(sentence)
	known := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		known[t] = struct{}{}
	}

	idle := make(chan struct{})
	close(idle)

	s := &Session{
		sentence: sentence,
		tokens:   tokens,
		known:    known,
		resolver: r,
		logger:   logging.Component("session"),
		words:    make(map[string]*wordState),
		updates:  make(chan Event, 64),
		idle:     idle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	return s
}

// Toggle selects an unselected word, starting its resolution, or deselects
// a selected one, discarding its candidates, choice and draft. It returns
// the word's new state.
func (s *Session) Toggle(word string) (State, error) {
	if _, ok := s.known[word]; !ok {
		return StateUnselected, ErrUnknownWord
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return StateUnselected, ErrClosed
	}

	if _, ok := s.words[word]; ok {
		delete(s.words, word)
		s.order = slices.DeleteFunc(s.order, func(w string) bool { return w == word })
		s.emitLocked(Event{Word: word, State: StateUnselected})
		return StateUnselected, nil
	}

	s.gen++
	s.words[word] = &wordState{gen: s.gen, state: StatePending}
	s.order = append(s.order, word)
	s.startLocked()
	s.emitLocked(Event{Word: word, State: StatePending})

	go s.resolve(word, s.gen)
	return StatePending, nil
}

func (s *Session) resolve(word string, gen uint64) {
	defer s.finish()

	res := s.resolver.GetOrResolve(s.ctx, word)

	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.words[word]
	if s.closed || !ok || ws.gen != gen {
		s.logger.Debug().Str("word", word).Msg("dropping stale resolution")
		return
	}

	ws.resolution = res
	ws.candidates = res.Candidates
	ws.state = StateResolved
	if s.autoChoose && !res.Failed() && len(res.Candidates) == 1 {
		ws.chosen = res.Candidates[0]
		ws.state = StateChosen
	}
	s.emitLocked(Event{Word: word, State: ws.state})
}

func (s *Session) startLocked() {
	s.inflight++
	if s.inflight == 1 {
		s.idle = make(chan struct{})
	}
}

func (s *Session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
}

// emitLocked must be called with mu held. Events are dropped when nobody
// keeps up with the channel.
func (s *Session) emitLocked(ev Event) {
	if s.closed {
		return
	}
	select {
	case s.updates <- ev:
	default:
		s.logger.Debug().Str("word", ev.Word).Stringer("state", ev.State).Msg("update dropped")
	}
}

// Choose picks one of word's candidates as its definition.
func (s *Session) Choose(word, candidate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.resolvedLocked(word)
	if err != nil {
		return err
	}
	return s.chooseLocked(word, ws, candidate)
}

// ChooseIndex is Choose by position in Candidates.
func (s *Session) ChooseIndex(word string, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.resolvedLocked(word)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(ws.candidates) {
		return ErrUnknownCandidate
	}
	return s.chooseLocked(word, ws, ws.candidates[i])
}

func (s *Session) chooseLocked(word string, ws *wordState, candidate string) error {
	if !slices.Contains(ws.candidates, candidate) || s.isFailureMessage(ws, candidate) {
		return ErrUnknownCandidate
	}

	ws.chosen = candidate
	ws.state = StateChosen
	s.emitLocked(Event{Word: word, State: StateChosen})
	return nil
}

// isFailureMessage reports whether candidate is the error text of a failed
// resolution, which is shown but cannot be committed.
func (s *Session) isFailureMessage(ws *wordState, candidate string) bool {
	return ws.resolution.Failed() && slices.Contains(ws.resolution.Candidates, candidate)
}

// SetDraft replaces the custom definition being edited for word.
func (s *Session) SetDraft(word, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.selectedLocked(word)
	if err != nil {
		return err
	}
	ws.draft = text
	return nil
}

func (s *Session) Draft(word string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, ok := s.words[word]; ok {
		return ws.draft
	}
	return ""
}

// SaveCustom appends the draft to word's candidates (unless already there),
// chooses it and clears the draft.
func (s *Session) SaveCustom(word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.resolvedLocked(word)
	if err != nil {
		return err
	}
	custom := strings.TrimSpace(ws.draft)
	if custom == "" {
		return ErrEmptyDraft
	}

	if !slices.Contains(ws.candidates, custom) {
		ws.candidates = append(slices.Clip(ws.candidates), custom)
	}
	ws.chosen = custom
	ws.draft = ""
	ws.state = StateChosen
	s.emitLocked(Event{Word: word, State: StateChosen})
	return nil
}

func (s *Session) selectedLocked(word string) (*wordState, error) {
	if s.closed {
		return nil, ErrClosed
	}
	ws, ok := s.words[word]
	if !ok {
		if _, known := s.known[word]; !known {
			return nil, ErrUnknownWord
		}
		return nil, ErrNotSelected
	}
	return ws, nil
}

func (s *Session) resolvedLocked(word string) (*wordState, error) {
	ws, err := s.selectedLocked(word)
	if err != nil {
		return nil, err
	}
	if ws.state == StatePending {
		return nil, ErrNotResolved
	}
	return ws, nil
}

// Commit closes the session and returns the selection.
func (s *Session) Commit() (Committed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Committed{}, ErrClosed
	}

	out := Committed{
		Sentence:    s.sentence,
		Words:       slices.Clone(s.order),
		Definitions: make(map[string]string),
	}
	for _, w := range s.order {
		if ws := s.words[w]; ws.state == StateChosen {
			out.Definitions[w] = ws.chosen
		}
	}

	s.closeLocked()
	s.logger.Debug().Int("words", len(out.Words)).Int("definitions", len(out.Definitions)).Msg("session committed")
	return out, nil
}

// Cancel discards all state and closes the session. Cancelling a closed
// session is a no-op.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closeLocked()
	s.logger.Debug().Msg("session cancelled")
}

func (s *Session) closeLocked() {
	s.closed = true
	s.words = make(map[string]*wordState)
	s.order = nil
	s.cancel()
	close(s.updates)
}

// Updates delivers state changes. The channel is closed with the session.
func (s *Session) Updates() <-chan Event {
	return s.updates
}

// Settle waits until no resolution is in flight or ctx is done.
func (s *Session) Settle(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Sentence() string { return s.sentence }

func (s *Session) Tokens() []string { return slices.Clone(s.tokens) }

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Selected returns the selected words in selection order.
func (s *Session) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

func (s *Session) State(word string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, ok := s.words[word]; ok {
		return ws.state
	}
	return StateUnselected
}

// Candidates returns word's definition set, custom definitions included.
// It is empty while the word is pending or unselected.
func (s *Session) Candidates(word string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, ok := s.words[word]; ok {
		return slices.Clone(ws.candidates)
	}
	return nil
}

func (s *Session) Chosen(word string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, ok := s.words[word]; ok && ws.state == StateChosen {
		return ws.chosen, true
	}
	return "", false
}

// Resolution returns the resolver's result for word once it has landed.
func (s *Session) Resolution(word string) (resolver.Resolution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, ok := s.words[word]; ok && ws.state != StatePending {
		return ws.resolution.Clone(), true
	}
	return resolver.Resolution{}, false
}
