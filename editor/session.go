// Package editor buffers in-progress post edits and saves them after a quiet
// period, the way the admin editor autosaves drafts.
package editor

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/folio/document"
)

// DefaultDelay is the quiet period before an autosave.
const DefaultDelay = 2 * time.Second

const defaultSaveTimeout = 30 * time.Second

// State is the autosave state of a session.
type State int

const (
	Idle State = iota
	Dirty
	Saving
	Saved
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	case Saved:
		return "saved"
	}
	return "unknown"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Draft is the editable part of a post.
type Draft struct {
	PostID    string            `json:"id"`
	Slug      string            `json:"slug"`
	Title     string            `json:"title"`
	Content   document.Document `json:"content"`
	Tags      []string          `json:"tags"`
	Published bool              `json:"published"`
}

// Saver persists a draft. Each call replaces the stored post wholesale.
type Saver interface {
	SaveDraft(ctx context.Context, d Draft) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, d Draft) error

func (f SaverFunc) SaveDraft(ctx context.Context, d Draft) error { return f(ctx, d) }

// Timer is the part of *time.Timer a session uses.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. The default is time.AfterFunc.
type Scheduler func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Session.
type Option func(*Session)

// WithDelay sets the autosave quiet period.
func WithDelay(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithScheduler replaces time.AfterFunc, mainly for tests.
func WithScheduler(fn Scheduler) Option {
	return func(s *Session) {
		if fn != nil {
			s.schedule = fn
		}
	}
}

// WithSaveTimeout bounds each background save.
func WithSaveTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.saveTimeout = d
		}
	}
}

// Session holds one post's draft and its autosave state. It is safe for
// concurrent use.
type Session struct {
	saver       Saver
	delay       time.Duration
	saveTimeout time.Duration
	schedule    Scheduler

	mu      sync.Mutex
	draft   Draft
	state   State
	gen     uint64 // bumped by Load of another post; stale saves are dropped
	edited  bool   // mutated while a save was in flight
	timer   Timer
	done    chan struct{} // closed when the in-flight save lands
	lastErr error
	savedAt time.Time
}

// NewSession returns an idle session around saver.
func NewSession(saver Saver, opts ...Option) *Session {
	s := &Session{
		saver:       saver,
		delay:       DefaultDelay,
		saveTimeout: defaultSaveTimeout,
		schedule:    afterFunc,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load installs d as the session's draft. A different post resets the whole
// session. The same post coming back from the server is ignored while there
// are unsaved or in-flight edits, so typing is never clobbered. Load reports
// whether d was applied.
func (s *Session) Load(d Draft) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.PostID != "" && d.PostID == s.draft.PostID {
		if s.state == Dirty || s.state == Saving {
			return false
		}
		s.draft = d
		return true
	}

	s.stopTimer()
	s.gen++
	s.draft = d
	s.state = Idle
	s.edited = false
	s.lastErr = nil
	s.savedAt = time.Time{}
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	return true
}

// SetTitle replaces the title.
func (s *Session) SetTitle(title string) {
	s.mutate(func(d *Draft) { d.Title = title })
}

// SetContent replaces the document wholesale.
func (s *Session) SetContent(doc document.Document) {
	s.mutate(func(d *Draft) { d.Content = doc })
}

// SetTags replaces the tag set.
func (s *Session) SetTags(tags []string) {
	s.mutate(func(d *Draft) { d.Tags = append([]string(nil), tags...) })
}

// SetPublished toggles the published flag.
func (s *Session) SetPublished(published bool) {
	s.mutate(func(d *Draft) { d.Published = published })
}

// InsertImage inserts an image block before position index. Out of range
// indexes append.
func (s *Session) InsertImage(index int, src, alt string) {
	s.mutate(func(d *Draft) {
		blocks := d.Content.Content
		if index < 0 || index > len(blocks) {
			index = len(blocks)
		}
		next := make([]document.Block, 0, len(blocks)+1)
		next = append(next, blocks[:index]...)
		next = append(next, document.Image{Src: src, Alt: alt})
		next = append(next, blocks[index:]...)
		d.Content = document.Document{Content: next}
	})
}

func (s *Session) mutate(fn func(*Draft)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.draft)
	if s.state == Saving {
		s.edited = true
		return
	}
	s.state = Dirty
	s.reschedule()
}

// reschedule restarts the quiet period. Callers hold mu.
func (s *Session) reschedule() {
	s.stopTimer()
	gen := s.gen
	s.timer = s.schedule(s.delay, func() { s.autosave(gen) })
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) autosave(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.state != Dirty {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	snap := s.begin()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()
	s.finish(gen, s.saver.SaveDraft(ctx, snap))
}

// begin moves to Saving and returns the draft to save. Callers hold mu.
func (s *Session) begin() Draft {
	s.state = Saving
	s.edited = false
	s.done = make(chan struct{})
	snap := s.draft
	snap.Tags = append([]string(nil), s.draft.Tags...)
	return snap
}

func (s *Session) finish(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	s.lastErr = err
	if err != nil || s.edited {
		s.edited = false
		s.state = Dirty
		s.reschedule()
		return
	}
	s.state = Saved
	s.savedAt = time.Now()
}

// Flush saves the draft now, waiting for any in-flight save first. It
// returns the save error; on failure the session stays Dirty and autosave
// retries.
func (s *Session) Flush(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.state != Saving {
			break
		}
		done := s.done
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.stopTimer()
	gen := s.gen
	snap := s.begin()
	s.mu.Unlock()

	err := s.saver.SaveDraft(ctx, snap)
	s.finish(gen, err)
	return err
}

// Draft returns a copy of the current draft.
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.draft
	d.Tags = append([]string(nil), s.draft.Tags...)
	return d
}

// Status is a point-in-time view of a session.
type Status struct {
	State   State     `json:"state"`
	Error   string    `json:"error,omitempty"`
	SavedAt time.Time `json:"savedAt,omitzero"`
}

// Status reports the autosave state and the last save error, if any.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{State: s.state, SavedAt: s.savedAt}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	return st
}

// Close stops the pending autosave, if any. Unsaved edits are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimer()
}
