package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/httpoutline/internal/errdef"
	"github.com/unkn0wn-root/httpoutline/internal/filesvc"
	"github.com/unkn0wn-root/httpoutline/internal/outline"
	"github.com/unkn0wn-root/httpoutline/internal/parser"
	"github.com/unkn0wn-root/httpoutline/internal/restfile"
	"github.com/unkn0wn-root/httpoutline/internal/telemetry"
)

const DefaultDebounce = 300 * time.Millisecond

var ErrClosed = errors.New("session closed")

// Reader supplies the current text of a file.
type Reader interface {
	ReadFile(ctx context.Context, path string) (string, error)
}

type Options struct {
	Reader    Reader
	Display   outline.Display
	Debounce  time.Duration
	OnError   func(error)
	Telemetry telemetry.Instrumenter
	Clock     Clock
}

// Session tracks the active request file and keeps its outline current.
// Rebuilds replace the outline wholesale; readers never see a partial one.
type Session struct {
	reader   Reader
	clock    Clock
	tel      telemetry.Instrumenter
	onError  func(error)
	debounce time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	current  string
	display  outline.Display
	pending  Timer
	started  uint64
	applied  uint64
	selected string
	closed   bool

	snapshot atomic.Pointer[outline.Outline]

	subsMu  sync.Mutex
	subs    map[int]func()
	nextSub int
}

func New(opts Options) *Session {
	if opts.Reader == nil {
		opts.Reader = filesvc.Disk{}
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.Noop()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		reader:   opts.Reader,
		clock:    opts.Clock,
		tel:      opts.Telemetry,
		onError:  opts.OnError,
		debounce: opts.Debounce,
		display:  opts.Display,
		ctx:      ctx,
		cancel:   cancel,
		subs:     make(map[int]func()),
	}
	s.snapshot.Store(outline.Empty(""))
	return s
}

// Handle applies one editor event.
func (s *Session) Handle(ctx context.Context, ev Event) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	switch ev.Kind {
	case EventActiveFileChanged:
		if !filesvc.IsRequestFile(ev.Path) {
			// Keep showing the last request file while another kind of
			// file has focus.
			empty := s.current == ""
			s.mu.Unlock()
			if empty {
				return s.rebuild(ctx, ev.Path, ev.Kind)
			}
			return nil
		}
		s.current = ev.Path
		s.cancelPendingLocked()
		s.mu.Unlock()
		return s.rebuild(ctx, ev.Path, ev.Kind)

	case EventContentChanged:
		if ev.Path != s.current || !filesvc.IsRequestFile(ev.Path) {
			s.mu.Unlock()
			return nil
		}
		s.cancelPendingLocked()
		path := ev.Path
		var timer Timer
		timer = s.clock.AfterFunc(s.debounce, func() {
			s.mu.Lock()
			if s.pending != timer || s.closed || s.current != path {
				s.mu.Unlock()
				return
			}
			s.pending = nil
			s.mu.Unlock()
			// Failures reach OnError through report.
			_ = s.rebuild(s.ctx, path, EventContentChanged)
		})
		s.pending = timer
		s.mu.Unlock()
		return nil

	case EventContentSaved:
		if !filesvc.IsRequestFile(ev.Path) {
			s.mu.Unlock()
			return nil
		}
		if s.current == "" {
			s.current = ev.Path
		}
		if ev.Path != s.current {
			s.mu.Unlock()
			return nil
		}
		s.cancelPendingLocked()
		s.mu.Unlock()
		return s.rebuild(ctx, ev.Path, ev.Kind)

	case EventSelectionMoved:
		defer s.mu.Unlock()
		if ev.Path != s.current {
			return nil
		}
		s.selected = ""
		if n, ok := s.Outline().NodeAt(ev.Position); ok {
			s.selected = n.ID
		}
		return nil

	default:
		s.mu.Unlock()
		return errdef.New(errdef.CodeProtocol, "unknown event kind %d", int(ev.Kind))
	}
}

// Rebuild reads path and replaces the outline immediately.
func (s *Session) Rebuild(ctx context.Context, path string) error {
	return s.rebuild(ctx, path, EventContentSaved)
}

// Refresh rebuilds the current file, dropping any pending debounce.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	path := s.current
	s.cancelPendingLocked()
	s.mu.Unlock()
	if path == "" {
		return nil
	}
	return s.rebuild(ctx, path, EventContentSaved)
}

// SetDisplay changes label rendering and rebuilds the current file.
func (s *Session) SetDisplay(ctx context.Context, d outline.Display) error {
	s.mu.Lock()
	s.display = d
	s.mu.Unlock()
	return s.Refresh(ctx)
}

func (s *Session) Display() outline.Display {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Outline returns the latest applied outline. It is never nil.
func (s *Session) Outline() *outline.Outline {
	return s.snapshot.Load()
}

// Selected returns the node under the last reported cursor position.
func (s *Session) Selected() (*outline.Node, bool) {
	s.mu.Lock()
	id := s.selected
	s.mu.Unlock()
	if id == "" {
		return nil, false
	}
	return s.Outline().Find(id)
}

// Reveal returns the source range of a request node.
func (s *Session) Reveal(id string) (restfile.Range, bool) {
	n, ok := s.Outline().Find(id)
	if !ok || n.IsGroup() {
		return restfile.Range{}, false
	}
	return n.Range, true
}

// Subscribe registers fn to run after every applied rebuild. The returned
// func removes it.
func (s *Session) Subscribe(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

// Close cancels any pending debounce. Later events return ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancelPendingLocked()
	s.mu.Unlock()
	s.cancel()
}

func (s *Session) cancelPendingLocked() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

func (s *Session) rebuild(ctx context.Context, path string, trigger EventKind) error {
	s.mu.Lock()
	s.started++
	gen := s.started
	display := s.display
	s.mu.Unlock()

	ctx, span := s.tel.StartRebuild(ctx, telemetry.RebuildStart{
		Path:       path,
		Trigger:    trigger.String(),
		Generation: gen,
	})

	if !filesvc.IsRequestFile(path) {
		applied := s.apply(gen, outline.Empty(path))
		span.End(telemetry.RebuildResult{Stale: !applied})
		return nil
	}

	text, err := s.reader.ReadFile(ctx, path)
	if err != nil {
		if errdef.CodeOf(err) == errdef.CodeUnknown && !errors.Is(err, context.Canceled) {
			err = errdef.Wrap(errdef.CodeFilesystem, err, "read %s", path)
		}
		span.End(telemetry.RebuildResult{Err: err})
		s.report(gen, err)
		return err
	}

	o := outline.Build(path, parser.Parse(text), display)
	applied := s.apply(gen, o)
	groups, requests := o.Counts()
	span.End(telemetry.RebuildResult{
		Groups:   groups,
		Requests: requests,
		Bytes:    len(text),
		Stale:    !applied,
	})
	return nil
}

// apply swaps in o unless a newer rebuild has already been applied.
func (s *Session) apply(gen uint64, o *outline.Outline) bool {
	s.mu.Lock()
	if gen < s.applied {
		s.mu.Unlock()
		return false
	}
	s.applied = gen
	s.snapshot.Store(o)
	if s.selected != "" {
		if _, ok := o.Find(s.selected); !ok {
			s.selected = ""
		}
	}
	s.mu.Unlock()

	s.notify()
	return true
}

func (s *Session) report(gen uint64, err error) {
	s.mu.Lock()
	stale := gen < s.applied
	s.mu.Unlock()
	if stale || s.onError == nil || errors.Is(err, context.Canceled) {
		return
	}
	s.onError(err)
}

func (s *Session) notify() {
	s.subsMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
