package session

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/httpoutline/internal/errdef"
	"github.com/unkn0wn-root/httpoutline/internal/outline"
	"github.com/unkn0wn-root/httpoutline/internal/restfile"
)

type memReader struct {
	mu    sync.Mutex
	files map[string]string
	errs  map[string]error
	calls int
	hook  func(call int)
}

func newMemReader(files map[string]string) *memReader {
	return &memReader{files: files, errs: map[string]error{}}
}

func (r *memReader) ReadFile(_ context.Context, path string) (string, error) {
	r.mu.Lock()
	r.calls++
	n := r.calls
	text, ok := r.files[path]
	err := r.errs[path]
	hook := r.hook
	r.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errdef.Wrap(errdef.CodeFilesystem, fs.ErrNotExist, "read %s", path)
	}
	return text, nil
}

func (r *memReader) set(path, text string) {
	r.mu.Lock()
	r.files[path] = text
	r.mu.Unlock()
}

func (r *memReader) fail(path string, err error) {
	r.mu.Lock()
	r.errs[path] = err
	r.mu.Unlock()
}

func (r *memReader) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) timer(i int) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[i]
}

func (c *fakeClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// fire runs the callback even when the timer was stopped, mimicking a
// timer that had already expired when Stop was called.
func (c *fakeClock) fire(i int) {
	t := c.timer(i)
	t.fired = true
	t.f()
}

const usersFile = "###\n# Users\n###\n# List users\nGET /users\n###\nPOST /users\n"

func newTestSession(t *testing.T, r *memReader, clock *fakeClock) (*Session, *int, *[]error) {
	t.Helper()
	var (
		mu      sync.Mutex
		changes int
		errs    []error
	)
	s := New(Options{
		Reader:   r,
		Display:  outline.DefaultDisplay(),
		Debounce: 300 * time.Millisecond,
		Clock:    clock,
		OnError: func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		},
	})
	s.Subscribe(func() {
		mu.Lock()
		changes++
		mu.Unlock()
	})
	t.Cleanup(s.Close)
	return s, &changes, &errs
}

func labels(o *outline.Outline) []string {
	var out []string
	for _, n := range o.Nodes() {
		out = append(out, n.Label)
	}
	return out
}

func TestActiveFileChangedBuildsOutline(t *testing.T) {
	r := newMemReader(map[string]string{"api.http": usersFile})
	s, changes, _ := newTestSession(t, r, &fakeClock{})

	if err := s.Handle(context.Background(), ActiveFileChanged("api.http")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	want := []string{"Users", "List users [GET]", "/users [POST]"}
	if got := labels(s.Outline()); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if *changes != 1 {
		t.Fatalf("expected exactly one change notification, got %d", *changes)
	}
	if s.Current() != "api.http" {
		t.Fatalf("unexpected current path %q", s.Current())
	}
}

func TestNonRequestFileKeepsCurrentOutline(t *testing.T) {
	r := newMemReader(map[string]string{"api.http": usersFile, "notes.txt": "GET /nope"})
	s, changes, _ := newTestSession(t, r, &fakeClock{})
	ctx := context.Background()

	if err := s.Handle(ctx, ActiveFileChanged("notes.txt")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !s.Outline().Empty() {
		t.Fatalf("expected empty outline for non-request file")
	}
	if r.callCount() != 0 {
		t.Fatalf("non-request files must not be read")
	}

	if err := s.Handle(ctx, ActiveFileChanged("api.http")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	before := *changes
	if err := s.Handle(ctx, ActiveFileChanged("README.md")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if s.Current() != "api.http" || s.Outline().Empty() {
		t.Fatalf("expected the request file outline to stay in place")
	}
	if *changes != before {
		t.Fatalf("did not expect a change notification")
	}
}

func TestRebuildOfNonRequestPathIsEmpty(t *testing.T) {
	r := newMemReader(map[string]string{"api.http": usersFile})
	s, _, errs := newTestSession(t, r, &fakeClock{})
	ctx := context.Background()

	if err := s.Rebuild(ctx, "api.http"); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if err := s.Rebuild(ctx, "api.rest"); err != nil {
		t.Fatalf("expected no error for non-request path, got %v", err)
	}
	if !s.Outline().Empty() || s.Outline().Path() != "api.rest" {
		t.Fatalf("expected empty outline for api.rest")
	}
	if len(*errs) != 0 {
		t.Fatalf("unexpected errors %v", *errs)
	}
}

func TestContentChangedIsDebounced(t *testing.T) {
	r := newMemReader(map[string]string{"api.http": usersFile})
	clock := &fakeClock{}
	s, changes, _ := newTestSession(t, r, clock)
	ctx := context.Background()

	if err := s.Handle(ctx, ActiveFileChanged("api.http")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	reads := r.callCount()

	for i := 0; i < 3; i++ {
		if err := s.Handle(ctx, ContentChanged("api.http")); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	if clock.count() != 3 {
		t.Fatalf("expected 3 scheduled tasks, got %d", clock.count())
	}
	if !clock.timer(0).stopped || !clock.timer(1).stopped || clock.timer(2).stopped {
		t.Fatalf("expected earlier tasks to be cancelled explicitly")
	}
	if clock.timer(2).d != 300*time.Millisecond {
		t.Fatalf("unexpected debounce %s", clock.timer(2).d)
	}
	if r.callCount() != reads {
		t.Fatalf("content changes must not read before the debounce fires")
	}

	r.set("api.http", "###\n# Orders\n")
	clock.fire(0)
	clock.fire(1)
	if r.callCount() != reads {
		t.Fatalf("cancelled tasks must not rebuild")
	}
	clock.fire(2)
	if r.callCount() != reads+1 {
		t.Fatalf("expected exactly one read after debounce, got %d", r.callCount()-reads)
	}
	if got := labels(s.Outline()); !reflect.DeepEqual(got, []string{"Orders"}) {
		t.Fatalf("unexpected labels %v", got)
	}
	if *changes != 2 {
		t.Fatalf("expected 2 notifications, got %d", *changes)
	}
}

func TestContentChangedForOtherFileIsIgnored(t *testing.T) {
	r := newMemReader(map[string]string{"a.http": usersFile, "b.http": usersFile})
	clock := &fakeClock{}
	s, _, _ := newTestSession(t, r, clock)
	ctx := context.Background()

	if err := s.Handle(ctx, ActiveFileChanged("a.http")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := s.Handle(ctx, ContentChanged("b.http")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if clock.count() != 0 {
		t.Fatalf("did not expect a scheduled rebuild for an inactive file")
	}
}

func TestSwitchingFilesDropsPendingDebounce(t *testing.T) {
	r := newMemReader(map[string]string{"a.http": usersFile, "b.http": "###\n# B\n"})
	clock := &fakeClock{}
	s, _, _ := newTestSession(t, r, clock)
	ctx := context.Background()

	_ = s.Handle(ctx, ActiveFileChanged("a.http"))
	_ = s.Handle(ctx, ContentChanged("a.http"))
	_ = s.Handle(ctx, ActiveFileChanged("b.http"))
	if !clock.timer(0).stopped {
		t.Fatalf("expected pending debounce to be cancelled on file switch")
	}
	clock.fire(0)
	if got := labels(s.Outline()); !reflect.DeepEqual(got, []string{"B"}) {
		t.Fatalf("expected b.http outline, got %v", got)
	}
}

func TestContentSavedRebuildsImmediately(t *testing.T) {
	r := newMemReader(map[string]string{"api.http": usersFile})
	clock := &fakeClock{}
	s, changes, _ := newTestSession(t, r, clock)
	ctx := context.Background()

	_ = s.Handle(ctx, ActiveFileChanged("api.http"))
	_ = s.Handle(ctx, ContentChanged("api.http"))
	r.set("api.http", "###\nDELETE /users/1\n")
	if err := s.Handle(ctx, ContentSaved("api.http")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !clock.timer(0).stopped {
		t.Fatalf("expected save to cancel the pending debounce")
	}
	if got := labels(s.Outline()); !reflect.DeepEqual(got, []string{"/users/1 [DELETE]"}) {
		t.Fatalf("unexpected labels %v", got)
	}
	if *changes != 2 {
		t.Fatalf("expected 2 notifications, got %d", *changes)
	}
}

func TestContentSavedAdoptsFirstRequestFile(t *testing.T) {
	r := newMemReader(map[string]string{"api.http": usersFile})
	s, _, _ := newTestSession(t, r, &fakeClock{})
	if err := s.Handle(context.Background(), ContentSaved("api.http")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if s.Current() != "api.http" || s.Outline().Empty() {
		t.Fatalf("expected saved file to become current")
	}
}

func TestReadFailureKeepsPriorOutline(t *testing.T) {
	r := newMemReader(map[string]string{"api.http": usersFile})
	s, changes, errs := newTestSession(t, r, &fakeClock{})
	ctx := context.Background()

	_ = s.Handle(ctx, ActiveFileChanged("api.http"))
	prior := s.Outline()

	r.fail("api.http", fs.ErrPermission)
	err := s.Handle(ctx, ContentSaved("api.http"))
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if !errdef.Is(err, errdef.CodeFilesystem) {
		t.Fatalf("expected filesystem code on %v", err)
	}
	if s.Outline() != prior {
		t.Fatalf("expected prior outline to stay in place")
	}
	if *changes != 1 {
		t.Fatalf("failed rebuild must not notify, got %d notifications", *changes)
	}
	if len(*errs) != 1 || errdef.Message((*errs)[0]) != "read api.http: permission denied" {
		t.Fatalf("unexpected reported errors %v", *errs)
	}
}

func TestStaleRebuildIsDropped(t *testing.T) {
	r := newMemReader(map[string]string{"api.http": "###\n# Old\n"})
	s, changes, _ := newTestSession(t, r, &fakeClock{})
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	r.hook = func(call int) {
		if call == 1 {
			close(entered)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() { done <- s.Rebuild(ctx, "api.http") }()
	<-entered

	r.set("api.http", "###\n# New\n")
	if err := s.Rebuild(ctx, "api.http"); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("stale rebuild: %v", err)
	}

	if got := labels(s.Outline()); !reflect.DeepEqual(got, []string{"New"}) {
		t.Fatalf("expected newest outline to win, got %v", got)
	}
	if *changes != 1 {
		t.Fatalf("expected only the newest rebuild to notify, got %d", *changes)
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	r := newMemReader(map[string]string{"api.http": usersFile})
	s, _, _ := newTestSession(t, r, &fakeClock{})
	ctx := context.Background()

	_ = s.Rebuild(ctx, "api.http")
	first, _ := json.Marshal(s.Outline().Document())
	_ = s.Rebuild(ctx, "api.http")
	second, _ := json.Marshal(s.Outline().Document())
	if string(first) != string(second) {
		t.Fatalf("expected identical outlines\n%s\n%s", first, second)
	}
}

func TestSelectionAndReveal(t *testing.T) {
	r := newMemReader(map[string]string{"api.http": usersFile})
	s, _, _ := newTestSession(t, r, &fakeClock{})
	ctx := context.Background()
	_ = s.Handle(ctx, ActiveFileChanged("api.http"))

	if err := s.Handle(ctx, SelectionMoved("api.http", restfile.Position{Line: 5, Column: 2})); err != nil {
		t.Fatalf("handle: %v", err)
	}
	n, ok := s.Selected()
	if !ok || n.Label != "List users [GET]" {
		t.Fatalf("expected selected request, got %+v", n)
	}

	rng, ok := s.Reveal(n.ID)
	if !ok || rng.Start.Line != 3 || rng.End.Line != 5 {
		t.Fatalf("unexpected reveal range %+v", rng)
	}
	if _, ok := s.Reveal("group:1"); ok {
		t.Fatalf("groups must not be revealable")
	}
	if _, ok := s.Reveal("request:404"); ok {
		t.Fatalf("unknown ids must not be revealable")
	}

	_ = s.Handle(ctx, SelectionMoved("other.http", restfile.Position{Line: 1}))
	if _, ok := s.Selected(); !ok {
		t.Fatalf("selection in another file must not reset the current selection")
	}
	_ = s.Handle(ctx, SelectionMoved("api.http", restfile.Position{Line: 99}))
	if _, ok := s.Selected(); ok {
		t.Fatalf("expected no selection past the end of file")
	}
}

func TestSetDisplayRebuildsLabels(t *testing.T) {
	r := newMemReader(map[string]string{"api.http": usersFile})
	s, changes, _ := newTestSession(t, r, &fakeClock{})
	ctx := context.Background()
	_ = s.Handle(ctx, ActiveFileChanged("api.http"))

	if err := s.SetDisplay(ctx, outline.Display{ShowMethod: true, MethodPosition: outline.MethodPrefix}); err != nil {
		t.Fatalf("set display: %v", err)
	}
	want := []string{"Users", "[GET] List users", "[POST] /users"}
	if got := labels(s.Outline()); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if *changes != 2 {
		t.Fatalf("expected a notification for the display change, got %d", *changes)
	}
}

func TestUnsubscribe(t *testing.T) {
	r := newMemReader(map[string]string{"api.http": usersFile})
	s := New(Options{Reader: r, Clock: &fakeClock{}})
	defer s.Close()

	calls := 0
	unsubscribe := s.Subscribe(func() { calls++ })
	_ = s.Rebuild(context.Background(), "api.http")
	unsubscribe()
	unsubscribe()
	_ = s.Rebuild(context.Background(), "api.http")
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestCloseCancelsPendingAndRejectsEvents(t *testing.T) {
	r := newMemReader(map[string]string{"api.http": usersFile})
	clock := &fakeClock{}
	s, _, _ := newTestSession(t, r, clock)
	ctx := context.Background()

	_ = s.Handle(ctx, ActiveFileChanged("api.http"))
	_ = s.Handle(ctx, ContentChanged("api.http"))
	reads := r.callCount()
	s.Close()
	if !clock.timer(0).stopped {
		t.Fatalf("expected pending task to be cancelled")
	}
	clock.fire(0)
	if r.callCount() != reads {
		t.Fatalf("closed session must not rebuild")
	}
	if err := s.Handle(ctx, ContentSaved("api.http")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestEventJSON(t *testing.T) {
	var ev Event
	raw := `{"kind":"selectionMoved","path":"a.http","position":{"line":4,"column":2}}`
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Kind != EventSelectionMoved || ev.Path != "a.http" || ev.Position.Line != 4 {
		t.Fatalf("unexpected event %+v", ev)
	}
	if err := json.Unmarshal([]byte(`{"kind":"exploded"}`), &ev); err == nil {
		t.Fatalf("expected unknown kind error")
	}
	out, err := json.Marshal(ContentSaved("b.http"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"kind":"contentSaved","path":"b.http","position":{"line":0,"column":0}}` {
		t.Fatalf("unexpected json %s", out)
	}
}
