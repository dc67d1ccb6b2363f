package watcher

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

type EventKind int

const (
	EventChanged EventKind = iota
	EventMissing
)

func (k EventKind) String() string {
	if k == EventMissing {
		return "missing"
	}
	return "changed"
}

// Fingerprint identifies one observed version of a file.
type Fingerprint struct {
	Mod  time.Time
	Size int64
	Hash string
}

type Event struct {
	Path string
	Kind EventKind
	Prev Fingerprint
	Curr Fingerprint
	Err  error
}

type Options struct {
	Interval time.Duration
	Buffer   int
	// Rehash hashes content on every scan, even when modtime and size match.
	Rehash bool
}

type tracked struct {
	fp      Fingerprint
	missing bool
}

// Watcher polls tracked request files and reports content changes and
// disappearances on a buffered channel. Events are dropped when the
// consumer falls behind; the next scan reports the latest state.
type Watcher struct {
	mu       sync.RWMutex
	files    map[string]tracked
	out      chan Event
	interval time.Duration
	rehash   bool
	stop     chan struct{}
	done     chan struct{}
	closed   bool
}

const (
	defaultInterval = time.Second
	defaultBuffer   = 16
	hashPrefix      = "sha256:"
)

func New(opts Options) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	return &Watcher{
		files:    make(map[string]tracked),
		out:      make(chan Event, opts.Buffer),
		interval: opts.Interval,
		rehash:   opts.Rehash,
	}
}

func (w *Watcher) Events() <-chan Event {
	return w.out
}

// Start begins polling. Calling it more than once is a no-op.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.stop != nil || w.closed {
		w.mu.Unlock()
		return
	}
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	stop, done := w.stop, w.done
	w.mu.Unlock()

	go func() {
		defer close(done)
		t := time.NewTicker(w.interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				w.Scan()
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts polling and closes the event channel.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	stop, done := w.stop, w.done
	w.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	close(w.out)
}

// Track records data as the known content of path. Passing nil reads the
// file from disk.
func (w *Watcher) Track(path string, data []byte) error {
	clean, ok := cleanPath(path)
	if !ok {
		return errors.New("watcher: empty path")
	}
	if data == nil {
		b, err := os.ReadFile(clean)
		if err != nil {
			return err
		}
		data = b
	}
	info, _ := os.Stat(clean)
	fp := fingerprint(info, data)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.files[clean] = tracked{fp: fp}
	}
	return nil
}

func (w *Watcher) Forget(path string) {
	clean, ok := cleanPath(path)
	if !ok {
		return
	}
	w.mu.Lock()
	delete(w.files, clean)
	w.mu.Unlock()
}

// Paths lists tracked files in sorted order.
func (w *Watcher) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	paths := make([]string, 0, len(w.files))
	for p := range w.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Scan checks every tracked file once.
func (w *Watcher) Scan() {
	for _, path := range w.Paths() {
		if evt, ok := w.check(path); ok {
			w.emit(evt)
		}
	}
}

func (w *Watcher) check(path string) (Event, bool) {
	w.mu.RLock()
	prev, ok := w.files[path]
	w.mu.RUnlock()
	if !ok {
		return Event{}, false
	}

	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Event{}, false
		}
		return w.missing(path, prev, err)
	}
	if !w.rehash && !prev.missing &&
		info.ModTime().Equal(prev.fp.Mod) && info.Size() == prev.fp.Size {
		return Event{}, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return w.missing(path, prev, err)
	}
	next := fingerprint(info, data)
	w.store(path, tracked{fp: next})
	if !prev.missing && next.Hash == prev.fp.Hash {
		return Event{}, false
	}
	return Event{Path: path, Kind: EventChanged, Prev: prev.fp, Curr: next}, true
}

func (w *Watcher) missing(path string, prev tracked, err error) (Event, bool) {
	if prev.missing {
		return Event{}, false
	}
	w.store(path, tracked{fp: prev.fp, missing: true})
	return Event{Path: path, Kind: EventMissing, Prev: prev.fp, Err: err}, true
}

func (w *Watcher) store(path string, t tracked) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[path]; ok {
		w.files[path] = t
	}
}

func (w *Watcher) emit(evt Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	select {
	case w.out <- evt:
	default:
	}
}

func cleanPath(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	clean := filepath.Clean(path)
	if clean == "." {
		return "", false
	}
	return clean, true
}

func fingerprint(info fs.FileInfo, data []byte) Fingerprint {
	fp := Fingerprint{Size: int64(len(data)), Hash: Sum(data)}
	if info != nil {
		fp.Mod = info.ModTime()
	}
	return fp
}

// Sum returns the content hash used in fingerprints.
func Sum(data []byte) string {
	if len(data) == 0 {
		return hashPrefix + "0"
	}
	h := sha256.Sum256(data)
	return hashPrefix + hex.EncodeToString(h[:])
}
