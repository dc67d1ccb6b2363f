package lsp

import (
	"context"
	"sync"

	"github.com/unkn0wn-root/httpoutline/internal/session"
)

// Overlay serves open editor buffers and falls back to another reader for
// files the editor has not opened.
type Overlay struct {
	mu       sync.RWMutex
	docs     map[string]document
	fallback session.Reader
}

type document struct {
	version int32
	text    string
}

func NewOverlay(fallback session.Reader) *Overlay {
	return &Overlay{docs: make(map[string]document), fallback: fallback}
}

func (o *Overlay) Open(path string, version int32, text string) {
	o.mu.Lock()
	o.docs[path] = document{version: version, text: text}
	o.mu.Unlock()
}

// Update replaces the buffer unless version is older than the stored one.
func (o *Overlay) Update(path string, version int32, text string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cur, ok := o.docs[path]; ok && version != 0 && version < cur.version {
		return false
	}
	o.docs[path] = document{version: version, text: text}
	return true
}

func (o *Overlay) Close(path string) {
	o.mu.Lock()
	delete(o.docs, path)
	o.mu.Unlock()
}

func (o *Overlay) Has(path string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.docs[path]
	return ok
}

func (o *Overlay) ReadFile(ctx context.Context, path string) (string, error) {
	o.mu.RLock()
	doc, ok := o.docs[path]
	o.mu.RUnlock()
	if ok {
		return doc.text, nil
	}
	return o.fallback.ReadFile(ctx, path)
}
