package session

import (
	"fmt"
	"strings"

	"github.com/unkn0wn-root/httpoutline/internal/restfile"
)

type EventKind int

const (
	EventActiveFileChanged EventKind = iota
	EventContentChanged
	EventContentSaved
	EventSelectionMoved
)

var eventNames = map[EventKind]string{
	EventActiveFileChanged: "activeFileChanged",
	EventContentChanged:    "contentChanged",
	EventContentSaved:      "contentSaved",
	EventSelectionMoved:    "selectionMoved",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

func (k EventKind) MarshalText() ([]byte, error) {
	if _, ok := eventNames[k]; !ok {
		return nil, fmt.Errorf("unknown event kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(text []byte) error {
	want := strings.TrimSpace(string(text))
	for kind, name := range eventNames {
		if strings.EqualFold(name, want) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", want)
}

// Event is one editor notification. Position is only read for
// EventSelectionMoved.
type Event struct {
	Kind     EventKind         `json:"kind"`
	Path     string            `json:"path"`
	Position restfile.Position `json:"position"`
}

func ActiveFileChanged(path string) Event {
	return Event{Kind: EventActiveFileChanged, Path: path}
}

func ContentChanged(path string) Event {
	return Event{Kind: EventContentChanged, Path: path}
}

func ContentSaved(path string) Event {
	return Event{Kind: EventContentSaved, Path: path}
}

func SelectionMoved(path string, pos restfile.Position) Event {
	return Event{Kind: EventSelectionMoved, Path: path, Position: pos}
}
