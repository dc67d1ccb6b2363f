package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/unkn0wn-root/httpoutline/internal/errdef"
	"github.com/unkn0wn-root/httpoutline/internal/filesvc"
	"github.com/unkn0wn-root/httpoutline/internal/outline"
	"github.com/unkn0wn-root/httpoutline/internal/restfile"
	"github.com/unkn0wn-root/httpoutline/internal/session"
	"github.com/unkn0wn-root/httpoutline/internal/telemetry"
	"github.com/unkn0wn-root/httpoutline/internal/theme"
	"github.com/unkn0wn-root/httpoutline/internal/ui/navigator"
	"github.com/unkn0wn-root/httpoutline/internal/ui/scroll"
	"github.com/unkn0wn-root/httpoutline/internal/watcher"
)

var _ tea.Model = (*Model)(nil)

const (
	defaultSidebarRatio = 0.3
	msgBuffer           = 32
)

type Options struct {
	Path      string
	Reader    session.Reader
	Display   outline.Display
	Debounce  time.Duration
	Telemetry telemetry.Instrumenter
	// Watcher, when set, turns on-disk changes into save events.
	Watcher      *watcher.Watcher
	Theme        *theme.Theme
	SidebarWidth float64
	// Styled enables syntax highlighting in the source pane.
	Styled bool
	Copy   func(string) error
}

type statusLevel int

const (
	statusInfo statusLevel = iota
	statusWarn
	statusError
)

type statusMsg struct {
	text  string
	level statusLevel
}

type outlineChangedMsg struct{}

type loadedMsg struct {
	err error
}

// Model is the outline sidebar next to a read-only source pane.
type Model struct {
	path   string
	reader session.Reader
	sess   *session.Session
	watch  *watcher.Watcher
	th     theme.Theme
	keys   keyMap
	copy   func(string) error
	styled bool

	nav       *navigator.Model[*outline.Node]
	source    viewport.Model
	filter    textinput.Model
	filtering bool
	lines     []string
	mark      restfile.Range
	status    statusMsg

	width        int
	height       int
	sidebarRatio float64

	msgs  chan tea.Msg
	unsub func()
}

func New(opts Options) *Model {
	if opts.Reader == nil {
		opts.Reader = filesvc.Disk{}
	}
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	th := theme.DefaultTheme()
	if opts.Theme != nil {
		th = *opts.Theme
	}
	if opts.SidebarWidth <= 0 || opts.SidebarWidth >= 1 {
		opts.SidebarWidth = defaultSidebarRatio
	}

	filter := textinput.New()
	filter.Prompt = "/"
	filter.Placeholder = "filter"

	m := &Model{
		path:         opts.Path,
		reader:       opts.Reader,
		watch:        opts.Watcher,
		th:           th,
		keys:         defaultKeys(),
		copy:         opts.Copy,
		styled:       opts.Styled,
		nav:          navigator.New[*outline.Node](nil),
		source:       viewport.New(0, 0),
		filter:       filter,
		sidebarRatio: opts.SidebarWidth,
		msgs:         make(chan tea.Msg, msgBuffer),
	}
	m.sess = session.New(session.Options{
		Reader:    opts.Reader,
		Display:   opts.Display,
		Debounce:  opts.Debounce,
		Telemetry: opts.Telemetry,
		OnError: func(err error) {
			m.emit(statusMsg{text: errdef.Message(err), level: statusError})
		},
	})
	m.unsub = m.sess.Subscribe(func() { m.emit(outlineChangedMsg{}) })
	return m
}

// Load builds the outline of the configured file.
func (m *Model) Load(ctx context.Context) error {
	if err := m.sess.Handle(ctx, session.ActiveFileChanged(m.path)); err != nil {
		return err
	}
	m.syncOutline()
	return nil
}

func (m *Model) Close() {
	m.unsub()
	m.sess.Close()
	if m.watch != nil {
		m.watch.Stop()
	}
}

func (m *Model) Init() tea.Cmd {
	m.startWatcher()
	return tea.Batch(m.loadCmd(), m.waitMsg())
}

func (m *Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		err := m.sess.Handle(context.Background(), session.ActiveFileChanged(m.path))
		return loadedMsg{err: err}
	}
}

func (m *Model) waitMsg() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.msgs
		if !ok {
			return nil
		}
		return msg
	}
}

// emit drops the message when the buffer is full; outline changes are
// idempotent and the next one carries the latest state.
func (m *Model) emit(msg tea.Msg) {
	select {
	case m.msgs <- msg:
	default:
	}
}

func (m *Model) startWatcher() {
	if m.watch == nil || m.path == "" {
		return
	}
	if err := m.watch.Track(m.path, nil); err != nil {
		m.emit(statusMsg{text: errdef.Message(err), level: statusWarn})
	}
	m.watch.Start()
	go func() {
		for evt := range m.watch.Events() {
			if evt.Kind == watcher.EventMissing {
				m.emit(statusMsg{
					text:  fmt.Sprintf("%s removed on disk", filepath.Base(evt.Path)),
					level: statusError,
				})
				continue
			}
			// Read failures reach the status bar through OnError.
			_ = m.sess.Handle(context.Background(), session.ContentSaved(m.path))
		}
	}()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil
	case loadedMsg:
		if msg.err != nil {
			m.setStatus(statusError, errdef.Message(msg.err))
		}
		m.syncOutline()
		return m, nil
	case outlineChangedMsg:
		m.syncOutline()
		return m, m.waitMsg()
	case statusMsg:
		m.status = msg
		return m, m.waitMsg()
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.filtering {
		return m.handleFilterKey(msg)
	}
	ctx := context.Background()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Down):
		m.nav.Move(1)
	case key.Matches(msg, m.keys.Up):
		m.nav.Move(-1)
	case key.Matches(msg, m.keys.Top):
		m.nav.SelectFirst()
	case key.Matches(msg, m.keys.Bottom):
		m.nav.SelectLast()
	case key.Matches(msg, m.keys.Toggle):
		m.nav.ToggleExpanded()
	case key.Matches(msg, m.keys.CollapseAll):
		m.nav.CollapseAll()
	case key.Matches(msg, m.keys.ExpandAll):
		m.nav.ExpandAll()
	case key.Matches(msg, m.keys.Reveal):
		m.reveal(ctx)
	case key.Matches(msg, m.keys.Copy):
		m.copySelected()
	case key.Matches(msg, m.keys.Refresh):
		if err := m.sess.Refresh(ctx); err != nil {
			m.setStatus(statusError, errdef.Message(err))
			return nil
		}
		m.syncOutline()
		m.setStatus(statusInfo, "refreshed")
	case key.Matches(msg, m.keys.ToggleMethod):
		d := m.sess.Display()
		d.ShowMethod = !d.ShowMethod
		m.setDisplay(ctx, d)
	case key.Matches(msg, m.keys.ToggleSide):
		d := m.sess.Display()
		if d.Prefix() {
			d.MethodPosition = outline.MethodSuffix
		} else {
			d.MethodPosition = outline.MethodPrefix
		}
		m.setDisplay(ctx, d)
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		return m.filter.Focus()
	}
	return nil
}

func (m *Model) handleFilterKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		return nil
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.nav.SetFilter("")
		return nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.nav.SetFilter(m.filter.Value())
	return cmd
}

func (m *Model) setDisplay(ctx context.Context, d outline.Display) {
	if err := m.sess.SetDisplay(ctx, d); err != nil {
		m.setStatus(statusError, errdef.Message(err))
		return
	}
	m.syncOutline()
	m.setStatus(statusInfo, displayLabel(d))
}

// reveal marks the selected request in the source pane and scrolls to it.
// On a group it folds instead.
func (m *Model) reveal(ctx context.Context) {
	n := m.nav.Selected()
	if n == nil {
		return
	}
	if n.Kind == navigator.KindGroup {
		m.nav.ToggleExpanded()
		return
	}
	rng, ok := m.sess.Reveal(n.ID)
	if !ok {
		m.setStatus(statusWarn, fmt.Sprintf("%s is no longer in the file", n.Title))
		return
	}
	if err := m.sess.Handle(ctx, session.SelectionMoved(m.path, rng.Start)); err != nil {
		m.setStatus(statusError, errdef.Message(err))
		return
	}
	m.mark = rng
	m.renderSource()
	m.source.SetYOffset(scroll.Reveal(rng, m.source.YOffset, m.source.Height, len(m.lines)))
	m.setStatus(statusInfo, fmt.Sprintf("%s  L%d-L%d", n.Title, rng.Start.Line, rng.End.Line))
}

func (m *Model) copySelected() {
	n := m.nav.Selected()
	if n == nil || n.Kind != navigator.KindRequest || n.Data == nil {
		return
	}
	if err := m.copy(n.Data.Content); err != nil {
		m.setStatus(statusError, fmt.Sprintf("copy failed: %v", err))
		return
	}
	m.setStatus(statusInfo, fmt.Sprintf("copied %s", n.Title))
}

// syncOutline pulls the session's current outline into the sidebar and
// reloads the source text.
func (m *Model) syncOutline() {
	o := m.sess.Outline()
	m.nav.SetNodes(navigatorNodes(o))

	if o.Path() != "" {
		text, err := m.reader.ReadFile(context.Background(), o.Path())
		if err != nil {
			m.setStatus(statusError, errdef.Message(err))
		} else {
			m.lines = highlightLines(text, m.styled)
		}
	}

	m.mark = restfile.Range{}
	if n, ok := m.sess.Selected(); ok && !n.IsGroup() {
		m.mark = n.Range
	}
	m.renderSource()
}

func (m *Model) setStatus(level statusLevel, text string) {
	m.status = statusMsg{text: text, level: level}
}

func displayLabel(d outline.Display) string {
	if !d.ShowMethod {
		return "methods hidden"
	}
	if d.Prefix() {
		return "methods as prefix"
	}
	return "methods as suffix"
}
