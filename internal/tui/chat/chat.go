// Package chat is the terminal chat view: a scroller driven by key and
// mouse input and rendered into rows.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/v2/help"
	"github.com/charmbracelet/bubbles/v2/key"
	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/tloncorp/chatscroller/internal/history"
	"github.com/tloncorp/chatscroller/internal/message"
	"github.com/tloncorp/chatscroller/internal/pubsub"
	"github.com/tloncorp/chatscroller/internal/scroller"
	"github.com/tloncorp/chatscroller/internal/search"
	"github.com/tloncorp/chatscroller/internal/sortkey"
	"github.com/tloncorp/chatscroller/internal/tui/styles"
)

const (
	// ViewportDefaultScrollSize is the number of rows one wheel notch moves.
	ViewportDefaultScrollSize = 2
	// scrollEndDelay is how long after the last scroll input the gesture is
	// considered over.
	scrollEndDelay = 150 * time.Millisecond
	// maxMeasurePasses bounds the measure and sync loop of one update.
	maxMeasurePasses = 3
	searchLimit      = 50
)

// TerminalOptions are the scroller defaults for a terminal, where every
// size is a row.
func TerminalOptions() scroller.Options {
	return scroller.Options{
		Overscan:            6,
		AtEndThreshold:      40,
		ForceScrollCooldown: 300 * time.Millisecond,
		SettleDelay:         500 * time.Millisecond,
		DirectionNoise:      2,
		EstimateSize:        3,
		LoaderPadding:       scroller.Padding{Top: 1, Bottom: 1},
		MomentumSettle:      1,
	}
}

// Source is the history the chat view renders and navigates.
type Source interface {
	scroller.Source
	pubsub.Subscriber[history.Update]
	Start(ctx context.Context) error
	Jump(ctx context.Context, key sortkey.Key) error
	// Wait blocks until in flight page loads finish.
	Wait()
}

type Options struct {
	// Channel is shown in the header and keys the search history.
	Channel  string
	Scroller scroller.Options
	Compact  bool
	DevTools bool
	InThread bool
	// ScrollTo opens the view at this post instead of the newest one.
	ScrollTo *sortkey.Key
	Searches *search.History
	// DataDir is where the search history is saved on quit. Empty disables
	// saving.
	DataDir string
	Clock   scroller.Clock
	Logger  *slog.Logger
}

type promptMode int

const (
	promptNone promptMode = iota
	promptJump
	promptSearch
)

type (
	sourceUpdateMsg struct {
		update history.Update
	}
	scrollEndMsg struct {
		seq int
	}
	forcingDoneMsg struct{}
	jumpedMsg      struct {
		key sortkey.Key
		err error
	}
	reloadedMsg struct {
		err error
	}
	copiedMsg struct {
		err error
	}
)

type Model struct {
	ctx     context.Context
	src     Source
	sub     <-chan pubsub.Event[history.Update]
	sc      *scroller.Scroller
	surface *RowSurface
	rows    *renderer
	logger  *slog.Logger

	keyMap     KeyMap
	promptKeys promptKeys
	help       help.Model
	input      textinput.Model
	prompt     promptMode

	channel  string
	width    int
	height   int
	devTools bool

	frame       scroller.Frame
	scrollSeq   int
	forcingTick time.Time

	searches *search.History
	dataDir  string
	results  []search.Result
	result   int

	status    string
	statusErr bool
}

func New(ctx context.Context, src Source, opts Options) (*Model, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = scroller.SystemClock
	}
	surface := &RowSurface{}
	scOpts := []scroller.Option{
		scroller.WithOptions(opts.Scroller),
		scroller.WithLogger(logger),
		scroller.WithClock(clock),
		scroller.WithInThread(opts.InThread),
		scroller.WithTopMarker(),
	}
	sc, err := scroller.New(src, surface, scOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating scroller: %w", err)
	}
	sc.SetScrollTo(opts.ScrollTo)

	searches := opts.Searches
	if searches == nil {
		searches = search.NewHistory()
	}

	t := styles.CurrentTheme()
	h := help.New()
	h.Styles = t.S().Help

	input := textinput.New()
	input.Prompt = ""

	return &Model{
		ctx:        ctx,
		src:        src,
		sub:        src.Subscribe(ctx),
		sc:         sc,
		surface:    surface,
		rows:       newRenderer(opts.Compact),
		logger:     logger.With("component", "chat"),
		keyMap:     DefaultKeyMap(),
		promptKeys: defaultPromptKeys(),
		help:       h,
		input:      input,
		channel:    opts.Channel,
		devTools:   opts.DevTools,
		searches:   searches,
		dataDir:    opts.DataDir,
	}, nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.listen(), m.sync())
}

// listen waits for the next source update.
func (m *Model) listen() tea.Cmd {
	sub := m.sub
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return nil
		}
		return sourceUpdateMsg{update: ev.Payload}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.rows.setWidth(msg.Width)
		m.input.SetWidth(max(msg.Width-3, 1))
		m.resize()
		return m, m.sync()
	case sourceUpdateMsg:
		if msg.update.Err != nil {
			m.setError(fmt.Errorf("loading posts: %w", msg.update.Err))
		}
		return m, tea.Batch(m.sync(), m.listen())
	case scrollEndMsg:
		if msg.seq != m.scrollSeq {
			return m, nil
		}
		m.sc.OnScroll(scroller.ScrollEvent{Offset: m.surface.ScrollOffset()})
		return m, m.sync()
	case forcingDoneMsg:
		return m, m.sync()
	case jumpedMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("jumping to %s: %w", msg.key, msg.err))
			return m, nil
		}
		key := msg.key
		m.sc.SetScrollTo(&key)
		return m, m.sync()
	case reloadedMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("loading latest posts: %w", msg.err))
		}
		return m, m.sync()
	case copiedMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("copying post: %w", msg.err))
		} else {
			m.setStatus("Copied post to clipboard")
		}
		return m, nil
	case tea.MouseWheelMsg:
		switch msg.Button {
		case tea.MouseWheelDown:
			return m, m.scrollBy(ViewportDefaultScrollSize)
		case tea.MouseWheelUp:
			return m, m.scrollBy(-ViewportDefaultScrollSize)
		}
		return m, nil
	case tea.KeyPressMsg:
		if m.prompt != promptNone {
			return m, m.handlePromptKey(msg)
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	page := max(m.chatHeight()-1, 1)
	m.status = ""
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.saveSearches()
		return tea.Quit
	case key.Matches(msg, m.keyMap.Up):
		return m.scrollBy(-1)
	case key.Matches(msg, m.keyMap.Down):
		return m.scrollBy(1)
	case key.Matches(msg, m.keyMap.PageUp):
		return m.scrollBy(-page)
	case key.Matches(msg, m.keyMap.PageDown):
		return m.scrollBy(page)
	case key.Matches(msg, m.keyMap.HalfPageUp):
		return m.scrollBy(-max(page/2, 1))
	case key.Matches(msg, m.keyMap.HalfPageDown):
		return m.scrollBy(max(page/2, 1))
	case key.Matches(msg, m.keyMap.UpOneItem):
		return m.step(-1)
	case key.Matches(msg, m.keyMap.DownOneItem):
		return m.step(1)
	case key.Matches(msg, m.keyMap.Home):
		return m.oldest()
	case key.Matches(msg, m.keyMap.End):
		return m.latest()
	case key.Matches(msg, m.keyMap.Jump):
		return m.openPrompt(promptJump)
	case key.Matches(msg, m.keyMap.Search):
		return m.openPrompt(promptSearch)
	case key.Matches(msg, m.keyMap.NextResult):
		return m.cycleResult(1)
	case key.Matches(msg, m.keyMap.PrevResult):
		return m.cycleResult(-1)
	case key.Matches(msg, m.keyMap.Copy):
		return m.copyCentered()
	case key.Matches(msg, m.keyMap.DevTools):
		m.devTools = !m.devTools
		return nil
	case key.Matches(msg, m.keyMap.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m.sync()
	}
	return nil
}

// scrollBy moves the view by rows screen rows; positive rows move towards
// newer posts at the bottom of the screen.
func (m *Model) scrollBy(rows int) tea.Cmd {
	delta := float64(rows)
	if m.frame.Inverted() {
		delta = -delta
	}
	m.sc.OnUserScroll()
	offset, _ := m.surface.Scroll(delta, m.frame.Total-m.frame.Viewport)
	m.sc.OnScroll(scroller.ScrollEvent{Offset: offset, Scrolling: true, User: true})

	m.scrollSeq++
	seq := m.scrollSeq
	return tea.Batch(
		m.sync(),
		tea.Tick(scrollEndDelay, func(time.Time) tea.Msg {
			return scrollEndMsg{seq: seq}
		}),
	)
}

// centered returns the frame item under the middle row of the viewport.
func (m *Model) centered() (scroller.FrameItem, bool) {
	mid := m.frame.Offset + m.frame.Viewport/2
	for _, it := range m.frame.Items {
		if it.Start <= mid && mid < it.End() {
			return it, true
		}
	}
	return scroller.FrameItem{}, false
}

// step centers the post before (dir < 0) or after the centered one.
func (m *Model) step(dir int) tea.Cmd {
	it, ok := m.centered()
	if !ok {
		return nil
	}
	m.sc.Handle().ScrollToIndex(scroller.Location{
		Index: it.Index + dir,
		Align: scroller.AlignCenter,
	})
	return m.sync()
}

func (m *Model) oldest() tea.Cmd {
	align := scroller.AlignStart
	if m.frame.Inverted() {
		align = scroller.AlignEnd
	}
	m.sc.Handle().ScrollToIndex(scroller.Location{Index: 0, Align: align})
	return m.sync()
}

// latest follows the newest post again, reloading the newest page when it
// is not loaded.
func (m *Model) latest() tea.Cmd {
	m.sc.JumpToLatest()
	m.results = nil
	if m.frame.HasLoadedNewest {
		return m.sync()
	}
	ctx, src := m.ctx, m.src
	return func() tea.Msg {
		return reloadedMsg{err: src.Start(ctx)}
	}
}

func (m *Model) openPrompt(mode promptMode) tea.Cmd {
	m.prompt = mode
	m.input.Reset()
	switch mode {
	case promptJump:
		m.input.Placeholder = "post key"
	case promptSearch:
		m.input.Placeholder = "search"
		if queries := m.searches.Queries(m.channel); len(queries) > 0 {
			m.input.Placeholder = queries[0]
		}
	}
	m.resize()
	return tea.Batch(m.input.Focus(), m.sync())
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.resize()
}

func (m *Model) handlePromptKey(msg tea.KeyPressMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.promptKeys.Cancel):
		m.closePrompt()
		return m.sync()
	case key.Matches(msg, m.promptKeys.Submit):
		mode := m.prompt
		value := strings.TrimSpace(m.input.Value())
		if value == "" {
			value = m.input.Placeholder
		}
		m.closePrompt()
		if mode == promptJump {
			return m.submitJump(value)
		}
		return m.submitSearch(value)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) submitJump(value string) tea.Cmd {
	k, err := sortkey.Parse(value)
	if err != nil {
		m.setError(err)
		return m.sync()
	}
	return m.jumpTo(k)
}

// jumpTo targets k, reloading the history around it when it lies outside
// the loaded range.
func (m *Model) jumpTo(k sortkey.Key) tea.Cmd {
	st := m.src.State()
	if n := len(st.Slots); n > 0 && st.Slots[0].Key.Compare(k) <= 0 && k.Compare(st.Slots[n-1].Key) <= 0 {
		m.sc.SetScrollTo(&k)
		return m.sync()
	}
	ctx, src := m.ctx, m.src
	return func() tea.Msg {
		return jumpedMsg{key: k, err: src.Jump(ctx, k)}
	}
}

func (m *Model) submitSearch(query string) tea.Cmd {
	if query == "" || query == "search" {
		return m.sync()
	}
	var posts []message.Post
	for _, slot := range m.src.State().Slots {
		if !slot.Tombstone() {
			posts = append(posts, *slot.Post)
		}
	}
	m.results = search.Find(posts, query, searchLimit)
	m.result = 0
	keys := make([]sortkey.Key, len(m.results))
	for i, r := range m.results {
		keys[i] = r.Post.Key
	}
	m.searches.Record(m.channel, query, keys)
	if len(m.results) == 0 {
		m.setStatus(fmt.Sprintf("No posts match %q", query))
		return m.sync()
	}
	m.setStatus(fmt.Sprintf("Result 1 of %d", len(m.results)))
	return m.jumpTo(m.results[0].Post.Key)
}

func (m *Model) cycleResult(dir int) tea.Cmd {
	n := len(m.results)
	if n == 0 {
		return nil
	}
	m.result = ((m.result+dir)%n + n) % n
	m.setStatus(fmt.Sprintf("Result %d of %d", m.result+1, n))
	return m.jumpTo(m.results[m.result].Post.Key)
}

func (m *Model) copyCentered() tea.Cmd {
	it, ok := m.centered()
	if !ok || it.Entry.Post == nil {
		return nil
	}
	text := it.Entry.Post.Content
	return func() tea.Msg {
		return copiedMsg{err: clipboard.WriteAll(text)}
	}
}

func (m *Model) saveSearches() {
	if m.dataDir == "" {
		return
	}
	if err := m.searches.Save(m.dataDir); err != nil {
		m.logger.Error("Failed to save search history", "error", err)
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.logger.Error("Chat error", "error", err)
	m.status = err.Error()
	m.statusErr = true
}

func (m *Model) footerHeight() int {
	if m.prompt != promptNone || !m.help.ShowAll {
		return 1
	}
	return lipgloss.Height(m.help.View(m.keyMap))
}

// chatHeight is the number of rows left for posts after the header and
// footer.
func (m *Model) chatHeight() int {
	return max(m.height-1-m.footerHeight(), 0)
}

func (m *Model) resize() {
	m.surface.SetHeight(m.chatHeight())
}

// sync runs a scroller cycle, measures what it laid out and syncs again
// until the layout settles.
func (m *Model) sync() tea.Cmd {
	f := m.sc.Sync()
	for range maxMeasurePasses {
		if !m.measure(f) {
			break
		}
		f = m.sc.Sync()
	}
	m.frame = f
	return m.scheduleForcing()
}

func (m *Model) highlight(f scroller.Frame) int {
	if m.sc.Target() == nil {
		return -1
	}
	return f.Anchor
}

// measure reports rendered heights that differ from the laid out sizes.
func (m *Model) measure(f scroller.Frame) bool {
	highlight := m.highlight(f)
	changed := false
	for _, it := range f.Items {
		size := float64(len(m.rows.lines(it.Entry, it.Index == highlight)))
		if it.Measured && it.Size == size {
			continue
		}
		m.sc.Measure(it.Entry.ID, size)
		changed = true
	}
	return changed
}

// scheduleForcing syncs again once a forced scroll cools down, so that
// anchor following and pagination resume without further input.
func (m *Model) scheduleForcing() tea.Cmd {
	if !m.frame.Forcing || m.frame.ForcingUntil.Equal(m.forcingTick) {
		return nil
	}
	m.forcingTick = m.frame.ForcingUntil
	d := m.frame.ForcingUntil.Sub(m.sc.Now()) + time.Millisecond
	return tea.Tick(d, func(time.Time) tea.Msg {
		return forcingDoneMsg{}
	})
}

func (m *Model) View() tea.View {
	return tea.NewView(m.view())
}

func (m *Model) view() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	rows := m.rows.viewport(m.frame, m.chatHeight(), m.highlight(m.frame))
	body := strings.Join(rows, "\n")
	if m.devTools {
		body = devToolsOverlay(body, m.width, m.chatHeight(), m.sc.Debug())
	}
	return strings.Join([]string{m.header(), body, m.footer()}, "\n")
}

func (m *Model) header() string {
	t := styles.CurrentTheme()
	title := t.S().Header.Render("# " + m.channel)
	var info []string
	loaded := m.frame.Count
	if m.frame.HasLoadedOldest && loaded > 0 {
		// The top marker is not a post.
		loaded--
	}
	if loaded > 0 {
		info = append(info, fmt.Sprintf("%d loaded", loaded))
	}
	if target := m.sc.Target(); target != nil {
		info = append(info, fmt.Sprintf("at %s (%s)", target, m.frame.Target))
	}
	line := title
	if len(info) > 0 {
		line += " " + t.S().Muted.Render(strings.Join(info, " · "))
	}
	return ansi.Truncate(line, m.width, "…")
}

func (m *Model) footer() string {
	t := styles.CurrentTheme()
	switch m.prompt {
	case promptJump:
		return t.S().Prompt.Render(": ") + m.input.View()
	case promptSearch:
		return t.S().Prompt.Render("/ ") + m.input.View()
	}
	if m.status != "" && !m.help.ShowAll {
		style := t.S().Status
		if m.statusErr {
			style = t.S().Error
		}
		return ansi.Truncate(style.Render(m.status), m.width, "…")
	}
	return m.help.View(m.keyMap)
}
