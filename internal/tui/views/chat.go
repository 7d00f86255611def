package views

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"

	"github.com/berth-dev/threadline/internal/chat"
	"github.com/berth-dev/threadline/internal/tui"
)

// Thread view texts.
const (
	TypingText       = "AI is typing..."
	EmptyThreadText  = "Start a conversation"
	LoadingFeedText  = "Loading messages..."
	WelcomeTitle     = "Welcome to Threadline"
	NewMessagesText  = "↓ New messages · ctrl+g"
	CopiedText       = "Reply copied to clipboard"
	NothingToCopy    = "No reply to copy yet"
	ReconnectingText = "Reconnecting..."
)

// DefaultComposeTimeout bounds how long the typing indicator waits for the
// bot's reply after a successful trigger.
const DefaultComposeTimeout = 2 * time.Minute

// clipboardWrite is swapped in tests.
var clipboardWrite = clipboard.WriteAll

// ThreadOptions configures a ThreadModel.
type ThreadOptions struct {
	ThreadID       string
	Title          string
	Gen            int
	SendKey        string
	ShiftEnter     bool // terminal reports shift+enter distinctly
	MaxChars       int
	ComposeTimeout time.Duration
	Theme          *tui.Theme
	Width          int
	Height         int
}

// ============================================================================
// ThreadModel
// ============================================================================

// ThreadModel is the open thread: the live message feed and the composer.
// A zero ThreadID renders the welcome placeholder.
type ThreadModel struct {
	threadID string
	title    string
	gen      int

	feed       *chat.Feed
	state      chat.SendState
	composeSeq int

	textarea   textarea.Model
	viewport   viewport.Model
	spinner    spinner.Model
	sendKey     key.Binding
	newlineKey  key.Binding
	sendKeyName string

	maxChars       int
	composeTimeout time.Duration
	unseen         bool
	feedErr        string
	reconnecting   bool
	focused        bool

	theme  *tui.Theme
	width  int
	height int
}

// NewThreadModel creates a ThreadModel.
func NewThreadModel(opts ThreadOptions) ThreadModel {
	if opts.MaxChars <= 0 {
		opts.MaxChars = chat.DefaultMaxChars
	}
	if opts.ComposeTimeout <= 0 {
		opts.ComposeTimeout = DefaultComposeTimeout
	}
	send, newline := tui.SendBinding(opts.SendKey, opts.ShiftEnter)

	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0 // the limit is enforced on submit, the counter shows overflow
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = newline

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := ThreadModel{
		threadID:       opts.ThreadID,
		title:          opts.Title,
		gen:            opts.Gen,
		feed:           chat.NewFeed(opts.ThreadID),
		textarea:       ta,
		viewport:       viewport.New(viewport.WithWidth(20), viewport.WithHeight(5)),
		spinner:        sp,
		sendKey:        send,
		newlineKey:     newline,
		sendKeyName:    opts.SendKey,
		maxChars:       opts.MaxChars,
		composeTimeout: opts.ComposeTimeout,
		theme:          opts.Theme,
	}
	m.SetSize(opts.Width, opts.Height)
	return m
}

// Init returns the initial command for the thread view.
func (m ThreadModel) Init() tea.Cmd {
	return textarea.Blink
}

// ThreadID returns the open thread's ID.
func (m ThreadModel) ThreadID() string { return m.threadID }

// Gen returns the view generation this model was opened at.
func (m ThreadModel) Gen() int { return m.gen }

// Sending reports whether a send is outstanding.
func (m ThreadModel) Sending() bool { return m.state.Sending() }

// Composing reports whether the typing indicator is shown.
func (m ThreadModel) Composing() bool { return m.state.Composing() }

// Messages returns the feed in render order.
func (m ThreadModel) Messages() []chat.Message { return m.feed.Messages() }

// Draft returns the composer's content.
func (m ThreadModel) Draft() string { return m.textarea.Value() }

// CanSend reports whether the send control is enabled. Sending waits for
// the first snapshot so the reply baseline counts existing bot rows.
func (m ThreadModel) CanSend() bool {
	return m.threadID != "" && m.feed.Synced() &&
		chat.CanSubmit(m.textarea.Value(), m.maxChars, m.state.Sending())
}

// SetTitle updates the header.
func (m *ThreadModel) SetTitle(title string) { m.title = title }

// SetShiftEnter updates the newline hint once the terminal reports whether
// shift+enter arrives as its own key.
func (m *ThreadModel) SetShiftEnter(supported bool) {
	m.sendKey, m.newlineKey = tui.SendBinding(m.sendKeyName, supported)
	m.textarea.KeyMap.InsertNewline = m.newlineKey
}

// SetFocused moves keyboard focus to or from the composer.
func (m *ThreadModel) SetFocused(focused bool) tea.Cmd {
	m.focused = focused
	if focused {
		return m.textarea.Focus()
	}
	m.textarea.Blur()
	return nil
}

// SetSize resizes the view to an outer width and height.
func (m *ThreadModel) SetSize(width, height int) {
	m.width, m.height = width, height
	inner := max(width-4, 20)
	// Header (2), indicator (1), composer (3), counter + help (2), spacing (2), borders (2).
	vpHeight := max(height-12, 3)

	m.viewport.SetWidth(inner)
	m.viewport.SetHeight(vpHeight)
	m.textarea.SetWidth(inner)
	m.refresh(false)
}

// Update handles messages for the thread view.
func (m ThreadModel) Update(msg tea.Msg) (ThreadModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tui.FeedMsg:
		return m.applyFeed(msg.Event)

	case tui.SendResultMsg:
		m.state.Finish(msg.Err)
		if msg.Err != nil {
			return m, toastCmd(tui.ToastError, chat.FailureText(msg.Err))
		}
		if !m.state.Composing() {
			return m, nil
		}
		seq, id, gen := m.composeSeq, m.threadID, m.gen
		return m, tea.Tick(m.composeTimeout, func(time.Time) tea.Msg {
			return tui.ComposeTimeoutMsg{ThreadID: id, Gen: gen, Seq: seq}
		})

	case tui.ComposeTimeoutMsg:
		if msg.Seq == m.composeSeq && !m.state.Sending() {
			m.state.Expire()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.state.Composing() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyPressMsg:
		if !m.focused || m.threadID == "" {
			return m, nil
		}
		return m.handleKey(msg)
	}

	if !m.focused {
		return m, nil
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m ThreadModel) handleKey(msg tea.KeyPressMsg) (ThreadModel, tea.Cmd) {
	keys := tui.DefaultKeyMap

	switch {
	case key.Matches(msg, m.sendKey):
		return m.submit()

	case key.Matches(msg, keys.JumpLatest):
		m.viewport.GotoBottom()
		m.unseen = false
		return m, nil

	case key.Matches(msg, keys.CopyReply):
		reply, ok := m.feed.LatestBot()
		if !ok {
			return m, toastCmd(tui.ToastInfo, NothingToCopy)
		}
		if err := clipboardWrite(reply.Content); err != nil {
			return m, toastCmd(tui.ToastError, "Copy failed: "+err.Error())
		}
		return m, toastCmd(tui.ToastSuccess, CopiedText)
	}

	switch msg.String() {
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		if m.viewport.AtBottom() {
			m.unseen = false
		}
		return m, cmd
	}

	// The composer is disabled while a send is outstanding.
	if m.state.Sending() {
		return m, nil
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m ThreadModel) submit() (ThreadModel, tea.Cmd) {
	if !m.CanSend() {
		return m, nil
	}
	content, err := chat.PrepareDraft(m.textarea.Value(), m.maxChars)
	if err != nil {
		return m, nil
	}
	if !m.state.Begin(m.feed.BotCount()) {
		return m, nil
	}
	m.textarea.Reset()
	m.composeSeq++
	m.viewport.GotoBottom()
	m.unseen = false

	id, gen := m.threadID, m.gen
	return m, tea.Batch(
		func() tea.Msg { return tui.SendRequestMsg{ThreadID: id, Gen: gen, Content: content} },
		m.spinner.Tick,
	)
}

func (m ThreadModel) applyFeed(ev chat.FeedEvent) (ThreadModel, tea.Cmd) {
	if ev.Err != nil {
		if ev.Reconnecting {
			m.reconnecting = true
			return m, nil
		}
		m.reconnecting = false
		m.feedErr = "Live updates stopped: " + ev.Err.Error()
		return m, toastCmd(tui.ToastError, m.feedErr)
	}

	m.reconnecting = false
	m.feedErr = ""
	atBottom := m.viewport.AtBottom() || m.feed.Len() == 0
	first := !m.feed.Synced()
	if !m.feed.Apply(ev.Messages) && !first {
		return m, nil
	}
	m.state.Observe(m.feed.BotCount())
	m.refresh(atBottom)
	if !atBottom && m.feed.Len() > 0 {
		m.unseen = true
	}
	return m, nil
}

// refresh re-renders the feed into the viewport.
func (m *ThreadModel) refresh(follow bool) {
	if m.theme == nil {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m ThreadModel) renderMessages() string {
	s := m.theme.S()
	msgs := m.feed.Messages()
	if !m.feed.Synced() {
		return s.Dim.Render(LoadingFeedText)
	}
	if len(msgs) == 0 {
		return s.Dim.Render(EmptyThreadText + "\nSend a message to begin chatting with AI.")
	}

	body := lipgloss.NewStyle().Width(m.viewport.Width())
	var b strings.Builder
	for i, msg := range msgs {
		who := s.User
		if msg.IsBot() {
			who = s.Bot
		}
		b.WriteString(who.Render(msg.Author.String()))
		b.WriteString(" ")
		b.WriteString(s.Dim.Render(msg.CreatedAt.Local().Format("15:04")))
		b.WriteString("\n")
		b.WriteString(body.Render(msg.Content))
		if i < len(msgs)-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// View renders the thread view.
func (m ThreadModel) View() string {
	s := m.theme.S()
	pane := s.Pane
	if m.focused {
		pane = s.Box
	}

	if m.threadID == "" {
		body := s.Title.Render(WelcomeTitle) + "\n\n" +
			s.Dim.Render("Select a chat from the sidebar or press ctrl+n to start a new one.")
		placed := lipgloss.Place(max(m.width-4, 0), max(m.height-2, 0), lipgloss.Center, lipgloss.Center, body)
		return pane.Width(m.width - 2).Render(placed)
	}

	var b strings.Builder
	b.WriteString(s.Title.Render(m.title))
	switch {
	case m.reconnecting:
		b.WriteString("  " + s.Warning.Render(ReconnectingText))
	case m.feedErr != "":
		b.WriteString("  " + s.Error.Render(m.feedErr))
	}
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	var status []string
	if m.state.Composing() {
		status = append(status, m.spinner.View()+" "+s.Dim.Render(TypingText))
	}
	if m.unseen {
		status = append(status, s.Selected.Render(NewMessagesText))
	}
	b.WriteString(strings.Join(status, "   "))
	b.WriteString("\n")

	if m.state.Sending() {
		b.WriteString(s.Dim.Render(m.textarea.View()))
	} else {
		b.WriteString(m.textarea.View())
	}
	b.WriteString("\n")

	count := utf8.RuneCountInString(m.textarea.Value())
	counter := fmt.Sprintf("%d/%d", count, m.maxChars)
	if count > m.maxChars {
		counter = s.Error.Render(counter)
	} else {
		counter = s.Dim.Render(counter)
	}
	help := s.Dim.Render(tui.HelpLine(m.sendKey, m.newlineKey, tui.DefaultKeyMap.CopyReply))
	b.WriteString(counter + "  " + help)

	return pane.Width(m.width - 2).Render(b.String())
}
