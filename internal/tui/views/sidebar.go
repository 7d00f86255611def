package views

import (
	"fmt"
	"io"
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/list"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/samber/lo"

	"github.com/berth-dev/threadline/internal/auth"
	"github.com/berth-dev/threadline/internal/chat"
	"github.com/berth-dev/threadline/internal/tui"
)

// Sidebar empty-state texts.
const (
	NoThreadsText  = "No chats yet. Start a new conversation!"
	NoMatchesText  = "No chats found"
	sidebarMinRows = 3
)

// threadItem is a list row.
type threadItem struct {
	thread chat.Thread
}

func (i threadItem) FilterValue() string { return i.thread.Title }

// TitleFilter is the sidebar's list filter: a case-insensitive substring
// match on the title, keeping list order.
func TitleFilter(term string, targets []string) []list.Rank {
	ranks := make([]list.Rank, 0, len(targets))
	for i, target := range targets {
		if chat.MatchTitle(target, term) {
			ranks = append(ranks, list.Rank{Index: i})
		}
	}
	return ranks
}

// threadDelegate renders one thread per two lines: title, then relative time.
type threadDelegate struct {
	theme  *tui.Theme
	active *string
	now    func() time.Time
}

func (d threadDelegate) Height() int                             { return 2 }
func (d threadDelegate) Spacing() int                            { return 0 }
func (d threadDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d threadDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(threadItem)
	if !ok {
		return
	}
	s := d.theme.S()

	marker := "  "
	if d.active != nil && *d.active == it.thread.ID {
		marker = "● "
	}
	title := truncate(it.thread.Title, m.Width()-4)
	when := chat.RelativeTime(d.now(), it.thread.UpdatedAt)

	if index == m.Index() {
		fmt.Fprintf(w, "%s\n%s", s.Selected.Render(marker+title), s.Dim.Render("  "+when))
		return
	}
	fmt.Fprintf(w, "%s\n%s", s.Text.Render(marker+title), s.Dim.Render("  "+when))
}

// ============================================================================
// SidebarModel
// ============================================================================

// SidebarModel lists the user's threads with a title filter and a profile
// footer.
type SidebarModel struct {
	list    list.Model
	threads []chat.Thread
	active  *string
	loaded  bool
	loadErr string
	spinner spinner.Model
	user    auth.User
	focused bool
	theme   *tui.Theme
	width   int
	height  int
}

// NewSidebarModel creates a SidebarModel in its loading state.
func NewSidebarModel(theme *tui.Theme, user auth.User, now func() time.Time, width, height int) SidebarModel {
	if now == nil {
		now = time.Now
	}
	active := new(string)

	l := list.New(nil, threadDelegate{theme: theme, active: active, now: now}, width, height)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(true)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	l.Filter = TitleFilter
	l.FilterInput.Prompt = "/ "
	l.FilterInput.Placeholder = "Search chats"

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := SidebarModel{
		list:    l,
		active:  active,
		spinner: sp,
		user:    user,
		focused: true,
		theme:   theme,
	}
	m.SetSize(width, height)
	return m
}

// Init starts the loading spinner.
func (m SidebarModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// SetSize resizes the sidebar to an outer width and height.
func (m *SidebarModel) SetSize(width, height int) {
	m.width, m.height = width, height
	// Header (2), footer (3), borders (2).
	rows := height - 7
	if rows < sidebarMinRows {
		rows = sidebarMinRows
	}
	m.list.SetSize(max(width-4, 10), rows)
}

// SetFocused marks the pane as receiving keys.
func (m *SidebarModel) SetFocused(focused bool) {
	m.focused = focused
}

// Filtering reports whether the filter input is capturing keys.
func (m SidebarModel) Filtering() bool {
	return m.list.SettingFilter()
}

// SetActive marks the open thread.
func (m *SidebarModel) SetActive(threadID string) {
	*m.active = threadID
	for i, item := range m.list.Items() {
		if it, ok := item.(threadItem); ok && it.thread.ID == threadID {
			m.list.Select(i)
			return
		}
	}
}

// Active returns the open thread's ID.
func (m SidebarModel) Active() string {
	return *m.active
}

// Threads returns the loaded threads, newest first.
func (m SidebarModel) Threads() []chat.Thread {
	return m.threads
}

// Thread looks up a loaded thread.
func (m SidebarModel) Thread(id string) (chat.Thread, bool) {
	return lo.Find(m.threads, func(t chat.Thread) bool { return t.ID == id })
}

// SetThreads replaces the list.
func (m *SidebarModel) SetThreads(threads []chat.Thread) tea.Cmd {
	m.loaded = true
	m.loadErr = ""
	m.threads = threads
	items := lo.Map(threads, func(t chat.Thread, _ int) list.Item { return threadItem{thread: t} })
	cmd := m.list.SetItems(items)
	if *m.active != "" {
		m.SetActive(*m.active)
	}
	return cmd
}

// AddThread puts a newly created thread at the top.
func (m *SidebarModel) AddThread(t chat.Thread) tea.Cmd {
	rest := lo.Reject(m.threads, func(x chat.Thread, _ int) bool { return x.ID == t.ID })
	return m.SetThreads(append([]chat.Thread{t}, rest...))
}

// Update handles messages for the sidebar.
func (m SidebarModel) Update(msg tea.Msg) (SidebarModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tui.ThreadsLoadedMsg:
		if msg.Err != nil {
			m.loaded = true
			m.loadErr = msg.Err.Error()
			return m, nil
		}
		return m, m.SetThreads(msg.Threads)

	case spinner.TickMsg:
		if m.loaded {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyPressMsg:
		if !m.focused {
			return m, nil
		}
		if !m.list.SettingFilter() && key.Matches(msg, tui.DefaultKeyMap.Enter) {
			if it, ok := m.list.SelectedItem().(threadItem); ok {
				id := it.thread.ID
				return m, func() tea.Msg { return tui.SelectThreadMsg{ThreadID: id} }
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the sidebar.
func (m SidebarModel) View() string {
	s := m.theme.S()
	var b strings.Builder

	b.WriteString(s.Title.Render("Chats"))
	b.WriteString("  ")
	b.WriteString(s.Dim.Render("ctrl+n new"))
	b.WriteString("\n\n")

	switch {
	case !m.loaded:
		b.WriteString(m.spinner.View() + " " + s.Dim.Render("Loading chats..."))
	case m.loadErr != "":
		b.WriteString(s.Error.Render("Failed to load chats: " + m.loadErr))
	case len(m.threads) == 0:
		b.WriteString(s.Dim.Render(NoThreadsText))
	case m.list.FilterState() != list.Unfiltered && len(m.list.VisibleItems()) == 0:
		b.WriteString(m.list.FilterInput.View())
		b.WriteString("\n\n")
		b.WriteString(s.Dim.Render(NoMatchesText))
	default:
		b.WriteString(m.list.View())
	}

	body := lipgloss.NewStyle().Height(m.height - 5).Render(b.String())

	name := chat.Username(m.user.Email)
	footer := s.Text.Render(name) + "\n" + s.Dim.Render(truncate(m.user.Email, m.width-4)) + "\n" + s.Dim.Render("ctrl+o sign out")

	pane := s.Pane
	if m.focused {
		pane = s.Box
	}
	return pane.Width(m.width - 2).Render(body + "\n" + footer)
}

// truncate shortens s to n display columns with an ellipsis.
func truncate(s string, n int) string {
	if n <= 1 || lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > n {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
