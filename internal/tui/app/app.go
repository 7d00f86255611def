// Package app provides the main TUI application that wires all views together.
package app

import (
	"context"
	"time"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"github.com/berth-dev/threadline/internal/auth"
	"github.com/berth-dev/threadline/internal/chat"
	"github.com/berth-dev/threadline/internal/config"
	"github.com/berth-dev/threadline/internal/log"
	"github.com/berth-dev/threadline/internal/tui"
	"github.com/berth-dev/threadline/internal/tui/commands"
	"github.com/berth-dev/threadline/internal/tui/views"
)

// Toast texts for thread creation.
const (
	ThreadCreatedText      = "New chat created!"
	ThreadCreateFailedText = "Failed to create new chat"
)

const (
	sidebarMaxWidth = 34
	sidebarMinWidth = 22
)

// Deps are the collaborators the app drives.
type Deps struct {
	Config    *config.Config
	ConfigDir string
	Session   commands.Session
	Backend   chat.Backend
	Prefs     commands.Prefs
	Logger    *log.Logger

	// InitialThread is opened once the thread list has loaded, if present.
	InitialThread string
	Now           func() time.Time
}

// App is the main TUI application that wires all views together.
type App struct {
	model   *tui.Model
	deps    Deps
	sender  *chat.Sender
	timeout time.Duration

	// View models
	gateView    views.GateModel
	loginView   views.LoginModel
	sidebarView views.SidebarModel
	threadView  views.ThreadModel

	// gen identifies the open thread view; results carrying an older
	// generation belong to a view that has been replaced.
	gen        int
	feed       <-chan chat.FeedEvent
	cancelFeed context.CancelFunc
	pending    string
}

// New creates a new App.
func New(deps Deps) *App {
	if deps.Config == nil {
		deps.Config = config.DefaultConfig()
	}
	if deps.Logger == nil {
		deps.Logger = log.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	cfg := deps.Config

	theme := tui.NewTheme(cfg.UI.Theme)
	toasts := tui.NewToaster(tui.ToastDurations{
		Default: cfg.UI.ToastDefault.Duration,
		Success: cfg.UI.ToastSuccess.Duration,
		Error:   cfg.UI.ToastError.Duration,
	})
	model := tui.NewModel(theme, toasts)

	timeout := cfg.Backend.RequestTimeout.Duration
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	a := &App{
		model:   model,
		deps:    deps,
		sender:  chat.NewSender(deps.Backend, deps.Logger),
		timeout: timeout,
		pending: deps.InitialThread,
	}
	a.gateView = views.NewGateModel(theme, model.Width, model.Height)
	a.loginView = views.NewLoginModel(theme, cfg.Auth.SignUpRevertDelay.Duration, model.Width, model.Height)
	a.threadView = a.newThreadView("", "")
	return a
}

// Model exposes the shared state.
func (a *App) Model() *tui.Model { return a.model }

// Login exposes the credential form.
func (a *App) Login() views.LoginModel { return a.loginView }

// Sidebar exposes the thread list.
func (a *App) Sidebar() views.SidebarModel { return a.sidebarView }

// Thread exposes the open thread view.
func (a *App) Thread() views.ThreadModel { return a.threadView }

// Init restores the stored session.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.gateView.Init(), commands.RestoreCmd(a.deps.Session, a.timeout))
}

// Update handles messages and updates the application state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.model.Width = msg.Width
		a.model.Height = msg.Height
		a.layout()
		return a, nil

	case tea.KeyPressMsg:
		if msg.String() == tui.KeyCtrlC {
			if a.model.CtrlCPending {
				a.closeFeed()
				return a, tea.Quit
			}
			a.model.CtrlCPending = true
			return a, tea.Tick(time.Second, func(time.Time) tea.Msg {
				return tui.CtrlCResetMsg{}
			})
		}

	case tea.KeyboardEnhancementsMsg:
		a.model.ShiftEnter = msg.SupportsKeyDisambiguation()
		a.threadView.SetShiftEnter(a.model.ShiftEnter)
		return a, nil

	case tui.CtrlCResetMsg:
		a.model.CtrlCPending = false
		return a, nil

	case tui.ToastMsg:
		id, ttl := a.model.Toasts.Push(msg.Kind, msg.Text)
		a.layout()
		return a, tea.Tick(ttl, func(time.Time) tea.Msg { return tui.ToastExpireMsg{ID: id} })

	case tui.ToastExpireMsg:
		a.model.Toasts.Dismiss(msg.ID)
		a.layout()
		return a, nil

	case tui.ThemeSavedMsg:
		if msg.Err != nil {
			a.deps.Logger.Error("theme_save_failed", msg.Err)
		}
		return a, nil

	case tui.AuthResolvedMsg:
		return a.handleAuthResolved(msg)

	case tui.SubmitCredentialsMsg:
		if msg.Mode == auth.ModeSignUp {
			return a, commands.SignUpCmd(a.deps.Session, msg.Email, msg.Password, a.timeout)
		}
		return a, commands.SignInCmd(a.deps.Session, msg.Email, msg.Password, a.timeout)

	case tui.SignInResultMsg:
		var cmd tea.Cmd
		a.loginView, cmd = a.loginView.Update(msg)
		if msg.Err != nil {
			return a, cmd
		}
		return a, tea.Batch(cmd, a.enterMain())

	case tui.SignedOutMsg:
		a.leaveMain()
		if msg.Err != nil {
			a.deps.Logger.Error(log.EventSignOut, msg.Err)
		}
		return a, a.loginView.Init()
	}

	switch a.model.State {
	case tui.StateLoading:
		var cmd tea.Cmd
		a.gateView, cmd = a.gateView.Update(msg)
		return a, cmd

	case tui.StateLogin:
		var cmd tea.Cmd
		a.loginView, cmd = a.loginView.Update(msg)
		return a, cmd

	case tui.StateMain:
		return a.updateMain(msg)
	}

	return a, nil
}

func (a *App) handleAuthResolved(msg tui.AuthResolvedMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if msg.Err != nil {
		a.deps.Logger.Error(log.EventSessionRestored, msg.Err)
		cmds = append(cmds, commands.ToastCmd(tui.ToastError, "Could not restore your session. Please sign in again."))
	}

	switch views.StateFor(msg.Status) {
	case tui.StateMain:
		cmds = append(cmds, a.enterMain())
	case tui.StateLogin:
		a.model.State = tui.StateLogin
		cmds = append(cmds, a.loginView.Init())
	}
	return a, tea.Batch(cmds...)
}

// ============================================================================
// Main screen
// ============================================================================

func (a *App) updateMain(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return a.handleMainKey(msg)

	case tui.ThreadsLoadedMsg:
		var cmd tea.Cmd
		a.sidebarView, cmd = a.sidebarView.Update(msg)
		cmds := []tea.Cmd{cmd}
		if msg.Err != nil {
			cmds = append(cmds, commands.ToastCmd(tui.ToastError, "Failed to load chats"))
			return a, tea.Batch(cmds...)
		}
		if t, ok := a.sidebarView.Thread(a.threadView.ThreadID()); ok {
			a.threadView.SetTitle(t.Title)
		}
		if a.pending != "" {
			id := a.pending
			a.pending = ""
			if _, ok := a.sidebarView.Thread(id); ok {
				cmds = append(cmds, a.openThread(id))
			}
		}
		return a, tea.Batch(cmds...)

	case tui.ThreadCreatedMsg:
		if msg.Err != nil {
			a.deps.Logger.Error(log.EventThreadCreated, msg.Err)
			return a, commands.ToastCmd(tui.ToastError, ThreadCreateFailedText)
		}
		cmd := a.sidebarView.AddThread(msg.Thread)
		return a, tea.Batch(
			cmd,
			a.openThread(msg.Thread.ID),
			commands.LoadThreadsCmd(a.deps.Backend, a.timeout),
			commands.ToastCmd(tui.ToastSuccess, ThreadCreatedText),
		)

	case tui.SelectThreadMsg:
		if msg.ThreadID == a.threadView.ThreadID() {
			return a, a.setFocus(tui.FocusThread)
		}
		return a, a.openThread(msg.ThreadID)

	case tui.FeedMsg:
		if !a.current(msg.ThreadID, msg.Gen) {
			a.dropStale("feed", msg.ThreadID, msg.Gen)
			return a, nil
		}
		var cmd tea.Cmd
		a.threadView, cmd = a.threadView.Update(msg)
		return a, tea.Batch(cmd, commands.ListenFeedCmd(msg.ThreadID, msg.Gen, a.feed))

	case tui.FeedClosedMsg:
		return a, nil

	case tui.SendRequestMsg:
		if !a.current(msg.ThreadID, msg.Gen) {
			a.dropStale("send_request", msg.ThreadID, msg.Gen)
			return a, nil
		}
		return a, commands.SendCmd(a.sender, msg.ThreadID, msg.Gen, msg.Content, a.timeout)

	case tui.SendResultMsg:
		// The write happened either way; the thread list order may have changed.
		reload := commands.LoadThreadsCmd(a.deps.Backend, a.timeout)
		if !a.current(msg.ThreadID, msg.Gen) {
			a.dropStale("send_result", msg.ThreadID, msg.Gen)
			return a, reload
		}
		var cmd tea.Cmd
		a.threadView, cmd = a.threadView.Update(msg)
		return a, tea.Batch(cmd, reload)

	case tui.ComposeTimeoutMsg:
		if !a.current(msg.ThreadID, msg.Gen) {
			return a, nil
		}
		var cmd tea.Cmd
		a.threadView, cmd = a.threadView.Update(msg)
		return a, cmd

	case spinner.TickMsg:
		var c1, c2 tea.Cmd
		a.sidebarView, c1 = a.sidebarView.Update(msg)
		a.threadView, c2 = a.threadView.Update(msg)
		return a, tea.Batch(c1, c2)
	}

	// Everything else (list filter results, cursor blinks) goes to both panes.
	var c1, c2 tea.Cmd
	a.sidebarView, c1 = a.sidebarView.Update(msg)
	a.threadView, c2 = a.threadView.Update(msg)
	return a, tea.Batch(c1, c2)
}

func (a *App) handleMainKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	keys := tui.DefaultKeyMap

	// The filter input owns the keyboard while it is open.
	if a.model.Focus == tui.FocusSidebar && a.sidebarView.Filtering() {
		var cmd tea.Cmd
		a.sidebarView, cmd = a.sidebarView.Update(msg)
		return a, cmd
	}

	switch {
	case key.Matches(msg, keys.NewThread):
		return a, commands.CreateThreadCmd(a.deps.Backend, a.timeout)

	case key.Matches(msg, keys.SignOut):
		return a, commands.SignOutCmd(a.deps.Session, a.timeout)

	case key.Matches(msg, keys.ToggleTheme):
		name := a.model.Theme.Toggle()
		a.layout()
		return a, commands.SaveThemeCmd(a.deps.ConfigDir, name)

	case key.Matches(msg, keys.Tab):
		if a.model.Focus == tui.FocusSidebar {
			return a, a.setFocus(tui.FocusThread)
		}
		return a, a.setFocus(tui.FocusSidebar)
	}

	var cmd tea.Cmd
	if a.model.Focus == tui.FocusSidebar {
		a.sidebarView, cmd = a.sidebarView.Update(msg)
	} else {
		a.threadView, cmd = a.threadView.Update(msg)
	}
	return a, cmd
}

// current reports whether a result belongs to the open thread view.
func (a *App) current(threadID string, gen int) bool {
	return gen == a.gen && threadID == a.threadView.ThreadID()
}

func (a *App) dropStale(kind, threadID string, gen int) {
	a.deps.Logger.Debug(log.EventStaleResult,
		zap.String("kind", kind),
		zap.String("thread_id", threadID),
		zap.Int("gen", gen),
		zap.Int("current_gen", a.gen),
	)
}

// enterMain switches to the main screen and loads threads.
func (a *App) enterMain() tea.Cmd {
	a.model.State = tui.StateMain
	a.sidebarView = views.NewSidebarModel(a.model.Theme, a.deps.Session.User(), a.deps.Now, 0, 0)
	a.threadView = a.newThreadView("", "")
	a.layout()
	return tea.Batch(
		a.sidebarView.Init(),
		a.setFocus(tui.FocusSidebar),
		commands.LoadThreadsCmd(a.deps.Backend, a.timeout),
	)
}

// leaveMain tears down the main screen after sign-out.
func (a *App) leaveMain() {
	a.closeFeed()
	a.gen++
	a.pending = ""
	a.model.State = tui.StateLogin
	a.threadView = a.newThreadView("", "")
	a.loginView = views.NewLoginModel(a.model.Theme, a.deps.Config.Auth.SignUpRevertDelay.Duration, a.model.Width, a.model.Height)
	a.layout()
}

// openThread replaces the thread view. The previous view's subscription is
// cancelled and its in-flight results are dropped by generation.
func (a *App) openThread(threadID string) tea.Cmd {
	a.closeFeed()
	a.gen++

	title := chat.DefaultThreadTitle
	if t, ok := a.sidebarView.Thread(threadID); ok {
		title = t.Title
	}
	a.threadView = a.newThreadView(threadID, title)
	a.sidebarView.SetActive(threadID)
	a.layout()

	ctx, cancel := context.WithCancel(context.Background())
	a.cancelFeed = cancel
	events, listen := commands.SubscribeCmd(ctx, a.deps.Backend, threadID, a.gen)
	a.feed = events

	return tea.Batch(
		listen,
		a.threadView.Init(),
		a.setFocus(tui.FocusThread),
		commands.SaveLastThreadCmd(a.deps.Prefs, threadID),
	)
}

func (a *App) closeFeed() {
	if a.cancelFeed != nil {
		a.cancelFeed()
		a.cancelFeed = nil
	}
	a.feed = nil
}

func (a *App) newThreadView(threadID, title string) views.ThreadModel {
	cfg := a.deps.Config
	return views.NewThreadModel(views.ThreadOptions{
		ThreadID:   threadID,
		Title:      title,
		Gen:        a.gen,
		SendKey:    cfg.Composer.SendKey,
		ShiftEnter: a.model.ShiftEnter,
		MaxChars:   cfg.Composer.MaxChars,
		Theme:      a.model.Theme,
	})
}

func (a *App) setFocus(f tui.Focus) tea.Cmd {
	a.model.Focus = f
	a.sidebarView.SetFocused(f == tui.FocusSidebar)
	return a.threadView.SetFocused(f == tui.FocusThread)
}

// layout sizes the active views to the window minus the status area.
func (a *App) layout() {
	w := a.model.Width
	h := a.model.Height - a.statusHeight()

	a.gateView, _ = a.gateView.Update(tea.WindowSizeMsg{Width: w, Height: h})
	a.loginView, _ = a.loginView.Update(tea.WindowSizeMsg{Width: w, Height: h})

	if a.model.State != tui.StateMain {
		return
	}
	sw := min(max(w/3, sidebarMinWidth), sidebarMaxWidth)
	a.sidebarView.SetSize(sw, h)
	a.threadView.SetSize(w-sw, h)
}

func (a *App) statusHeight() int {
	return max(len(a.model.Toasts.Items()), 1)
}

// View renders the current state on the alternate screen.
func (a *App) View() tea.View {
	v := tea.NewView(a.render())
	v.AltScreen = true
	return v
}

func (a *App) render() string {
	var content string
	switch a.model.State {
	case tui.StateLoading:
		content = a.gateView.View()
	case tui.StateLogin:
		content = a.loginView.View()
	case tui.StateMain:
		content = lipgloss.JoinHorizontal(lipgloss.Top, a.sidebarView.View(), a.threadView.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, content, a.statusView())
}

func (a *App) statusView() string {
	s := a.model.Theme.S()
	if toasts := a.model.Toasts.View(a.model.Theme); toasts != "" {
		return toasts
	}
	if a.model.CtrlCPending {
		return s.Warning.Render("Press ctrl+c again to quit")
	}

	keys := tui.DefaultKeyMap
	var help string
	switch a.model.State {
	case tui.StateLogin:
		help = tui.HelpLine(keys.Tab, keys.ToggleMode, keys.RevealPassword, keys.CtrlC)
	case tui.StateMain:
		help = tui.HelpLine(keys.Tab, keys.Filter, keys.NewThread, keys.JumpLatest, keys.ToggleTheme, keys.SignOut, keys.CtrlC)
	default:
		help = tui.HelpLine(keys.CtrlC)
	}
	return s.StatusBar.Width(a.model.Width).Render(help)
}
