package app

import (
	"errors"
	"strings"
	"sync"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/berth-dev/threadline/internal/auth"
	"github.com/berth-dev/threadline/internal/chat"
	"github.com/berth-dev/threadline/internal/config"
	"github.com/berth-dev/threadline/internal/testutil"
	"github.com/berth-dev/threadline/internal/tui"
)

type memPrefs struct {
	mu   sync.Mutex
	last string
}

func (p *memPrefs) SetLastThread(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = id
	return nil
}

// drain runs cmd and any batched children. Only use it on commands that
// neither sleep nor wait on a subscription.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func ctrlKey(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Mod: tea.ModCtrl}
}

func findMsg[T any](msgs []tea.Msg) (T, bool) {
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

type harness struct {
	app     *App
	backend *testutil.FakeBackend
	auth    *testutil.FakeAuth
	prefs   *memPrefs
}

func newHarness(t *testing.T, initial string) *harness {
	t.Helper()
	backend := testutil.NewFakeBackend(
		testutil.Thread("c2", "Groceries", 5),
		testutil.Thread("c1", "Trip Plan", 0),
	)
	fa := testutil.NewFakeAuth()
	fa.Accounts["ada@example.com"] = "hunter22"
	prefs := &memPrefs{}

	a := New(Deps{
		Config:        config.DefaultConfig(),
		ConfigDir:     t.TempDir(),
		Session:       fa,
		Backend:       backend,
		Prefs:         prefs,
		InitialThread: initial,
	})
	h := &harness{app: a, backend: backend, auth: fa, prefs: prefs}
	t.Cleanup(func() { a.closeFeed() })
	return h
}

func (h *harness) update(msg tea.Msg) tea.Cmd {
	_, cmd := h.app.Update(msg)
	return cmd
}

// signedIn resolves the gate to the main screen with threads loaded.
func (h *harness) signedIn(t *testing.T) {
	t.Helper()
	h.update(tui.AuthResolvedMsg{Status: auth.StatusAuthenticated})
	require.Equal(t, tui.StateMain, h.app.Model().State)
	h.update(tui.ThreadsLoadedMsg{Threads: h.backend.Threads})
}

func TestApp_GateRoutes(t *testing.T) {
	h := newHarness(t, "")
	require.Equal(t, tui.StateLoading, h.app.Model().State)

	h.update(tui.AuthResolvedMsg{Status: auth.StatusAnonymous})
	require.Equal(t, tui.StateLogin, h.app.Model().State)
	require.Contains(t, h.app.View().Content, "Welcome back")
}

func TestApp_SignInReachesMain(t *testing.T) {
	h := newHarness(t, "")
	h.update(tui.AuthResolvedMsg{Status: auth.StatusAnonymous})

	cmd := h.update(tui.SubmitCredentialsMsg{Mode: auth.ModeSignIn, Email: "ada@example.com", Password: "hunter22"})
	result, ok := findMsg[tui.SignInResultMsg](drain(cmd))
	require.True(t, ok)
	require.NoError(t, result.Err)

	h.update(result)
	require.Equal(t, tui.StateMain, h.app.Model().State)
	require.Equal(t, []string{"signin:ada@example.com"}, h.auth.Calls())
}

func TestApp_SignInFailureStaysOnLogin(t *testing.T) {
	h := newHarness(t, "")
	h.update(tui.AuthResolvedMsg{Status: auth.StatusAnonymous})

	cmd := h.update(tui.SubmitCredentialsMsg{Mode: auth.ModeSignIn, Email: "ada@example.com", Password: "nope"})
	result, ok := findMsg[tui.SignInResultMsg](drain(cmd))
	require.True(t, ok)

	h.update(result)
	require.Equal(t, tui.StateLogin, h.app.Model().State)
	require.Equal(t, auth.NoAccountText, h.app.Login().ErrText())
}

func TestApp_InitialThreadOpensAfterLoad(t *testing.T) {
	h := newHarness(t, "c1")
	h.signedIn(t)

	require.Equal(t, "c1", h.app.Thread().ThreadID())
	require.Equal(t, "c1", h.app.Sidebar().Active())
	require.Equal(t, tui.FocusThread, h.app.Model().Focus)
	require.Contains(t, h.backend.Calls(), "subscribe:c1")
}

func TestApp_UnknownInitialThreadIgnored(t *testing.T) {
	h := newHarness(t, "gone")
	h.signedIn(t)
	require.Empty(t, h.app.Thread().ThreadID())
}

func TestApp_StaleFeedDropped(t *testing.T) {
	h := newHarness(t, "")
	h.signedIn(t)

	h.update(tui.SelectThreadMsg{ThreadID: "c1"})
	oldGen := h.app.Thread().Gen()
	h.update(tui.SelectThreadMsg{ThreadID: "c2"})
	require.Equal(t, "c2", h.app.Thread().ThreadID())
	require.Greater(t, h.app.Thread().Gen(), oldGen)

	stale := tui.FeedMsg{ThreadID: "c1", Gen: oldGen, Event: chat.FeedEvent{
		ThreadID: "c1",
		Messages: []chat.Message{testutil.Msg("c1", "m1", chat.AuthorUser, "old", 1)},
	}}
	require.Nil(t, h.update(stale))
	require.Empty(t, h.app.Thread().Messages())

	current := tui.FeedMsg{ThreadID: "c2", Gen: h.app.Thread().Gen(), Event: chat.FeedEvent{
		ThreadID: "c2",
		Messages: []chat.Message{testutil.Msg("c2", "m2", chat.AuthorUser, "milk", 1)},
	}}
	require.NotNil(t, h.update(current))
	require.Len(t, h.app.Thread().Messages(), 1)
}

func TestApp_SendCompletesAfterThreadSwitch(t *testing.T) {
	h := newHarness(t, "")
	h.signedIn(t)
	h.update(tui.SelectThreadMsg{ThreadID: "c1"})
	h.update(tui.FeedMsg{ThreadID: "c1", Gen: h.app.Thread().Gen(), Event: chat.FeedEvent{ThreadID: "c1"}})

	h.update(tea.KeyPressMsg{Code: 'h', Text: "hello"})
	req, ok := findMsg[tui.SendRequestMsg](drain(h.update(tea.KeyPressMsg{Code: tea.KeyEnter})))
	require.True(t, ok)
	require.True(t, h.app.Thread().Sending())

	sendCmd := h.update(req)
	require.NotNil(t, sendCmd)

	// Switch away before the send finishes; the send itself still runs.
	h.update(tui.SelectThreadMsg{ThreadID: "c2"})
	result, ok := findMsg[tui.SendResultMsg](drain(sendCmd))
	require.True(t, ok)
	require.NoError(t, result.Err)
	require.Equal(t, []string{"insert:c1:hello", "trigger:c1:hello"}, filterCalls(h.backend.Calls(), "insert:", "trigger:"))

	reload := h.update(result)
	require.Equal(t, "c2", h.app.Thread().ThreadID())
	require.False(t, h.app.Thread().Sending())
	require.False(t, h.app.Thread().Composing())

	loaded, ok := findMsg[tui.ThreadsLoadedMsg](drain(reload))
	require.True(t, ok)
	require.Len(t, loaded.Threads, 2)
}

func TestApp_StaleSendRequestDropped(t *testing.T) {
	h := newHarness(t, "")
	h.signedIn(t)
	h.update(tui.SelectThreadMsg{ThreadID: "c1"})
	gen := h.app.Thread().Gen()
	h.update(tui.SelectThreadMsg{ThreadID: "c2"})

	require.Nil(t, h.update(tui.SendRequestMsg{ThreadID: "c1", Gen: gen, Content: "late"}))
}

func TestApp_CreateThread(t *testing.T) {
	h := newHarness(t, "")
	h.signedIn(t)

	msgs := drain(h.update(ctrlKey('n')))
	created, ok := findMsg[tui.ThreadCreatedMsg](msgs)
	require.True(t, ok)
	require.NoError(t, created.Err)
	require.Equal(t, chat.DefaultThreadTitle, created.Thread.Title)

	h.update(created)
	require.Equal(t, created.Thread.ID, h.app.Thread().ThreadID())
	require.Equal(t, created.Thread.ID, h.app.Sidebar().Threads()[0].ID)
	require.Equal(t, tui.FocusThread, h.app.Model().Focus)
}

func TestApp_CreateThreadFailure(t *testing.T) {
	h := newHarness(t, "")
	h.signedIn(t)

	cmd := h.update(tui.ThreadCreatedMsg{Err: errors.New("boom")})
	toast, ok := findMsg[tui.ToastMsg](drain(cmd))
	require.True(t, ok)
	require.Equal(t, tui.ToastError, toast.Kind)
	require.Equal(t, ThreadCreateFailedText, toast.Text)
	require.Empty(t, h.app.Thread().ThreadID())
}

func TestApp_SignOutReturnsToLogin(t *testing.T) {
	h := newHarness(t, "c1")
	h.signedIn(t)
	require.Equal(t, "c1", h.app.Thread().ThreadID())

	msgs := drain(h.update(ctrlKey('o')))
	out, ok := findMsg[tui.SignedOutMsg](msgs)
	require.True(t, ok)

	h.update(out)
	require.Equal(t, tui.StateLogin, h.app.Model().State)
	require.Empty(t, h.app.Thread().ThreadID())
	require.Contains(t, h.auth.Calls(), "signout")
}

func TestApp_Toasts(t *testing.T) {
	h := newHarness(t, "")
	h.update(tui.AuthResolvedMsg{Status: auth.StatusAnonymous})

	require.NotNil(t, h.update(tui.ToastMsg{Kind: tui.ToastSuccess, Text: "Saved"}))
	items := h.app.Model().Toasts.Items()
	require.Len(t, items, 1)
	require.Contains(t, h.app.View().Content, "Saved")

	h.update(tui.ToastExpireMsg{ID: items[0].ID})
	require.Empty(t, h.app.Model().Toasts.Items())
}

func TestApp_ToggleThemePersists(t *testing.T) {
	h := newHarness(t, "")
	dir := h.app.deps.ConfigDir

	onDisk := config.DefaultConfig()
	onDisk.Composer.MaxChars = 500
	require.NoError(t, config.WriteConfig(dir, onDisk))

	// The running config carries an environment override that must not be
	// written back.
	h.app.deps.Config.Backend.GraphQLURL = "https://override.example/v1/graphql"
	h.signedIn(t)

	cmd := h.update(ctrlKey('t'))
	require.Equal(t, tui.ThemeLight, h.app.Model().Theme.Name())

	saved, ok := findMsg[tui.ThemeSavedMsg](drain(cmd))
	require.True(t, ok)
	require.NoError(t, saved.Err)

	cfg, err := config.ReadConfig(dir)
	require.NoError(t, err)
	require.Equal(t, config.ThemeLight, cfg.UI.Theme)
	require.Equal(t, 500, cfg.Composer.MaxChars)
	require.Equal(t, onDisk.Backend.GraphQLURL, cfg.Backend.GraphQLURL)
}

func TestApp_KeyboardEnhancementsUpdateNewlineHint(t *testing.T) {
	h := newHarness(t, "c1")
	h.update(tea.WindowSizeMsg{Width: 160, Height: 40})
	h.signedIn(t)
	require.Contains(t, h.app.View().Content, "ctrl+j new line")

	h.update(tea.KeyboardEnhancementsMsg{Flags: 1})
	require.True(t, h.app.Model().ShiftEnter)
	require.Contains(t, h.app.View().Content, "shift+enter new line")

	// Views opened later keep the hint.
	h.update(tui.SelectThreadMsg{ThreadID: "c2"})
	require.Contains(t, h.app.View().Content, "shift+enter new line")
}

func TestApp_ViewUsesAltScreen(t *testing.T) {
	h := newHarness(t, "")
	require.True(t, h.app.View().AltScreen)
}

func TestApp_CtrlCTwiceQuits(t *testing.T) {
	h := newHarness(t, "")

	require.NotNil(t, h.update(ctrlKey('c')))
	require.True(t, h.app.Model().CtrlCPending)

	h.update(tui.CtrlCResetMsg{})
	require.False(t, h.app.Model().CtrlCPending)

	h.update(ctrlKey('c'))
	cmd := h.update(ctrlKey('c'))
	_, ok := cmd().(tea.QuitMsg)
	require.True(t, ok)
}

func filterCalls(calls []string, prefixes ...string) []string {
	return lo.Filter(calls, func(c string, _ int) bool {
		return lo.SomeBy(prefixes, func(p string) bool { return strings.HasPrefix(c, p) })
	})
}
