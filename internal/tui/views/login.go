package views

import (
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/berth-dev/threadline/internal/auth"
	"github.com/berth-dev/threadline/internal/tui"
)

// ============================================================================
// Message Types
// ============================================================================

// RevertToSignInMsg flips the form back to sign-in after a registration.
// Seq ties it to the registration that scheduled it.
type RevertToSignInMsg struct {
	Seq int
}

const (
	fieldEmail = iota
	fieldPassword
)

// ============================================================================
// LoginModel
// ============================================================================

// LoginModel is the credential form shown to anonymous users.
type LoginModel struct {
	mode        auth.Mode
	inputs      [2]textinput.Model
	focus       int
	reveal      bool
	submitting  bool
	errText     string
	info        string
	revertSeq   int
	revertDelay time.Duration
	theme       *tui.Theme
	width       int
	height      int
}

// NewLoginModel creates a LoginModel in sign-in mode.
func NewLoginModel(theme *tui.Theme, revertDelay time.Duration, width, height int) LoginModel {
	if revertDelay <= 0 {
		revertDelay = auth.DefaultSignUpRevertDelay
	}

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = ""
	email.CharLimit = 254
	email.SetWidth(36)
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = ""
	password.CharLimit = 128
	password.SetWidth(36)
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	return LoginModel{
		inputs:      [2]textinput.Model{email, password},
		revertDelay: revertDelay,
		theme:       theme,
		width:       width,
		height:      height,
	}
}

// Init returns the initial command for the login view.
func (m LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

// Mode returns the form's mode.
func (m LoginModel) Mode() auth.Mode { return m.mode }

// Submitting reports whether a request is in flight.
func (m LoginModel) Submitting() bool { return m.submitting }

// ErrText returns the inline error.
func (m LoginModel) ErrText() string { return m.errText }

// Info returns the inline success text.
func (m LoginModel) Info() string { return m.info }

// Revealed reports whether the password is shown in clear text.
func (m LoginModel) Revealed() bool { return m.reveal }

// Update handles messages for the login view.
func (m LoginModel) Update(msg tea.Msg) (LoginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tui.SignInResultMsg:
		m.submitting = false
		if msg.Err == nil {
			return m, nil
		}
		m.inputs[fieldPassword].Reset()
		text, toast := auth.SignInFailure(msg.Err)
		m.errText = text
		if toast {
			return m, toastCmd(tui.ToastError, text)
		}
		return m, nil

	case tui.SignUpResultMsg:
		m.submitting = false
		m.inputs[fieldPassword].Reset()
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			return m, toastCmd(tui.ToastError, m.errText)
		}
		m.errText = ""
		m.info = auth.SignUpSuccessText
		m.revertSeq++
		seq := m.revertSeq
		return m, tea.Batch(
			toastCmd(tui.ToastSuccess, auth.SignUpSuccessText),
			tea.Tick(m.revertDelay, func(time.Time) tea.Msg { return RevertToSignInMsg{Seq: seq} }),
		)

	case RevertToSignInMsg:
		if msg.Seq == m.revertSeq && m.mode == auth.ModeSignUp {
			m.mode = auth.ModeSignIn
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m LoginModel) handleKey(msg tea.KeyPressMsg) (LoginModel, tea.Cmd) {
	keys := tui.DefaultKeyMap

	switch {
	case key.Matches(msg, keys.ToggleMode):
		if m.submitting {
			return m, nil
		}
		m.mode = m.mode.Toggle()
		m.errText, m.info = "", ""
		m.revertSeq++ // a pending revert no longer applies
		return m, nil

	case key.Matches(msg, keys.RevealPassword):
		m.reveal = !m.reveal
		if m.reveal {
			m.inputs[fieldPassword].EchoMode = textinput.EchoNormal
		} else {
			m.inputs[fieldPassword].EchoMode = textinput.EchoPassword
		}
		return m, nil
	}

	switch msg.String() {
	case tui.KeyTab, tui.KeyDown, tui.KeyShiftTab, tui.KeyUp:
		return m, m.setFocus(1 - m.focus)

	case tui.KeyEnter:
		return m.submit()
	}

	if m.submitting {
		return m, nil
	}
	before := m.inputs[m.focus].Value()
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if m.inputs[m.focus].Value() != before {
		m.errText = ""
	}
	return m, cmd
}

func (m *LoginModel) setFocus(field int) tea.Cmd {
	m.focus = field
	for i := range m.inputs {
		if i == field {
			continue
		}
		m.inputs[i].Blur()
	}
	return m.inputs[field].Focus()
}

func (m LoginModel) submit() (LoginModel, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	email := strings.TrimSpace(m.inputs[fieldEmail].Value())
	password := m.inputs[fieldPassword].Value()
	if err := auth.ValidateCredentials(email, password); err != nil {
		m.errText = err.Error()
		return m, nil
	}

	m.submitting = true
	m.errText = ""
	mode := m.mode
	return m, func() tea.Msg {
		return tui.SubmitCredentialsMsg{Mode: mode, Email: email, Password: password}
	}
}

// View renders the credential form.
func (m LoginModel) View() string {
	s := m.theme.S()
	var b strings.Builder

	title, subtitle, action, busy := "Welcome back", "Sign in to continue your conversations", "Sign In", "Signing in..."
	if m.mode == auth.ModeSignUp {
		title, subtitle, action, busy = "Create an account", "Start chatting in seconds", "Sign Up", "Creating account..."
	}

	b.WriteString(s.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(s.Dim.Render(subtitle))
	b.WriteString("\n\n")

	b.WriteString(m.label("Email", fieldEmail))
	b.WriteString("\n")
	b.WriteString(m.inputs[fieldEmail].View())
	b.WriteString("\n\n")

	reveal := "ctrl+r show"
	if m.reveal {
		reveal = "ctrl+r hide"
	}
	b.WriteString(m.label("Password", fieldPassword) + "  " + s.Dim.Render(reveal))
	b.WriteString("\n")
	b.WriteString(m.inputs[fieldPassword].View())
	b.WriteString("\n")

	if m.mode == auth.ModeSignUp {
		if pw := m.inputs[fieldPassword].Value(); pw != "" {
			b.WriteString(m.strengthHint(auth.PasswordStrength(pw)))
			b.WriteString("\n")
		}
	}

	if m.errText != "" {
		b.WriteString("\n")
		b.WriteString(s.Error.Render(m.errText))
		b.WriteString("\n")
	}
	if m.info != "" {
		b.WriteString("\n")
		b.WriteString(s.Success.Render(m.info))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.submitting {
		b.WriteString(s.Dim.Render("[ " + busy + " ]"))
	} else {
		b.WriteString(s.Selected.Render("[ " + action + " ]"))
	}
	b.WriteString("\n\n")

	toggle := "Don't have an account? ctrl+s to sign up"
	if m.mode == auth.ModeSignUp {
		toggle = "Already have an account? ctrl+s to sign in"
	}
	b.WriteString(s.Dim.Render(toggle))

	boxed := s.Box.Padding(1, 3).Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, boxed)
}

func (m LoginModel) label(text string, field int) string {
	s := m.theme.S()
	if m.focus == field {
		return s.Selected.Render(text)
	}
	return s.Text.Render(text)
}

func (m LoginModel) strengthHint(st auth.Strength) string {
	s := m.theme.S()
	text := "Password strength: " + st.String()
	switch st {
	case auth.StrengthStrong:
		return s.Success.Render(text)
	case auth.StrengthFair:
		return s.Warning.Render(text)
	default:
		return s.Error.Render(text)
	}
}

// toastCmd emits a toast request for the app to display.
func toastCmd(kind tui.ToastKind, text string) tea.Cmd {
	return func() tea.Msg {
		return tui.ToastMsg{Kind: kind, Text: text}
	}
}
