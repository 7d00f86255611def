package tui

// ViewState is the exclusive auth gate state.
type ViewState int

const (
	StateLoading ViewState = iota // session being restored
	StateLogin                    // credential form
	StateMain                     // sidebar + thread view
)

func (s ViewState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLogin:
		return "login"
	case StateMain:
		return "main"
	default:
		return "unknown"
	}
}

// Focus is the pane receiving keys on the main screen.
type Focus int

const (
	FocusSidebar Focus = iota
	FocusThread
)

// Model holds the state shared across views.
type Model struct {
	State        ViewState
	Focus        Focus
	Width        int
	Height       int
	CtrlCPending bool
	// ShiftEnter is set once the terminal reports key disambiguation.
	ShiftEnter bool

	Theme  *Theme
	Toasts *Toaster
}

// NewModel creates a Model in the loading state.
func NewModel(theme *Theme, toasts *Toaster) *Model {
	return &Model{
		State:  StateLoading,
		Focus:  FocusSidebar,
		Width:  80,
		Height: 24,
		Theme:  theme,
		Toasts: toasts,
	}
}
