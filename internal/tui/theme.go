package tui

// Theme names.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Theme is the active color scheme. Views hold a pointer to the one Theme
// created by the app, so a toggle restyles every view on the next render.
type Theme struct {
	name   string
	styles Styles
}

// NewTheme returns the named theme; unknown names get the dark theme.
func NewTheme(name string) *Theme {
	t := &Theme{}
	t.set(name)
	return t
}

func (t *Theme) set(name string) {
	if name == ThemeLight {
		t.name = ThemeLight
		t.styles = NewStyles(Light)
		return
	}
	t.name = ThemeDark
	t.styles = NewStyles(Dark)
}

// Name returns "dark" or "light".
func (t *Theme) Name() string {
	return t.name
}

// Toggle switches between dark and light and returns the new name.
func (t *Theme) Toggle() string {
	if t.name == ThemeDark {
		t.set(ThemeLight)
	} else {
		t.set(ThemeDark)
	}
	return t.name
}

// S returns the theme's styles.
func (t *Theme) S() Styles {
	return t.styles
}
