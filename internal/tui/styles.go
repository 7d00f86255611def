package tui

import "charm.land/lipgloss/v2"

// Palette holds the colors a theme renders with.
type Palette struct {
	Primary   string
	Secondary string
	Warning   string
	Error     string
	Dim       string
	Text      string
	BarBg     string
	BarFg     string
	Border    string
}

// Dark is the default palette.
var Dark = Palette{
	Primary:   "#7C3AED", // Purple
	Secondary: "#10B981", // Green
	Warning:   "#F59E0B", // Amber
	Error:     "#EF4444", // Red
	Dim:       "#6B7280", // Gray
	Text:      "#F9FAFB",
	BarBg:     "#1F2937",
	BarFg:     "#9CA3AF",
	Border:    "#374151",
}

// Light is the palette for light terminals.
var Light = Palette{
	Primary:   "#6D28D9",
	Secondary: "#047857",
	Warning:   "#B45309",
	Error:     "#B91C1C",
	Dim:       "#6B7280",
	Text:      "#111827",
	BarBg:     "#E5E7EB",
	BarFg:     "#374151",
	Border:    "#D1D5DB",
}

// Styles are the lipgloss styles derived from a Palette.
type Styles struct {
	// Box provides a rounded border box with primary color.
	Box lipgloss.Style
	// Pane is a box for unfocused panes.
	Pane     lipgloss.Style
	Title    lipgloss.Style
	Selected lipgloss.Style
	Dim      lipgloss.Style
	Text     lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	// StatusBar provides styling for the bottom help line.
	StatusBar lipgloss.Style
	User      lipgloss.Style
	Bot       lipgloss.Style
}

// NewStyles builds Styles from p.
func NewStyles(p Palette) Styles {
	return Styles{
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.Primary)).
			Padding(0, 1),
		Pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.Border)).
			Padding(0, 1),
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Primary)).
			Bold(true),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Primary)).
			Bold(true),
		Dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Dim)),
		Text: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Text)),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Secondary)),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Error)),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Warning)),
		StatusBar: lipgloss.NewStyle().
			Background(lipgloss.Color(p.BarBg)).
			Foreground(lipgloss.Color(p.BarFg)).
			Padding(0, 1),
		User: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Secondary)).
			Bold(true),
		Bot: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Primary)).
			Bold(true),
	}
}
