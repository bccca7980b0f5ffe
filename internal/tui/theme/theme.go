// Package theme defines the color palettes for the breathsave dashboard.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme maps color roles to concrete colors.
type Theme struct {
	Name string

	Background    lipgloss.Color // app background
	Surface       lipgloss.Color // cards and panels
	SurfaceBright lipgloss.Color // selected rows, active tab
	Border        lipgloss.Color
	BorderAccent  lipgloss.Color // focused cards, dialogs

	TextDim     lipgloss.Color // hints, axes
	TextMuted   lipgloss.Color // labels
	TextPrimary lipgloss.Color

	Accent       lipgloss.Color
	AccentBright lipgloss.Color

	Green  lipgloss.Color
	Orange lipgloss.Color
	Red    lipgloss.Color
	Blue   lipgloss.Color
	Yellow lipgloss.Color
	Cyan   lipgloss.Color

	// Segments colors clusters by id; ids past the end wrap around.
	Segments []lipgloss.Color
}

// Savings is the color used for money amounts.
func (t Theme) Savings() lipgloss.Color { return t.Green }

// Smoked is the color used for cigarettes smoked.
func (t Theme) Smoked() lipgloss.Color { return t.Red }

// Points is the color used for reward points.
func (t Theme) Points() lipgloss.Color { return t.Yellow }

// Segment returns the color for cluster id.
func (t Theme) Segment(id int) lipgloss.Color {
	if len(t.Segments) == 0 || id < 0 {
		return t.Accent
	}
	return t.Segments[id%len(t.Segments)]
}

// FlexokiDark is the default theme.
var FlexokiDark = Theme{
	Name:          "flexoki-dark",
	Background:    "#100F0F",
	Surface:       "#1C1B1A",
	SurfaceBright: "#343331",
	Border:        "#403E3C",
	BorderAccent:  "#3AA99F",
	TextDim:       "#575653",
	TextMuted:     "#878580",
	TextPrimary:   "#FFFCF0",
	Accent:        "#3AA99F",
	AccentBright:  "#5BC8BE",
	Green:         "#879A39",
	Orange:        "#DA702C",
	Red:           "#D14D41",
	Blue:          "#4385BE",
	Yellow:        "#D0A215",
	Cyan:          "#24837B",
	Segments:      []lipgloss.Color{"#879A39", "#4385BE", "#DA702C", "#CE5D97", "#D0A215"},
}

// CatppuccinMocha is a soft pastel theme.
var CatppuccinMocha = Theme{
	Name:          "catppuccin-mocha",
	Background:    "#1E1E2E",
	Surface:       "#313244",
	SurfaceBright: "#585B70",
	Border:        "#585B70",
	BorderAccent:  "#89B4FA",
	TextDim:       "#6C7086",
	TextMuted:     "#A6ADC8",
	TextPrimary:   "#CDD6F4",
	Accent:        "#89B4FA",
	AccentBright:  "#B4D0FB",
	Green:         "#A6E3A1",
	Orange:        "#FAB387",
	Red:           "#F38BA8",
	Blue:          "#89B4FA",
	Yellow:        "#F9E2AF",
	Cyan:          "#94E2D5",
	Segments:      []lipgloss.Color{"#A6E3A1", "#89B4FA", "#FAB387", "#F5C2E7", "#F9E2AF"},
}

// TokyoNight is a cool blue theme.
var TokyoNight = Theme{
	Name:          "tokyo-night",
	Background:    "#1A1B26",
	Surface:       "#24283B",
	SurfaceBright: "#414868",
	Border:        "#565F89",
	BorderAccent:  "#7AA2F7",
	TextDim:       "#565F89",
	TextMuted:     "#A9B1D6",
	TextPrimary:   "#C0CAF5",
	Accent:        "#7AA2F7",
	AccentBright:  "#A9C1FF",
	Green:         "#9ECE6A",
	Orange:        "#FF9E64",
	Red:           "#F7768E",
	Blue:          "#7AA2F7",
	Yellow:        "#E0AF68",
	Cyan:          "#7DCFFF",
	Segments:      []lipgloss.Color{"#9ECE6A", "#7AA2F7", "#FF9E64", "#BB9AF7", "#E0AF68"},
}

// Terminal sticks to the 16 ANSI colors.
var Terminal = Theme{
	Name:          "terminal",
	Background:    "0",
	Surface:       "0",
	SurfaceBright: "8",
	Border:        "8",
	BorderAccent:  "6",
	TextDim:       "8",
	TextMuted:     "7",
	TextPrimary:   "15",
	Accent:        "6",
	AccentBright:  "14",
	Green:         "2",
	Orange:        "3",
	Red:           "1",
	Blue:          "4",
	Yellow:        "3",
	Cyan:          "6",
	Segments:      []lipgloss.Color{"2", "4", "3", "5", "6"},
}

// Active is the theme every renderer reads.
var Active = FlexokiDark

// All lists the selectable themes; the first is the default.
var All = []Theme{FlexokiDark, CatppuccinMocha, TokyoNight, Terminal}

// Names returns the names of All in order.
func Names() []string {
	names := make([]string, len(All))
	for i, t := range All {
		names[i] = t.Name
	}
	return names
}

// ByName returns the named theme and whether it exists. Unknown names
// return the default.
func ByName(name string) (Theme, bool) {
	for _, t := range All {
		if t.Name == name {
			return t, true
		}
	}
	return All[0], false
}

// SetActive switches the active theme, reporting whether name was known.
func SetActive(name string) bool {
	t, ok := ByName(name)
	Active = t
	return ok
}
