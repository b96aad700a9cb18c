package styles

import (
	"image/color"

	"github.com/charmbracelet/bubbles/v2/help"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"
)

type Theme struct {
	Primary   color.Color
	Secondary color.Color
	Tertiary  color.Color

	FgBase   color.Color
	FgMuted  color.Color
	FgSubtle color.Color
	BgBase   color.Color
	BgSubtle color.Color

	Border      color.Color
	BorderFocus color.Color

	Success color.Color
	Error   color.Color
	Warning color.Color

	styles *Styles
}

type Styles struct {
	Base   lipgloss.Style
	Muted  lipgloss.Style
	Subtle lipgloss.Style

	Header      lipgloss.Style
	Author      lipgloss.Style
	Timestamp   lipgloss.Style
	Content     lipgloss.Style
	Reply       lipgloss.Style
	Highlighted lipgloss.Style
	Tombstone   lipgloss.Style
	Divider     lipgloss.Style
	Loader      lipgloss.Style
	Empty       lipgloss.Style

	Prompt lipgloss.Style
	Status lipgloss.Style
	Error  lipgloss.Style

	DevTools lipgloss.Style

	Help help.Styles
}

var defaultTheme = NewCharmtoneTheme()

func CurrentTheme() *Theme {
	return defaultTheme
}

func NewCharmtoneTheme() *Theme {
	return &Theme{
		Primary:   charmtone.Charple,
		Secondary: charmtone.Dolly,
		Tertiary:  charmtone.Bok,

		FgBase:   charmtone.Ash,
		FgMuted:  charmtone.Squid,
		FgSubtle: charmtone.Oyster,
		BgBase:   charmtone.Pepper,
		BgSubtle: charmtone.Charcoal,

		Border:      charmtone.Charcoal,
		BorderFocus: charmtone.Charple,

		Success: charmtone.Guac,
		Error:   charmtone.Sriracha,
		Warning: charmtone.Zest,
	}
}

// S returns the styles built from the theme, building them on first use.
func (t *Theme) S() *Styles {
	if t.styles == nil {
		t.styles = t.buildStyles()
	}
	return t.styles
}

func (t *Theme) buildStyles() *Styles {
	base := lipgloss.NewStyle().Foreground(t.FgBase)
	return &Styles{
		Base:   base,
		Muted:  base.Foreground(t.FgMuted),
		Subtle: base.Foreground(t.FgSubtle),

		Header:      base.Foreground(t.Primary).Bold(true),
		Author:      base.Foreground(t.Secondary).Bold(true),
		Timestamp:   base.Foreground(t.FgSubtle),
		Content:     base,
		Reply:       base.Foreground(t.FgMuted).Border(lipgloss.ThickBorder(), false, false, false, true).BorderForeground(t.Tertiary).PaddingLeft(1),
		Highlighted: base.Background(t.BgSubtle),
		Tombstone:   base.Foreground(t.FgSubtle).Italic(true),
		Divider:     base.Foreground(t.FgMuted),
		Loader:      base.Foreground(t.Tertiary),
		Empty:       base.Foreground(t.FgMuted).Italic(true),

		Prompt: base.Foreground(t.Primary),
		Status: base.Foreground(t.Success),
		Error:  base.Foreground(t.Error),

		DevTools: base.
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderFocus).
			Padding(0, 1),

		Help: help.Styles{
			ShortKey:       base.Foreground(t.FgMuted),
			ShortDesc:      base.Foreground(t.FgSubtle),
			ShortSeparator: base.Foreground(t.Border),
			Ellipsis:       base.Foreground(t.Border),
			FullKey:        base.Foreground(t.FgMuted),
			FullDesc:       base.Foreground(t.FgSubtle),
			FullSeparator:  base.Foreground(t.Border),
		},
	}
}
