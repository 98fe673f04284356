package theme

import (
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Tile states
	Empty  rune // · unselected
	Beat   rune // : unselected on a beat boundary
	Single rune // ● one hit

	// Combined runs, by role
	RunLone     rune // ■
	RunStart    rune // ╺
	RunInterior rune // ━
	RunEnd      rune // ╸

	Tentative rune // ▒ pending run while dragging
	Playhead  rune // ▼ ruler marker above the sounding step
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = Default()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Empty:  '·',
			Beat:   ':',
			Single: '●',

			RunLone:     '■',
			RunStart:    '╺',
			RunInterior: '━',
			RunEnd:      '╸',

			Tentative: '▒',
			Playhead:  '▼',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0
	RoleSurface = 0.1
	RoleMuted   = 0.3
	RoleFG      = 0.55
	RoleAccent  = 0.65
	RoleCursor  = 0.75
	RoleActive  = 0.8
	RoleWarning = 0.9
	RoleSuccess = 1.0
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return t.Color(RoleBG)
}

func (t *Theme) Surface() lipgloss.Color {
	return t.Color(RoleSurface)
}

func (t *Theme) FG() lipgloss.Color {
	return t.Color(RoleFG)
}

func (t *Theme) Accent() lipgloss.Color {
	return t.Color(RoleAccent)
}

func (t *Theme) Muted() lipgloss.Color {
	return t.Color(RoleMuted)
}

func (t *Theme) Active() lipgloss.Color {
	return t.Color(RoleActive)
}

func (t *Theme) Cursor() lipgloss.Color {
	return t.Color(RoleCursor)
}

func (t *Theme) Warning() lipgloss.Color {
	return t.Color(RoleWarning)
}

func (t *Theme) Success() lipgloss.Color {
	return t.Color(RoleSuccess)
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return lipgloss.Color(t.Palette.Lookup(norm).Hex())
}
