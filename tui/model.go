package tui

import (
	"fmt"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-tiles/config"
	"go-tiles/grid"
	"go-tiles/sequencer"
	"go-tiles/share"
	"go-tiles/theme"
	"go-tiles/tiles"
	"go-tiles/widgets"
)

const (
	labelWidth    = 8
	tempoStep     = 5
	velocityStep  = 0.05
	defaultOrigin = "http://localhost:3000"
)

// layoutBounds holds cached layout info
type layoutBounds struct {
	gridTop  int
	gridLeft int
	notes    []tiles.Note // one per screen row, top first
	geometry grid.Geometry
}

// cellAt maps a screen coordinate onto the tile drawn there
func (b *layoutBounds) cellAt(x, y int) (tiles.Key, bool) {
	row, col := y-b.gridTop, x-b.gridLeft
	if row < 0 || row >= len(b.notes) || col < 0 {
		return tiles.Key{}, false
	}
	step := col / widgets.CellWidth
	if step >= b.geometry.Steps() {
		return tiles.Key{}, false
	}
	return tiles.KeyOf(b.notes[row], b.geometry.At(step)), true
}

type Model struct {
	Session *sequencer.Session
	Theme   *theme.Theme
	Origin  string // share links point here

	keys   keyMap
	help   help.Model
	bounds *layoutBounds

	cursorRow  int
	cursorStep int
	anchor     *tiles.Key // keyboard run start
	pointer    *tiles.Key // cell under a held mouse button
	tooltip    string
	status     string
	err        error
	quitting   bool
}

type UpdateMsg struct{}

func NewModel(session *sequencer.Session, th *theme.Theme, origin string) Model {
	if origin == "" {
		origin = defaultOrigin
	}
	return Model{
		Session: session,
		Theme:   th,
		Origin:  origin,
		keys:    keys,
		help:    help.New(),
		bounds:  &layoutBounds{},
	}
}

// SetError shows err in the error box until the next key press
func (m *Model) SetError(err error) {
	m.err = err
}

func ListenForUpdates(session *sequencer.Session) tea.Cmd {
	return func() tea.Msg {
		<-session.Updates()
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.Session)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case UpdateMsg:
		return m, ListenForUpdates(m.Session)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.Session
	cfg := s.Settings()
	m.err = nil

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		s.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Play):
		if s.TogglePlayback() {
			m.status = "playing"
		} else {
			m.status = "stopped"
		}

	case key.Matches(msg, m.keys.Share):
		m.status = share.Link(m.Origin, cfg, s.Snapshot())

	case key.Matches(msg, m.keys.Clear):
		m.anchor = nil
		s.CancelTentativeRun()
		s.ClearAllTiles()
		m.status = "cleared"

	case key.Matches(msg, m.keys.Cancel):
		m.anchor = nil
		s.CancelTentativeRun()

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1, 0)
	case key.Matches(msg, m.keys.Left):
		m.moveCursor(0, -1)
	case key.Matches(msg, m.keys.Right):
		m.moveCursor(0, 1)

	case key.Matches(msg, m.keys.Anchor):
		k, ok := m.cursorKey()
		if !ok {
			break
		}
		m.anchor = &k
		m.err = s.SetTentativeRun(k, k)

	case key.Matches(msg, m.keys.Toggle):
		if m.anchor != nil {
			run := s.CommitTentativeRun()
			m.anchor = nil
			m.status = fmt.Sprintf("combined %d steps", len(run))
			break
		}
		if k, ok := m.cursorKey(); ok {
			state := s.ToggleKey(k)
			m.status = fmt.Sprintf("%s %s", k, state)
		}

	case key.Matches(msg, m.keys.TempoUp):
		s.SetTempo(cfg.BPM + tempoStep)
	case key.Matches(msg, m.keys.TempoDown):
		s.SetTempo(cfg.BPM - tempoStep)
	case key.Matches(msg, m.keys.VelUp):
		s.SetVelocity(cfg.Velocity + velocityStep)
	case key.Matches(msg, m.keys.VelDown):
		s.SetVelocity(cfg.Velocity - velocityStep)

	case key.Matches(msg, m.keys.MeasuresUp):
		s.SetGridDimensions(cfg.Measures+1, cfg.Beats, cfg.Subdivisions)
	case key.Matches(msg, m.keys.MeasuresDown):
		s.SetGridDimensions(cfg.Measures-1, cfg.Beats, cfg.Subdivisions)
	case key.Matches(msg, m.keys.BeatsUp):
		s.SetGridDimensions(cfg.Measures, cfg.Beats+1, cfg.Subdivisions)
	case key.Matches(msg, m.keys.BeatsDown):
		s.SetGridDimensions(cfg.Measures, cfg.Beats-1, cfg.Subdivisions)
	case key.Matches(msg, m.keys.SubsUp):
		s.SetGridDimensions(cfg.Measures, cfg.Beats, cfg.Subdivisions+1)
	case key.Matches(msg, m.keys.SubsDown):
		s.SetGridDimensions(cfg.Measures, cfg.Beats, cfg.Subdivisions-1)

	case key.Matches(msg, m.keys.OctavesUp):
		s.SetOctaves(cfg.Octaves + 1)
	case key.Matches(msg, m.keys.OctavesDown):
		s.SetOctaves(cfg.Octaves - 1)
	case key.Matches(msg, m.keys.BaseOctaveUp):
		s.SetBaseOctave(cfg.BaseOctave + 1)
	case key.Matches(msg, m.keys.BaseOctaveDown):
		s.SetBaseOctave(cfg.BaseOctave - 1)

	case key.Matches(msg, m.keys.RootNext):
		m.err = s.SetRootNote(shiftRoot(cfg.RootNote, 1))
	case key.Matches(msg, m.keys.RootPrev):
		m.err = s.SetRootNote(shiftRoot(cfg.RootNote, -1))
	case key.Matches(msg, m.keys.ScaleNext):
		s.SetScale(shiftScale(cfg.Scale, 1))
	case key.Matches(msg, m.keys.ScalePrev):
		s.SetScale(shiftScale(cfg.Scale, -1))
	case key.Matches(msg, m.keys.NonDiatonic):
		s.SetShowNonDiatonic(!cfg.ShowNonDiatonic)

	case key.Matches(msg, m.keys.EditMode):
		if cfg.EditMode == config.EditCombined {
			s.SetEditMode(config.EditSingle)
		} else {
			s.SetEditMode(config.EditCombined)
		}
	}

	// grid and mode changes drop the editor's pending run
	if m.anchor != nil && len(s.TentativeKeys()) == 0 {
		m.anchor = nil
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	s := m.Session
	k, onGrid := m.bounds.cellAt(msg.X, msg.Y)
	m.tooltip = ""
	if onGrid {
		m.tooltip = m.describe(k)
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !onGrid {
			return
		}
		m.err = nil
		m.anchor = nil
		s.PointerDown(k)
		m.pointer = &k
		m.placeCursor(k)

	case tea.MouseActionMotion:
		if m.pointer == nil || !onGrid || k == *m.pointer {
			return
		}
		s.PointerEnter(k)
		m.pointer = &k

	case tea.MouseActionRelease:
		s.PointerUp()
		m.pointer = nil
	}
}

func (m *Model) describe(k tiles.Key) string {
	state := m.Session.Snapshot().Get(k)
	if role := m.Session.ShapeAt(k).Role(); role != sequencer.RunNone {
		return fmt.Sprintf("%s  %s  %s", k.Note, k.Pos, roleName(role))
	}
	return fmt.Sprintf("%s  %s  %s", k.Note, k.Pos, state)
}

func (m *Model) moveCursor(dRow, dStep int) {
	rows := len(m.Session.Rows())
	steps := m.Session.Geometry().Steps()
	m.cursorRow = min(max(m.cursorRow+dRow, 0), rows-1)
	m.cursorStep = min(max(m.cursorStep+dStep, 0), steps-1)

	if m.anchor == nil {
		return
	}
	if k, ok := m.cursorKey(); ok {
		m.err = m.Session.SetTentativeRun(*m.anchor, k)
	}
}

func (m *Model) placeCursor(k tiles.Key) {
	for i, row := range m.Session.Rows() {
		if row.Note == k.Note {
			m.cursorRow = i
		}
	}
	m.cursorStep = m.Session.Geometry().Index(k.Pos)
}

func (m *Model) cursorKey() (tiles.Key, bool) {
	rows := m.Session.Rows()
	g := m.Session.Geometry()
	if len(rows) == 0 {
		return tiles.Key{}, false
	}
	row := min(max(m.cursorRow, 0), len(rows)-1)
	step := min(max(m.cursorStep, 0), g.Steps()-1)
	return tiles.KeyOf(rows[row].Note, g.At(step)), true
}

func shiftRoot(root string, d int) string {
	pc, err := tiles.ParsePitchClass(root)
	if err != nil {
		pc = tiles.C
	}
	return tiles.PitchClass((int(pc) + d + 12) % 12).Label()
}

func shiftScale(scale []int, d int) []int {
	n := len(tiles.Scales)
	i := tiles.ScaleIndex(scale)
	if i < 0 {
		i = 0
		if d < 0 {
			i = 1
		}
	}
	return tiles.Scales[(i+d+n)%n].Steps
}

func scaleName(scale []int) string {
	if i := tiles.ScaleIndex(scale); i >= 0 {
		return tiles.Scales[i].Name
	}
	return "custom"
}

func roleName(r sequencer.RunRole) string {
	switch r {
	case sequencer.RunLone:
		return "combined"
	case sequencer.RunStart:
		return "run start"
	case sequencer.RunInterior:
		return "run"
	case sequencer.RunEnd:
		return "run end"
	}
	return ""
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	s := m.Session
	cfg := s.Settings()
	g := grid.Geometry{Measures: cfg.Measures, Beats: cfg.Beats, Subdivisions: cfg.Subdivisions}
	rows := s.Rows()
	running := s.Running()

	// Styles
	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	statusStyle := lipgloss.NewStyle().Foreground(m.Theme.FG())
	tooltipStyle := lipgloss.NewStyle().
		Foreground(m.Theme.FG()).
		Background(m.Theme.Muted()).
		Padding(0, 1)

	playState := "STOP"
	badgeStyle := lipgloss.NewStyle().Foreground(m.Theme.BG()).Background(m.Theme.Muted()).Padding(0, 1)
	if running {
		playState = "PLAY"
		badgeStyle = badgeStyle.Background(m.Theme.Success())
	}
	info := fmt.Sprintf("%gbpm  %d×%d×%d  vel %.2f  %s %s  %s",
		cfg.BPM, cfg.Measures, cfg.Beats, cfg.Subdivisions, cfg.Velocity,
		cfg.RootNote, scaleName(cfg.Scale), cfg.EditMode)
	if st := s.EditorState(); st != sequencer.Idle {
		info += "  " + st.String()
	}
	header := headerStyle.Render("go-tiles  ") + badgeStyle.Render(playState) + headerStyle.Render("  "+info)

	playhead := -1
	if running {
		playhead = g.Index(s.Location().Sounding)
	}
	ruler := widgets.RenderRuler(g.Steps(), g.Subdivisions, playhead, labelWidth,
		m.Theme.Symbols.Playhead, lipgloss.NewStyle().Foreground(m.Theme.Warning()), dimStyle)

	gridView := m.renderGrid(rows, g, playhead, running)

	legend := widgets.RenderLegend([]widgets.LegendItem{
		{Color: m.Theme.Active(), Glyph: m.Theme.Symbols.Single, Name: "single"},
		{Color: m.Theme.Accent(), Glyph: m.Theme.Symbols.RunInterior, Name: "combined"},
		{Color: m.Theme.Warning(), Glyph: m.Theme.Symbols.Tentative, Name: "pending run"},
		{Color: m.Theme.Success(), Glyph: m.Theme.Symbols.Single, Name: "playing"},
	})

	// Compute layout bounds
	m.bounds.gridTop = 1 + lipgloss.Height(header) + 1 + lipgloss.Height(ruler)
	m.bounds.gridLeft = labelWidth
	m.bounds.geometry = g
	m.bounds.notes = m.bounds.notes[:0]
	for _, row := range rows {
		m.bounds.notes = append(m.bounds.notes, row.Note)
	}

	// Build output
	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(ruler)
	out.WriteString("\n")
	out.WriteString(gridView)
	out.WriteString("\n\n")
	out.WriteString(legend)
	out.WriteString("\n")

	if m.err != nil {
		out.WriteString(m.renderError())
		out.WriteString("\n")
	} else if m.status != "" {
		out.WriteString(statusStyle.Render(m.status))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	out.WriteString(m.help.View(m.keys))

	if m.tooltip != "" {
		out.WriteString("\n")
		out.WriteString(tooltipStyle.Render(m.tooltip))
	}

	return out.String()
}

func (m Model) renderGrid(rows []tiles.Row, g grid.Geometry, playhead int, running bool) string {
	s := m.Session
	snap := s.Snapshot()

	tentative := make(map[tiles.Key]bool)
	for _, k := range s.TentativeKeys() {
		tentative[k] = true
	}
	lit := make(map[tiles.Key]bool)
	if res, ok := s.LastResult(); ok && running {
		for _, k := range res.Played {
			lit[k] = true
		}
		for _, k := range res.RunStarted {
			lit[k] = true
		}
	}

	cursor, hasCursor := m.cursorKey()
	sym := m.Theme.Symbols

	gridRows := make([]widgets.GridRow, len(rows))
	for r, row := range rows {
		labelStyle := lipgloss.NewStyle().Foreground(m.Theme.FG())
		switch {
		case row.Root:
			labelStyle = labelStyle.Foreground(m.Theme.Accent())
		case !row.Diatonic:
			labelStyle = labelStyle.Foreground(m.Theme.Muted())
		}

		cells := make([]widgets.Cell, g.Steps())
		for i := range cells {
			k := tiles.KeyOf(row.Note, g.At(i))
			cell := widgets.Cell{Glyph: sym.Empty, Style: lipgloss.NewStyle().Foreground(m.Theme.Muted())}
			if k.Pos.Subdivision == 0 {
				cell.Glyph = sym.Beat
			}

			switch {
			case tentative[k]:
				cell.Glyph = sym.Tentative
				cell.Fill = sym.Tentative
				cell.Style = cell.Style.Foreground(m.Theme.Warning())
			case snap.Get(k) == tiles.Single:
				cell.Glyph = sym.Single
				cell.Style = cell.Style.Foreground(m.Theme.Active())
			case snap.Get(k) == tiles.Combined:
				role := sequencer.ShapeAt(snap, g, k).Role()
				cell.Glyph = runGlyph(sym, role)
				if role == sequencer.RunStart || role == sequencer.RunInterior {
					cell.Fill = sym.RunInterior
				}
				cell.Style = cell.Style.Foreground(m.Theme.Accent())
			}

			if lit[k] {
				cell.Style = cell.Style.Foreground(m.Theme.Success())
			}
			if i == playhead {
				cell.Style = cell.Style.Background(m.Theme.Surface())
			}
			if hasCursor && k == cursor {
				cell.Style = cell.Style.Background(m.Theme.Cursor())
			}
			cells[i] = cell
		}

		gridRows[r] = widgets.GridRow{Label: row.Label, LabelStyle: labelStyle, Cells: cells}
	}

	return widgets.RenderGrid(gridRows, labelWidth)
}

func runGlyph(sym theme.Symbols, role sequencer.RunRole) rune {
	switch role {
	case sequencer.RunStart:
		return sym.RunStart
	case sequencer.RunInterior:
		return sym.RunInterior
	case sequencer.RunEnd:
		return sym.RunEnd
	}
	return sym.RunLone
}

func (m Model) renderError() string {
	style := lipgloss.NewStyle().Width(50)
	style = style.Border(lipgloss.NormalBorder())
	style = style.Padding(0, 1)
	style = style.BorderForeground(m.Theme.Warning())

	var errorBuf strings.Builder
	errorBuf.WriteString("ERROR: ")
	issue := fmsg.GetIssue(m.err)
	if issue != "" {
		errorBuf.WriteString(issue)
	} else {
		chain := fault.Flatten(m.err)
		errorBuf.WriteString(chain[0].Message)
	}
	return style.Render(errorBuf.String())
}
