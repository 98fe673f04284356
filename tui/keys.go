package tui

import "github.com/charmbracelet/bubbles/key"

func Key(help string, keyboardKey ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keyboardKey...), key.WithHelp(keyboardKey[0], help))
}

type keyMap struct {
	Play   key.Binding
	Quit   key.Binding
	Help   key.Binding
	Share  key.Binding
	Clear  key.Binding
	Cancel key.Binding

	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Toggle key.Binding
	Anchor key.Binding

	TempoUp   key.Binding
	TempoDown key.Binding
	VelUp     key.Binding
	VelDown   key.Binding

	MeasuresUp   key.Binding
	MeasuresDown key.Binding
	BeatsUp      key.Binding
	BeatsDown    key.Binding
	SubsUp       key.Binding
	SubsDown     key.Binding

	OctavesUp      key.Binding
	OctavesDown    key.Binding
	BaseOctaveUp   key.Binding
	BaseOctaveDown key.Binding
	RootNext       key.Binding
	RootPrev       key.Binding
	ScaleNext      key.Binding
	ScalePrev      key.Binding
	NonDiatonic    key.Binding
	EditMode       key.Binding
}

var keys = keyMap{
	Play:   key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "play/stop")),
	Quit:   Key("quit", "q", "ctrl+c"),
	Help:   Key("help", "?"),
	Share:  Key("share link", "y"),
	Clear:  Key("clear tiles", "X"),
	Cancel: Key("cancel run", "esc"),

	Up:     Key("row up", "up", "k"),
	Down:   Key("row down", "down", "j"),
	Left:   Key("step left", "left", "h"),
	Right:  Key("step right", "right", "l"),
	Toggle: Key("toggle tile", "enter"),
	Anchor: Key("anchor run", "a"),

	TempoUp:   Key("tempo +5", "+", "="),
	TempoDown: Key("tempo -5", "-", "_"),
	VelUp:     Key("velocity +", "V"),
	VelDown:   Key("velocity -", "v"),

	MeasuresUp:   Key("measures +", "M"),
	MeasuresDown: Key("measures -", "m"),
	BeatsUp:      Key("beats +", "B"),
	BeatsDown:    Key("beats -", "b"),
	SubsUp:       Key("subdivisions +", "S"),
	SubsDown:     Key("subdivisions -", "s"),

	OctavesUp:      Key("octaves +", "O"),
	OctavesDown:    Key("octaves -", "o"),
	BaseOctaveUp:   Key("base octave +", "]"),
	BaseOctaveDown: Key("base octave -", "["),
	RootNext:       Key("next root", "R"),
	RootPrev:       Key("prev root", "r"),
	ScaleNext:      Key("next scale", "T"),
	ScalePrev:      Key("prev scale", "t"),
	NonDiatonic:    Key("non-diatonic rows", "d"),
	EditMode:       Key("single/combined", "e"),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Toggle, k.EditMode, k.Share, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.TempoUp, k.TempoDown, k.VelUp, k.VelDown, k.Share, k.Clear, k.Quit},
		{k.Up, k.Down, k.Left, k.Right, k.Toggle, k.Anchor, k.Cancel, k.EditMode},
		{k.MeasuresUp, k.MeasuresDown, k.BeatsUp, k.BeatsDown, k.SubsUp, k.SubsDown},
		{k.OctavesUp, k.OctavesDown, k.BaseOctaveUp, k.BaseOctaveDown, k.RootNext, k.RootPrev, k.ScaleNext, k.ScalePrev, k.NonDiatonic},
	}
}
