package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
)

// EditMode selects what a click or drag writes into the grid
type EditMode string

const (
	EditSingle   EditMode = "single"   // discrete hits
	EditCombined EditMode = "combined" // legato runs
)

// Limits for user-editable values
const (
	MinLength = 1
	MaxLength = 128 // measures, beats and subdivisions

	MinOctaves = 1
	MaxOctaves = 8

	MinBaseOctave = 0
	MaxBaseOctave = 8

	MinBPM = 1.0
	MaxBPM = 999.0
)

// SequencerConfig holds the musical settings of a session
type SequencerConfig struct {
	Measures        int      `json:"measures"`
	Beats           int      `json:"beats"`
	Subdivisions    int      `json:"subdivisions"`
	BPM             float64  `json:"bpm"`
	Velocity        float64  `json:"velocity"`
	Octaves         int      `json:"octaves"`
	BaseOctave      int      `json:"baseOctave"`
	RootNote        string   `json:"rootNote"`
	Scale           []int    `json:"scale,omitempty"`
	ShowNonDiatonic bool     `json:"showNonDiatonic,omitempty"`
	EditMode        EditMode `json:"editMode"`
}

// OutputConfig defines the MIDI output used as the instrument
type OutputConfig struct {
	PortName string `json:"portName,omitempty"`
	Channel  int    `json:"channel,omitempty"` // 1-16
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette string `json:"palette,omitempty"` // path to a GIMP .gpl file
}

// Config is the main configuration structure
type Config struct {
	Sequencer SequencerConfig `json:"sequencer"`
	Output    OutputConfig    `json:"output,omitempty"`
	UI        UIConfig        `json:"ui,omitempty"`
}

// DefaultSequencer returns the settings a fresh session starts with
func DefaultSequencer() SequencerConfig {
	return SequencerConfig{
		Measures:     1,
		Beats:        4,
		Subdivisions: 4,
		BPM:          120,
		Velocity:     0.5,
		Octaves:      2,
		BaseOctave:   4,
		RootNote:     "C",
		Scale:        []int{0, 2, 4, 7, 9},
		EditMode:     EditSingle,
	}
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Sequencer: DefaultSequencer(),
		Output: OutputConfig{
			Channel: 1,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-tiles"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. Missing files yield defaults, missing
// fields keep their defaults, and out-of-range values are clamped.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fault.Wrap(err, fmsg.WithDesc("read config", "Could not read "+path))
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fault.Wrap(err, fmsg.WithDesc("parse config", "Config file "+path+" is not valid JSON"))
	}
	cfg.Sequencer.Sanitize()
	if cfg.Output.Channel < 1 || cfg.Output.Channel > 16 {
		cfg.Output.Channel = 1
	}

	return cfg, nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return fault.Wrap(err, fmsg.With("locate config dir"))
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fault.Wrap(err, fmsg.With("create config dir"))
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fault.Wrap(err, fmsg.With("encode config"))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fault.Wrap(err, fmsg.WithDesc("write config", "Could not write "+path))
	}
	return nil
}
