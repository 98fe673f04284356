package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"go-tiles/config"
	"go-tiles/debug"
	"go-tiles/midi"
	"go-tiles/sequencer"
	"go-tiles/theme"
	"go-tiles/tui"
)

type options struct {
	configPath  string
	portName    string
	channel     int
	shareLink   string
	palettePath string
	origin      string
	noMIDI      bool
	debug       bool
}

func main() {
	var opts options
	pflag.StringVarP(&opts.configPath, "config", "c", "", "config file (default ~/.config/go-tiles/config.json)")
	pflag.StringVarP(&opts.portName, "port", "p", "", "MIDI output port name or substring")
	pflag.IntVar(&opts.channel, "channel", 0, "MIDI channel 1-16")
	pflag.StringVarP(&opts.shareLink, "share", "s", "", "share link or query to load")
	pflag.StringVar(&opts.palettePath, "palette", "", "GIMP .gpl palette")
	pflag.StringVar(&opts.origin, "origin", "", "origin used for share links")
	pflag.BoolVar(&opts.noMIDI, "no-midi", false, "log notes instead of sending MIDI")
	pflag.BoolVarP(&opts.debug, "debug", "d", false, "write "+debug.DefaultPath())
	pflag.Parse()

	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		fmt.Fprintln(os.Stderr, "go-tiles needs a terminal; use tileplay for headless playback")
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.debug {
		if err := debug.Enable(""); err != nil {
			return fault.Wrap(err, fmsg.With("enable debug log"))
		}
		defer debug.Disable()
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if pflag.CommandLine.Changed("port") {
		cfg.Output.PortName = opts.portName
	}
	if pflag.CommandLine.Changed("channel") {
		cfg.Output.Channel = opts.channel
	}
	if pflag.CommandLine.Changed("palette") {
		cfg.UI.Palette = opts.palettePath
	}

	// Errors from here on are shown in the TUI rather than aborting
	var startupErr error

	palette, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		startupErr = err
	}
	th := theme.New(palette)

	session := sequencer.NewSession(cfg.Sequencer, sequencer.Options{})
	defer session.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if opts.noMIDI {
		session.SetVoice(sequencer.LogVoice{})
	} else if out, err := openOutput(cfg.Output, session); err != nil {
		startupErr = err
		session.SetVoice(sequencer.LogVoice{})
	} else {
		done := make(chan struct{})
		go func() {
			out.Run(ctx)
			close(done)
		}()
		defer func() {
			session.Stop()
			cancel()
			<-done
			midi.CloseDriver()
		}()
	}

	if opts.shareLink != "" {
		if errs := session.ApplyShare(opts.shareLink); len(errs) > 0 {
			startupErr = errs[0]
		}
	}

	m := tui.NewModel(session, th, opts.origin)
	if startupErr != nil {
		debug.Log("main", "startup: %v", startupErr)
		m.SetError(startupErr)
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fault.Wrap(err, fmsg.With("run tui"))
	}

	cfg.Sequencer = session.Settings()
	if opts.configPath != "" {
		return cfg.SaveFile(opts.configPath)
	}
	return cfg.Save()
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func openOutput(cfg config.OutputConfig, session *sequencer.Session) (*midi.Output, error) {
	name, send, err := midi.OpenOutput(cfg.PortName)
	if err != nil {
		return nil, err
	}
	out := midi.NewOutput(name, send, session.AudioClock(), cfg.Channel)
	session.SetVoice(out)
	debug.Log("main", "playing to %s channel %d", name, cfg.Channel)
	return out, nil
}
