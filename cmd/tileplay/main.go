package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/Southclaws/fault/fmsg"
	"github.com/spf13/pflag"

	"go-tiles/config"
	"go-tiles/debug"
	"go-tiles/midi"
	"go-tiles/sequencer"
	"go-tiles/tiles"
)

func main() {
	var (
		portName string
		channel  int
		loops    int
		dryRun   bool
		debugLog bool
	)
	pflag.StringVarP(&portName, "port", "p", "", "MIDI output port name or substring")
	pflag.IntVarP(&channel, "channel", "c", 1, "MIDI channel 1-16")
	pflag.IntVarP(&loops, "loops", "n", 1, "cycles to play, 0 plays until interrupted")
	pflag.BoolVar(&dryRun, "dry-run", false, "print notes instead of sending MIDI")
	pflag.BoolVarP(&debugLog, "debug", "d", false, "write "+debug.DefaultPath())
	pflag.Usage = usage
	pflag.Parse()

	if debugLog {
		if err := debug.Enable(""); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	args := pflag.Args()
	if len(args) < 1 {
		usage()
		return
	}

	var err error
	switch args[0] {
	case "list":
		err = listPorts()
	case "play":
		if len(args) < 2 {
			usage()
			return
		}
		err = play(args[1], portName, channel, loops, dryRun)
	case "export":
		if len(args) < 3 {
			usage()
			return
		}
		err = export(args[1], args[2], channel, max(loops, 1))
	default:
		usage()
		return
	}

	if err != nil {
		if issue := fmsg.GetIssue(err); issue != "" {
			fmt.Fprintln(os.Stderr, issue)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("tileplay - play tile sequences headless")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list              - List MIDI output ports")
	fmt.Println("  play <share link> - Play a share link to a MIDI port")
	fmt.Println("  export <share link> <file.mid> - Write a share link as a MIDI file")
	fmt.Println("")
	fmt.Println("Flags:")
	pflag.PrintDefaults()
}

func listPorts() error {
	fmt.Println("=== MIDI Output Ports ===")
	fmt.Printf("(waiting up to %s...)\n", midi.PortTimeout)

	names, err := midi.ListPorts()
	if err != nil {
		return err
	}
	defer midi.CloseDriver()

	if len(names) == 0 {
		fmt.Println("  none")
	}
	for i, name := range names {
		fmt.Printf("  %d: %s\n", i, name)
	}
	return nil
}

func play(link, portName string, channel, loops int, dryRun bool) error {
	session := sequencer.NewSession(config.DefaultSequencer(), sequencer.Options{})
	defer session.Close()

	for _, err := range session.ApplyShare(link) {
		fmt.Fprintf(os.Stderr, "skipped: %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	done := make(chan struct{})
	if dryRun {
		session.SetVoice(printVoice{})
		close(done)
	} else {
		name, send, err := midi.OpenOutput(portName)
		if err != nil {
			return err
		}
		defer midi.CloseDriver()

		out := midi.NewOutput(name, send, session.AudioClock(), channel)
		session.SetVoice(out)
		go func() {
			out.Run(ctx)
			close(done)
		}()
		fmt.Printf("Playing to %s channel %d\n", name, channel)
	}

	t := session.Timing()
	cycle := time.Duration(t.Interval() * float64(t.Geometry.Steps()) * float64(time.Second))
	cfg := session.Settings()
	fmt.Printf("%d tiles, %d×%d×%d at %gbpm, %s per cycle\n",
		session.Snapshot().Len(), cfg.Measures, cfg.Beats, cfg.Subdivisions, cfg.BPM, cycle)

	session.Start()

	var stop <-chan time.Time
	if loops > 0 {
		stop = time.After(cycle * time.Duration(loops))
	}
	select {
	case <-stop:
	case <-ctx.Done():
	}

	// let releases scheduled one lookahead ahead go out before the port closes
	session.Stop()
	time.Sleep(time.Duration(t.Lookahead() * float64(time.Second)))
	cancel()
	<-done
	return nil
}

func export(link, path string, channel, loops int) error {
	session := sequencer.NewSession(config.DefaultSequencer(), sequencer.Options{Manual: true})
	defer session.Close()

	for _, err := range session.ApplyShare(link) {
		fmt.Fprintf(os.Stderr, "skipped: %v\n", err)
	}

	t := session.Timing()
	cmds := sequencer.Render(session.Snapshot(), t, session.Settings().Velocity, loops)

	if err := midi.WriteSMFFile(path, cmds, t.BPM, channel, t.Lookahead()); err != nil {
		return err
	}
	fmt.Printf("Wrote %d commands over %d cycles to %s\n", len(cmds), loops, path)
	return nil
}

// printVoice writes each call to stdout
type printVoice struct{}

func (printVoice) Attack(note tiles.Note, at, velocity float64) {
	fmt.Println(sequencer.Command{Kind: sequencer.CmdAttack, Note: note, At: at, Velocity: velocity})
}

func (printVoice) Release(note tiles.Note, at float64) {
	fmt.Println(sequencer.Command{Kind: sequencer.CmdRelease, Note: note, At: at})
}

func (printVoice) AttackRelease(note tiles.Note, duration, at, velocity float64) {
	fmt.Println(sequencer.Command{Kind: sequencer.CmdAttackRelease, Note: note, At: at, Duration: duration, Velocity: velocity})
}
