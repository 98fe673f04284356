package midi

import (
	"fmt"
	"strings"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// PortTimeout bounds port enumeration; CoreMIDI can hang
const PortTimeout = 3 * time.Second

// ListPorts returns the names of the output ports
func ListPorts() ([]string, error) {
	outs, err := outPorts()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(outs))
	for i, p := range outs {
		names[i] = p.String()
	}
	return names, nil
}

// OpenOutput opens the output port matching name: an exact name first,
// then a case-insensitive substring. An empty name picks the first port.
func OpenOutput(name string) (string, Sender, error) {
	outs, err := outPorts()
	if err != nil {
		return "", nil, err
	}
	port := findPort(outs, name)
	if port == nil {
		return "", nil, fault.New(fmt.Sprintf("no MIDI output matching %q", name),
			fmsg.WithDesc("MIDI output not found", fmt.Sprintf("No MIDI output port matches %q.", name)),
			ftag.With(ftag.NotFound))
	}

	send, err := gomidi.SendTo(port)
	if err != nil {
		return "", nil, fault.Wrap(err,
			fmsg.WithDesc("cannot open midi port", fmt.Sprintf("Could not open MIDI port %s", port.String())))
	}
	return port.String(), Sender(send), nil
}

// CloseDriver releases the MIDI driver
func CloseDriver() {
	gomidi.CloseDriver()
}

func outPorts() ([]drivers.Out, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(PortTimeout):
		return nil, fault.New("midi port scan timed out",
			fmsg.WithDesc("MIDI not responding", "The MIDI system did not answer. Try: sudo killall coreaudiod midiserver"))
	}
}

func findPort(outs []drivers.Out, name string) drivers.Out {
	if len(outs) == 0 {
		return nil
	}
	if name == "" {
		return outs[0]
	}
	for _, p := range outs {
		if p.String() == name {
			return p
		}
	}
	lower := strings.ToLower(name)
	for _, p := range outs {
		if strings.Contains(strings.ToLower(p.String()), lower) {
			return p
		}
	}
	return nil
}
