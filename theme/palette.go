package theme

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/lucasb-eyer/go-colorful"
)

type RGB [3]uint8

// Hex renders the color as #rrggbb
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

func (c RGB) colorful() colorful.Color {
	return colorful.Color{R: float64(c[0]) / 255, G: float64(c[1]) / 255, B: float64(c[2]) / 255}
}

func fromColorful(c colorful.Color) RGB {
	r, g, b := c.Clamped().RGB255()
	return RGB{r, g, b}
}

type Palette struct {
	Name   string
	Colors []RGB
}

// defaultStops runs from deep night blue through teal to warm amber
var defaultStops = []string{
	"#14121f", "#1f2336", "#2e3a52", "#4a6078", "#6f93a6",
	"#8fc1b5", "#c8d98f", "#f2c35b", "#f28c4b", "#ffe9a8",
}

// Default returns the built-in palette
func Default() *Palette {
	p := &Palette{Name: "tiles"}
	for _, hex := range defaultStops {
		c, err := colorful.Hex(hex)
		if err != nil {
			panic(err)
		}
		p.Colors = append(p.Colors, fromColorful(c))
	}
	return p
}

// LoadGPL reads a GIMP .gpl palette file
func LoadGPL(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.WithDesc("open palette", fmt.Sprintf("Could not open palette %s", path)))
	}
	defer f.Close()

	p, err := ParseGPL(f)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.WithDesc("parse palette", fmt.Sprintf("Palette %s is not a usable GIMP palette", path)))
	}
	return p, nil
}

// ParseGPL parses GIMP palette text. Header lines and comments are skipped;
// every other non-blank line must start with three 0-255 channel values.
func ParseGPL(r io.Reader) (*Palette, error) {
	p := &Palette{}
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if name, ok := strings.CutPrefix(line, "Name:"); ok {
			p.Name = strings.TrimSpace(name)
			continue
		}
		if skipGPLLine(line) {
			continue
		}
		c, err := parseGPLColor(line)
		if err != nil {
			return nil, fault.Wrap(err, fmsg.With(fmt.Sprintf("line %d", n)))
		}
		p.Colors = append(p.Colors, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fault.Wrap(err, fmsg.With("read palette"))
	}
	if len(p.Colors) == 0 {
		return nil, fault.New("palette has no colors")
	}
	return p, nil
}

func skipGPLLine(line string) bool {
	return line == "" || line[0] == '#' ||
		strings.HasPrefix(line, "GIMP") || strings.HasPrefix(line, "Columns:")
}

func parseGPLColor(line string) (RGB, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return RGB{}, fault.New(fmt.Sprintf("expected R G B, got %q", line))
	}
	var c RGB
	for i := range c {
		v, err := strconv.ParseUint(fields[i], 10, 8)
		if err != nil {
			return RGB{}, fault.Wrap(err, fmsg.With(fmt.Sprintf("channel %q", fields[i])))
		}
		c[i] = uint8(v)
	}
	return c, nil
}

// LoadOrDefault loads path, falling back to the built-in palette when path
// is empty or unreadable. The load error is returned for display.
func LoadOrDefault(path string) (*Palette, error) {
	if path == "" {
		return Default(), nil
	}
	p, err := LoadGPL(path)
	if err != nil {
		return Default(), err
	}
	return p, nil
}

// Lookup returns the color at normalized position 0-1, blending the two
// nearest stops in Lab space
func (p *Palette) Lookup(norm float64) RGB {
	if norm <= 0 {
		return p.Colors[0]
	}
	if norm >= 1 {
		return p.Colors[len(p.Colors)-1]
	}

	pos := norm * float64(len(p.Colors)-1)
	i := int(pos)
	frac := pos - float64(i)

	c0 := p.Colors[i].colorful()
	c1 := p.Colors[i+1].colorful()
	return fromColorful(c0.BlendLab(c1, frac))
}

// Index returns color at specific index (no interpolation)
func (p *Palette) Index(i int) RGB {
	if i < 0 {
		return p.Colors[0]
	}
	if i >= len(p.Colors) {
		return p.Colors[len(p.Colors)-1]
	}
	return p.Colors[i]
}
