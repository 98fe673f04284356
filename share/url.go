// Package share encodes a session into the query string of a share link
// and decodes it back.
package share

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"go-tiles/config"
	"go-tiles/tiles"
)

// Path is appended to the origin by Link
const Path = "/sequencer"

const separator = ":"

// Encode renders settings and tiles as a query string. Parameters appear
// in a fixed order and values are form-encoded the way browsers encode
// URLSearchParams.
func Encode(cfg config.SequencerConfig, snap tiles.Snapshot) string {
	entries := make([]string, 0, snap.Len())
	for _, k := range snap.Sorted() {
		entries = append(entries, k.String()+separator+strconv.Itoa(int(snap.Get(k))))
	}

	scale := cfg.Scale
	if scale == nil {
		scale = []int{}
	}

	sndn := "0"
	if cfg.ShowNonDiatonic {
		sndn = "1"
	}

	params := [][2]string{
		{"t", base64JSON(entries)},
		{"m", strconv.Itoa(cfg.Measures)},
		{"b", strconv.Itoa(cfg.Beats)},
		{"s", strconv.Itoa(cfg.Subdivisions)},
		{"bpm", strconv.FormatFloat(cfg.BPM, 'f', -1, 64)},
		{"o", strconv.Itoa(cfg.Octaves)},
		{"bo", strconv.Itoa(cfg.BaseOctave)},
		{"rn", cfg.RootNote},
		{"sc", base64JSON(scale)},
		{"sndn", sndn},
	}

	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(formEscape(p[1]))
	}
	return b.String()
}

// Link builds a full share link under origin
func Link(origin string, cfg config.SequencerConfig, snap tiles.Snapshot) string {
	return strings.TrimSuffix(origin, "/") + Path + "?" + Encode(cfg, snap)
}

// Decode reads a share link or bare query. Fields present in raw overwrite
// cfg; absent fields leave it untouched. The returned map is nil when the
// query carries no tiles. A field that fails to decode is skipped and its
// error collected, so one bad field never loses the rest.
func Decode(raw string, cfg *config.SequencerConfig) (map[tiles.Key]tiles.State, []error) {
	var errs []error

	query := raw
	if i := strings.IndexByte(query, '?'); i >= 0 {
		query = query[i+1:]
	}
	if i := strings.IndexByte(query, '#'); i >= 0 {
		query = query[:i]
	}

	// ParseQuery keeps every pair it could read alongside the first error
	params, err := url.ParseQuery(query)
	if err != nil {
		errs = append(errs, fault.Wrap(err,
			fmsg.WithDesc("malformed share query", "Part of the share link could not be read."),
			ftag.With(ftag.InvalidArgument)))
	}

	get := func(name string) (string, bool) {
		v := params.Get(name)
		return v, v != ""
	}

	intField := func(name string, dst *int) {
		v, ok := get(name)
		if !ok {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fieldError(name, err))
			return
		}
		*dst = n
	}

	var tileMap map[tiles.Key]tiles.State
	if v, ok := get("t"); ok {
		m, tileErrs := decodeTiles(v)
		tileMap = m
		errs = append(errs, tileErrs...)
	}

	intField("m", &cfg.Measures)
	intField("b", &cfg.Beats)
	intField("s", &cfg.Subdivisions)

	if v, ok := get("bpm"); ok {
		bpm, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fieldError("bpm", err))
		} else {
			cfg.BPM = bpm
		}
	}

	intField("o", &cfg.Octaves)
	intField("bo", &cfg.BaseOctave)

	if v, ok := get("rn"); ok {
		pc, err := tiles.ParsePitchClass(v)
		if err != nil {
			errs = append(errs, fieldError("rn", err))
		} else {
			cfg.RootNote = pc.Label()
		}
	}

	if v, ok := get("sc"); ok {
		var scale []int
		if err := unbase64JSON(v, &scale); err != nil {
			errs = append(errs, fieldError("sc", err))
		} else {
			cfg.Scale = scale
		}
	}

	if v, ok := get("sndn"); ok {
		cfg.ShowNonDiatonic = v == "1"
	}

	return tileMap, errs
}

// decodeTiles returns an empty, non-nil map when t decodes to no tiles.
// Entries that fail are skipped one by one.
func decodeTiles(v string) (map[tiles.Key]tiles.State, []error) {
	var entries []string
	if err := unbase64JSON(v, &entries); err != nil {
		return nil, []error{fieldError("t", err)}
	}

	var errs []error
	out := make(map[tiles.Key]tiles.State, len(entries))
	for _, entry := range entries {
		keyPart, statePart, _ := strings.Cut(entry, separator)
		// anything after a second separator is ignored
		statePart, _, _ = strings.Cut(statePart, separator)
		if statePart == "" {
			statePart = "1"
		}

		k, err := tiles.ParseKey(keyPart)
		if err != nil {
			errs = append(errs, fieldError("t", err))
			continue
		}
		n, err := strconv.Atoi(statePart)
		if err != nil || n < 0 || !tiles.State(n).Valid() {
			errs = append(errs, fieldError("t", fault.New(fmt.Sprintf("invalid tile state %q in %q", statePart, entry))))
			continue
		}
		if tiles.State(n) != tiles.None {
			out[k] = tiles.State(n)
		}
	}
	return out, errs
}

func fieldError(name string, err error) error {
	return fault.Wrap(err,
		fmsg.WithDesc(fmt.Sprintf("share field %s", name),
			fmt.Sprintf("The share link's %q value could not be read and was ignored.", name)),
		ftag.With(ftag.InvalidArgument))
}

func base64JSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// only called with string and int slices
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(data)
}

func unbase64JSON(s string, v any) error {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fault.Wrap(err, fmsg.With("decode base64"))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fault.Wrap(err, fmsg.With("decode json"))
	}
	return nil
}

// formEscape matches the browser's form encoding, which leaves '*'
// alone and escapes '~', where QueryEscape does the opposite.
func formEscape(s string) string {
	s = url.QueryEscape(s)
	s = strings.ReplaceAll(s, "~", "%7E")
	return strings.ReplaceAll(s, "%2A", "*")
}
