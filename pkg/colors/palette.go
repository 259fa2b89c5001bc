// Package colors maps cycle phases to Google Calendar color IDs and
// terminal colors. Users may override either through phase_colors.json.
package colors

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/harrisonrobin/cyclecal/pkg/phase"
)

type Swatch struct {
	ColorID  string `json:"color_id"`
	Terminal string `json:"terminal"`
}

type Palette struct {
	Path   string
	Phases map[phase.Phase]Swatch `json:"phases"`
	dirty  bool
}

const (
	xdgAppName  = "cyclecal"
	paletteFile = "phase_colors.json"
)

// Google Calendar event colors: 11 tomato, 2 sage, 5 banana, 3 grape, 8 graphite.
var defaults = map[phase.Phase]Swatch{
	phase.Menstruation: {ColorID: "11", Terminal: "#D50000"},
	phase.Follicular:   {ColorID: "2", Terminal: "#33B679"},
	phase.Ovulation:    {ColorID: "5", Terminal: "#F6BF26"},
	phase.Luteal:       {ColorID: "3", Terminal: "#8E24AA"},
	phase.Unknown:      {ColorID: "8", Terminal: "#616161"},
}

// Default returns the built-in palette, not backed by a file.
func Default() *Palette {
	p := &Palette{Phases: make(map[phase.Phase]Swatch, len(defaults))}
	for k, v := range defaults {
		p.Phases[k] = v
	}
	return p
}

func NewPalette() (*Palette, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return LoadPalette(filepath.Join(home, ".config", xdgAppName, paletteFile))
}

// LoadPalette reads overrides from path over the defaults. A missing file
// yields the defaults.
func LoadPalette(path string) (*Palette, error) {
	p := Default()
	p.Path = path
	if _, err := os.Stat(path); err == nil {
		if err := p.Load(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Palette) Load() error {
	f, err := os.Open(p.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	var overrides map[phase.Phase]Swatch
	if err := json.NewDecoder(f).Decode(&overrides); err != nil {
		return err
	}
	for ph, s := range overrides {
		base := p.Phases[ph]
		if s.ColorID != "" {
			base.ColorID = s.ColorID
		}
		if s.Terminal != "" {
			base.Terminal = s.Terminal
		}
		p.Phases[ph] = base
	}
	return nil
}

func (p *Palette) Save() error {
	if !p.dirty || p.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p.Path), 0700); err != nil {
		return err
	}
	f, err := os.Create(p.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p.Phases); err != nil {
		return err
	}
	p.dirty = false
	return nil
}

// Set replaces the swatch for ph.
func (p *Palette) Set(ph phase.Phase, s Swatch) {
	if p.Phases[ph] != s {
		p.Phases[ph] = s
		p.dirty = true
	}
}

// ColorID returns the Google Calendar color ID for ph.
func (p *Palette) ColorID(ph phase.Phase) string {
	return p.swatch(ph).ColorID
}

// Terminal returns a hex color for lipgloss.
func (p *Palette) Terminal(ph phase.Phase) string {
	return p.swatch(ph).Terminal
}

func (p *Palette) swatch(ph phase.Phase) Swatch {
	if s, ok := p.Phases[ph]; ok {
		return s
	}
	return defaults[phase.Unknown]
}
