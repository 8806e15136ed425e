package theme

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type RGB [3]uint8

type Palette struct {
	Name   string
	Colors []RGB
}

// Default is the built-in palette: deep purple through magenta and orange
// to yellow.
func Default() *Palette {
	return &Palette{
		Name: "pacemaker",
		Colors: []RGB{
			{0x2b, 0x0f, 0x54},
			{0x5c, 0x1a, 0x7a},
			{0xab, 0x1f, 0x9b},
			{0xe8, 0x3f, 0x8c},
			{0xff, 0x6b, 0x5a},
			{0xff, 0x9e, 0x3d},
			{0xff, 0xe1, 0x4d},
		},
	}
}

// LoadGPL reads a GIMP palette file.
func LoadGPL(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := ParseGPL(f)
	if err != nil {
		return nil, fmt.Errorf("palette %s: %w", path, err)
	}
	return p, nil
}

// ParseGPL reads the colours of a GIMP palette. Header, comment and
// non-numeric lines are skipped; a channel outside 0-255 is an error.
func ParseGPL(r io.Reader) (*Palette, error) {
	p := &Palette{}
	scanner := bufio.NewScanner(r)

	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if name, ok := strings.CutPrefix(line, "Name:"); ok {
			p.Name = strings.TrimSpace(name)
			continue
		}
		if line == "" || line[0] == '#' {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		var c RGB
		numeric := true
		for i := range c {
			v, err := strconv.Atoi(fields[i])
			if err != nil {
				numeric = false
				break
			}
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("line %d: channel %d out of range", n, v)
			}
			c[i] = uint8(v)
		}
		if numeric {
			p.Colors = append(p.Colors, c)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(p.Colors) == 0 {
		return nil, errors.New("no colors")
	}
	return p, nil
}

// Lookup returns the colour at norm (0-1), interpolated between entries.
// A palette without colours falls back to Default.
func (p *Palette) Lookup(norm float64) RGB {
	colors := p.Colors
	if len(colors) == 0 {
		colors = Default().Colors
	}
	last := len(colors) - 1
	switch {
	case norm <= 0 || last == 0:
		return colors[0]
	case norm >= 1:
		return colors[last]
	}

	pos := norm * float64(last)
	i := int(pos)
	return mix(colors[i], colors[i+1], pos-float64(i))
}

func mix(a, b RGB, t float64) RGB {
	return RGB{lerp(a[0], b[0], t), lerp(a[1], b[1], t), lerp(a[2], b[2], t)}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a)*(1-t) + float64(b)*t)
}
