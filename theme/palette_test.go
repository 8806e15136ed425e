package theme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadGPL(t *testing.T) {
	gpl := "GIMP Palette\nName: Dusk\nColumns: 2\n# comment\n  0   0   0\tBlack\n255 128  64 Orange\nbogus line\n"
	path := filepath.Join(t.TempDir(), "dusk.gpl")
	if err := os.WriteFile(path, []byte(gpl), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadGPL(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Dusk" || len(p.Colors) != 2 || p.Colors[1] != (RGB{255, 128, 64}) {
		t.Fatalf("palette %+v", p)
	}

	empty := filepath.Join(t.TempDir(), "empty.gpl")
	os.WriteFile(empty, []byte("GIMP Palette\n"), 0644)
	if _, err := LoadGPL(empty); err == nil {
		t.Fatal("palette without colors accepted")
	}
}

func TestParseGPLRange(t *testing.T) {
	_, err := ParseGPL(strings.NewReader("GIMP Palette\n0 0 0 Black\n300 0 0 Too red\n"))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("out of range channel: err = %v", err)
	}
}

func TestLookup(t *testing.T) {
	p := &Palette{Colors: []RGB{{0, 0, 0}, {200, 100, 50}}}
	tests := []struct {
		norm float64
		want RGB
	}{
		{-1, RGB{0, 0, 0}},
		{0, RGB{0, 0, 0}},
		{0.5, RGB{100, 50, 25}},
		{1, RGB{200, 100, 50}},
		{2, RGB{200, 100, 50}},
	}
	for _, tt := range tests {
		if got := p.Lookup(tt.norm); got != tt.want {
			t.Errorf("Lookup(%v) = %v, want %v", tt.norm, got, tt.want)
		}
	}

	single := &Palette{Colors: []RGB{{1, 2, 3}}}
	if got := single.Lookup(0.5); got != (RGB{1, 2, 3}) {
		t.Errorf("single color Lookup = %v", got)
	}

	var none Palette
	if got, want := none.Lookup(1), Default().Lookup(1); got != want {
		t.Errorf("empty palette Lookup = %v, want default %v", got, want)
	}
}

func TestNewDefaults(t *testing.T) {
	th := New(nil)
	if th.Palette == nil || len(th.Palette.Colors) == 0 {
		t.Fatal("no default palette")
	}
	if th.Accent() == "" || th.Color(0.3) == "" {
		t.Fatal("empty colors")
	}
	if th.Symbols.MeterFull == 0 || th.Symbols.Connected == 0 {
		t.Fatal("symbols not set")
	}
}
