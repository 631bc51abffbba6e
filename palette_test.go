package fractal

import (
	"encoding/binary"
	"errors"
	"image/color"
	"math"
	"slices"
	"testing"
)

func TestHSV(t *testing.T) {
	tests := []struct {
		h    float64
		want color.RGBA
	}{
		{0, color.RGBA{255, 0, 0, 255}},
		{0.25, color.RGBA{127, 255, 0, 255}},
		{0.5, color.RGBA{0, 255, 255, 255}},
		{1, color.RGBA{255, 0, 0, 255}},
	}
	for _, tt := range tests {
		if got := hsv(tt.h, 1, 1); got != tt.want {
			t.Errorf("hsv(%v, 1, 1) = %v, want %v", tt.h, got, tt.want)
		}
	}
}

func TestPalettes_Deterministic(t *testing.T) {
	for _, name := range PaletteNames() {
		p, err := PaletteByName(name)
		if err != nil {
			t.Fatalf("PaletteByName(%q) = %v", name, err)
		}
		for n := range 200 {
			if a, b := p(n, 200), p(n, 200); a != b {
				t.Errorf("%s(%d) not deterministic: %v vs %v", name, n, a, b)
			}
		}
	}
}

func TestPalettes_InteriorDistinct(t *testing.T) {
	const maxIter = 300
	for _, name := range PaletteNames() {
		p, _ := PaletteByName(name)
		m := ColorMapper{Palette: p, Interior: color.RGBA{0, 0, 0, 255}}
		interior := m.Color(maxIter, maxIter)
		for n := range maxIter {
			if m.Color(n, maxIter) == interior {
				t.Errorf("%s: exterior n=%d has the interior color", name, n)
				break
			}
		}
	}
}

func TestPaletteByName_Unknown(t *testing.T) {
	if _, err := PaletteByName("plasma"); !errors.Is(err, ErrUnknownPalette) {
		t.Errorf("PaletteByName(plasma) = %v, want ErrUnknownPalette", err)
	}
	if _, err := PaletteByName("Hue"); err != nil {
		t.Errorf("PaletteByName is case-insensitive, got %v", err)
	}
	if !slices.IsSorted(PaletteNames()) {
		t.Error("PaletteNames() not sorted")
	}
}

func TestColorMapper_PackByteOrder(t *testing.T) {
	c := color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff}
	tests := []struct {
		format PixelFormat
		want   [4]byte
	}{
		{FormatRGBA, [4]byte{0x11, 0x22, 0x33, 0xff}},
		{FormatBGRA, [4]byte{0x33, 0x22, 0x11, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			var got [4]byte
			binary.LittleEndian.PutUint32(got[:], ColorMapper{Format: tt.format}.Pack(c))
			if got != tt.want {
				t.Errorf("packed bytes = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestColorMapper_Table(t *testing.T) {
	m := DefaultColorMapper()
	table := m.Table(30)

	if len(table) != 31 {
		t.Fatalf("len(Table(30)) = %d, want 31", len(table))
	}
	if table[30] != m.Pack(m.Interior) {
		t.Errorf("Table[max] = %#x, want interior %#x", table[30], m.Pack(m.Interior))
	}
	if table[2] != m.Pack(m.Color(2, 30)) {
		t.Errorf("Table[2] = %#x, want %#x", table[2], m.Pack(m.Color(2, 30)))
	}
}

func TestColorMapper_TableClampsIterations(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a full-size table")
	}
	m := DefaultColorMapper()
	if got := len(m.Table(math.MaxInt)); got != MaxIterationsLimit+1 {
		t.Errorf("len(Table(MaxInt)) = %d, want %d", got, MaxIterationsLimit+1)
	}
	if got := len(m.Table(-5)); got != 1 {
		t.Errorf("len(Table(-5)) = %d, want 1", got)
	}
}

func TestColorMapper_NilPaletteUsesDefault(t *testing.T) {
	m := ColorMapper{}
	if got, want := m.Color(3, 30), HueCycle(DefaultHuePeriod)(3, 30); got != want {
		t.Errorf("Color with nil palette = %v, want %v", got, want)
	}
}

func TestParsePixelFormat(t *testing.T) {
	for in, want := range map[string]PixelFormat{"rgba": FormatRGBA, "BGRA": FormatBGRA, "": FormatRGBA} {
		got, err := ParsePixelFormat(in)
		if err != nil || got != want {
			t.Errorf("ParsePixelFormat(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParsePixelFormat("argb"); err == nil {
		t.Error("ParsePixelFormat(argb) should fail")
	}
}
