package fractal

import (
	"errors"
	"testing"
)

func TestPrecision(t *testing.T) {
	if Float32.String() != "float32" || Float64.String() != "float64" {
		t.Errorf("String() = %q, %q", Float32, Float64)
	}
	if Float32.Epsilon() <= Float64.Epsilon() {
		t.Error("float32 epsilon must exceed float64 epsilon")
	}

	for in, want := range map[string]Precision{
		"float32": Float32, "f32": Float32, "32": Float32,
		"float64": Float64, "f64": Float64, "": Float64,
	} {
		got, err := ParsePrecision(in)
		if err != nil || got != want {
			t.Errorf("ParsePrecision(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParsePrecision("float16"); err == nil {
		t.Error("ParsePrecision(float16) succeeded")
	}
}

func TestRegisterDevicePanics(t *testing.T) {
	tests := []struct {
		name    string
		factory DeviceFactory
	}{
		{"", newCPUDevice},
		{"nil-factory", nil},
	}
	for _, tt := range tests {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("RegisterDevice(%q) did not panic", tt.name)
				}
			}()
			RegisterDevice(tt.name, tt.factory)
		}()
	}
}

func openCPU(t *testing.T, w, h int) Device {
	t.Helper()
	d, err := newCPUDevice(DeviceConfig{Width: w, Height: h, MinPrecision: Float64, Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestCPUDevice_DispatchValidation(t *testing.T) {
	d := openCPU(t, 8, 4)
	v := DefaultView(8, 4)

	if err := d.Dispatch(FrameParams{View: DefaultView(4, 8), Palette: make([]uint32, 31)}); !errors.Is(err, ErrViewMismatch) {
		t.Errorf("mismatched view: err = %v, want ErrViewMismatch", err)
	}
	if err := d.Dispatch(FrameParams{View: v, Palette: make([]uint32, v.MaxIterations)}); err == nil {
		t.Error("short palette accepted")
	}
	if err := d.ReadColors(make([]byte, 10)); err == nil {
		t.Error("short read buffer accepted")
	}
}

func TestCPUDevice_InteriorUsesLastEntry(t *testing.T) {
	d := openCPU(t, 3, 3)
	v := View{ImageWidth: 3, ImageHeight: 3, CenterX: 0, CenterY: 0, Width: 0.1, Height: 0.1, MaxIterations: 4}

	palette := []uint32{1, 2, 3, 4, 0xdeadbeef}
	if err := d.Dispatch(FrameParams{View: v, Palette: palette}); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 3*3*4)
	if err := d.ReadColors(buf); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(buf); i += 4 {
		got := uint32(buf[i]) | uint32(buf[i+1])<<8 | uint32(buf[i+2])<<16 | uint32(buf[i+3])<<24
		if got != 0xdeadbeef {
			t.Fatalf("pixel %d = %#x, want interior %#x", i/4, got, 0xdeadbeef)
		}
	}
}
