package graphics

import "testing"

func TestVideoProcessorIdentity(t *testing.T) {
	vp := NewVideoProcessor(1.0, 1.0, 1.0)
	if !vp.IsIdentity() {
		t.Fatal("neutral processor should be identity")
	}
	for _, c := range []uint32{0x000000, 0x123456, 0xFFFFFF} {
		if got := vp.ProcessColor(c); got != c {
			t.Errorf("ProcessColor(%06X) = %06X", c, got)
		}
	}
}

func TestVideoProcessorAdjustments(t *testing.T) {
	tests := []struct {
		name                 string
		brightness, contrast float32
		saturation           float32
		in, want             uint32
	}{
		{"black out", 0, 1, 1, 0xFF8040, 0x000000},
		{"brightness clamps", 2, 1, 1, 0xFF8000, 0xFFFF00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vp := NewVideoProcessor(tt.brightness, tt.contrast, tt.saturation)
			if got := vp.ProcessColor(tt.in); got != tt.want {
				t.Errorf("ProcessColor(%06X) = %06X, want %06X", tt.in, got, tt.want)
			}
		})
	}
}

func TestVideoProcessorDesaturate(t *testing.T) {
	vp := NewVideoProcessor(1, 1, 0)
	got := vp.ProcessColor(0xC03020)
	r, g, b := got>>16&0xFF, got>>8&0xFF, got&0xFF
	if r != g || g != b {
		t.Errorf("desaturated color %06X is not gray", got)
	}

	vp.SetSaturation(1)
	if !vp.IsIdentity() {
		t.Error("restoring saturation should restore identity")
	}
}
