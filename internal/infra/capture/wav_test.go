package capture

import (
	"encoding/binary"
	"testing"
)

func TestSamplesToWav(t *testing.T) {
	samples := []int16{0, 100, -100, 32767}
	wav := samplesToWav(samples, 16000)

	if len(wav) != 44+len(samples)*2 {
		t.Fatalf("length: got %d, want %d", len(wav), 44+len(samples)*2)
	}
	for _, c := range []struct {
		off  int
		want string
	}{{0, "RIFF"}, {8, "WAVE"}, {36, "data"}} {
		if got := string(wav[c.off : c.off+4]); got != c.want {
			t.Errorf("chunk at %d: got %q, want %q", c.off, got, c.want)
		}
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Errorf("sample rate: got %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(samples)*2) {
		t.Errorf("data size: got %d, want %d", got, len(samples)*2)
	}
}

func TestIsSilent(t *testing.T) {
	tests := []struct {
		samples []int16
		want    bool
	}{
		{[]int16{0, 12, -499}, true},
		{[]int16{0, 501}, false},
		{[]int16{-800}, false},
		{nil, true},
	}
	for _, tt := range tests {
		if got := isSilent(tt.samples, 500); got != tt.want {
			t.Errorf("isSilent(%v): got %v, want %v", tt.samples, got, tt.want)
		}
	}
}
