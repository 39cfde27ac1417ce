package v4l2

import "testing"

func TestFourCCMatchesKnownCodes(t *testing.T) {
	cases := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"YUYV", PixFmtYUYV, 0x56595559},
		{"MJPEG", PixFmtMJPEG, 0x47504A4D},
		{"RGB24", PixFmtRGB24, 0x33424752},
		{"BGR24", PixFmtBGR24, 0x33524742},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s fourcc = 0x%X, want 0x%X", c.name, c.got, c.want)
		}
	}
}

func TestCStringStopsAtNUL(t *testing.T) {
	buf := make([]byte, 32)
	copy(buf, "Brightness")
	if got := cString(buf); got != "Brightness" {
		t.Fatalf("cString = %q, want %q", got, "Brightness")
	}
}

func TestCStringFullBuffer(t *testing.T) {
	buf := []byte("exactly-eight")[:8]
	if got := cString(buf); got != "exactly-" {
		t.Fatalf("cString = %q, want %q", got, "exactly-")
	}
}
