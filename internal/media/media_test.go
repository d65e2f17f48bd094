package media_test

import (
	"testing"

	"localdeck/internal/media"
)

func TestIsMusicFile(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"song.mp3", true},
		{"song.FLAC", true},
		{"dir/song.m4a", true},
		{"song.webm", true},
		{"notes.txt", false},
		{"noext", false},
		{"archive.mp3.zip", false},
	}
	for _, tc := range cases {
		if got := media.IsMusicFile(tc.path); got != tc.want {
			t.Errorf("IsMusicFile(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestMIMEForPath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"a.m4a", "audio/x-m4a"},
		{"a.mp3", "audio/mpeg"},
		{"a.ogg", "audio/ogg"},
		{"a.bin", "application/octet-stream"},
	}
	for _, tc := range cases {
		if got := media.MIMEForPath(tc.path); got != tc.want {
			t.Errorf("MIMEForPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestNormalizeFormat(t *testing.T) {
	if got := media.NormalizeFormat(".M4A", "bin"); got != "m4a" {
		t.Fatalf("expected m4a, got %q", got)
	}
	if got := media.NormalizeFormat("exe", "m4a"); got != "m4a" {
		t.Fatalf("expected fallback m4a, got %q", got)
	}
}
