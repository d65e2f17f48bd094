package fetch

import "testing"

func TestSplitTitle(t *testing.T) {
	cases := []struct {
		name       string
		rawTitle   string
		uploader   string
		wantArtist string
		wantTitle  string
	}{
		{
			name:       "artist dash title",
			rawTitle:   "Nina Simone - Feeling Good",
			uploader:   "somechannel",
			wantArtist: "Nina Simone",
			wantTitle:  "Feeling Good",
		},
		{
			name:       "noise stripped",
			rawTitle:   "Nina Simone - Feeling Good (Official Audio)",
			uploader:   "somechannel",
			wantArtist: "Nina Simone",
			wantTitle:  "Feeling Good",
		},
		{
			name:       "bracketed noise stripped",
			rawTitle:   "Daft Punk - One More Time [HD]",
			uploader:   "",
			wantArtist: "Daft Punk",
			wantTitle:  "One More Time",
		},
		{
			name:       "feat normalized",
			rawTitle:   "Artist feat. Guest - Some Song",
			uploader:   "",
			wantArtist: "Artist Ft. Guest",
			wantTitle:  "Some Song",
		},
		{
			name:       "no split falls back to uploader",
			rawTitle:   "Feeling Good",
			uploader:   "Nina Simone - Topic",
			wantArtist: "Nina Simone",
			wantTitle:  "Feeling Good",
		},
		{
			name:       "no split no uploader",
			rawTitle:   "feeling good",
			uploader:   "",
			wantArtist: "",
			wantTitle:  "Feeling Good",
		},
		{
			name:       "short acronym kept",
			rawTitle:   "DJ Shadow - Midnight In A Perfect World",
			uploader:   "",
			wantArtist: "DJ Shadow",
			wantTitle:  "Midnight In A Perfect World",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			artist, title := SplitTitle(tc.rawTitle, tc.uploader)
			if artist != tc.wantArtist {
				t.Errorf("artist = %q, want %q", artist, tc.wantArtist)
			}
			if title != tc.wantTitle {
				t.Errorf("title = %q, want %q", title, tc.wantTitle)
			}
		})
	}
}
