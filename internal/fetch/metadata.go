package fetch

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	noiseRegex = regexp.MustCompile(`(?i)\((official video|official audio|audio|video|lyrics|lyric video|visualizer|HD|HQ|Remaster(ed)?)\)|\[(official video|official audio|audio|video|lyrics|lyric video|visualizer|HD|HQ|Remaster(ed)?)\]`)
	featRegex  = regexp.MustCompile(`(?i)\bfeat\.?\b`)
	spaceRegex = regexp.MustCompile(`\s{2,}`)
	splitRegex = regexp.MustCompile(`\s+[-|–—:]\s+`)

	titleCaser = cases.Title(language.Und)
)

// SplitTitle derives artist and title from a raw upload title. Uploads rarely
// carry structured tags, so this leans on the common "Artist - Title"
// convention and falls back to the uploader name when no split is found.
func SplitTitle(rawTitle, uploader string) (artist, title string) {
	t := noiseRegex.ReplaceAllString(rawTitle, "")
	t = featRegex.ReplaceAllString(t, "ft.")
	t = spaceRegex.ReplaceAllString(t, " ")
	t = strings.TrimSpace(t)

	parts := splitRegex.Split(t, 2)
	if len(parts) == 2 {
		left, right := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if looksLikeArtist(left, right) {
			return capWords(left), capWords(right)
		}
		return capWords(right), capWords(left)
	}

	if uploader != "" {
		return capWords(cleanUploader(uploader)), capWords(t)
	}
	return "", capWords(t)
}

// looksLikeArtist decides which side of an "A - B" title is the artist. A
// side listing collaborators, or a short side paired with a longer one, is
// most likely the artist.
func looksLikeArtist(left, right string) bool {
	leftLower := strings.ToLower(left)
	if strings.Contains(left, ",") || strings.Contains(leftLower, "ft.") || strings.Contains(leftLower, "feat.") {
		return true
	}
	return len(strings.Fields(left)) <= 4 && len(strings.Fields(right)) >= 2
}

func cleanUploader(uploader string) string {
	cleaned := strings.TrimSpace(uploader)
	for _, suffix := range []string{" - Topic", "VEVO"} {
		cleaned = strings.TrimSuffix(cleaned, suffix)
	}
	return strings.TrimSpace(cleaned)
}

// capWords title-cases each word but keeps short all-caps tokens like DJ or
// UK as written.
func capWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == strings.ToUpper(w) && len(w) <= 4 {
			continue
		}
		words[i] = titleCaser.String(strings.ToLower(w))
	}
	return strings.Join(words, " ")
}
