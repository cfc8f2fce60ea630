package viewmodel

import (
	"math"
	"regexp"
	"strings"

	"github.com/dalemusser/vlsiclub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/vlsiclub/internal/domain/models"
)

// WordsPerMinute is the reading speed behind ReadingTime.
const WordsPerMinute = 200

// PlaceholderImage is served where an asset is missing.
const PlaceholderImage = "/images/placeholder.png"

var youtubeRe = regexp.MustCompile(`^.*(youtu.be\/|v\/|u\/\w\/|embed\/|watch\?v=|&v=)([^#&?]*).*`)

// ReadingTime estimates minutes to read text: ceil(words / 200), where
// words are whitespace-separated tokens after markup is stripped.
func ReadingTime(text string) int {
	words := len(strings.Fields(htmlsanitize.StripTags(text)))
	return int(math.Ceil(float64(words) / WordsPerMinute))
}

// YouTubeID extracts the 11-character video id from a YouTube URL.
// ok is false when no such id is present; callers omit the video.
func YouTubeID(url string) (id string, ok bool) {
	m := youtubeRe.FindStringSubmatch(url)
	if m == nil || len(m[2]) != 11 {
		return "", false
	}
	return m[2], true
}

// Paragraphs splits a summary on newlines, dropping blank lines.
func Paragraphs(summary string) []string {
	out := []string{}
	for _, p := range strings.Split(summary, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ImageURL returns the url of the asset object at key, or PlaceholderImage.
func ImageURL(d models.Document, key string) string {
	if u := d.Object(key).String("url"); u != "" {
		return u
	}
	return PlaceholderImage
}
