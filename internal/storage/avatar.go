package storage

import (
	"fmt"
	"hash/fnv"
	"html"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

var avatarPalette = []string{"#877EFF", "#FF5A5A", "#FFB620", "#27C28A", "#3C9DFF", "#E44CB8"}

// AvatarURL returns the initials avatar URL for a display name.
func AvatarURL(baseURL, name string) string {
	return strings.TrimRight(baseURL, "/") + "/api/avatars/initials?name=" + url.QueryEscape(name)
}

// Initials returns up to two uppercase initials: the first letters of the
// first and last words of name.
func Initials(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_' || r == '.'
	})
	if len(words) == 0 {
		return "?"
	}
	first, _ := utf8.DecodeRuneInString(words[0])
	out := string(unicode.ToUpper(first))
	if len(words) > 1 {
		last, _ := utf8.DecodeRuneInString(words[len(words)-1])
		out += string(unicode.ToUpper(last))
	}
	return out
}

// RenderInitialsSVG draws a square avatar with the initials of name. The
// background color is derived from the name.
func RenderInitialsSVG(name string, size int) []byte {
	if size <= 0 {
		size = 100
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	bg := avatarPalette[h.Sum32()%uint32(len(avatarPalette))]

	return []byte(fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="%[1]d" height="%[1]d" viewBox="0 0 100 100">`+
			`<rect width="100" height="100" fill="%[2]s"/>`+
			`<text x="50" y="50" dy=".35em" text-anchor="middle" font-family="sans-serif" font-size="40" fill="#FFFFFF">%[3]s</text>`+
			`</svg>`,
		size, bg, html.EscapeString(Initials(name))))
}
