package services

import (
	"net/url"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>()"]+`)

// supportedMusicHosts are the music services the SongLink API resolves, without "www."
var supportedMusicHosts = map[string]struct{}{
	"open.spotify.com":  {},
	"spotify.com":       {},
	"spotify.link":      {},
	"music.apple.com":   {},
	"itunes.apple.com":  {},
	"youtube.com":       {},
	"m.youtube.com":     {},
	"youtu.be":          {},
	"music.youtube.com": {},
	"play.google.com":   {},
	"pandora.com":       {},
	"deezer.com":        {},
	"tidal.com":         {},
	"listen.tidal.com":  {},
	"music.amazon.com":  {},
	"amazon.com":        {},
	"soundcloud.com":    {},
	"napster.com":       {},
	"music.yandex.com":  {},
	"music.yandex.ru":   {},
	"spinrilla.com":     {},
	"audius.co":         {},
	"anghami.com":       {},
	"boomplay.com":      {},
	"audiomack.com":     {},
	"bandcamp.com":      {},
}

// ExtractURLs returns the http(s) URLs in content, deduplicated in order of appearance
func ExtractURLs(content string) []string {
	found := urlPattern.FindAllString(content, -1)
	seen := make(map[string]struct{}, len(found))
	urls := make([]string, 0, len(found))
	for _, u := range found {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}

// IsSupportedMusicURL reports whether the URL points at a supported music service
func IsSupportedMusicURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if _, ok := supportedMusicHosts[host]; ok {
		return true
	}
	// Artist pages live on subdomains, e.g. artist.bandcamp.com
	return strings.HasSuffix(host, ".bandcamp.com")
}

// IsYouTubeURL reports whether the URL points at YouTube
func IsYouTubeURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "youtu.be", "music.youtube.com":
		return true
	}
	return false
}

// SupportedMusicURLs extracts every supported music URL from content
func SupportedMusicURLs(content string) []string {
	var supported []string
	for _, u := range ExtractURLs(content) {
		if IsSupportedMusicURL(u) {
			supported = append(supported, u)
		}
	}
	return supported
}
