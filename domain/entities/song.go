package entities

// SongInfo is the normalized result of resolving a music link
type SongInfo struct {
	SourceURL    string
	PageURL      string
	Title        string
	Artist       string
	ThumbnailURL string
}

// DisplayTitle returns the title, falling back to a placeholder
func (s SongInfo) DisplayTitle() string {
	if s.Title == "" {
		return "Unknown Title"
	}
	return s.Title
}

// DisplayArtist returns the artist, falling back to a placeholder
func (s SongInfo) DisplayArtist() string {
	if s.Artist == "" {
		return "Unknown Artist"
	}
	return s.Artist
}
