package songlink

import (
	"testing"

	"cogbot/domain/entities"

	"github.com/stretchr/testify/assert"
)

func TestSongEmbed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		song      entities.SongInfo
		title     string
		thumbnail string
	}{
		{
			name:      "full metadata",
			song:      entities.SongInfo{PageURL: "https://song.link/s/1", Title: "Song", Artist: "Band", ThumbnailURL: "https://img/1.jpg"},
			title:     "Song by Band",
			thumbnail: "https://img/1.jpg",
		},
		{
			name:      "missing metadata",
			song:      entities.SongInfo{PageURL: "https://song.link/s/2"},
			title:     "Unknown Title by Unknown Artist",
			thumbnail: fallbackThumbnail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			embed := songEmbed(&tt.song)
			assert.Equal(t, tt.title, embed.Title)
			assert.Equal(t, tt.song.PageURL, embed.URL)
			assert.Equal(t, "[Open in SongLink]("+tt.song.PageURL+")", embed.Description)
			assert.Equal(t, tt.thumbnail, embed.Thumbnail.URL)
			assert.Equal(t, footerText, embed.Footer.Text)
		})
	}
}

func TestFormatChannelList(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "No song channels configured.", formatChannelList(nil, nil))

	exists := func(id int64) bool { return id != 3 }
	assert.Equal(t, "Song channels: <#1>, (missing: 3)", formatChannelList([]int64{1, 3}, exists))
}
