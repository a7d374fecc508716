package songlink

import (
	"fmt"

	"cogbot/domain/entities"

	"github.com/bwmarrin/discordgo"
)

const (
	fallbackThumbnail = "https://song.link/favicon.ico"
	footerText        = "Listen anywhere with just one link"
)

func songEmbed(song *entities.SongInfo) *discordgo.MessageEmbed {
	thumbnail := song.ThumbnailURL
	if thumbnail == "" {
		thumbnail = fallbackThumbnail
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s by %s", song.DisplayTitle(), song.DisplayArtist()),
		URL:         song.PageURL,
		Description: fmt.Sprintf("[Open in SongLink](%s)", song.PageURL),
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: thumbnail},
		Footer:      &discordgo.MessageEmbedFooter{Text: footerText},
	}
}
