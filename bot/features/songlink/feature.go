package songlink

import (
	"context"
	"fmt"

	"cogbot/application"
	"cogbot/bot/common"
	"cogbot/domain/entities"
	"cogbot/domain/interfaces"
	"cogbot/domain/services"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// LinkQueue accepts music links for background resolution
type LinkQueue interface {
	Enqueue(job application.SongLinkJob) bool
}

// Feature converts music service links into SongLink embeds
type Feature struct {
	session    *discordgo.Session
	uowFactory application.UnitOfWorkFactory
	resolver   application.SongResolver
	queue      LinkQueue
}

var _ application.SongPoster = (*Feature)(nil)

// NewFeature creates a new SongLink feature instance
func NewFeature(session *discordgo.Session, uowFactory application.UnitOfWorkFactory, resolver application.SongResolver) *Feature {
	return &Feature{
		session:    session,
		uowFactory: uowFactory,
		resolver:   resolver,
	}
}

// SetQueue attaches the worker queue that registered-channel links are sent to
func (f *Feature) SetQueue(queue LinkQueue) {
	f.queue = queue
}

// PostSong sends the SongLink embed for a resolved song to a channel
func (f *Feature) PostSong(ctx context.Context, channelID int64, song *entities.SongInfo) error {
	if _, err := f.session.ChannelMessageSendEmbed(common.FormatID(channelID), songEmbed(song)); err != nil {
		return fmt.Errorf("failed to send SongLink embed to channel %d: %w", channelID, err)
	}
	return nil
}

// HandleMessage queues every supported music link posted in a registered channel
func (f *Feature) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" || f.queue == nil {
		return
	}

	urls := services.SupportedMusicURLs(m.Content)
	if len(urls) == 0 {
		return
	}

	guildID, err := common.ParseID(m.GuildID)
	if err != nil {
		return
	}
	channelID, err := common.ParseID(m.ChannelID)
	if err != nil {
		return
	}

	ctx := context.Background()
	var registered bool
	err = f.withSongChannels(ctx, guildID, func(svc interfaces.SongChannelService) error {
		var err error
		registered, err = svc.IsRegistered(ctx, channelID)
		return err
	})
	if err != nil {
		log.WithError(err).WithField("channel_id", channelID).Error("Failed to check song channel")
		return
	}
	if !registered {
		return
	}

	for _, url := range urls {
		f.queue.Enqueue(application.SongLinkJob{
			GuildID:   guildID,
			ChannelID: channelID,
			URL:       url,
		})
	}

	log.WithFields(log.Fields{
		"guild_id":   guildID,
		"channel_id": channelID,
		"links":      len(urls),
	}).Debug("Queued SongLink links")
}

// withSongChannels runs fn with a song channel service inside a committed unit of work
func (f *Feature) withSongChannels(ctx context.Context, guildID int64, fn func(svc interfaces.SongChannelService) error) error {
	uow := f.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	svc := services.NewSongChannelService(uow.GuildSettingsRepository(), uow.SongChannelRepository())
	if err := fn(svc); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return common.NewSystemError(err, "failed to commit transaction")
	}
	return nil
}
