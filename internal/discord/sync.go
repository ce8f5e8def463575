// Package discord keeps the archive in sync with live channels: incoming
// messages are mapped into the same entity model the document importer
// produces and written through the same persistence path.
package discord

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"chatvault/internal/asset"
	"chatvault/internal/model"
	"chatvault/internal/store"
	"chatvault/pkg/logger"
)

// Syncer listens for message events on channels linked via the channel
// registry and persists them as they arrive.
type Syncer struct {
	session *discordgo.Session
	repo    *store.Repository
	assets  *asset.Store

	// live channel id -> archive table infix
	channels map[string]string

	logger *zap.Logger
}

// NewSyncer creates a syncer over an open session.
func NewSyncer(session *discordgo.Session, repo *store.Repository, assets *asset.Store) *Syncer {
	return &Syncer{
		session:  session,
		repo:     repo,
		assets:   assets,
		channels: make(map[string]string),
		logger:   logger.Get(),
	}
}

// LoadChannels reads the registry rows that carry a sync channel id.
func (s *Syncer) LoadChannels(ctx context.Context) error {
	rows, err := s.repo.SyncedChannels(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.SyncChannelID == nil {
			continue
		}
		s.channels[strconv.FormatInt(*row.SyncChannelID, 10)] = row.Infix
	}
	s.logger.Info("sync channels loaded", zap.Int("count", len(s.channels)))
	return nil
}

// Register attaches the event handlers to the session.
func (s *Syncer) Register() {
	s.session.AddHandler(s.onMessageCreate)
	s.session.AddHandler(s.onMessageUpdate)
}

func (s *Syncer) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	s.handleMessage(m.Message)
}

func (s *Syncer) onMessageUpdate(_ *discordgo.Session, m *discordgo.MessageUpdate) {
	if m.Message == nil || m.Author == nil {
		return
	}
	s.handleMessage(m.Message)
}

func (s *Syncer) handleMessage(m *discordgo.Message) {
	infix, ok := s.channels[m.ChannelID]
	if !ok {
		return
	}
	ctx := context.Background()

	msg, author, err := s.mapMessage(m)
	if err != nil {
		s.logger.Warn("skipping unmappable message",
			zap.String("message_id", m.ID),
			zap.Error(err),
		)
		return
	}

	if err := s.refreshAuthor(ctx, author); err != nil {
		s.logger.Error("author refresh failed",
			zap.Int64("author_id", author.ID),
			zap.Error(err),
		)
		return
	}

	persister := store.NewPersister(s.repo, s.assets, "")
	if err := persister.PersistMessages(ctx, store.MessageTable(infix), []*model.Message{msg}); err != nil {
		s.logger.Error("live message persistence failed",
			zap.Int64("message_id", msg.ID),
			zap.Error(err),
		)
		return
	}

	s.logger.Debug("message synced",
		zap.Int64("message_id", msg.ID),
		zap.String("channel", infix),
	)
}

// refreshAuthor upserts the author, refreshing display name and avatar.
// Unlike document imports, the live feed is authoritative for metadata.
func (s *Syncer) refreshAuthor(ctx context.Context, author *model.Author) error {
	row := store.AuthorRow{
		ID:          author.ID,
		DisplayName: author.DisplayName,
		Kind:        string(author.Kind),
	}
	if author.Avatar != nil {
		if id, err := s.assets.RegisterRemote(ctx, author.Avatar.URL, model.MediaImage, store.AvatarPrefix); err != nil {
			s.logger.Warn("avatar download failed",
				zap.Int64("author_id", author.ID),
				zap.Error(err),
			)
		} else {
			row.AvatarAssetID = &id
		}
	}
	return s.repo.RefreshAuthor(ctx, row)
}

func (s *Syncer) mapMessage(m *discordgo.Message) (*model.Message, *model.Author, error) {
	id, err := strconv.ParseInt(m.ID, 10, 64)
	if err != nil {
		return nil, nil, err
	}
	authorID, err := strconv.ParseInt(m.Author.ID, 10, 64)
	if err != nil {
		return nil, nil, err
	}

	author := &model.Author{
		ID:          authorID,
		DisplayName: displayName(m.Author),
		Kind:        authorKind(m),
	}
	if url := m.Author.AvatarURL(""); url != "" {
		author.Avatar = &model.AssetSource{URL: url, Type: model.MediaImage}
	}

	msg := &model.Message{
		ID:       id,
		AuthorID: authorID,
		SentAt:   m.Timestamp.UTC(),
		Content:  m.Content,
	}

	if m.MessageReference != nil {
		if ref, err := strconv.ParseInt(m.MessageReference.MessageID, 10, 64); err == nil {
			msg.RepliesTo = &ref
		}
	}
	if len(m.StickerItems) > 0 {
		if sticker, err := strconv.ParseInt(m.StickerItems[0].ID, 10, 64); err == nil {
			msg.StickerID = &sticker
		}
	}

	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, model.AssetSource{
			URL:  a.URL,
			Type: attachmentType(a.ContentType),
		})
	}
	for _, e := range m.Embeds {
		embed := mapEmbed(e)
		if !embed.Empty() {
			msg.Embeds = append(msg.Embeds, embed)
		}
	}

	return msg, author, nil
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func authorKind(m *discordgo.Message) model.AuthorKind {
	switch {
	case m.WebhookID != "":
		return model.AuthorWebhook
	case m.Author.Bot:
		return model.AuthorBot
	default:
		return model.AuthorNormal
	}
}

func attachmentType(contentType string) model.MediaType {
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return model.MediaVideo
	case strings.HasPrefix(contentType, "audio/"):
		return model.MediaAudio
	default:
		return model.MediaImage
	}
}

// mapEmbed flattens an API embed into the archive shape. Video embeds carry
// the remote media URL; image and article embeds fall back to the thumbnail
// when no image is present.
func mapEmbed(e *discordgo.MessageEmbed) model.Embed {
	embed := model.Embed{Kind: model.EmbedLink}

	switch e.Type {
	case discordgo.EmbedTypeImage, discordgo.EmbedTypeArticle:
		embed.Kind = model.EmbedImage
	case discordgo.EmbedTypeVideo, discordgo.EmbedTypeGifv:
		embed.Kind = model.EmbedVideo
	}

	if e.Color != 0 {
		embed.Color = fmt.Sprintf("#%06x", e.Color)
	}
	if e.Footer != nil {
		embed.Footer = e.Footer.Text
	}
	if e.Author != nil {
		embed.Author = e.Author.Name
		embed.AuthorURL = e.Author.URL
	}
	embed.Title = e.Title
	embed.TitleURL = e.URL
	embed.Description = e.Description

	if e.Video != nil && e.Video.URL != "" {
		embed.EmbedURL = e.Video.URL
	}

	assetURL := ""
	if e.Image != nil {
		assetURL = e.Image.URL
	}
	if assetURL == "" && embed.Kind == model.EmbedImage && e.Thumbnail != nil {
		assetURL = e.Thumbnail.URL
	}
	// When remote video media is present the thumbnail is discarded.
	if assetURL != "" && embed.EmbedURL == "" {
		embed.Asset = &model.AssetSource{URL: assetURL, Type: model.MediaImage}
	}

	return embed
}
