package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"chatvault/internal/asset"
	"chatvault/internal/model"
	"chatvault/pkg/errors"
	"chatvault/pkg/logger"
)

// AvatarPrefix is the grouping prefix for materialized author avatars;
// attachment and embed assets use their numeric group id instead.
const AvatarPrefix = "avi"

// Persister writes a completed entity graph into the store. The graph is
// read-only input; failures are isolated per batch so one bad message never
// takes down the run.
type Persister struct {
	repo      *Repository
	assets    *asset.Store
	bundleDir string
	logger    *zap.Logger
}

// NewPersister creates a persister. bundleDir is the directory holding the
// export's locally referenced asset files.
func NewPersister(repo *Repository, assets *asset.Store, bundleDir string) *Persister {
	return &Persister{
		repo:      repo,
		assets:    assets,
		bundleDir: bundleDir,
		logger:    logger.Get(),
	}
}

// PersistAuthors upserts the author registry in one transaction. Avatar
// assets are registered first so their rows exist before any author row
// references them; a failed avatar degrades to no avatar.
func (p *Persister) PersistAuthors(ctx context.Context, authors map[int64]model.Author) error {
	ids := make([]int64, 0, len(authors))
	for id := range authors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([]AuthorRow, 0, len(ids))
	for _, id := range ids {
		a := authors[id]
		row := AuthorRow{
			ID:          a.ID,
			DisplayName: a.DisplayName,
			Kind:        string(a.Kind),
		}
		if a.Avatar != nil {
			if assetID, err := p.registerSource(ctx, p.assets, *a.Avatar, AvatarPrefix); err != nil {
				p.logger.Warn("avatar registration failed",
					zap.Int64("author_id", a.ID),
					zap.Error(err),
				)
			} else {
				row.AvatarAssetID = &assetID
			}
		}
		rows = append(rows, row)
	}

	err := p.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return p.repo.WithTx(tx).UpsertAuthors(ctx, rows)
	})
	if err != nil {
		first := int64(0)
		if len(ids) > 0 {
			first = ids[0]
		}
		return errors.NewAuthorBatch(first, err)
	}

	p.logger.Info("authors persisted", zap.Int("count", len(rows)))
	return nil
}

// PersistMessages writes the ordered message sequence, one transaction per
// message so grouped rows commit together. A failed message is reported and
// skipped; the remaining messages still persist.
func (p *Persister) PersistMessages(ctx context.Context, table string, msgs []*model.Message) error {
	failed := 0
	for _, msg := range msgs {
		if err := p.persistMessage(ctx, table, msg); err != nil {
			p.logger.Error("message persistence failed",
				zap.Int64("message_id", msg.ID),
				zap.String("table", table),
				zap.Error(err),
			)
			failed++
		}
	}

	p.logger.Info("messages persisted",
		zap.String("table", table),
		zap.Int("count", len(msgs)-failed),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("%d of %d messages failed to persist", failed, len(msgs))
	}
	return nil
}

func (p *Persister) persistMessage(ctx context.Context, table string, msg *model.Message) error {
	err := p.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := p.repo.WithTx(tx)
		txAssets := p.assets.WithCatalog(txRepo)

		attachmentGroup, err := p.persistAttachmentGroup(ctx, txRepo, txAssets, msg)
		if err != nil {
			return err
		}
		embedGroup, err := p.persistEmbedGroup(ctx, txRepo, txAssets, msg)
		if err != nil {
			return err
		}

		row := MessageRow{
			ID:                msg.ID,
			AuthorID:          msg.AuthorID,
			SentAt:            msg.SentAt,
			RepliesTo:         msg.RepliesTo,
			Content:           nullString(msg.Content),
			StickerID:         msg.StickerID,
			AttachmentGroupID: attachmentGroup,
			EmbedGroupID:      embedGroup,
		}
		return txRepo.UpsertMessage(ctx, table, row)
	})
	if err != nil {
		return errors.NewMessagePersist(msg.ID, err)
	}
	return nil
}

// persistAttachmentGroup allocates a group, registers each attachment under
// the group id prefix, and links the survivors. Unreadable or unfetchable
// assets are skipped; a group left with no members is rolled back to keep
// the empty-group-omitted invariant.
func (p *Persister) persistAttachmentGroup(ctx context.Context, repo *Repository, st *asset.Store, msg *model.Message) (*int64, error) {
	if len(msg.Attachments) == 0 {
		return nil, nil
	}

	groupID, err := repo.CreateAttachmentGroup(ctx)
	if err != nil {
		return nil, err
	}
	prefix := strconv.FormatInt(groupID, 10)

	linked := 0
	for _, src := range msg.Attachments {
		assetID, err := p.registerSource(ctx, st, src, prefix)
		if err != nil {
			p.logger.Warn("attachment skipped",
				zap.Int64("message_id", msg.ID),
				zap.String("path", src.Path),
				zap.String("url", src.URL),
				zap.Error(err),
			)
			continue
		}
		if err := repo.AddAttachment(ctx, groupID, assetID); err != nil {
			return nil, err
		}
		linked++
	}

	if linked == 0 {
		if err := repo.DeleteAttachmentGroup(ctx, groupID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &groupID, nil
}

// persistEmbedGroup writes the message's non-empty embeds under a fresh
// group. An embed whose asset cannot be fetched persists without one.
func (p *Persister) persistEmbedGroup(ctx context.Context, repo *Repository, st *asset.Store, msg *model.Message) (*int64, error) {
	embeds := make([]model.Embed, 0, len(msg.Embeds))
	for _, e := range msg.Embeds {
		if !e.Empty() {
			embeds = append(embeds, e)
		}
	}
	if len(embeds) == 0 {
		return nil, nil
	}

	groupID, err := repo.CreateEmbedGroup(ctx)
	if err != nil {
		return nil, err
	}
	prefix := strconv.FormatInt(groupID, 10)

	for _, e := range embeds {
		var assetID *int64

		switch {
		case e.Asset != nil:
			if id, err := p.registerSource(ctx, st, *e.Asset, prefix); err != nil {
				p.logger.Warn("embed asset skipped",
					zap.Int64("message_id", msg.ID),
					zap.Error(err),
				)
			} else {
				assetID = &id
			}
		case e.EmbedURL != "" && e.Kind == model.EmbedVideo:
			// Restored media: the export lost the structured embed, so the
			// payload has to come back over the network.
			if id, err := st.RegisterRemote(ctx, e.EmbedURL, model.MediaVideo, prefix); err != nil {
				p.logger.Warn("restored embed video skipped",
					zap.Int64("message_id", msg.ID),
					zap.String("url", e.EmbedURL),
					zap.Error(err),
				)
			} else {
				assetID = &id
			}
		}

		row := EmbedRow{
			GroupID:     groupID,
			Kind:        string(e.Kind),
			Color:       nullString(e.Color),
			Footer:      nullString(e.Footer),
			Author:      nullString(e.Author),
			AuthorURL:   nullString(e.AuthorURL),
			Title:       nullString(e.Title),
			TitleURL:    nullString(e.TitleURL),
			Description: nullString(e.Description),
			EmbedURL:    nullString(e.EmbedURL),
			AssetID:     assetID,
		}
		if err := repo.InsertEmbed(ctx, row); err != nil {
			return nil, err
		}
	}

	return &groupID, nil
}

// registerSource registers either a locally exported file or a remote URL.
func (p *Persister) registerSource(ctx context.Context, st *asset.Store, src model.AssetSource, prefix string) (int64, error) {
	if src.Remote() {
		return st.RegisterRemote(ctx, src.URL, src.Type, prefix)
	}
	return st.RegisterFile(ctx, filepath.Join(p.bundleDir, filepath.FromSlash(src.Path)), src.Type, prefix)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
