package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chatvault/internal/asset"
	"chatvault/pkg/logger"
)

// Repository handles all relational store operations.
type Repository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRepository creates a repository over an open connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:     db,
		logger: logger.Get(),
	}
}

// WithTx returns a repository bound to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx, logger: r.logger}
}

// DB exposes the underlying handle for transaction scoping.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// LookupAssetByHash implements asset.Catalog.
func (r *Repository) LookupAssetByHash(ctx context.Context, hash string) (int64, bool, error) {
	var row AssetRow
	err := r.db.WithContext(ctx).Where("hash = ?", hash).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return row.ID, true, nil
}

// InsertAsset implements asset.Catalog. Losing an insert race on the hash
// unique index is benign: the winner's row is re-read and returned.
func (r *Repository) InsertAsset(ctx context.Context, rec asset.Record) (int64, error) {
	row := AssetRow{
		Hash:     rec.Hash,
		Type:     string(rec.Type),
		Name:     rec.Name,
		Location: rec.Location,
		Size:     rec.Size,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hash"}},
			DoNothing: true,
		}).
		Create(&row).Error
	if err != nil {
		return 0, err
	}
	if row.ID != 0 {
		return row.ID, nil
	}

	id, ok, err := r.LookupAssetByHash(ctx, rec.Hash)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("asset %s vanished after conflicting insert", rec.Hash)
	}
	return id, nil
}

// AssetByID fetches one asset row.
func (r *Repository) AssetByID(ctx context.Context, id int64) (*AssetRow, error) {
	var row AssetRow
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UpsertAuthors inserts authors if absent, in one batch. First sighting
// wins: already-registered identities are left untouched, which is what
// makes re-runs idempotent on authors.
func (r *Repository) UpsertAuthors(ctx context.Context, rows []AuthorRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(&rows).Error
}

// RefreshAuthor inserts or updates one author's mutable metadata. Only the
// live sync path uses this; document imports never overwrite.
func (r *Repository) RefreshAuthor(ctx context.Context, row AuthorRow) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "avatar_asset"}),
		}).
		Create(&row).Error
}

// CreateAttachmentGroup allocates a fresh attachment group id.
func (r *Repository) CreateAttachmentGroup(ctx context.Context) (int64, error) {
	row := AttachmentGroupRow{}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

// DeleteAttachmentGroup removes a group that ended up with no members.
func (r *Repository) DeleteAttachmentGroup(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&AttachmentGroupRow{}, id).Error
}

// AddAttachment links an asset into an attachment group.
func (r *Repository) AddAttachment(ctx context.Context, groupID, assetID int64) error {
	return r.db.WithContext(ctx).Create(&AttachmentRow{GroupID: groupID, AssetID: assetID}).Error
}

// CreateEmbedGroup allocates a fresh embed group id.
func (r *Repository) CreateEmbedGroup(ctx context.Context) (int64, error) {
	row := EmbedGroupRow{}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

// DeleteEmbedGroup removes a group that ended up with no members.
func (r *Repository) DeleteEmbedGroup(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&EmbedGroupRow{}, id).Error
}

// InsertEmbed writes one embed row into its group.
func (r *Repository) InsertEmbed(ctx context.Context, row EmbedRow) error {
	return r.db.WithContext(ctx).Create(&row).Error
}

// UpsertMessage writes one message with replace-by-identity semantics, so a
// re-run over the same document rewrites instead of duplicating.
func (r *Repository) UpsertMessage(ctx context.Context, table string, row MessageRow) error {
	return r.db.WithContext(ctx).
		Table(table).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
}

// MessageByID fetches one message from a channel table.
func (r *Repository) MessageByID(ctx context.Context, table string, id int64) (*MessageRow, error) {
	var row MessageRow
	err := r.db.WithContext(ctx).Table(table).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Messages pages through a channel table newest-first. A zero beforeID means
// start from the newest message.
func (r *Repository) Messages(ctx context.Context, table string, beforeID int64, limit int) ([]MessageRow, error) {
	q := r.db.WithContext(ctx).Table(table).Order("id DESC").Limit(limit)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	var rows []MessageRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AuthorsByID fetches a set of authors keyed by id.
func (r *Repository) AuthorsByID(ctx context.Context, ids []int64) (map[int64]AuthorRow, error) {
	out := make(map[int64]AuthorRow, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []AuthorRow
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// AttachmentAssets lists a group's assets in insertion order.
func (r *Repository) AttachmentAssets(ctx context.Context, groupID int64) ([]AssetRow, error) {
	var rows []AssetRow
	err := r.db.WithContext(ctx).
		Table("assets").
		Joins("JOIN attachments ON attachments.asset_id = assets.id").
		Where("attachments.group_id = ?", groupID).
		Order("attachments.id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// EmbedsByGroup lists a group's embeds in insertion order.
func (r *Repository) EmbedsByGroup(ctx context.Context, groupID int64) ([]EmbedRow, error) {
	var rows []EmbedRow
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Channels lists the channel registry.
func (r *Repository) Channels(ctx context.Context) ([]ChannelRow, error) {
	var rows []ChannelRow
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ChannelByInfix resolves one channel, nil when unknown.
func (r *Repository) ChannelByInfix(ctx context.Context, infix string) (*ChannelRow, error) {
	var row ChannelRow
	err := r.db.WithContext(ctx).Where("table_name = ?", infix).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SyncedChannels lists channels linked to a live chat channel.
func (r *Repository) SyncedChannels(ctx context.Context) ([]ChannelRow, error) {
	var rows []ChannelRow
	if err := r.db.WithContext(ctx).Where("sync_channel_id IS NOT NULL").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
