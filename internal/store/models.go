package store

import "time"

// AuthorRow is one chat participant. Ids are external identities, never
// generated locally.
type AuthorRow struct {
	ID            int64  `gorm:"primaryKey;autoIncrement:false"`
	DisplayName   string `gorm:"size:100;not null"`
	Kind          string `gorm:"column:type;size:16;not null"`
	AvatarAssetID *int64 `gorm:"column:avatar_asset"`
}

func (AuthorRow) TableName() string { return "authors" }

// AssetRow is one deduplicated binary payload. Hash is the content identity;
// the unique index is what makes concurrent registration of identical bytes
// a benign race.
type AssetRow struct {
	ID       int64  `gorm:"primaryKey"`
	Hash     string `gorm:"size:64;not null;uniqueIndex"`
	Type     string `gorm:"size:16;not null"`
	Name     string `gorm:"size:1024;not null"`
	Location string `gorm:"size:1024;not null"`
	Size     int64  `gorm:"not null"`
}

func (AssetRow) TableName() string { return "assets" }

type AttachmentGroupRow struct {
	ID int64 `gorm:"primaryKey"`
}

func (AttachmentGroupRow) TableName() string { return "attachment_groups" }

type AttachmentRow struct {
	ID      int64 `gorm:"primaryKey"`
	GroupID int64 `gorm:"index;not null"`
	AssetID int64 `gorm:"index;not null"`
}

func (AttachmentRow) TableName() string { return "attachments" }

type EmbedGroupRow struct {
	ID int64 `gorm:"primaryKey"`
}

func (EmbedGroupRow) TableName() string { return "embed_groups" }

type EmbedRow struct {
	ID          int64   `gorm:"primaryKey"`
	GroupID     int64   `gorm:"index;not null"`
	Kind        string  `gorm:"column:type;size:16;not null"`
	Color       *string `gorm:"size:128"`
	Footer      *string
	Author      *string
	AuthorURL   *string `gorm:"column:author_url"`
	Title       *string
	TitleURL    *string `gorm:"column:title_url"`
	Description *string
	EmbedURL    *string `gorm:"column:embed_url"`
	AssetID     *int64  `gorm:"index"`
}

func (EmbedRow) TableName() string { return "embeds" }

// ChannelRow registers one archived channel and names its message table.
// SyncChannelID links the archive to a live chat channel for the sync bot.
type ChannelRow struct {
	ID            int64  `gorm:"primaryKey"`
	Infix         string `gorm:"column:table_name;size:64;not null;uniqueIndex"`
	Name          string `gorm:"size:128;not null"`
	Description   *string
	SyncChannelID *int64 `gorm:"column:sync_channel_id"`
}

func (ChannelRow) TableName() string { return "channels" }

// MessageRow lives in a per-channel table (see MessageTable); it carries no
// TableName and must always be addressed through Table().
type MessageRow struct {
	ID                int64     `gorm:"primaryKey;autoIncrement:false"`
	AuthorID          int64     `gorm:"index;not null"`
	SentAt            time.Time `gorm:"column:sent;not null"`
	RepliesTo         *int64    `gorm:"column:replies_to"`
	Content           *string
	StickerID         *int64 `gorm:"column:sticker"`
	AttachmentGroupID *int64 `gorm:"column:attachment_group"`
	EmbedGroupID      *int64 `gorm:"column:embed_group"`
}
