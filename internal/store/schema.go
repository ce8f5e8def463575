package store

import (
	"context"
	"fmt"
	"regexp"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var infixPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// MessageTable names the per-channel message table for an infix.
func MessageTable(infix string) string {
	return "ch_" + infix + "_messages"
}

// Migrate creates or upgrades the shared tables. Message tables are
// per-channel and created by EnsureChannel.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&AssetRow{},
		&AuthorRow{},
		&AttachmentGroupRow{},
		&AttachmentRow{},
		&EmbedGroupRow{},
		&EmbedRow{},
		&ChannelRow{},
	)
}

// EnsureChannel registers a channel and creates its message table. Re-runs
// against an existing channel are no-ops apart from schema upgrades. The
// infix ends up in a table name, so it must stay alphanumeric.
func EnsureChannel(ctx context.Context, db *gorm.DB, infix, name string, description *string) error {
	if !infixPattern.MatchString(infix) {
		return fmt.Errorf("channel infix %q is not alphanumeric", infix)
	}

	row := ChannelRow{
		Infix:       infix,
		Name:        name,
		Description: description,
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "table_name"}},
			DoNothing: true,
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to register channel %s: %w", infix, err)
	}

	if err := db.WithContext(ctx).Table(MessageTable(infix)).AutoMigrate(&MessageRow{}); err != nil {
		return fmt.Errorf("failed to create message table for %s: %w", infix, err)
	}
	return nil
}
