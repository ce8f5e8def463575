package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeExtract represents unrecoverable markup extraction errors
	ErrorTypeExtract ErrorType = "extract"
	// ErrorTypeAsset represents asset fetch/storage errors
	ErrorTypeAsset ErrorType = "asset"
	// ErrorTypePersist represents database persistence errors
	ErrorTypePersist ErrorType = "persist"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Extraction Errors

// ErrStickerURL is returned when a sticker image URL carries no recognizable
// numeric id. This aborts the run: a silently wrong sticker id is worse than
// a hard failure.
type ErrStickerURL struct {
	*BaseError
	MessageID int64
	URL       string
}

func NewStickerURL(messageID int64, url string) *ErrStickerURL {
	return &ErrStickerURL{
		BaseError: NewBaseError(ErrorTypeExtract, fmt.Sprintf("unrecognized sticker URL %q in message %d", url, messageID), nil),
		MessageID: messageID,
		URL:       url,
	}
}

// ErrMessageID is returned when a message marker carries no usable external id
type ErrMessageID struct {
	*BaseError
	Raw string
}

func NewMessageID(raw string) *ErrMessageID {
	return &ErrMessageID{
		BaseError: NewBaseError(ErrorTypeExtract, fmt.Sprintf("message marker has no usable id (got %q)", raw), nil),
		Raw:       raw,
	}
}

// Asset Errors

// ErrAssetFetch is returned when remote asset bytes could not be retrieved
type ErrAssetFetch struct {
	*BaseError
	URL string
}

func NewAssetFetch(url string, err error) *ErrAssetFetch {
	return &ErrAssetFetch{
		BaseError: NewBaseError(ErrorTypeAsset, fmt.Sprintf("failed to fetch %s", url), err),
		URL:       url,
	}
}

// ErrAssetRead is returned when a locally exported asset file is unreadable
type ErrAssetRead struct {
	*BaseError
	Path string
}

func NewAssetRead(path string, err error) *ErrAssetRead {
	return &ErrAssetRead{
		BaseError: NewBaseError(ErrorTypeAsset, fmt.Sprintf("failed to read %s", path), err),
		Path:      path,
	}
}

// Persistence Errors

// ErrAuthorBatch is returned when the author upsert batch fails
type ErrAuthorBatch struct {
	*BaseError
	AuthorID int64
}

func NewAuthorBatch(authorID int64, err error) *ErrAuthorBatch {
	return &ErrAuthorBatch{
		BaseError: NewBaseError(ErrorTypePersist, fmt.Sprintf("author batch failed at author %d", authorID), err),
		AuthorID:  authorID,
	}
}

// ErrMessagePersist is returned when one message's transaction fails
type ErrMessagePersist struct {
	*BaseError
	MessageID int64
}

func NewMessagePersist(messageID int64, err error) *ErrMessagePersist {
	return &ErrMessagePersist{
		BaseError: NewBaseError(ErrorTypePersist, fmt.Sprintf("failed to persist message %d", messageID), err),
		MessageID: messageID,
	}
}
