// Package model holds the domain entities recovered from a chat export:
// authors, messages, embeds and the asset references they carry. These are
// plain values; persistence row types live in internal/store.
package model

import "time"

// AuthorKind mirrors the authors.type column
type AuthorKind string

const (
	AuthorNormal  AuthorKind = "user"
	AuthorWebhook AuthorKind = "webhook"
	AuthorBot     AuthorKind = "bot"
)

// MediaType classifies asset payloads
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

// AnonymousAuthorID is the sentinel author used when a document starts with
// elided author markers, before any author has been seen.
const AnonymousAuthorID int64 = 0

// EpochSentinel is the timestamp stored when a message carries no parseable
// timestamp marker.
var EpochSentinel = time.Unix(0, 0).UTC()

// AssetSource is a pending asset registration: either a path relative to the
// export bundle or a remote URL, never both.
type AssetSource struct {
	Path string
	URL  string
	Type MediaType
}

// Remote reports whether the bytes must be fetched over the network.
func (s AssetSource) Remote() bool {
	return s.URL != ""
}

// Author is a chat participant keyed by its external identity id, stable
// across documents.
type Author struct {
	ID          int64
	DisplayName string
	Avatar      *AssetSource
	Kind        AuthorKind
}

// Anonymous returns the sentinel author registered before every scan.
func Anonymous() Author {
	return Author{
		ID:          AnonymousAuthorID,
		DisplayName: "Anonymous",
		Kind:        AuthorNormal,
	}
}

// EmbedKind mirrors the embeds.type column
type EmbedKind string

const (
	EmbedLink  EmbedKind = "link"
	EmbedImage EmbedKind = "image"
	EmbedVideo EmbedKind = "video"
)

// Embed is a rich content card owned by exactly one message.
type Embed struct {
	Kind        EmbedKind
	Color       string
	Footer      string
	Author      string
	AuthorURL   string
	Title       string
	TitleURL    string
	Description string
	// EmbedURL points at remote media the export failed to capture
	// structurally; it is fetched and registered at persistence time.
	EmbedURL string
	Asset    *AssetSource
}

// Empty reports whether every optional field is absent. Empty embeds are
// never persisted.
func (e Embed) Empty() bool {
	return e.Color == "" &&
		e.Footer == "" &&
		e.Author == "" &&
		e.AuthorURL == "" &&
		e.Title == "" &&
		e.TitleURL == "" &&
		e.Description == "" &&
		e.EmbedURL == "" &&
		e.Asset == nil
}

// Message is one chat message keyed by its external identity id. Content is
// the normalized markdown body; an empty string means no body. RepliesTo may
// dangle: a reply id never observed in the document is kept as-is.
type Message struct {
	ID          int64
	AuthorID    int64
	SentAt      time.Time
	Content     string
	StickerID   *int64
	RepliesTo   *int64
	Attachments []AssetSource
	Embeds      []Embed
}
