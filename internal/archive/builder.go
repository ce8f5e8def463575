// Package archive assembles the entity graph for one export document: the
// ordered message sequence and the author registry, plus the two-pass
// reference resolution that runs once the scan is complete.
package archive

import (
	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"chatvault/internal/markup"
	"chatvault/internal/model"
	"chatvault/pkg/logger"
)

// Builder performs the single linear scan over message markers. It owns the
// author registry and message map for the run's duration; persistence treats
// the completed graph as read-only.
type Builder struct {
	authors     map[int64]model.Author
	authorOrder []int64
	messages    map[int64]*model.Message
	order       []int64

	// lastAuthorID covers author-marker elision: consecutive messages from
	// one author only carry the marker on the first.
	lastAuthorID int64

	logger *zap.Logger
}

// NewBuilder creates a builder with the sentinel author pre-registered, so
// elided markers at the very start of a document resolve to Anonymous.
func NewBuilder() *Builder {
	b := &Builder{
		authors:      make(map[int64]model.Author),
		messages:     make(map[int64]*model.Message),
		lastAuthorID: model.AnonymousAuthorID,
		logger:       logger.Get(),
	}
	anon := model.Anonymous()
	b.authors[anon.ID] = anon
	b.authorOrder = append(b.authorOrder, anon.ID)
	return b
}

// Scan walks the document's message markers in order, building the graph,
// then resolves mention tokens against the completed author registry.
// Unrecoverable extraction errors abort the scan.
func (b *Builder) Scan(doc *markup.Document) error {
	err := doc.EachMessage(func(sel *goquery.Selection) error {
		msg, author, err := markup.ExtractMessage(sel)
		if err != nil {
			return err
		}

		if author != nil {
			// First sighting wins; later sightings never overwrite
			// registered metadata within a run.
			if _, seen := b.authors[author.ID]; !seen {
				b.authors[author.ID] = *author
				b.authorOrder = append(b.authorOrder, author.ID)
			}
			b.lastAuthorID = author.ID
		}
		msg.AuthorID = b.lastAuthorID

		if _, seen := b.messages[msg.ID]; seen {
			b.logger.Warn("duplicate message id in document, keeping first",
				zap.Int64("message_id", msg.ID),
			)
			return nil
		}
		b.messages[msg.ID] = &msg
		b.order = append(b.order, msg.ID)
		return nil
	})
	if err != nil {
		return err
	}

	b.resolveMentions()

	b.logger.Info("document scanned",
		zap.Int("messages", len(b.order)),
		zap.Int("authors", len(b.authors)),
	)
	return nil
}

// resolveMentions rewrites display-name mention tokens now that the author
// registry is complete. This is the only post-hoc mutation of message
// bodies. The name index is built in sighting order with insert-if-absent,
// so a shared display name always resolves to the first author seen under
// it, the same rule the registry applies to ids.
func (b *Builder) resolveMentions() {
	byName := make(map[string]int64, len(b.authors))
	for _, id := range b.authorOrder {
		name := b.authors[id].DisplayName
		if _, ok := byName[name]; !ok {
			byName[name] = id
		}
	}
	for _, id := range b.order {
		msg := b.messages[id]
		if msg.Content != "" {
			msg.Content = ResolveMentions(msg.Content, byName)
		}
	}
}

// Authors returns the author registry keyed by external id.
func (b *Builder) Authors() map[int64]model.Author {
	return b.authors
}

// Messages returns the messages in document order.
func (b *Builder) Messages() []*model.Message {
	out := make([]*model.Message, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.messages[id])
	}
	return out
}

// RemoteURLs collects every remote asset reference in the graph, deduplicated,
// so the download cache can be warmed in parallel before persistence starts
// its sequential per-message transactions.
func (b *Builder) RemoteURLs() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(url string) {
		if url == "" {
			return
		}
		if _, ok := seen[url]; ok {
			return
		}
		seen[url] = struct{}{}
		out = append(out, url)
	}

	for _, a := range b.authors {
		if a.Avatar != nil && a.Avatar.Remote() {
			add(a.Avatar.URL)
		}
	}
	for _, id := range b.order {
		msg := b.messages[id]
		for _, src := range msg.Attachments {
			if src.Remote() {
				add(src.URL)
			}
		}
		for _, e := range msg.Embeds {
			if e.Asset != nil && e.Asset.Remote() {
				add(e.Asset.URL)
			}
			if e.Kind == model.EmbedVideo {
				add(e.EmbedURL)
			}
		}
	}
	return out
}

// Lookup resolves a message id against the graph. Dangling reply references
// come through here and must tolerate a miss.
func (b *Builder) Lookup(id int64) (*model.Message, bool) {
	m, ok := b.messages[id]
	return m, ok
}

// Author resolves an author id, falling back to the sentinel.
func (b *Builder) Author(id int64) model.Author {
	if a, ok := b.authors[id]; ok {
		return a
	}
	return model.Anonymous()
}
