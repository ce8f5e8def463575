package archive

import (
	"fmt"
	"io"
	"strings"
)

// Transcript writes a human-readable rendition of the reconstructed graph.
// It exists for manual verification and runs regardless of whether
// persistence later succeeds.
type Transcript struct {
	w io.Writer
}

// NewTranscript writes to w, typically stdout.
func NewTranscript(w io.Writer) *Transcript {
	return &Transcript{w: w}
}

// Print renders every message in document order, reply previews included.
// Reply references are resolved at print time and tolerate a miss.
func (t *Transcript) Print(b *Builder) {
	for _, msg := range b.Messages() {
		if msg.RepliesTo != nil {
			if target, ok := b.Lookup(*msg.RepliesTo); ok {
				fmt.Fprintf(t.w, "::: REPLY TO ::: %s: %s\n",
					b.Author(target.AuthorID).DisplayName, target.Content)
			} else {
				fmt.Fprintf(t.w, "::: REPLY TO ::: [unknown message %d]\n", *msg.RepliesTo)
			}
		}

		name := b.Author(msg.AuthorID).DisplayName
		stamp := msg.SentAt.Format("2006-01-02 15:04:05")
		switch {
		case msg.Content != "":
			fmt.Fprintf(t.w, "[%s] %s: %s\n", stamp, name, msg.Content)
		case msg.StickerID != nil:
			fmt.Fprintf(t.w, "[%s] %s: [sticker: %d]\n", stamp, name, *msg.StickerID)
		default:
			fmt.Fprintf(t.w, "[%s] %s: [no content]\n", stamp, name)
		}

		if len(msg.Attachments) > 0 {
			kinds := make([]string, len(msg.Attachments))
			for i, a := range msg.Attachments {
				kinds[i] = string(a.Type)
			}
			fmt.Fprintf(t.w, "Attachments: %s\n", strings.Join(kinds, ", "))
		}

		for _, e := range msg.Embeds {
			fmt.Fprintf(t.w, "        [%s] %s %s %s\n", e.Kind, e.Author, e.Title, e.Description)
		}
	}

	// Authors print in sighting order so repeated runs over the same
	// document produce identical output.
	for _, id := range b.authorOrder {
		a := b.authors[id]
		fmt.Fprintf(t.w, "[%d] [%s] %s\n", a.ID, a.Kind, a.DisplayName)
	}
}
