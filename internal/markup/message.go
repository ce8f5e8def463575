package markup

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"chatvault/internal/model"
	"chatvault/pkg/errors"
)

var (
	stickerID = regexp.MustCompile(`^(\d+)`)
	replyID   = regexp.MustCompile(`scrollToMessage\(event,\s*'(\d+)'\)`)
)

// ExtractMessage recovers one message and, when the marker carries one, its
// author from a message-marker node. The author is nil when the exporter
// collapsed consecutive messages from the same author; the caller reuses the
// last seen author id in that case. AuthorID on the returned message is left
// unset for the same reason.
func ExtractMessage(sel *goquery.Selection) (model.Message, *model.Author, error) {
	id, err := extractID(sel)
	if err != nil {
		return model.Message{}, nil, err
	}

	msg := model.Message{
		ID:     id,
		SentAt: ParseTimestamp(timestampText(sel)),
	}

	author := extractAuthor(sel)

	if body := bodyNode(sel); body.Length() > 0 {
		msg.Content = NormalizeMarkdown(body)
	}

	sticker, err := extractSticker(sel, id)
	if err != nil {
		return model.Message{}, nil, err
	}
	msg.StickerID = sticker

	msg.RepliesTo = extractReply(sel)
	msg.Attachments = extractAttachments(sel)
	msg.Embeds = extractEmbeds(sel)
	msg.Embeds = append(msg.Embeds, RestoredVideoEmbeds(msg.Content)...)

	return msg, author, nil
}

// extractID reads the external message id off the marker's parent node,
// falling back to the marker itself for flat exports.
func extractID(sel *goquery.Selection) (int64, error) {
	raw, ok := sel.Parent().Attr("data-message-id")
	if !ok {
		raw, ok = sel.Attr("data-message-id")
	}
	if !ok {
		return 0, errors.NewMessageID("")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, errors.NewMessageID(raw)
	}
	return id, nil
}

// extractAuthor returns nil when the author marker was elided.
func extractAuthor(sel *goquery.Selection) *model.Author {
	node := sel.Find(".chatlog__author").First()
	if node.Length() == 0 {
		return nil
	}
	raw, _ := node.Attr("data-user-id")
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil
	}

	author := &model.Author{
		ID:          id,
		DisplayName: strings.TrimSpace(node.Text()),
		Kind:        model.AuthorNormal,
	}

	if src, ok := sel.Find(".chatlog__avatar").First().Attr("src"); ok {
		avatar := sourceFor(src, model.MediaImage)
		author.Avatar = &avatar
	}
	if sel.Find(".chatlog__bot-label").Length() > 0 {
		author.Kind = model.AuthorBot
	}

	return author
}

// timestampText finds either of the two recognized timestamp marker shapes:
// the full-precision header marker, or the compact marker whose title
// attribute carries the full timestamp.
func timestampText(sel *goquery.Selection) string {
	if ts := sel.Find(".chatlog__timestamp").First(); ts.Length() > 0 {
		if a := ts.Find("a").First(); a.Length() > 0 {
			return a.Text()
		}
		return ts.Text()
	}
	if ts := sel.Find(".chatlog__short-timestamp").First(); ts.Length() > 0 {
		if title, ok := ts.Attr("title"); ok {
			return title
		}
	}
	return ""
}

// bodyNode selects the message body, skipping formatted text that belongs to
// an embed card.
func bodyNode(sel *goquery.Selection) *goquery.Selection {
	return sel.Find("span.chatlog__markdown-preserve").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Closest(".chatlog__embed").Length() == 0
	}).First()
}

// extractSticker pulls the numeric sticker id out of the sticker image URL
// path. An unrecognized URL shape fails loudly: a silently wrong sticker id
// would corrupt the archive.
func extractSticker(sel *goquery.Selection, msgID int64) (*int64, error) {
	img := sel.Find(".chatlog__sticker img").First()
	if img.Length() == 0 {
		return nil, nil
	}
	src, ok := img.Attr("src")
	if !ok {
		return nil, errors.NewStickerURL(msgID, "")
	}
	m := stickerID.FindStringSubmatch(path.Base(stripQuery(src)))
	if m == nil {
		return nil, errors.NewStickerURL(msgID, src)
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil, errors.NewStickerURL(msgID, src)
	}
	return &id, nil
}

// extractReply parses the reply target out of the click-handler attribute.
// A marker with an unexpected handler shape degrades to no reply.
func extractReply(sel *goquery.Selection) *int64 {
	node := sel.Find(".chatlog__reference-link").First()
	if node.Length() == 0 {
		return nil
	}
	onclick, _ := node.Attr("onclick")
	m := replyID.FindStringSubmatch(onclick)
	if m == nil {
		return nil
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

// extractAttachments collects image/video/audio attachment media in document
// order. Attachment blocks without a media node (plain files) are skipped.
func extractAttachments(sel *goquery.Selection) []model.AssetSource {
	var out []model.AssetSource

	sel.Find(".chatlog__attachment").Each(func(_ int, a *goquery.Selection) {
		media := a.Find(".chatlog__attachment-media").First()
		if media.Length() == 0 {
			return
		}
		switch goquery.NodeName(media) {
		case "img":
			if src, ok := media.Attr("src"); ok {
				out = append(out, sourceFor(src, model.MediaImage))
			}
		case "video":
			if src, ok := media.Find("source").First().Attr("src"); ok {
				out = append(out, sourceFor(src, model.MediaVideo))
			}
		case "audio":
			if src, ok := media.Find("source").First().Attr("src"); ok {
				out = append(out, sourceFor(src, model.MediaAudio))
			}
		}
	})

	return out
}

// sourceFor classifies a media reference: exports either bundle the file
// next to the document or keep the original remote URL.
func sourceFor(src string, mt model.MediaType) model.AssetSource {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return model.AssetSource{URL: src, Type: mt}
	}
	return model.AssetSource{Path: src, Type: mt}
}

func stripQuery(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}
