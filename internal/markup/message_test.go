package markup

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatvault/internal/model"
	"chatvault/pkg/errors"
)

// firstMessage parses a document and returns its first message marker.
func firstMessage(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := Parse(strings.NewReader(html))
	require.NoError(t, err)

	var out *goquery.Selection
	err = doc.EachMessage(func(sel *goquery.Selection) error {
		if out == nil {
			out = sel
		}
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, out, "document has no message markers")
	return out
}

func TestExtractMessage_AuthorAndTimestamp(t *testing.T) {
	sel := firstMessage(t, `
		<div data-message-id="111">
			<div class="chatlog__message">
				<img class="chatlog__avatar" src="avatars/alice-Ab1C2.png">
				<span class="chatlog__author" data-user-id="200">Alice</span>
				<span class="chatlog__timestamp"><a href="#">02-Feb-24 10:23 PM</a></span>
				<span class="chatlog__markdown-preserve">hello</span>
			</div>
		</div>`)

	msg, author, err := ExtractMessage(sel)
	require.NoError(t, err)
	require.NotNil(t, author)

	assert.Equal(t, int64(111), msg.ID)
	assert.Equal(t, int64(200), author.ID)
	assert.Equal(t, "Alice", author.DisplayName)
	assert.Equal(t, model.AuthorNormal, author.Kind)
	require.NotNil(t, author.Avatar)
	assert.Equal(t, "avatars/alice-Ab1C2.png", author.Avatar.Path)

	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, time.Date(2024, 2, 2, 22, 23, 0, 0, time.UTC), msg.SentAt)
}

func TestExtractMessage_RemoteAvatar(t *testing.T) {
	sel := firstMessage(t, `
		<div data-message-id="111">
			<div class="chatlog__message">
				<img class="chatlog__avatar" src="https://cdn.example.com/avatars/200/abc.png">
				<span class="chatlog__author" data-user-id="200">Alice</span>
			</div>
		</div>`)

	_, author, err := ExtractMessage(sel)
	require.NoError(t, err)
	require.NotNil(t, author)
	require.NotNil(t, author.Avatar)
	assert.True(t, author.Avatar.Remote())
	assert.Equal(t, "https://cdn.example.com/avatars/200/abc.png", author.Avatar.URL)
}

func TestExtractMessage_ElidedAuthor(t *testing.T) {
	sel := firstMessage(t, `
		<div data-message-id="112">
			<div class="chatlog__message">
				<span class="chatlog__short-timestamp" title="02-Feb-24 10:24 PM">10:24</span>
				<span class="chatlog__markdown-preserve">again</span>
			</div>
		</div>`)

	msg, author, err := ExtractMessage(sel)
	require.NoError(t, err)
	assert.Nil(t, author)
	assert.Equal(t, time.Date(2024, 2, 2, 22, 24, 0, 0, time.UTC), msg.SentAt)
}

func TestExtractMessage_BotLabel(t *testing.T) {
	sel := firstMessage(t, `
		<div data-message-id="113">
			<div class="chatlog__message">
				<span class="chatlog__author" data-user-id="300">Beep</span>
				<span class="chatlog__bot-label">BOT</span>
			</div>
		</div>`)

	_, author, err := ExtractMessage(sel)
	require.NoError(t, err)
	require.NotNil(t, author)
	assert.Equal(t, model.AuthorBot, author.Kind)
}

func TestExtractMessage_MissingTimestampYieldsSentinel(t *testing.T) {
	sel := firstMessage(t, `
		<div data-message-id="114">
			<div class="chatlog__message"><span class="chatlog__markdown-preserve">x</span></div>
		</div>`)

	msg, _, err := ExtractMessage(sel)
	require.NoError(t, err)
	assert.Equal(t, model.EpochSentinel, msg.SentAt)
}

func TestExtractMessage_Sticker(t *testing.T) {
	sel := firstMessage(t, `
		<div data-message-id="115">
			<div class="chatlog__message">
				<div class="chatlog__sticker"><img src="https://media.example.com/stickers/12345-somename.png"></div>
			</div>
		</div>`)

	msg, _, err := ExtractMessage(sel)
	require.NoError(t, err)
	require.NotNil(t, msg.StickerID)
	assert.Equal(t, int64(12345), *msg.StickerID)
}

func TestExtractMessage_BadStickerURLFailsLoudly(t *testing.T) {
	sel := firstMessage(t, `
		<div data-message-id="116">
			<div class="chatlog__message">
				<div class="chatlog__sticker"><img src="https://media.example.com/stickers/bad-url.png"></div>
			</div>
		</div>`)

	_, _, err := ExtractMessage(sel)
	require.Error(t, err)
	var stickerErr *errors.ErrStickerURL
	require.ErrorAs(t, err, &stickerErr)
	assert.Equal(t, int64(116), stickerErr.MessageID)
}

func TestExtractMessage_Reply(t *testing.T) {
	sel := firstMessage(t, `
		<div data-message-id="117">
			<div class="chatlog__message">
				<div class="chatlog__reference-link" onclick="scrollToMessage(event,'111')">reply</div>
			</div>
		</div>`)

	msg, _, err := ExtractMessage(sel)
	require.NoError(t, err)
	require.NotNil(t, msg.RepliesTo)
	assert.Equal(t, int64(111), *msg.RepliesTo)
}

func TestExtractMessage_MalformedReplyDegrades(t *testing.T) {
	sel := firstMessage(t, `
		<div data-message-id="118">
			<div class="chatlog__message">
				<div class="chatlog__reference-link" onclick="somethingElse()">reply</div>
			</div>
		</div>`)

	msg, _, err := ExtractMessage(sel)
	require.NoError(t, err)
	assert.Nil(t, msg.RepliesTo)
}

func TestExtractMessage_Attachments(t *testing.T) {
	sel := firstMessage(t, `
		<div data-message-id="119">
			<div class="chatlog__message">
				<div class="chatlog__attachment"><img class="chatlog__attachment-media" src="attachments/cat-Xy9Zq.png"></div>
				<div class="chatlog__attachment"><video class="chatlog__attachment-media"><source src="attachments/clip.mp4"></video></div>
				<div class="chatlog__attachment"><audio class="chatlog__attachment-media"><source src="attachments/voice.ogg"></audio></div>
				<div class="chatlog__attachment"><div>plain file, no media node</div></div>
			</div>
		</div>`)

	msg, _, err := ExtractMessage(sel)
	require.NoError(t, err)
	require.Len(t, msg.Attachments, 3)
	assert.Equal(t, model.MediaImage, msg.Attachments[0].Type)
	assert.Equal(t, "attachments/cat-Xy9Zq.png", msg.Attachments[0].Path)
	assert.Equal(t, model.MediaVideo, msg.Attachments[1].Type)
	assert.Equal(t, "attachments/clip.mp4", msg.Attachments[1].Path)
	assert.Equal(t, model.MediaAudio, msg.Attachments[2].Type)
}

func TestExtractMessage_Embed(t *testing.T) {
	sel := firstMessage(t, `
		<div data-message-id="120">
			<div class="chatlog__message">
				<span class="chatlog__markdown-preserve">body text</span>
				<div class="chatlog__embed">
					<div class="chatlog__embed-color-pill" style="background-color:#ff0000"></div>
					<a class="chatlog__embed-author-link" href="https://example.com/a">x</a>
					<span class="chatlog__embed-author">Site</span>
					<div class="chatlog__embed-title"><a href="https://example.com/t"><span class="chatlog__markdown-preserve">Title</span></a></div>
					<div class="chatlog__embed-description"><span class="chatlog__markdown-preserve">Desc</span></div>
					<div class="chatlog__embed-footer">foot</div>
				</div>
			</div>
		</div>`)

	msg, _, err := ExtractMessage(sel)
	require.NoError(t, err)

	// The embed's formatted text must not leak into the message body.
	assert.Equal(t, "body text", msg.Content)

	require.Len(t, msg.Embeds, 1)
	e := msg.Embeds[0]
	assert.Equal(t, model.EmbedLink, e.Kind)
	assert.Equal(t, "#ff0000", e.Color)
	assert.Equal(t, "Site", e.Author)
	assert.Equal(t, "https://example.com/a", e.AuthorURL)
	assert.Equal(t, "Title", e.Title)
	assert.Equal(t, "https://example.com/t", e.TitleURL)
	assert.Equal(t, "Desc", e.Description)
	assert.Equal(t, "foot", e.Footer)
}

func TestExtractMessage_EmptyEmbedDropped(t *testing.T) {
	sel := firstMessage(t, `
		<div data-message-id="121">
			<div class="chatlog__message">
				<div class="chatlog__embed"><div class="chatlog__embed-text"></div></div>
			</div>
		</div>`)

	msg, _, err := ExtractMessage(sel)
	require.NoError(t, err)
	assert.Empty(t, msg.Embeds)
}

func TestExtractMessage_ImageOnlyEmbed(t *testing.T) {
	sel := firstMessage(t, `
		<div data-message-id="122">
			<div class="chatlog__message">
				<div class="chatlog__embed"><img class="chatlog__embed-image" src="embeds/pic-Ab12c.png"></div>
			</div>
		</div>`)

	msg, _, err := ExtractMessage(sel)
	require.NoError(t, err)
	require.Len(t, msg.Embeds, 1)
	assert.Equal(t, model.EmbedImage, msg.Embeds[0].Kind)
	require.NotNil(t, msg.Embeds[0].Asset)
	assert.Equal(t, "embeds/pic-Ab12c.png", msg.Embeds[0].Asset.Path)
}

func TestExtractMessage_RestoredVideoEmbed(t *testing.T) {
	sel := firstMessage(t, `
		<div data-message-id="123">
			<div class="chatlog__message">
				<span class="chatlog__markdown-preserve">watch https://files.example.com/clip.mp4 now</span>
			</div>
		</div>`)

	msg, _, err := ExtractMessage(sel)
	require.NoError(t, err)
	require.Len(t, msg.Embeds, 1)
	assert.Equal(t, model.EmbedVideo, msg.Embeds[0].Kind)
	assert.Equal(t, "https://files.example.com/clip.mp4", msg.Embeds[0].EmbedURL)
}

func TestExtractMessage_MissingIDFails(t *testing.T) {
	sel := firstMessage(t, `<div><div class="chatlog__message"></div></div>`)

	_, _, err := ExtractMessage(sel)
	require.Error(t, err)
	var idErr *errors.ErrMessageID
	assert.ErrorAs(t, err, &idErr)
}
