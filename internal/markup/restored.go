package markup

import (
	"regexp"

	"chatvault/internal/model"
)

// The export format loses video embeds entirely; the only trace left is a
// bare media URL in the message text. Each such URL is restored as a video
// embed and the payload re-downloaded at persistence time.
var bareVideoURL = regexp.MustCompile(`https?://[^\s<>"']+\.(?:mp4|webm|mov)\b`)

// RestoredVideoEmbeds synthesizes one video embed per recognized bare media
// URL in the body text, first occurrence wins per URL.
func RestoredVideoEmbeds(body string) []model.Embed {
	if body == "" {
		return nil
	}

	seen := make(map[string]bool)
	var out []model.Embed

	for _, url := range bareVideoURL.FindAllString(body, -1) {
		if seen[url] {
			continue
		}
		seen[url] = true
		out = append(out, model.Embed{
			Kind:     model.EmbedVideo,
			EmbedURL: url,
		})
	}

	return out
}
