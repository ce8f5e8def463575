package markup

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"chatvault/internal/model"
)

var colorValue = regexp.MustCompile(`background-color:\s*([^;]+)`)

// extractEmbeds recovers embed cards in document order. Embeds that come out
// with every field empty are dropped here instead of leaking into the graph.
func extractEmbeds(sel *goquery.Selection) []model.Embed {
	var out []model.Embed

	sel.Find(".chatlog__embed").Each(func(_ int, e *goquery.Selection) {
		embed := extractEmbed(e)
		if embed.Empty() {
			return
		}
		out = append(out, embed)
	})

	return out
}

func extractEmbed(e *goquery.Selection) model.Embed {
	embed := model.Embed{Kind: model.EmbedLink}

	if pill := e.Find(".chatlog__embed-color-pill").First(); pill.Length() > 0 {
		if style, ok := pill.Attr("style"); ok {
			if m := colorValue.FindStringSubmatch(style); m != nil {
				embed.Color = strings.TrimSpace(m[1])
			}
		}
	}

	if href, ok := e.Find(".chatlog__embed-author-link").First().Attr("href"); ok {
		embed.AuthorURL = href
	}
	if author := e.Find(".chatlog__embed-author").First(); author.Length() > 0 {
		embed.Author = strings.TrimSpace(author.Text())
	}

	if title := e.Find(".chatlog__embed-title").First(); title.Length() > 0 {
		if href, ok := title.Find("a").First().Attr("href"); ok {
			embed.TitleURL = href
		}
		if text := title.Find(".chatlog__markdown-preserve").First(); text.Length() > 0 {
			embed.Title = NormalizeMarkdown(text)
		}
	}

	if desc := e.Find(".chatlog__embed-description .chatlog__markdown-preserve").First(); desc.Length() > 0 {
		embed.Description = NormalizeMarkdown(desc)
	}

	if footer := e.Find(".chatlog__embed-footer").First(); footer.Length() > 0 {
		embed.Footer = strings.TrimSpace(footer.Text())
	}

	if src, ok := e.Find("img.chatlog__embed-image").First().Attr("src"); ok {
		img := sourceFor(src, model.MediaImage)
		embed.Asset = &img
	}

	// A bare image card is an image embed; everything else extracted from
	// markup is a link card. Video embeds only arise from URL restoration.
	if embed.Asset != nil && embed.Title == "" && embed.Description == "" && embed.Author == "" {
		embed.Kind = model.EmbedImage
	}

	return embed
}
