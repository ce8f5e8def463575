package markup

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var emojiSrc = regexp.MustCompile(`cdn\.discordapp\.com/emojis/(\d+)`)

// NormalizeMarkdown flattens a formatted-text node into the wire-style text
// representation: mention spans become <@name> tokens, custom emoji images
// become <:name:id> tokens, anchors are unwrapped, and em/b/code map back to
// *text*, **text** and `text`. The walk is a pure rendering pass over the
// tree, so rewrite rules cannot interact through shared node state.
func NormalizeMarkdown(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		renderChildren(n, &b)
	}
	return b.String()
}

func renderChildren(n *html.Node, b *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(c, b)
	}
}

func renderNode(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	if n.Type != html.ElementNode {
		return
	}

	switch {
	case hasClass(n, "chatlog__markdown-mention"):
		b.WriteString("<")
		renderChildren(n, b)
		b.WriteString(">")
	case n.Data == "img" && hasClass(n, "chatlog__emoji"):
		renderEmoji(n, b)
	case n.Data == "a":
		// anchors unwrap to their text
		renderChildren(n, b)
	case n.Data == "em":
		b.WriteString("*")
		renderChildren(n, b)
		b.WriteString("*")
	case n.Data == "b" || n.Data == "strong":
		b.WriteString("**")
		renderChildren(n, b)
		b.WriteString("**")
	case n.Data == "code":
		b.WriteString("`")
		renderChildren(n, b)
		b.WriteString("`")
	case n.Data == "br":
		b.WriteString("\n")
	default:
		renderChildren(n, b)
	}
}

// renderEmoji maps a custom emoji image to its <:name:id> token. Images not
// hosted on the expected emoji CDN fall back to their alt text.
func renderEmoji(n *html.Node, b *strings.Builder) {
	m := emojiSrc.FindStringSubmatch(attr(n, "src"))
	if m == nil {
		b.WriteString(attr(n, "alt"))
		return
	}
	b.WriteString("<:")
	b.WriteString(attr(n, "title"))
	b.WriteString(":")
	b.WriteString(m[1])
	b.WriteString(">")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
