// Package markup recovers typed domain entities from the semi-structured
// HTML tree an export tool produces. It only ever reads the tree; all
// rewriting happens on the extracted values.
package markup

import (
	"io"
	"os"

	"github.com/PuerkitoBio/goquery"
)

// Document wraps a parsed export document.
type Document struct {
	doc *goquery.Document
}

// Parse reads a whole export document into an addressable node tree.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &Document{doc: doc}, nil
}

// ParseFile parses an export document from disk.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// EachMessage walks message-marker nodes in document order. The callback's
// error aborts the walk.
func (d *Document) EachMessage(fn func(sel *goquery.Selection) error) error {
	var walkErr error
	d.doc.Find("div.chatlog__message").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if err := fn(sel); err != nil {
			walkErr = err
			return false
		}
		return true
	})
	return walkErr
}
