package extract

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// maxPageBytes caps how much of a profile page is read.
const maxPageBytes = 4 << 20

// metaDescription returns the content of the first <meta name="description">
// in the document, or "" if there is none.
func metaDescription(r io.Reader) (string, error) {
	doc, err := html.Parse(io.LimitReader(r, maxPageBytes))
	if err != nil {
		return "", err
	}
	content, _ := findMetaDescription(doc)
	return content, nil
}

func findMetaDescription(n *html.Node) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "meta" {
		var name, content string
		for _, a := range n.Attr {
			switch strings.ToLower(a.Key) {
			case "name":
				name = a.Val
			case "content":
				content = a.Val
			}
		}
		if strings.EqualFold(name, "description") {
			return content, true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if content, ok := findMetaDescription(c); ok {
			return content, true
		}
	}
	return "", false
}

// bioLengthFromPage parses a profile page and measures its description.
func bioLengthFromPage(r io.Reader) (int, error) {
	desc, err := metaDescription(r)
	if err != nil {
		return 0, err
	}
	return bioLengthFromDescription(desc), nil
}
