package extractor

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// imageExtension matches the asset types worth tracking for migration.
var imageExtension = regexp.MustCompile(`(?i)\.(jpe?g|png|gif|svg|webp)$`)

// assetAttributes are the attributes that carry image references.
var assetAttributes = []string{"src", "data-src"}

// extractAssets walks the parsed template and collects image references.
// HTL expressions survive HTML parsing as plain attribute text, so a
// reference like "${properties.image}" is simply not an image path.
func extractAssets(markup string) []string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return []string{}
	}

	seen := make(map[string]bool)
	assets := make([]string, 0)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, key := range assetAttributes {
				v := strings.TrimSpace(getAttr(n, key))
				if v == "" || seen[v] || !imageExtension.MatchString(v) {
					continue
				}
				seen[v] = true
				assets = append(assets, v)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return assets
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
