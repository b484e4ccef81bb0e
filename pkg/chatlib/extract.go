package chatlib

import (
	"strings"

	"golang.org/x/net/html"
)

// Extractor is the page-extractor collaborator: given a parsed document
// and a selector it returns an attribute (or the text content when the
// attribute is empty) of the first matching element. The session core
// never walks a DOM itself; everything it needs from a page goes
// through this seam.
type Extractor interface {
	Parse(body string) (*html.Node, error)
	Extract(doc *html.Node, selector, attribute string) (string, bool)
}

// HTMLExtractor is the default Extractor, built on x/net/html. It
// understands the small selector subset the login protocol uses:
// descendant chains of `tag`, `.class`, `#id`, and `[attr='value']`
// compounds, e.g. "input[name='fkey']" or ".topbar-menu-links a".
type HTMLExtractor struct{}

// NewHTMLExtractor creates the default page extractor.
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Parse parses an HTML document body.
func (e *HTMLExtractor) Parse(body string) (*html.Node, error) {
	return html.Parse(strings.NewReader(body))
}

// Extract returns the requested attribute of the first element matching
// the selector, or the element's text content when attribute is empty.
func (e *HTMLExtractor) Extract(doc *html.Node, selector, attribute string) (string, bool) {
	parts := parseSelector(selector)
	if len(parts) == 0 || doc == nil {
		return "", false
	}
	node := findFirst(doc, parts)
	if node == nil {
		return "", false
	}
	if attribute == "" {
		return textContent(node), true
	}
	for _, attr := range node.Attr {
		if attr.Key == attribute {
			return attr.Val, true
		}
	}
	return "", false
}

// simpleSelector is one compound of a descendant chain.
type simpleSelector struct {
	tag     string
	id      string
	classes []string
	attrKey string
	attrVal string
}

func parseSelector(selector string) []simpleSelector {
	var parts []simpleSelector
	for _, field := range strings.Fields(selector) {
		parts = append(parts, parseSimple(field))
	}
	return parts
}

func parseSimple(field string) simpleSelector {
	var s simpleSelector
	// Split off the [attr='value'] suffix first.
	if i := strings.IndexByte(field, '['); i >= 0 {
		attr := strings.TrimSuffix(field[i+1:], "]")
		if j := strings.IndexByte(attr, '='); j >= 0 {
			s.attrKey = attr[:j]
			s.attrVal = strings.Trim(attr[j+1:], `'"`)
		} else {
			s.attrKey = attr
		}
		field = field[:i]
	}
	for field != "" {
		rest := strings.IndexAny(field[1:], ".#")
		var token string
		if rest >= 0 {
			token, field = field[:rest+1], field[rest+1:]
		} else {
			token, field = field, ""
		}
		switch {
		case strings.HasPrefix(token, "."):
			s.classes = append(s.classes, token[1:])
		case strings.HasPrefix(token, "#"):
			s.id = token[1:]
		default:
			s.tag = token
		}
	}
	return s
}

func (s *simpleSelector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && n.Data != s.tag {
		return false
	}
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
	}
	if s.id != "" && attrs["id"] != s.id {
		return false
	}
	if len(s.classes) > 0 {
		classes := strings.Fields(attrs["class"])
		for _, want := range s.classes {
			found := false
			for _, have := range classes {
				if have == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	if s.attrKey != "" {
		val, ok := attrs[s.attrKey]
		if !ok {
			return false
		}
		if s.attrVal != "" && val != s.attrVal {
			return false
		}
	}
	return true
}

// findFirst walks the tree in document order looking for a node that
// matches the last compound of the chain with ancestors matching the
// preceding compounds.
func findFirst(root *html.Node, parts []simpleSelector) *html.Node {
	head, tail := parts[0], parts[1:]
	var walk func(n *html.Node) *html.Node
	walk = func(n *html.Node) *html.Node {
		if head.matches(n) {
			if len(tail) == 0 {
				return n
			}
			// Descendants of this node continue with the rest of the
			// chain.
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if found := findFirst(c, tail); found != nil {
					return found
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := walk(c); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(root)
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
