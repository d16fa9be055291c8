package htmlutil

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment parses markup in a <body> context and returns the nodes
// attached to a detached container element, wrapped in a goquery document so
// callers can select over the whole fragment.
func ParseFragment(fragment string) (*goquery.Document, *html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return nil, nil, err
	}

	container := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return goquery.NewDocumentFromNode(container), container, nil
}

// RenderChildren serializes the children of container, which is what
// ParseFragment parsed.
func RenderChildren(container *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// RemoveAttr drops every attribute named key from n.
func RemoveAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

// SetAttr sets key to val, replacing an existing value in place so attribute
// order stays stable.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Attr returns the value of key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// ReplaceAttr swaps the attribute named oldKey for newKey=val at the same
// position. When oldKey is absent the new attribute is appended.
func ReplaceAttr(n *html.Node, oldKey, newKey, val string) {
	if oldKey != newKey {
		RemoveAttr(n, newKey)
	}
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == oldKey {
			n.Attr[i] = html.Attribute{Key: newKey, Val: val}
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: newKey, Val: val})
}
