package htmlutil

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsSpace(c) {
			newStr.WriteRune(' ')
			continue
		}
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// Clean collapses every run of whitespace (including &nbsp;) into a single
// space and trims the result.
func Clean(s string) string {
	s = removeNonPrintable(s)
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SelectionText is Clean(sel.Text()).
func SelectionText(sel *goquery.Selection) string {
	return Clean(sel.Text())
}

// FirstText returns the first non-blank text node directly under the
// selection's first node.
func FirstText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	for child := sel.Nodes[0].FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.TextNode {
			continue
		}
		text := Clean(child.Data)
		if text != "" {
			return text
		}
	}
	return ""
}

type LinesOptions struct {
	// SkipTables omits the contents of any <table> nested inside the node.
	SkipTables bool
}

func isLineBreak(a atom.Atom) bool {
	switch a {
	case atom.Br, atom.P, atom.Div, atom.Tr, atom.Table, atom.Li,
		atom.Ul, atom.Ol, atom.H1, atom.H2, atom.H3, atom.H4, atom.Caption:
		return true
	}
	return false
}

// Lines flattens a node into its visible text lines. A line ends at every
// <br> or block element, each line is whitespace-collapsed and blank lines
// are dropped.
func Lines(sel *goquery.Selection, opts LinesOptions) []string {
	var lines []string
	var current strings.Builder

	flush := func() {
		line := Clean(current.String())
		if line != "" {
			lines = append(lines, line)
		}
		current.Reset()
	}

	var walk func(n *html.Node, root bool)
	walk = func(n *html.Node, root bool) {
		switch n.Type {
		case html.TextNode:
			current.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
			if !root && opts.SkipTables && n.DataAtom == atom.Table {
				flush()
				return
			}
			if isLineBreak(n.DataAtom) {
				flush()
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child, false)
		}
		if n.Type == html.ElementNode && isLineBreak(n.DataAtom) {
			flush()
		}
	}

	for _, n := range sel.Nodes {
		walk(n, true)
		flush()
	}
	return lines
}
