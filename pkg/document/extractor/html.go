// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockAtoms end the current line of text, so paragraphs, headings and list
// items land on lines of their own and the chunker sees document structure.
var blockAtoms = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Pre: true, atom.Blockquote: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Table: true, atom.Ul: true, atom.Ol: true,
}

// skippedAtoms never contribute visible text.
var skippedAtoms = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Template: true,
	atom.Svg: true, atom.Iframe: true,
}

// extractHTML returns the page title (as a "Title:" line) followed by the
// visible body text, one line per block element with inner whitespace
// collapsed.
func extractHTML(content []byte) (string, error) {
	if _, err := extractText(content); err != nil {
		return "", err
	}
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return string(content), nil
	}

	w := &htmlText{}
	w.walk(doc)
	w.flush()

	lines := w.lines
	if w.title != "" {
		lines = append([]string{"Title: " + w.title}, lines...)
	}
	return strings.Join(lines, "\n"), nil
}

type htmlText struct {
	title string
	line  []string
	lines []string
}

func (w *htmlText) flush() {
	if len(w.line) == 0 {
		return
	}
	w.lines = append(w.lines, strings.Join(w.line, " "))
	w.line = w.line[:0]
}

func (w *htmlText) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		if skippedAtoms[n.DataAtom] {
			return
		}
		if n.DataAtom == atom.Title {
			if n.FirstChild != nil && w.title == "" {
				w.title = strings.Join(strings.Fields(n.FirstChild.Data), " ")
			}
			return
		}
		if blockAtoms[n.DataAtom] {
			w.flush()
			defer w.flush()
		}
	}

	if n.Type == html.TextNode {
		w.line = append(w.line, strings.Fields(n.Data)...)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}
