package mailbox

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.Table: true, atom.Tr: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Pre: true, atom.Hr: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
}

// htmlToText flattens an HTML body to plain text one block per line. Quoted
// history (blockquotes, gmail_quote and similar containers) is dropped.
func htmlToText(body string) string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipElement(n) {
				return
			}
			if n.DataAtom == atom.Br {
				b.WriteByte('\n')
				return
			}
		}
		if n.Type == html.TextNode {
			words := strings.Fields(n.Data)
			if len(words) == 0 {
				if n.Data != "" {
					writeSpace(&b)
				}
				return
			}
			if strings.TrimLeft(n.Data, " \t\r\n") != n.Data {
				writeSpace(&b)
			}
			b.WriteString(strings.Join(words, " "))
			if strings.TrimRight(n.Data, " \t\r\n") != n.Data {
				writeSpace(&b)
			}
			return
		}

		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	walk(doc)

	lines := strings.Split(b.String(), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func skipElement(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Blockquote, atom.Script, atom.Style, atom.Head, atom.Title:
		return true
	}
	for _, a := range n.Attr {
		if a.Key != "class" && a.Key != "id" {
			continue
		}
		v := strings.ToLower(a.Val)
		if strings.Contains(v, "gmail_quote") || strings.Contains(v, "moz-cite-prefix") ||
			strings.Contains(v, "yahoo_quoted") || strings.Contains(v, "divrplyfwdmsg") ||
			strings.Contains(v, "appendonsend") {
			return true
		}
	}
	return false
}

func writeSpace(b *strings.Builder) {
	s := b.String()
	if s == "" || strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\n") {
		return
	}
	b.WriteByte(' ')
}
