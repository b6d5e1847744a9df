package portfolio

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SummaryMaxLen bounds the short description derived from a README.
const SummaryMaxLen = 240

var blobURL = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+)/blob/([^/]+)/(.*)$`)

// rawURL makes a README link absolute against raw.githubusercontent.com.
// Absolute github.com blob links are converted; other absolute links and in-page anchors are kept.
func rawURL(u, owner, repo, branch string) string {
	u = strings.TrimSpace(u)
	if u == "" || strings.HasPrefix(u, "#") {
		return u
	}
	lower := strings.ToLower(u)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "mailto:") {
		if m := blobURL.FindStringSubmatch(u); m != nil {
			return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", m[1], m[2], m[3], m[4])
		}
		return u
	}
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", owner, repo, branch, strings.TrimLeft(u, "/"))
}

func parseFragment(src string) ([]*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	return html.ParseFragment(strings.NewReader(src), body)
}

// RewriteReadmeLinks rewrites img src and a href attributes of README HTML to raw GitHub URLs.
func RewriteReadmeLinks(src, owner, repo, branch string) string {
	if strings.TrimSpace(src) == "" {
		return src
	}
	nodes, err := parseFragment(src)
	if err != nil {
		return src
	}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			key := ""
			switch n.DataAtom {
			case atom.Img:
				key = "src"
			case atom.A:
				key = "href"
			}
			for i := range n.Attr {
				if key != "" && n.Attr[i].Key == key {
					n.Attr[i].Val = rawURL(n.Attr[i].Val, owner, repo, branch)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		walk(n)
		if err := html.Render(&buf, n); err != nil {
			return src
		}
	}
	return buf.String()
}

// FirstParagraph returns the text of the first <p> of README HTML (or of the whole document
// when there is none), whitespace collapsed and cut to max characters.
func FirstParagraph(src string, max int) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	nodes, err := parseFragment(src)
	if err != nil {
		return ""
	}
	var para *html.Node
	var find func(n *html.Node)
	find = func(n *html.Node) {
		if para != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.P {
			para = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	for _, n := range nodes {
		find(n)
	}
	var sb strings.Builder
	if para != nil {
		collectText(para, &sb)
	} else {
		for _, n := range nodes {
			collectText(n, &sb)
		}
	}
	text := strings.Join(strings.Fields(sb.String()), " ")
	if utf8.RuneCountInString(text) > max {
		text = strings.TrimSpace(string([]rune(text)[:max]))
	}
	return text
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
