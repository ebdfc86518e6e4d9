// Package templating renders a page's component tree as a standalone HTML
// document for previews. It maps each component type to one element and the
// style bag to an inline style attribute.
package templating

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"sort"
	"strings"

	"go-site-builder/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrNoPage is returned when there is no page to render.
var ErrNoPage = errors.New("no page to render")

var (
	styleKeyRegex   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)
	unsafeStyleChar = regexp.MustCompile(`[<>"'{};\\]`)
	upperRegex      = regexp.MustCompile(`[A-Z]`)
)

// Engine holds the parsed page template.
type Engine struct {
	tmpl *template.Template
}

// NewEngine parses the embedded page template.
func NewEngine() (*Engine, error) {
	tmpl, err := template.New("site").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}
	return &Engine{tmpl: tmpl}, nil
}

type link struct {
	Text string
	URL  string
}

// node is the render view of one component.
type node struct {
	Tag         string
	Type        string
	ID          string
	Style       template.CSS
	Text        string
	Href        string
	Src         string
	Alt         string
	InputType   string
	Placeholder string
	Rows        int
	Action      string
	Method      string
	Links       []link
	Children    []*node
}

type pageView struct {
	Title string
	Style template.CSS
	Nodes []*node
}

// RenderPage renders page of site and returns the HTML document.
func (e *Engine) RenderPage(site *model.Project, page *model.Page) (string, error) {
	if page == nil {
		return "", ErrNoPage
	}
	title := page.Name
	if site != nil && site.Name != "" {
		title = page.Name + " | " + site.Name
	}
	view := pageView{
		Title: title,
		Style: inlineStyle(page.Styles),
		Nodes: make([]*node, 0, len(page.Components)),
	}
	for _, c := range page.Components {
		view.Nodes = append(view.Nodes, toNode(c))
	}

	var buf bytes.Buffer
	if err := e.tmpl.ExecuteTemplate(&buf, "page", view); err != nil {
		return "", fmt.Errorf("failed to render page %s: %w", page.ID, err)
	}
	return buf.String(), nil
}

func toNode(c *model.Component) *node {
	n := &node{
		Type:     string(c.Type),
		ID:       c.ID,
		Style:    inlineStyle(c.Styles),
		Children: make([]*node, 0, len(c.Children)),
	}
	for _, child := range c.Children {
		n.Children = append(n.Children, toNode(child))
	}

	switch c.Type {
	case model.TypeText:
		n.Tag, n.Text = "p", str(c.Props, "text")
	case model.TypeHeading:
		n.Tag, n.Text = "h2", str(c.Props, "text")
		if lvl := str(c.Props, "level"); len(lvl) == 2 && lvl[0] == 'h' && lvl[1] >= '1' && lvl[1] <= '6' {
			n.Tag = lvl
		}
	case model.TypeButton:
		n.Tag, n.Text = "button", str(c.Props, "text")
		if href := str(c.Props, "href"); href != "" {
			n.Tag, n.Href = "a", href
		}
	case model.TypeImage:
		n.Tag, n.Src, n.Alt = "img", str(c.Props, "src"), str(c.Props, "alt")
	case model.TypeNavbar:
		n.Tag = "nav"
		n.Links = links(c.Props["links"])
	case model.TypeFooter:
		n.Tag, n.Text = "footer", str(c.Props, "copyright")
	case model.TypeForm:
		n.Tag, n.Action, n.Method = "form", str(c.Props, "action"), str(c.Props, "method")
		if n.Method == "" {
			n.Method = "post"
		}
	case model.TypeInput:
		n.Tag, n.Text, n.Placeholder = "input", str(c.Props, "label"), str(c.Props, "placeholder")
		n.InputType = str(c.Props, "type")
		if n.InputType == "" {
			n.InputType = "text"
		}
	case model.TypeTextarea:
		n.Tag, n.Text, n.Placeholder = "textarea", str(c.Props, "label"), str(c.Props, "placeholder")
		n.Rows = 4
		if rows, ok := c.Props["rows"].(float64); ok && rows >= 1 {
			n.Rows = int(rows)
		} else if rows, ok := c.Props["rows"].(int); ok && rows >= 1 {
			n.Rows = rows
		}
	default:
		n.Tag = "div"
	}
	return n
}

func str(p model.Props, key string) string {
	s, _ := p[key].(string)
	return s
}

func links(v any) []link {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]link, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		text, _ := m["text"].(string)
		url, _ := m["url"].(string)
		out = append(out, link{Text: text, URL: url})
	}
	return out
}

// inlineStyle turns a style bag into CSS declarations sorted by property.
// camelCase keys become kebab-case; entries that could break out of the
// attribute are skipped.
func inlineStyle(s model.Styles) template.CSS {
	if len(s) == 0 {
		return ""
	}
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := strings.TrimSpace(s[k])
		if v == "" || !styleKeyRegex.MatchString(k) || unsafeStyleChar.MatchString(v) {
			continue
		}
		lower := strings.ToLower(v)
		if strings.Contains(lower, "expression(") || strings.Contains(lower, "url(") {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s: %s;", kebab(k), v)
	}
	return template.CSS(b.String())
}

func kebab(k string) string {
	return upperRegex.ReplaceAllStringFunc(k, func(m string) string { return "-" + strings.ToLower(m) })
}
