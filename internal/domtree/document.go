// Package domtree is an offline prune.Host over a parsed HTML document.
//
// Computed styles come from a simplified cascade: initial values and
// inheritance, a built-in user-agent sheet, <style> blocks in the document
// and inline style attributes, with !important honoured. External
// stylesheets, media queries, pseudo-classes and layout-dependent values are
// not evaluated.
package domtree

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"github.com/dgnsrekt/domsnap/internal/prune"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoMatch is returned by Query when no element matches the selector.
var ErrNoMatch = errors.New("domtree: no element matches selector")

type rule struct {
	sel   cascadia.Sel
	order int
	decls []*css.Declaration
}

// Document is a parsed HTML tree with its stylesheet rules.
type Document struct {
	root  *html.Node
	body  *html.Node
	rules []rule
	memo  map[*html.Node]map[string]string
	elems map[*html.Node]*Element
}

// Parse reads an HTML document and compiles its <style> blocks.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("domtree: parse html: %w", err)
	}
	d := &Document{
		root:  root,
		memo:  make(map[*html.Node]map[string]string),
		elems: make(map[*html.Node]*Element),
	}
	d.body = findFirst(root, atom.Body)
	if d.body == nil {
		return nil, errors.New("domtree: document has no body")
	}

	var sheets []string
	walk(root, func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Style {
			sheets = append(sheets, textOf(n))
		}
	})
	for _, src := range sheets {
		d.addStylesheet(src)
	}
	slog.Debug("domtree parsed", "stylesheets", len(sheets), "rules", len(d.rules))
	return d, nil
}

func (d *Document) addStylesheet(src string) {
	sheet, err := parser.Parse(src)
	if err != nil {
		slog.Debug("domtree stylesheet skipped", "error", err)
		return
	}
	for _, r := range sheet.Rules {
		if r.Kind != css.QualifiedRule {
			continue
		}
		group, err := cascadia.ParseGroup(r.Prelude)
		if err != nil {
			slog.Debug("domtree selector skipped", "selector", r.Prelude, "error", err)
			continue
		}
		for _, sel := range group {
			if sel.PseudoElement() != "" {
				continue
			}
			d.rules = append(d.rules, rule{sel: sel, order: len(d.rules), decls: r.Declarations})
		}
	}
}

// Query returns the first element matching a CSS selector.
func (d *Document) Query(selector string) (*Element, error) {
	group, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("domtree: invalid selector %q: %w", selector, err)
	}
	n := cascadia.Query(d.root, group)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, selector)
	}
	return d.element(n), nil
}

// Body returns the document body element.
func (d *Document) Body() *Element { return d.element(d.body) }

// BodyLen is the number of child nodes currently under <body>.
func (d *Document) BodyLen() int {
	n := 0
	for c := d.body.FirstChild; c != nil; c = c.NextSibling {
		n++
	}
	return n
}

// CreateElement returns a detached element of tag.
func (d *Document) CreateElement(tag string) prune.Element {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	return d.element(n)
}

// Attach appends el as the last child of <body>.
func (d *Document) Attach(el prune.Element) {
	e, ok := el.(*Element)
	if !ok || e.n.Parent != nil {
		return
	}
	d.body.AppendChild(e.n)
	d.invalidate()
}

// Detach removes el from <body> and forgets it.
func (d *Document) Detach(el prune.Element) {
	e, ok := el.(*Element)
	if !ok || e.n.Parent != d.body {
		return
	}
	d.body.RemoveChild(e.n)
	delete(d.elems, e.n)
	d.invalidate()
}

func (d *Document) invalidate() {
	d.memo = make(map[*html.Node]map[string]string)
}

func (d *Document) element(n *html.Node) *Element {
	if e, ok := d.elems[n]; ok {
		return e
	}
	e := &Element{doc: d, n: n}
	d.elems[n] = e
	return e
}

// computed resolves every enumerated property for n.
func (d *Document) computed(n *html.Node) map[string]string {
	if v, ok := d.memo[n]; ok {
		return v
	}
	var parent map[string]string
	if p := n.Parent; p != nil && p.Type == html.ElementNode {
		parent = d.computed(p)
	}

	out := make(map[string]string, len(properties))
	for _, p := range properties {
		if p.inherited && parent != nil {
			out[p.name] = parent[p.name]
			continue
		}
		out[p.name] = p.initial
	}
	for name, v := range userAgent[strings.ToLower(n.Data)] {
		out[name] = v
	}

	normal, important := d.cascade(n)
	apply(out, parent, normal)
	apply(out, parent, important)

	d.memo[n] = out
	return out
}

// cascade returns the matching declarations in application order, split
// into normal and !important.
func (d *Document) cascade(n *html.Node) (normal, important []*css.Declaration) {
	var matched []rule
	for _, r := range d.rules {
		if r.sel.Match(n) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		si, sj := matched[i].sel.Specificity(), matched[j].sel.Specificity()
		if si != sj {
			return si.Less(sj)
		}
		return matched[i].order < matched[j].order
	})

	var inline []*css.Declaration
	if v, ok := attr(n, "style"); ok && strings.TrimSpace(v) != "" {
		decls, err := parser.ParseDeclarations(v)
		if err != nil {
			slog.Debug("domtree inline style skipped", "tag", n.Data, "error", err)
		} else {
			inline = decls
		}
	}

	for _, r := range matched {
		for _, decl := range r.decls {
			if decl.Important {
				important = append(important, decl)
			} else {
				normal = append(normal, decl)
			}
		}
	}
	for _, decl := range inline {
		if decl.Important {
			important = append(important, decl)
		} else {
			normal = append(normal, decl)
		}
	}
	return normal, important
}

func apply(out, parent map[string]string, decls []*css.Declaration) {
	for _, decl := range decls {
		for _, lh := range expand(strings.ToLower(decl.Property), decl.Value) {
			p, ok := propertyIndex[lh[0]]
			if !ok {
				continue
			}
			switch strings.ToLower(strings.TrimSpace(lh[1])) {
			case "inherit":
				out[p.name] = inheritedValue(p, parent)
			case "initial":
				out[p.name] = p.initial
			case "unset":
				if p.inherited {
					out[p.name] = inheritedValue(p, parent)
				} else {
					out[p.name] = p.initial
				}
			default:
				out[p.name] = normalizeValue(p, lh[1])
			}
		}
	}
}

func inheritedValue(p property, parent map[string]string) string {
	if parent == nil {
		return p.initial
	}
	return parent[p.name]
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) {
		if found == nil && c.Type == html.ElementNode && c.DataAtom == a {
			found = c
		}
	})
	return found
}

func textOf(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
