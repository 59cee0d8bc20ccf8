// Package pagecapture carries a selected element from a live page into the
// prune serializer. A page-side script walks the subtree once and measures a
// baseline per tag; Capture replays that snapshot through prune.Element and
// prune.Host.
package pagecapture

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgnsrekt/domsnap/internal/prune"
)

// ErrMalformed reports a capture payload that cannot be replayed.
var ErrMalformed = errors.New("pagecapture: malformed capture")

// RawNode is one node as reported by the page script.
type RawNode struct {
	Type     string      `json:"type"`
	Tag      string      `json:"tag,omitempty"`
	Attrs    [][2]string `json:"attrs,omitempty"`
	Style    [][2]string `json:"style,omitempty"`
	Text     string      `json:"text,omitempty"`
	Children []*RawNode  `json:"children,omitempty"`
}

// Capture is the page snapshot of one selected element.
type Capture struct {
	URL       string                 `json:"url"`
	Title     string                 `json:"title"`
	Selector  string                 `json:"selector,omitempty"`
	RawRoot   *RawNode               `json:"root"`
	Baselines map[string][][2]string `json:"baselines"`
}

// Decode parses and validates a capture payload.
func Decode(data []byte) (*Capture, error) {
	var c Capture
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Capture) validate() error {
	if c.RawRoot == nil {
		return fmt.Errorf("%w: missing root", ErrMalformed)
	}
	if c.RawRoot.Type != "element" || strings.TrimSpace(c.RawRoot.Tag) == "" {
		return fmt.Errorf("%w: root is not an element", ErrMalformed)
	}
	return nil
}

// Root returns the captured element as a prune.Element.
func (c *Capture) Root() prune.Element {
	return &element{raw: c.RawRoot}
}

// Host returns a prune.Host whose created elements carry the baselines the
// page measured. Attach and Detach only track liveness: the page already
// removed its measurement nodes before the capture was returned.
func (c *Capture) Host() *Host {
	return &Host{baselines: c.Baselines, live: make(map[*element]struct{})}
}

// Serialize runs the prune serializer over the capture.
func (c *Capture) Serialize() *prune.SerializedNode {
	return prune.Serialize(c.Host(), c.Root())
}

// Host replays measured baselines.
type Host struct {
	baselines map[string][][2]string
	live      map[*element]struct{}
	created   int
}

var _ prune.Host = (*Host)(nil)

func (h *Host) CreateElement(tag string) prune.Element {
	h.created++
	style, ok := h.baselines[tag]
	if !ok {
		slog.Debug("pagecapture baseline missing", "tag", tag)
	}
	return &element{raw: &RawNode{Type: "element", Tag: tag, Style: style}}
}

func (h *Host) Attach(el prune.Element) {
	if e, ok := el.(*element); ok {
		h.live[e] = struct{}{}
	}
}

func (h *Host) Detach(el prune.Element) {
	if e, ok := el.(*element); ok {
		delete(h.live, e)
	}
}

// Live is the number of attached, not yet detached, elements.
func (h *Host) Live() int { return len(h.live) }

// Created is the number of baseline elements requested.
func (h *Host) Created() int { return h.created }

type element struct {
	raw *RawNode
}

func (e *element) NodeType() prune.NodeType { return prune.ElementNode }
func (e *element) TagName() string          { return e.raw.Tag }

func (e *element) Attributes() []prune.Attribute {
	out := make([]prune.Attribute, 0, len(e.raw.Attrs))
	for _, a := range e.raw.Attrs {
		out = append(out, prune.Attribute{Name: a[0], Value: a[1]})
	}
	return out
}

func (e *element) ChildNodes() []prune.Node {
	out := make([]prune.Node, 0, len(e.raw.Children))
	for _, c := range e.raw.Children {
		if c == nil {
			continue
		}
		switch c.Type {
		case "element":
			out = append(out, &element{raw: c})
		case "text":
			out = append(out, kind(prune.TextNode))
		case "comment":
			out = append(out, kind(prune.CommentNode))
		default:
			out = append(out, kind(prune.OtherNode))
		}
	}
	return out
}

func (e *element) ComputedStyle() prune.StyleSnapshot {
	return prune.NewStyleSnapshot(e.raw.Style...)
}

func (e *element) TextContent() string {
	var b strings.Builder
	collectText(e.raw, &b)
	return b.String()
}

func collectText(n *RawNode, b *strings.Builder) {
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		switch c.Type {
		case "text":
			b.WriteString(c.Text)
		case "element":
			collectText(c, b)
		}
	}
}

type kind prune.NodeType

func (k kind) NodeType() prune.NodeType { return prune.NodeType(k) }
