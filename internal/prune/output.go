package prune

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xlab/treeprint"
)

// Marshal encodes node as JSON indented by two spaces. HTML characters are
// left unescaped so the output matches what a browser's JSON.stringify emits.
func Marshal(node *SerializedNode) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("prune: marshal: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Stats summarizes a serialized tree.
type Stats struct {
	Nodes      int `json:"nodes"`
	MaxDepth   int `json:"max_depth"`
	Styles     int `json:"styles"`
	Attributes int `json:"attributes"`
	TextLeaves int `json:"text_leaves"`
}

// Measure walks node and returns its Stats.
func Measure(node *SerializedNode) Stats {
	var st Stats
	measure(node, 1, &st)
	return st
}

func measure(n *SerializedNode, depth int, st *Stats) {
	if n == nil {
		return
	}
	st.Nodes++
	if depth > st.MaxDepth {
		st.MaxDepth = depth
	}
	st.Styles += len(n.Styles)
	st.Attributes += len(n.Attributes)
	if n.TextContent != nil {
		st.TextLeaves++
	}
	for _, c := range n.Children {
		measure(c, depth+1, st)
	}
}

// Dump renders node as an indented tree for terminal inspection.
func Dump(node *SerializedNode) string {
	tree := treeprint.NewWithRoot(label(node))
	dumpChildren(tree, node)
	return tree.String()
}

func dumpChildren(branch treeprint.Tree, n *SerializedNode) {
	for _, c := range n.Children {
		if len(c.Children) == 0 {
			branch.AddNode(label(c))
			continue
		}
		dumpChildren(branch.AddBranch(label(c)), c)
	}
}

func label(n *SerializedNode) string {
	var b strings.Builder
	b.WriteString(n.Tag)
	if len(n.Attributes) > 0 {
		names := make([]string, 0, len(n.Attributes))
		for k := range n.Attributes {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(&b, " %s=%q", k, n.Attributes[k])
		}
	}
	if len(n.Styles) > 0 {
		fmt.Fprintf(&b, " (%d styles)", len(n.Styles))
	}
	if text, ok := n.Text(); ok {
		fmt.Fprintf(&b, " %q", truncate(text, 40))
	}
	return b.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
