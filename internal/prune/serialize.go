package prune

// Serializer builds SerializedNode trees. A Serializer carries one baseline
// cache, so reuse it only within a single run.
type Serializer struct {
	baselines *BaselineProvider
}

func NewSerializer(baselines *BaselineProvider) *Serializer {
	return &Serializer{baselines: baselines}
}

// Serialize runs one complete serialization with a fresh baseline cache.
func Serialize(host Host, el Element) *SerializedNode {
	return NewSerializer(NewBaselineProvider(host)).Serialize(el)
}

// Baselines exposes the provider used by the serializer.
func (s *Serializer) Baselines() *BaselineProvider { return s.baselines }

// Serialize describes el and its element descendants.
func (s *Serializer) Serialize(el Element) *SerializedNode {
	tag := NormalizeTag(el.TagName())
	node := &SerializedNode{
		Tag:        tag,
		Attributes: filterAttributes(el.Attributes()),
		Styles:     s.filterStyles(tag, el.ComputedStyle()),
		Children:   []*SerializedNode{},
	}

	children := el.ChildNodes()
	if len(children) == 1 && children[0].NodeType() == TextNode {
		text := trimText(el.TextContent())
		node.TextContent = &text
	}

	for _, child := range children {
		if child.NodeType() != ElementNode {
			continue
		}
		childEl, ok := child.(Element)
		if !ok {
			continue
		}
		node.Children = append(node.Children, s.Serialize(childEl))
	}
	return node
}

func (s *Serializer) filterStyles(tag string, style StyleSnapshot) map[string]string {
	baseline := s.baselines.Baseline(tag)
	out := make(map[string]string)
	style.Each(func(name, value string) {
		if IsExcludedStyle(name) {
			return
		}
		value = NormalizeQuotes(value)
		if base, ok := baseline.Get(name); ok && NormalizeQuotes(base) == value {
			return
		}
		out[name] = value
	})
	return out
}

func filterAttributes(attrs []Attribute) map[string]string {
	out := make(map[string]string)
	for _, a := range attrs {
		if !IsVisualAttribute(a.Name) {
			continue
		}
		if a.Name == pathAttribute {
			out[a.Name] = PathPlaceholder
			continue
		}
		out[a.Name] = a.Value
	}
	return out
}
