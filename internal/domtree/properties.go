package domtree

// property is one longhand reported by ComputedStyle.
type property struct {
	name      string
	initial   string
	inherited bool
	color     bool
}

// properties is the enumeration order of every computed style, alphabetical
// like a browser's getComputedStyle.
var properties = []property{
	{name: "align-items", initial: "normal"},
	{name: "background-color", initial: "rgba(0, 0, 0, 0)", color: true},
	{name: "background-image", initial: "none"},
	{name: "border-bottom-color", initial: "rgb(0, 0, 0)", color: true},
	{name: "border-bottom-left-radius", initial: "0px"},
	{name: "border-bottom-right-radius", initial: "0px"},
	{name: "border-bottom-style", initial: "none"},
	{name: "border-bottom-width", initial: "0px"},
	{name: "border-left-color", initial: "rgb(0, 0, 0)", color: true},
	{name: "border-left-style", initial: "none"},
	{name: "border-left-width", initial: "0px"},
	{name: "border-right-color", initial: "rgb(0, 0, 0)", color: true},
	{name: "border-right-style", initial: "none"},
	{name: "border-right-width", initial: "0px"},
	{name: "border-top-color", initial: "rgb(0, 0, 0)", color: true},
	{name: "border-top-left-radius", initial: "0px"},
	{name: "border-top-right-radius", initial: "0px"},
	{name: "border-top-style", initial: "none"},
	{name: "border-top-width", initial: "0px"},
	{name: "bottom", initial: "auto"},
	{name: "box-shadow", initial: "none"},
	{name: "box-sizing", initial: "content-box"},
	{name: "color", initial: "rgb(0, 0, 0)", inherited: true, color: true},
	{name: "column-gap", initial: "normal"},
	{name: "content", initial: "normal"},
	{name: "cursor", initial: "auto", inherited: true},
	{name: "d", initial: "none"},
	{name: "display", initial: "inline"},
	{name: "fill", initial: "rgb(0, 0, 0)", inherited: true, color: true},
	{name: "flex-direction", initial: "row"},
	{name: "flex-wrap", initial: "nowrap"},
	{name: "font-family", initial: "\"Times New Roman\"", inherited: true},
	{name: "font-size", initial: "16px", inherited: true},
	{name: "font-style", initial: "normal", inherited: true},
	{name: "font-weight", initial: "400", inherited: true},
	{name: "height", initial: "auto"},
	{name: "justify-content", initial: "normal"},
	{name: "left", initial: "auto"},
	{name: "letter-spacing", initial: "normal", inherited: true},
	{name: "line-height", initial: "normal", inherited: true},
	{name: "list-style-type", initial: "disc", inherited: true},
	{name: "margin-bottom", initial: "0px"},
	{name: "margin-left", initial: "0px"},
	{name: "margin-right", initial: "0px"},
	{name: "margin-top", initial: "0px"},
	{name: "opacity", initial: "1"},
	{name: "outline-color", initial: "rgb(0, 0, 0)", color: true},
	{name: "outline-style", initial: "none"},
	{name: "outline-width", initial: "0px"},
	{name: "overflow-x", initial: "visible"},
	{name: "overflow-y", initial: "visible"},
	{name: "padding-bottom", initial: "0px"},
	{name: "padding-left", initial: "0px"},
	{name: "padding-right", initial: "0px"},
	{name: "padding-top", initial: "0px"},
	{name: "position", initial: "static"},
	{name: "quotes", initial: "auto", inherited: true},
	{name: "right", initial: "auto"},
	{name: "row-gap", initial: "normal"},
	{name: "stroke", initial: "none", inherited: true, color: true},
	{name: "stroke-width", initial: "1px", inherited: true},
	{name: "text-align", initial: "start", inherited: true},
	{name: "text-decoration-line", initial: "none"},
	{name: "text-transform", initial: "none", inherited: true},
	{name: "top", initial: "auto"},
	{name: "transform", initial: "none"},
	{name: "visibility", initial: "visible", inherited: true},
	{name: "white-space", initial: "normal", inherited: true},
	{name: "width", initial: "auto"},
	{name: "z-index", initial: "auto"},
}

var (
	propertyOrder = make([]string, 0, len(properties))
	propertyIndex = make(map[string]property, len(properties))
)

func init() {
	for _, p := range properties {
		propertyOrder = append(propertyOrder, p.name)
		propertyIndex[p.name] = p
	}
}

// PropertyNames returns the properties every computed style enumerates.
func PropertyNames() []string {
	out := make([]string, len(propertyOrder))
	copy(out, propertyOrder)
	return out
}
