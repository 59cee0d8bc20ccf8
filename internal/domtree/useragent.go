package domtree

// userAgent holds the default declarations a browser stylesheet gives each
// tag. Tags not listed render with initial values (display: inline).
var userAgent = map[string]map[string]string{
	"html":       {"display": "block"},
	"body":       {"display": "block", "margin-top": "8px", "margin-right": "8px", "margin-bottom": "8px", "margin-left": "8px"},
	"div":        {"display": "block"},
	"section":    {"display": "block"},
	"article":    {"display": "block"},
	"header":     {"display": "block"},
	"footer":     {"display": "block"},
	"nav":        {"display": "block"},
	"main":       {"display": "block"},
	"aside":      {"display": "block"},
	"form":       {"display": "block"},
	"address":    {"display": "block", "font-style": "italic"},
	"p":          {"display": "block", "margin-top": "16px", "margin-bottom": "16px"},
	"h1":         {"display": "block", "font-size": "32px", "font-weight": "700", "margin-top": "21.44px", "margin-bottom": "21.44px"},
	"h2":         {"display": "block", "font-size": "24px", "font-weight": "700", "margin-top": "19.92px", "margin-bottom": "19.92px"},
	"h3":         {"display": "block", "font-size": "18.72px", "font-weight": "700", "margin-top": "18.72px", "margin-bottom": "18.72px"},
	"h4":         {"display": "block", "font-weight": "700", "margin-top": "21.28px", "margin-bottom": "21.28px"},
	"ul":         {"display": "block", "margin-top": "16px", "margin-bottom": "16px", "padding-left": "40px"},
	"ol":         {"display": "block", "margin-top": "16px", "margin-bottom": "16px", "padding-left": "40px", "list-style-type": "decimal"},
	"li":         {"display": "list-item", "text-align": "-webkit-match-parent"},
	"blockquote": {"display": "block", "margin-top": "16px", "margin-bottom": "16px", "margin-left": "40px", "margin-right": "40px"},
	"figure":     {"display": "block", "margin-top": "16px", "margin-bottom": "16px", "margin-left": "40px", "margin-right": "40px"},
	"pre":        {"display": "block", "margin-top": "16px", "margin-bottom": "16px", "white-space": "pre", "font-family": "monospace", "font-size": "13.3333px"},
	"code":       {"font-family": "monospace", "font-size": "13.3333px"},
	"hr":         {"display": "block", "margin-top": "8px", "margin-bottom": "8px", "border-top-style": "inset", "border-top-width": "1px", "border-bottom-style": "inset", "border-bottom-width": "1px", "border-left-style": "inset", "border-left-width": "1px", "border-right-style": "inset", "border-right-width": "1px", "color": "rgb(128, 128, 128)"},
	"table":      {"display": "table", "box-sizing": "border-box"},
	"thead":      {"display": "table-header-group"},
	"tbody":      {"display": "table-row-group"},
	"tr":         {"display": "table-row"},
	"td":         {"display": "table-cell", "padding-top": "1px", "padding-right": "1px", "padding-bottom": "1px", "padding-left": "1px"},
	"th":         {"display": "table-cell", "padding-top": "1px", "padding-right": "1px", "padding-bottom": "1px", "padding-left": "1px", "font-weight": "700", "text-align": "center"},
	"a":          {"color": "rgb(0, 0, 238)", "text-decoration-line": "underline", "cursor": "pointer"},
	"b":          {"font-weight": "700"},
	"strong":     {"font-weight": "700"},
	"i":          {"font-style": "italic"},
	"em":         {"font-style": "italic"},
	"u":          {"text-decoration-line": "underline"},
	"small":      {"font-size": "13.3333px"},
	"img":        {"display": "inline"},
	"button":     {"display": "inline-block", "box-sizing": "border-box", "padding-top": "1px", "padding-bottom": "1px", "padding-left": "6px", "padding-right": "6px", "text-align": "center", "background-color": "rgb(239, 239, 239)", "font-size": "13.3333px"},
	"input":      {"display": "inline-block", "padding-top": "1px", "padding-bottom": "1px", "padding-left": "2px", "padding-right": "2px", "font-size": "13.3333px"},
	"svg":        {"overflow-x": "hidden", "overflow-y": "hidden"},
	"head":       {"display": "none"},
	"script":     {"display": "none"},
	"style":      {"display": "none"},
	"title":      {"display": "none"},
	"meta":       {"display": "none"},
	"link":       {"display": "none"},
	"template":   {"display": "none"},
}
