package domtree

import (
	"fmt"
	"strconv"
	"strings"
)

var namedColors = map[string]string{
	"black":       "rgb(0, 0, 0)",
	"white":       "rgb(255, 255, 255)",
	"red":         "rgb(255, 0, 0)",
	"green":       "rgb(0, 128, 0)",
	"blue":        "rgb(0, 0, 255)",
	"yellow":      "rgb(255, 255, 0)",
	"orange":      "rgb(255, 165, 0)",
	"purple":      "rgb(128, 0, 128)",
	"gray":        "rgb(128, 128, 128)",
	"grey":        "rgb(128, 128, 128)",
	"silver":      "rgb(192, 192, 192)",
	"navy":        "rgb(0, 0, 128)",
	"teal":        "rgb(0, 128, 128)",
	"maroon":      "rgb(128, 0, 0)",
	"transparent": "rgba(0, 0, 0, 0)",
}

// normalizeColor converts hex, named and loosely spaced rgb()/rgba() colors
// into the rgb(r, g, b) / rgba(r, g, b, a) form browsers report. Anything
// else (currentcolor, none, url(...), gradients) is returned unchanged.
func normalizeColor(v string) string {
	lv := strings.ToLower(v)
	if c, ok := namedColors[lv]; ok {
		return c
	}
	if strings.HasPrefix(lv, "#") {
		if c, ok := hexColor(lv[1:]); ok {
			return c
		}
		return v
	}
	if strings.HasPrefix(lv, "rgb(") || strings.HasPrefix(lv, "rgba(") {
		inner := lv[strings.IndexByte(lv, '(')+1:]
		inner = strings.TrimSuffix(inner, ")")
		parts := strings.FieldsFunc(inner, func(r rune) bool {
			return r == ',' || r == ' ' || r == '/'
		})
		switch len(parts) {
		case 3:
			return "rgb(" + strings.Join(parts, ", ") + ")"
		case 4:
			if a, err := strconv.ParseFloat(parts[3], 64); err == nil && a == 1 {
				return "rgb(" + strings.Join(parts[:3], ", ") + ")"
			}
			return "rgba(" + strings.Join(parts, ", ") + ")"
		}
	}
	return v
}

func hexColor(h string) (string, bool) {
	switch len(h) {
	case 3, 4:
		var b strings.Builder
		for _, r := range h {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		h = b.String()
	case 6, 8:
	default:
		return "", false
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return "", false
	}
	if len(h) == 6 {
		return fmt.Sprintf("rgb(%d, %d, %d)", n>>16&0xff, n>>8&0xff, n&0xff), true
	}
	a := float64(n&0xff) / 255
	if n&0xff == 0xff {
		return fmt.Sprintf("rgb(%d, %d, %d)", n>>24&0xff, n>>16&0xff, n>>8&0xff), true
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", n>>24&0xff, n>>16&0xff, n>>8&0xff, strconv.FormatFloat(a, 'g', 3, 64)), true
}

func normalizeValue(p property, v string) string {
	v = strings.TrimSpace(v)
	if p.color {
		return normalizeColor(v)
	}
	if p.name == "font-weight" {
		switch strings.ToLower(v) {
		case "normal":
			return "400"
		case "bold":
			return "700"
		}
	}
	return v
}

// expand splits a shorthand declaration into the longhands it sets. Unknown
// longhands are returned as-is and later ignored by the cascade.
func expand(name, value string) [][2]string {
	value = strings.TrimSpace(value)
	switch name {
	case "margin", "padding":
		return boxSides(name+"-%s", value)
	case "border-width":
		return boxSides("border-%s-width", value)
	case "border-style":
		return boxSides("border-%s-style", value)
	case "border-color":
		return boxSides("border-%s-color", value)
	case "border":
		return borderSides([]string{"top", "right", "bottom", "left"}, value)
	case "border-top", "border-right", "border-bottom", "border-left":
		return borderSides([]string{strings.TrimPrefix(name, "border-")}, value)
	case "border-radius":
		v := strings.Fields(value)
		if len(v) == 0 {
			return nil
		}
		corner := v[0]
		return [][2]string{
			{"border-top-left-radius", corner},
			{"border-top-right-radius", corner},
			{"border-bottom-right-radius", corner},
			{"border-bottom-left-radius", corner},
		}
	case "overflow":
		v := strings.Fields(value)
		if len(v) == 0 {
			return nil
		}
		y := v[0]
		if len(v) > 1 {
			y = v[1]
		}
		return [][2]string{{"overflow-x", v[0]}, {"overflow-y", y}}
	case "gap":
		v := strings.Fields(value)
		if len(v) == 0 {
			return nil
		}
		col := v[0]
		if len(v) > 1 {
			col = v[1]
		}
		return [][2]string{{"row-gap", v[0]}, {"column-gap", col}}
	case "background":
		if strings.Contains(value, "url(") || strings.Contains(value, "gradient(") {
			return [][2]string{{"background-image", value}}
		}
		if strings.HasPrefix(strings.ToLower(value), "rgb") || len(strings.Fields(value)) == 1 {
			return [][2]string{{"background-color", value}}
		}
		return nil
	case "outline":
		out := make([][2]string, 0, 3)
		for _, tok := range strings.Fields(value) {
			switch {
			case isBorderStyle(tok):
				out = append(out, [2]string{"outline-style", tok})
			case isLength(tok):
				out = append(out, [2]string{"outline-width", tok})
			default:
				out = append(out, [2]string{"outline-color", tok})
			}
		}
		return out
	case "text-decoration":
		return [][2]string{{"text-decoration-line", strings.Fields(value + " none")[0]}}
	case "flex-flow":
		out := make([][2]string, 0, 2)
		for _, tok := range strings.Fields(value) {
			if strings.Contains(tok, "wrap") {
				out = append(out, [2]string{"flex-wrap", tok})
			} else {
				out = append(out, [2]string{"flex-direction", tok})
			}
		}
		return out
	}
	return [][2]string{{name, value}}
}

func boxSides(pattern, value string) [][2]string {
	v := strings.Fields(value)
	var top, right, bottom, left string
	switch len(v) {
	case 1:
		top, right, bottom, left = v[0], v[0], v[0], v[0]
	case 2:
		top, right, bottom, left = v[0], v[1], v[0], v[1]
	case 3:
		top, right, bottom, left = v[0], v[1], v[2], v[1]
	case 4:
		top, right, bottom, left = v[0], v[1], v[2], v[3]
	default:
		return nil
	}
	return [][2]string{
		{fmt.Sprintf(pattern, "top"), top},
		{fmt.Sprintf(pattern, "right"), right},
		{fmt.Sprintf(pattern, "bottom"), bottom},
		{fmt.Sprintf(pattern, "left"), left},
	}
}

func borderSides(sides []string, value string) [][2]string {
	var width, style, color string
	for _, tok := range strings.Fields(value) {
		switch {
		case isBorderStyle(tok):
			style = tok
		case isLength(tok):
			width = tok
		default:
			color = tok
		}
	}
	var out [][2]string
	for _, side := range sides {
		if width != "" {
			out = append(out, [2]string{"border-" + side + "-width", width})
		}
		if style != "" {
			out = append(out, [2]string{"border-" + side + "-style", style})
		}
		if color != "" {
			out = append(out, [2]string{"border-" + side + "-color", color})
		}
	}
	return out
}

func isBorderStyle(tok string) bool {
	switch strings.ToLower(tok) {
	case "none", "hidden", "dotted", "dashed", "solid", "double", "groove", "ridge", "inset", "outset":
		return true
	}
	return false
}

func isLength(tok string) bool {
	switch strings.ToLower(tok) {
	case "thin", "medium", "thick", "0":
		return true
	}
	for _, unit := range []string{"px", "em", "rem", "pt", "%", "vh", "vw"} {
		if strings.HasSuffix(tok, unit) {
			_, err := strconv.ParseFloat(strings.TrimSuffix(tok, unit), 64)
			return err == nil
		}
	}
	return false
}
