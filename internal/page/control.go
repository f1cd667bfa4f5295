package page

import (
	"strings"

	"golang.org/x/net/html"
)

// ControlKind classifies form controls by how their answer is extracted.
type ControlKind int

const (
	ControlNone ControlKind = iota
	ControlRadio
	ControlCheckbox
	ControlFreeText
)

var freeTextInputTypes = map[string]struct{}{
	"text":   {},
	"number": {},
	"email":  {},
	"hidden": {},
	"tel":    {},
	"url":    {},
}

// Classify returns the kind of a form control. Inputs without a type
// attribute are text inputs.
func Classify(n *html.Node) ControlKind {
	switch {
	case IsElement(n, "textarea", "select"):
		return ControlFreeText
	case IsElement(n, "input"):
		kind := InputType(n)
		switch kind {
		case "radio":
			return ControlRadio
		case "checkbox":
			return ControlCheckbox
		}
		if _, ok := freeTextInputTypes[kind]; ok {
			return ControlFreeText
		}
	}
	return ControlNone
}

// InputType returns the lowercased type attribute, defaulting to "text".
func InputType(n *html.Node) string {
	value, ok := Attr(n, "type")
	if !ok || strings.TrimSpace(value) == "" {
		return "text"
	}
	return strings.ToLower(strings.TrimSpace(value))
}

// IsChecked reports whether a radio or checkbox is checked.
func IsChecked(n *html.Node) bool {
	_, ok := Attr(n, "checked")
	return ok
}

// Name returns the control's name attribute.
func Name(n *html.Node) string {
	value, _ := Attr(n, "name")
	return value
}

// ID returns the element's id attribute.
func ID(n *html.Node) string {
	value, _ := Attr(n, "id")
	return value
}

// Value reads the current value of a control. Checkable inputs without a
// value attribute report "on", matching browser form semantics.
func Value(n *html.Node) string {
	switch {
	case IsElement(n, "textarea"):
		return TextContent(n)
	case IsElement(n, "select"):
		return selectValue(n)
	case IsElement(n, "input"):
		value, ok := Attr(n, "value")
		if !ok {
			switch InputType(n) {
			case "radio", "checkbox":
				return "on"
			}
		}
		return value
	}
	return ""
}

func selectValue(n *html.Node) string {
	options := FindAll(n, func(c *html.Node) bool { return IsElement(c, "option") })
	if len(options) == 0 {
		return ""
	}
	chosen := options[0]
	for _, option := range options {
		if _, ok := Attr(option, "selected"); ok {
			chosen = option
			break
		}
	}
	if value, ok := Attr(chosen, "value"); ok {
		return value
	}
	return strings.Join(strings.Fields(TextContent(chosen)), " ")
}

// Controls lists every form control of the given kind below n in document order.
func Controls(n *html.Node, kind ControlKind) []*html.Node {
	return FindAll(n, func(c *html.Node) bool { return Classify(c) == kind })
}

// Disable marks an input, textarea or select as disabled.
func Disable(n *html.Node) {
	SetAttr(n, "disabled", "")
	SetAttr(n, "aria-disabled", "true")
}

// IsDisabled reports whether the disabled attribute is present.
func IsDisabled(n *html.Node) bool {
	_, ok := Attr(n, "disabled")
	return ok
}

// Hide sets display:none on an element.
func Hide(n *html.Node) {
	setDisplay(n, "none")
}

// Show sets display:inline-block on an element.
func Show(n *html.Node) {
	setDisplay(n, "inline-block")
}

func setDisplay(n *html.Node, display string) {
	style, _ := Attr(n, "style")
	parts := make([]string, 0)
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		prop, _, _ := strings.Cut(decl, ":")
		if strings.EqualFold(strings.TrimSpace(prop), "display") {
			continue
		}
		parts = append(parts, decl)
	}
	parts = append(parts, "display:"+display)
	SetAttr(n, "style", strings.Join(parts, ";"))
}
