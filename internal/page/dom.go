package page

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Document is a parsed page snapshot whose form state (checked, value,
// selected) is carried by attributes.
type Document struct {
	root *html.Node
}

// Task is a task container located in the document.
type Task struct {
	ID   string
	Node *html.Node
}

// Parse reads an HTML snapshot.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

// Root exposes the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Render writes the document back out as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, returning an empty string on failure.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Body returns the <body> element, or the root when absent.
func (d *Document) Body() *html.Node {
	if body := FindFirst(d.root, func(n *html.Node) bool { return IsElement(n, "body") }); body != nil {
		return body
	}
	return d.root
}

// ByID finds the first element with the given id.
func (d *Document) ByID(id string) *html.Node {
	if id == "" {
		return nil
	}
	return FindFirst(d.root, func(n *html.Node) bool {
		value, ok := Attr(n, "id")
		return ok && value == id
	})
}

// Tasks returns task containers in document order. Containers nested in
// another task container are treated as part of their parent, unless the
// outer one is only a wrapper: it holds other task containers but no
// questions or controls of its own.
func (d *Document) Tasks(sel Selectors) []Task {
	var tasks []Task
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.ElementNode {
				if id, ok := taskID(child, sel); ok && !isTaskWrapper(child, sel) {
					tasks = append(tasks, Task{ID: id, Node: child})
					continue
				}
			}
			visit(child)
		}
	}
	visit(d.root)
	return tasks
}

func isTaskWrapper(n *html.Node, sel Selectors) bool {
	nested, owned := false, false
	var walk func(cur *html.Node)
	walk = func(cur *html.Node) {
		for child := cur.FirstChild; child != nil && !owned; child = child.NextSibling {
			if child.Type != html.ElementNode {
				continue
			}
			if _, ok := taskID(child, sel); ok {
				nested = true
				continue
			}
			if HasClass(child, sel.QuestionClass) || IsElement(child, "input", "textarea", "select") {
				owned = true
				return
			}
			walk(child)
		}
	}
	walk(n)
	return nested && !owned
}

func taskID(n *html.Node, sel Selectors) (string, bool) {
	if id, ok := Attr(n, "id"); ok && sel.TaskIDPrefix != "" && strings.HasPrefix(id, sel.TaskIDPrefix) {
		return id, true
	}
	if sel.TaskIDAttribute != "" {
		if alt, ok := Attr(n, sel.TaskIDAttribute); ok && strings.TrimSpace(alt) != "" {
			return strings.TrimSpace(alt), true
		}
	}
	return "", false
}

// QuestionContainers lists question containers inside a task in document order.
func QuestionContainers(task *html.Node, sel Selectors) []*html.Node {
	return FindAll(task, func(n *html.Node) bool {
		return n.Type == html.ElementNode && HasClass(n, sel.QuestionClass)
	})
}

// QnumMarker returns the explicit question number of a container, if it
// holds a positive integer.
func QnumMarker(n *html.Node, sel Selectors) (string, bool) {
	value, ok := Attr(n, sel.QnumAttribute)
	if !ok {
		return "", false
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return "", false
	}
	return strconv.Itoa(parsed), true
}

// ClosestQuestion walks up from n (exclusive) until stop and returns the
// nearest question container carrying a number marker. Unmarked containers
// on the way are skipped.
func ClosestQuestion(n, stop *html.Node, sel Selectors) *html.Node {
	if n == nil {
		return nil
	}
	return MarkedQuestion(n.Parent, stop, sel)
}

// MarkedQuestion is ClosestQuestion starting at n itself.
func MarkedQuestion(n, stop *html.Node, sel Selectors) *html.Node {
	for cur := n; cur != nil && cur != stop; cur = cur.Parent {
		if cur.Type != html.ElementNode || !HasClass(cur, sel.QuestionClass) {
			continue
		}
		if _, ok := QnumMarker(cur, sel); ok {
			return cur
		}
	}
	return nil
}

// IsElement reports whether n is an element with one of the given tags.
func IsElement(n *html.Node, tags ...string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, tag := range tags {
		if n.Data == tag {
			return true
		}
	}
	return false
}

// Attr returns an attribute value.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// SetAttr creates or replaces an attribute.
func SetAttr(n *html.Node, key, value string) {
	for i, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

// HasClass reports whether the class attribute contains class.
func HasClass(n *html.Node, class string) bool {
	if class == "" {
		return false
	}
	value, _ := Attr(n, "class")
	for _, field := range strings.Fields(value) {
		if field == class {
			return true
		}
	}
	return false
}

// AddClass appends class when missing.
func AddClass(n *html.Node, class string) {
	if HasClass(n, class) {
		return
	}
	value, _ := Attr(n, "class")
	SetAttr(n, "class", strings.TrimSpace(value+" "+class))
}

// RemoveClass drops every occurrence of the given classes.
func RemoveClass(n *html.Node, classes ...string) {
	value, ok := Attr(n, "class")
	if !ok {
		return
	}
	drop := make(map[string]struct{}, len(classes))
	for _, class := range classes {
		drop[class] = struct{}{}
	}
	kept := make([]string, 0)
	for _, field := range strings.Fields(value) {
		if _, skip := drop[field]; !skip {
			kept = append(kept, field)
		}
	}
	SetAttr(n, "class", strings.Join(kept, " "))
}

// FindAll collects descendants of n (exclusive) matching pred in document order.
func FindAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var visit func(*html.Node)
	visit = func(cur *html.Node) {
		for child := cur.FirstChild; child != nil; child = child.NextSibling {
			if pred(child) {
				out = append(out, child)
			}
			visit(child)
		}
	}
	if n != nil {
		visit(n)
	}
	return out
}

// FindFirst returns the first descendant matching pred.
func FindFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if pred(child) {
			return child
		}
		if found := FindFirst(child, pred); found != nil {
			return found
		}
	}
	return nil
}

// TextContent concatenates all descendant text.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for child := cur.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(n)
	return b.String()
}

// NewElement builds a detached element.
func NewElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, Attr: attrs}
}

// NewText builds a detached text node. Rendering escapes it.
func NewText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// A is shorthand for an attribute literal.
func A(key, value string) html.Attribute {
	return html.Attribute{Key: key, Val: value}
}

// ReplaceChildren drops all children of n and appends the given nodes.
func ReplaceChildren(n *html.Node, children ...*html.Node) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		n.RemoveChild(child)
		child = next
	}
	for _, child := range children {
		n.AppendChild(child)
	}
}
