package scene

import (
	"encoding/xml"
	"strings"
)

// Attr is one element attribute. Attributes keep insertion order so the
// serialised document is stable across renders.
type Attr struct {
	Name  string
	Value string
}

// Node is an element in the scene graph.
type Node struct {
	Tag      string
	Attrs    []Attr
	Text     string
	Children []*Node
}

func newNode(tag string) *Node {
	return &Node{Tag: tag}
}

// Set assigns an attribute, replacing any previous value.
func (n *Node) Set(name, value string) *Node {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return n
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
	return n
}

// Get returns an attribute value.
func (n *Node) Get(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Append adds child as the last child of n and returns child.
func (n *Node) Append(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

// HasClass reports whether every space-separated class in classes is set.
func (n *Node) HasClass(classes string) bool {
	have, _ := n.Get("class")
	tokens := strings.Fields(have)
	for _, want := range strings.Fields(classes) {
		found := false
		for _, t := range tokens {
			if t == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Children matching tag and classes; either may be empty to match anything.
func (n *Node) childrenMatching(tag, classes string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if (tag == "" || c.Tag == tag) && (classes == "" || c.HasClass(classes)) {
			out = append(out, c)
		}
	}
	return out
}

// FindAll walks the subtree depth first and returns every node matching tag
// and classes.
func (n *Node) FindAll(tag, classes string) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(cur *Node) {
		for _, c := range cur.Children {
			if (tag == "" || c.Tag == tag) && (classes == "" || c.HasClass(classes)) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// reconcile keeps exactly n children matching tag and classes, reusing
// existing ones in order, creating missing ones with create and removing
// extras. Non-matching children are left in place.
func (n *Node) reconcile(tag, classes string, count int, create func() *Node) []*Node {
	existing := n.childrenMatching(tag, classes)
	if len(existing) > count {
		drop := make(map[*Node]struct{}, len(existing)-count)
		for _, c := range existing[count:] {
			drop[c] = struct{}{}
		}
		kept := n.Children[:0]
		for _, c := range n.Children {
			if _, ok := drop[c]; !ok {
				kept = append(kept, c)
			}
		}
		n.Children = kept
		existing = existing[:count]
	}
	for len(existing) < count {
		existing = append(existing, n.Append(create()))
	}
	return existing
}

func (n *Node) encode(enc *xml.Encoder) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Tag}}
	for _, a := range n.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if n.Text != "" {
		if err := enc.EncodeToken(xml.CharData(n.Text)); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := c.encode(enc); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}
