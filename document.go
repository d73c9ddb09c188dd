package signedxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beevik/etree"
	xrv "github.com/mattermost/xml-roundtrip-validator"
)

// Document is a parsed XML document together with the attributes that have
// been marked as XML IDs for reference resolution.
//
// A Document is not safe for concurrent mutation.
type Document struct {
	doc *etree.Document
	ids map[*etree.Element]map[string]struct{}
}

// NewDocument returns an empty Document.
func NewDocument() *Document {
	return &Document{doc: etree.NewDocument()}
}

// Parse reads an XML document. DOCTYPE declarations and any other markup
// declarations are rejected, never stripped, so no entity can be defined or
// resolved.
func Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrParse)
	}
	if err := xrv.Validate(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if err := rejectDirectives(&doc.Element); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("%w: no root element", ErrParse)
	}
	return &Document{doc: doc}, nil
}

// ParseReader reads an XML document from r. See Parse.
func ParseReader(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return Parse(data)
}

// ParseFile reads the XML document stored at path. See Parse.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func rejectDirectives(el *etree.Element) error {
	for _, t := range el.Child {
		switch t := t.(type) {
		case *etree.Directive:
			name, _, _ := strings.Cut(strings.TrimSpace(t.Data), " ")
			return fmt.Errorf("%w: %s declarations are not allowed", ErrParse, name)
		case *etree.Element:
			if err := rejectDirectives(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// Root returns the root element, or nil for an empty document.
func (d *Document) Root() *etree.Element {
	return d.doc.Root()
}

// SetRoot replaces the root element of the document.
func (d *Document) SetRoot(el *etree.Element) {
	if old := d.doc.Root(); old != nil {
		d.forget(old)
	}
	d.doc.SetRoot(el)
}

// Etree exposes the underlying etree document.
func (d *Document) Etree() *etree.Document {
	return d.doc
}

// Serialize writes the document as indented UTF-8 XML. Documents carrying a
// Signature are written with their whitespace untouched, since re-indenting
// signed content would break its digests. The receiver is not modified.
func (d *Document) Serialize() ([]byte, error) {
	out := d.doc.Copy()
	if !containsSignature(out.Root()) {
		out.Indent(2)
	}

	var buf bytes.Buffer
	if !hasDeclaration(out) {
		buf.WriteString(xml.Header)
	}
	if _, err := out.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile serializes the document to path.
func (d *Document) WriteFile(path string) error {
	data, err := d.Serialize()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func hasDeclaration(doc *etree.Document) bool {
	for _, t := range doc.Child {
		if pi, ok := t.(*etree.ProcInst); ok && pi.Target == "xml" {
			return true
		}
	}
	return false
}

// ImportNode returns a deep copy of el that can be attached to this
// document. Namespace declarations inherited from el's ancestors are copied
// onto the new element so the subtree keeps its meaning outside its original
// tree. ID attribute marks are not carried over; use PropagateIDAttribute.
func (d *Document) ImportNode(el *etree.Element) *etree.Element {
	if el == nil {
		return nil
	}
	return copyWithNamespaces(el)
}

// ReplaceNode puts replacement at the position old occupies in the document.
func (d *Document) ReplaceNode(old, replacement *etree.Element) error {
	if old == nil || replacement == nil {
		return fmt.Errorf("%w: node to replace and its replacement are required", ErrInvalidArgument)
	}
	if old == d.doc.Root() {
		d.SetRoot(replacement)
		return nil
	}
	if !d.contains(old) {
		return fmt.Errorf("%w: <%s> is not part of the document", ErrInvalidArgument, old.FullTag())
	}

	parent := old.Parent()
	idx := old.Index()
	parent.RemoveChildAt(idx)
	parent.InsertChildAt(idx, replacement)
	d.forget(old)
	return nil
}

func (d *Document) contains(el *etree.Element) bool {
	root := d.doc.Root()
	if root == nil {
		return false
	}
	for cur := el; cur != nil; cur = cur.Parent() {
		if cur == root {
			return true
		}
	}
	return false
}

// forget drops the ID marks of el and its descendants.
func (d *Document) forget(el *etree.Element) {
	if len(d.ids) == 0 {
		return
	}
	walkElements(el, func(e *etree.Element) {
		delete(d.ids, e)
	})
}

// SetIDAttribute marks the attribute name of el as an XML ID. An element may
// carry several marks; the first marked attribute in attribute order is the
// one used for resolution.
func (d *Document) SetIDAttribute(el *etree.Element, name string) error {
	if el == nil || el.SelectAttr(name) == nil {
		return fmt.Errorf("%w: attribute %q not found", ErrInvalidArgument, name)
	}
	if d.ids == nil {
		d.ids = make(map[*etree.Element]map[string]struct{})
	}
	marks, ok := d.ids[el]
	if !ok {
		marks = make(map[string]struct{})
		d.ids[el] = marks
	}
	marks[el.SelectAttr(name).FullKey()] = struct{}{}
	return nil
}

// IDAttribute returns the name of the authoritative ID attribute of el.
func (d *Document) IDAttribute(el *etree.Element) (string, bool) {
	marks := d.ids[el]
	if len(marks) == 0 {
		return "", false
	}
	for _, attr := range el.Attr {
		if _, ok := marks[attr.FullKey()]; ok {
			return attr.FullKey(), true
		}
	}
	return "", false
}

func (d *Document) isID(el *etree.Element, name string) bool {
	_, ok := d.ids[el][name]
	return ok
}

// ElementByID returns the element whose ID attribute has the value id.
func (d *Document) ElementByID(id string) (*etree.Element, error) {
	return d.elementByID(id, nil)
}

// elementByID resolves id against marked ID attributes first and, when none
// match, against the attributes called names. More than one match is
// refused.
func (d *Document) elementByID(id string, names []string) (*etree.Element, error) {
	var marked, named []*etree.Element
	walkElements(d.doc.Root(), func(el *etree.Element) {
		if attr, ok := d.IDAttribute(el); ok {
			if el.SelectAttrValue(attr, "") == id {
				marked = append(marked, el)
			}
			return
		}
		for _, name := range names {
			if a := el.SelectAttr(name); a != nil && a.Value == id {
				named = append(named, el)
				return
			}
		}
	})

	matches := marked
	if len(matches) == 0 {
		matches = named
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: no element with ID %q", ErrInvalidArgument, id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: ID %q is not unique", ErrInvalidArgument, id)
	}
}

func walkElements(el *etree.Element, fn func(*etree.Element)) {
	if el == nil {
		return
	}
	fn(el)
	for _, child := range el.ChildElements() {
		walkElements(child, fn)
	}
}

func containsSignature(root *etree.Element) bool {
	found := false
	walkElements(root, func(el *etree.Element) {
		if !found && isSignatureElement(el) {
			found = true
		}
	})
	return found
}

func isSignatureElement(el *etree.Element) bool {
	return el.Tag == "Signature" && el.NamespaceURI() == Namespace
}

// copyWithNamespaces copies el and declares on the copy every namespace
// that is in scope for el through its ancestors.
func copyWithNamespaces(el *etree.Element) *etree.Element {
	cp := el.Copy()

	declared := make(map[string]bool)
	for _, attr := range cp.Attr {
		if prefix, ok := namespacePrefix(attr); ok {
			declared[prefix] = true
		}
	}

	var inherited []etree.Attr
	for cur := el.Parent(); cur != nil; cur = cur.Parent() {
		for _, attr := range cur.Attr {
			prefix, ok := namespacePrefix(attr)
			if !ok || declared[prefix] {
				continue
			}
			declared[prefix] = true
			inherited = append(inherited, attr)
		}
	}
	if len(inherited) > 0 {
		cp.Attr = append(inherited, cp.Attr...)
	}
	return cp
}

func namespacePrefix(attr etree.Attr) (string, bool) {
	switch {
	case attr.Space == "xmlns":
		return attr.Key, true
	case attr.Space == "" && attr.Key == "xmlns":
		return "", true
	}
	return "", false
}
