package signedxml

import (
	"errors"

	"github.com/beevik/etree"
)

// EnvelopedSignature implements the
// http://www.w3.org/2000/09/xmldsig#enveloped-signature transform.
type EnvelopedSignature struct{}

// ProcessElement removes from input the Signature found by following path,
// the child token indexes leading from input down to it. input is modified
// in place and must be a copy of the referenced element.
func (e EnvelopedSignature) ProcessElement(input *etree.Element, path []int) error {
	if len(path) == 0 {
		return errors.New("signedxml: enveloped signature cannot be the referenced element")
	}

	parent := input
	for _, idx := range path[:len(path)-1] {
		if idx >= len(parent.Child) {
			return errors.New("signedxml: unable to find Signature node")
		}
		child, ok := parent.Child[idx].(*etree.Element)
		if !ok {
			return errors.New("signedxml: unable to find Signature node")
		}
		parent = child
	}

	last := path[len(path)-1]
	if last >= len(parent.Child) {
		return errors.New("signedxml: unable to find Signature node")
	}
	sig, ok := parent.Child[last].(*etree.Element)
	if !ok || sig.Tag != "Signature" {
		return errors.New("signedxml: unable to find Signature node")
	}
	if parent.RemoveChildAt(last) == nil {
		return errors.New("signedxml: unable to remove Signature element")
	}
	return nil
}

// elementPath returns the child indexes leading from ancestor to el, and
// false when el is not a descendant of ancestor.
func elementPath(ancestor, el *etree.Element) ([]int, bool) {
	var path []int
	for cur := el; cur != nil; cur = cur.Parent() {
		if cur == ancestor {
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path, true
		}
		path = append(path, cur.Index())
	}
	return nil, false
}
