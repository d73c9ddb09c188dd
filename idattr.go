package signedxml

import "github.com/beevik/etree"

// PropagateIDAttribute copies the ID mark of from, as recorded in src, onto
// the attribute of the same name of to in the receiver. Only the first marked
// attribute of from is considered. Nothing happens when from has no marked
// attribute or to lacks the attribute.
func (d *Document) PropagateIDAttribute(src *Document, from, to *etree.Element) {
	if src == nil || from == nil || to == nil {
		return
	}
	for _, attr := range from.Attr {
		name := attr.FullKey()
		if !src.isID(from, name) {
			continue
		}
		if to.SelectAttr(name) != nil {
			_ = d.SetIDAttribute(to, name)
		}
		return
	}
}

// establishRootID makes the root element resolvable by ID again. A freshly
// parsed document carries no marks, so the first root attribute called one of
// names is marked when propagation finds nothing.
func (d *Document) establishRootID(names []string) {
	root := d.Root()
	if root == nil {
		return
	}
	d.PropagateIDAttribute(d, root, root)
	if _, ok := d.IDAttribute(root); ok {
		return
	}
	for _, attr := range root.Attr {
		for _, name := range names {
			if attr.Space == "" && attr.Key == name {
				_ = d.SetIDAttribute(root, name)
				return
			}
		}
	}
}
