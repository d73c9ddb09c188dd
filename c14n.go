//go:build libxml2

package signedxml

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/lestrrat-go/libxml2/clib"
	"github.com/lestrrat-go/libxml2/parser"
)

// xmlC14NMode values, http://xmlsoft.org/html/libxml-c14n.html#xmlC14NMode
const (
	xmlC14N10          = 0
	xmlC14NExclusive10 = 1
	xmlC14N11          = 2
)

func init() {
	registerProvider(Libxml2Provider, libxml2Provider)
}

// libxml2Canonicalizer canonicalizes through libxml2's xmlC14NDocDumpMemory.
// The element is serialized by etree and parsed again by libxml2.
type libxml2Canonicalizer struct {
	mode         int
	withComments bool
}

func (c libxml2Canonicalizer) Canonicalize(el *etree.Element, inclusivePrefixes string) ([]byte, error) {
	if inclusivePrefixes != "" {
		return nil, fmt.Errorf("%w: libxml2 provider does not support InclusiveNamespaces", ErrUnsupportedAlgorithm)
	}

	tmp := etree.NewDocument()
	tmp.SetRoot(el)
	input, err := tmp.WriteToString()
	if err != nil {
		return nil, err
	}

	doc, err := parser.New().ParseString(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer doc.Free()

	out, err := clib.XMLC14NDocDumpMemory(doc, c.mode, c.withComments)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func libxml2Provider() map[string]CanonicalizationAlgorithm {
	return map[string]CanonicalizationAlgorithm{
		AlgExcC14N:             libxml2Canonicalizer{mode: xmlC14NExclusive10},
		AlgExcC14NWithComments: libxml2Canonicalizer{mode: xmlC14NExclusive10, withComments: true},
		AlgC14N10:              libxml2Canonicalizer{mode: xmlC14N10},
		AlgC14N10WithComments:  libxml2Canonicalizer{mode: xmlC14N10, withComments: true},
		AlgC14N11:              libxml2Canonicalizer{mode: xmlC14N11},
		AlgC14N11WithComments:  libxml2Canonicalizer{mode: xmlC14N11, withComments: true},
	}
}
