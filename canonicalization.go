package signedxml

import (
	"fmt"
	"sort"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
)

// CanonicalizationAlgorithm serializes an element into its canonical form.
type CanonicalizationAlgorithm interface {
	// Canonicalize writes el, which must already be detached from any live
	// tree and carry its in-scope namespace declarations. Implementations
	// may modify el. inclusivePrefixes is the InclusiveNamespaces PrefixList
	// and is only meaningful for exclusive canonicalization.
	Canonicalize(el *etree.Element, inclusivePrefixes string) ([]byte, error)
}

// A Provider builds one implementation of every canonicalization algorithm
// it supports, keyed by algorithm URI.
type Provider func() map[string]CanonicalizationAlgorithm

// Provider names.
const (
	DefaultProvider = "goxmldsig"
	Libxml2Provider = "libxml2"
)

var providers = map[string]Provider{
	DefaultProvider: goxmldsigProvider,
}

func registerProvider(name string, p Provider) {
	providers[name] = p
}

// Providers lists the canonicalization providers compiled into the binary.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type goxmldsigCanonicalizer struct {
	make func(prefixList string) dsig.Canonicalizer
}

func (c goxmldsigCanonicalizer) Canonicalize(el *etree.Element, inclusivePrefixes string) ([]byte, error) {
	return c.make(inclusivePrefixes).Canonicalize(el)
}

func goxmldsigProvider() map[string]CanonicalizationAlgorithm {
	inclusive := func(c dsig.Canonicalizer) goxmldsigCanonicalizer {
		return goxmldsigCanonicalizer{make: func(string) dsig.Canonicalizer { return c }}
	}
	return map[string]CanonicalizationAlgorithm{
		AlgExcC14N: goxmldsigCanonicalizer{make: func(prefixList string) dsig.Canonicalizer {
			return dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList(prefixList)
		}},
		AlgExcC14NWithComments: goxmldsigCanonicalizer{make: func(prefixList string) dsig.Canonicalizer {
			return dsig.MakeC14N10ExclusiveWithCommentsCanonicalizerWithPrefixList(prefixList)
		}},
		AlgC14N10:             inclusive(dsig.MakeC14N10RecCanonicalizer()),
		AlgC14N10WithComments: inclusive(dsig.MakeC14N10WithCommentsCanonicalizer()),
		AlgC14N11:             inclusive(dsig.MakeC14N11Canonicalizer()),
		AlgC14N11WithComments: inclusive(dsig.MakeC14N11WithCommentsCanonicalizer()),
	}
}

// canonicalize runs algorithm over a detached copy of el, so el's tree is
// never touched.
func (e *Engine) canonicalize(el *etree.Element, algorithm, inclusivePrefixes string) ([]byte, error) {
	canon, err := e.canonicalizer(algorithm)
	if err != nil {
		return nil, err
	}
	return canon.Canonicalize(copyWithNamespaces(el), inclusivePrefixes)
}

func (e *Engine) canonicalizer(algorithm string) (CanonicalizationAlgorithm, error) {
	canon, ok := e.canonicalizers[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: canonicalization method %q", ErrUnsupportedAlgorithm, algorithm)
	}
	return canon, nil
}
