package signedxml

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

var errMalformedSignature = errors.New("signedxml: malformed signature")

type transform struct {
	algorithm  string
	prefixList string
}

type reference struct {
	uri          string
	transforms   []transform
	digestMethod string
	digestValue  string
}

// signatureData holds the parts of a Signature element needed to validate
// it.
type signatureData struct {
	signature      *etree.Element
	signedInfo     *etree.Element
	canonAlgorithm string
	canonPrefixes  string
	sigAlgorithm   string
	sigValue       []byte
	references     []reference
}

func parseSignature(sig *etree.Element) (*signatureData, error) {
	s := &signatureData{signature: sig}

	s.signedInfo = dsigChild(sig, "SignedInfo")
	if s.signedInfo == nil {
		return nil, fmt.Errorf("%w: unable to find SignedInfo element", errMalformedSignature)
	}

	canon := dsigChild(s.signedInfo, "CanonicalizationMethod")
	if canon == nil {
		return nil, fmt.Errorf("%w: unable to find CanonicalizationMethod element", errMalformedSignature)
	}
	s.canonAlgorithm = canon.SelectAttrValue("Algorithm", "")
	s.canonPrefixes = inclusivePrefixes(canon)

	method := dsigChild(s.signedInfo, "SignatureMethod")
	if method == nil {
		return nil, fmt.Errorf("%w: unable to find SignatureMethod element", errMalformedSignature)
	}
	s.sigAlgorithm = method.SelectAttrValue("Algorithm", "")

	value := dsigChild(sig, "SignatureValue")
	if value == nil {
		return nil, fmt.Errorf("%w: unable to find SignatureValue element", errMalformedSignature)
	}
	raw, err := decodeBase64(value.Text())
	if err != nil {
		return nil, fmt.Errorf("%w: SignatureValue: %v", errMalformedSignature, err)
	}
	s.sigValue = raw

	for _, el := range s.signedInfo.ChildElements() {
		if el.Tag != "Reference" || el.NamespaceURI() != Namespace {
			continue
		}
		ref, err := parseReference(el)
		if err != nil {
			return nil, err
		}
		s.references = append(s.references, ref)
	}
	if len(s.references) == 0 {
		return nil, fmt.Errorf("%w: unable to find Reference element", errMalformedSignature)
	}
	return s, nil
}

func parseReference(el *etree.Element) (reference, error) {
	ref := reference{uri: el.SelectAttrValue("URI", "")}

	if transforms := dsigChild(el, "Transforms"); transforms != nil {
		for _, t := range transforms.ChildElements() {
			if t.Tag != "Transform" {
				continue
			}
			ref.transforms = append(ref.transforms, transform{
				algorithm:  t.SelectAttrValue("Algorithm", ""),
				prefixList: inclusivePrefixes(t),
			})
		}
	}

	method := dsigChild(el, "DigestMethod")
	if method == nil {
		return ref, fmt.Errorf("%w: unable to find DigestMethod element", errMalformedSignature)
	}
	ref.digestMethod = method.SelectAttrValue("Algorithm", "")

	value := dsigChild(el, "DigestValue")
	if value == nil {
		return ref, fmt.Errorf("%w: unable to find DigestValue element", errMalformedSignature)
	}
	ref.digestValue = strings.TrimSpace(value.Text())
	return ref, nil
}

func dsigChild(el *etree.Element, tag string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == tag && child.NamespaceURI() == Namespace {
			return child
		}
	}
	return nil
}

func inclusivePrefixes(el *etree.Element) string {
	for _, child := range el.ChildElements() {
		if child.Tag == "InclusiveNamespaces" {
			return child.SelectAttrValue("PrefixList", "")
		}
	}
	return ""
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.Join(strings.Fields(s), ""))
}

// digestReference runs the reference processing model over the element ref
// points to and returns the base64 digest.
func (e *Engine) digestReference(doc *Document, sig *etree.Element, ref reference) (string, error) {
	if _, err := lookupDigest(ref.digestMethod); err != nil {
		return "", err
	}
	target, err := e.resolveReference(doc, sig, ref.uri)
	if err != nil {
		return "", err
	}
	data, err := e.applyTransforms(target, sig, ref.transforms)
	if err != nil {
		return "", err
	}
	return CalculateHash(data, ref.digestMethod)
}

func (e *Engine) resolveReference(doc *Document, sig *etree.Element, uri string) (*etree.Element, error) {
	switch {
	case uri == "":
		parent := sig.Parent()
		if parent == nil || parent == &doc.doc.Element {
			return nil, fmt.Errorf("%w: signature has no enveloping element", ErrInvalidArgument)
		}
		return parent, nil
	case uri == "#xpointer(/)":
		return doc.Root(), nil
	case strings.HasPrefix(uri, "#xpointer(id("):
		id := strings.TrimSuffix(strings.TrimPrefix(uri, "#xpointer(id("), "))")
		return doc.elementByID(strings.Trim(id, `'"`), e.idAttributes)
	case strings.HasPrefix(uri, "#"):
		return doc.elementByID(uri[1:], e.idAttributes)
	default:
		return nil, fmt.Errorf("%w: external reference %q", ErrUnsupportedAlgorithm, uri)
	}
}

// applyTransforms works on a detached copy of target. Canonicalization must
// be the last transform; without one, C14N 1.0 turns the node set into
// octets.
func (e *Engine) applyTransforms(target, sig *etree.Element, transforms []transform) ([]byte, error) {
	input := copyWithNamespaces(target)
	sigPath, enveloped := elementPath(target, sig)

	var out []byte
	for _, t := range transforms {
		if out != nil {
			return nil, fmt.Errorf("%w: transform %q follows canonicalization", ErrUnsupportedAlgorithm, t.algorithm)
		}
		if t.algorithm == AlgEnvelopedSignature {
			if enveloped {
				if err := (EnvelopedSignature{}).ProcessElement(input, sigPath); err != nil {
					return nil, err
				}
				enveloped = false
			}
			continue
		}
		canon, err := e.canonicalizer(t.algorithm)
		if err != nil {
			return nil, err
		}
		if out, err = canon.Canonicalize(input, t.prefixList); err != nil {
			return nil, err
		}
	}

	if out == nil {
		canon, err := e.canonicalizer(AlgC14N10)
		if err != nil {
			return nil, err
		}
		return canon.Canonicalize(input, "")
	}
	return out, nil
}

func digestEqual(computed, stored string) bool {
	a, err := decodeBase64(computed)
	if err != nil {
		return false
	}
	b, err := decodeBase64(stored)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

func signDigest(key crypto.Signer, method cryptoHash, data []byte) ([]byte, error) {
	hasher := method.hash.New()
	hasher.Write(data)
	digest := hasher.Sum(nil)

	switch method.algorithm {
	case keyTypeRSA:
		if _, ok := key.Public().(*rsa.PublicKey); !ok {
			return nil, fmt.Errorf("%w: signature method needs an RSA key, got %T", ErrSigning, key.Public())
		}
		sig, err := key.Sign(rand.Reader, digest, method.hash)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSigning, err)
		}
		return sig, nil
	case keyTypeECDSA:
		pub, ok := key.Public().(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: signature method needs an ECDSA key, got %T", ErrSigning, key.Public())
		}
		der, err := key.Sign(rand.Reader, digest, method.hash)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSigning, err)
		}
		return rawECDSASignature(pub, der)
	}
	return nil, fmt.Errorf("%w: key type %q", ErrUnsupportedAlgorithm, method.algorithm)
}

// rawECDSASignature converts an ASN.1 ECDSA signature into the r||s form
// XML-DSig uses, each half padded to the curve size.
func rawECDSASignature(pub *ecdsa.PublicKey, der []byte) ([]byte, error) {
	var (
		r, s  = new(big.Int), new(big.Int)
		inner cryptobyte.String
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, fmt.Errorf("%w: invalid ECDSA signature encoding", ErrSigning)
	}

	size := curveSize(pub)
	out := make([]byte, 2*size)
	r.FillBytes(out[:size])
	s.FillBytes(out[size:])
	return out, nil
}

func curveSize(pub *ecdsa.PublicKey) int {
	return (pub.Curve.Params().BitSize + 7) / 8
}

func verifySignature(key crypto.PublicKey, method cryptoHash, data, sig []byte) error {
	if cert, ok := key.(*x509.Certificate); ok {
		key = cert.PublicKey
	}

	hasher := method.hash.New()
	hasher.Write(data)
	digest := hasher.Sum(nil)

	switch method.algorithm {
	case keyTypeRSA:
		pub, ok := key.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("signedxml: signature method needs an RSA key, got %T", key)
		}
		return rsa.VerifyPKCS1v15(pub, method.hash, digest, sig)
	case keyTypeECDSA:
		pub, ok := key.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("signedxml: signature method needs an ECDSA key, got %T", key)
		}
		size := curveSize(pub)
		if len(sig) != 2*size {
			return fmt.Errorf("signedxml: ECDSA signature has %d bytes, want %d", len(sig), 2*size)
		}
		r := new(big.Int).SetBytes(sig[:size])
		s := new(big.Int).SetBytes(sig[size:])
		if !ecdsa.Verify(pub, digest, r, s) {
			return errors.New("signedxml: ECDSA verification failed")
		}
		return nil
	}
	return fmt.Errorf("%w: key type %q", ErrUnsupportedAlgorithm, method.algorithm)
}
