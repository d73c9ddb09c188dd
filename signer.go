package signedxml

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// SignConfig holds the per call signing parameters. The zero value signs
// with exclusive canonicalization, SHA-256 and the signature method matching
// the key, and includes the key in KeyInfo.
type SignConfig struct {
	DigestMethod           string
	SignatureMethod        string
	CanonicalizationMethod string

	// ReferenceURI is "" to reference the enveloping element, or "#id".
	ReferenceURI string

	KeyName     string
	Certificate *x509.Certificate

	// OmitKeyInfo leaves out the certificate and KeyValue, keeping only
	// KeyName.
	OmitKeyInfo bool

	// Prefix is the namespace prefix of the Signature element. Empty
	// declares the XML-DSig namespace as the default namespace.
	Prefix string
}

// signingTransforms is the fixed transform chain of every signature
// produced.
var signingTransforms = []string{AlgEnvelopedSignature, AlgExcC14N}

func (c SignConfig) withDefaults(key crypto.Signer) SignConfig {
	if c.DigestMethod == "" {
		c.DigestMethod = AlgSHA256
	}
	if c.CanonicalizationMethod == "" {
		c.CanonicalizationMethod = AlgExcC14N
	}
	if c.SignatureMethod == "" {
		c.SignatureMethod = AlgRSASHA256
		if _, ok := key.Public().(*ecdsa.PublicKey); ok {
			c.SignatureMethod = AlgECDSASHA256
		}
	}
	return c
}

// SignDocument signs the root element of doc, appending the Signature as its
// last child.
func (e *Engine) SignDocument(doc *Document, key crypto.Signer, cfg SignConfig) error {
	var err error
	if doc == nil || doc.Root() == nil {
		err = fmt.Errorf("%w: document to be signed cannot be empty", ErrInvalidArgument)
	} else {
		err = e.sign(doc, doc.Root(), nil, key, cfg)
	}
	e.metrics.RecordSign(err == nil)
	return err
}

// SignNode signs node in isolation. node is copied into a standalone
// document, signed there, and the signed copy replaces node in doc. The
// replacement element is returned.
func (e *Engine) SignNode(doc *Document, node *etree.Element, key crypto.Signer, cfg SignConfig) (*etree.Element, error) {
	signed, err := e.signNode(doc, node, key, cfg)
	e.metrics.RecordSign(err == nil)
	return signed, err
}

func (e *Engine) signNode(doc *Document, node *etree.Element, key crypto.Signer, cfg SignConfig) (*etree.Element, error) {
	if doc == nil || node == nil {
		return nil, fmt.Errorf("%w: node to be signed cannot be nil", ErrInvalidArgument)
	}
	if !doc.contains(node) {
		return nil, fmt.Errorf("%w: <%s> is not part of the document", ErrInvalidArgument, node.FullTag())
	}

	standalone := NewDocument()
	standalone.SetRoot(standalone.ImportNode(node))
	if cfg.ReferenceURI != "" {
		standalone.PropagateIDAttribute(doc, node, standalone.Root())
	}

	e.logger.Debug("signing node", zap.String("element", node.FullTag()))
	if err := e.sign(standalone, standalone.Root(), nil, key, cfg); err != nil {
		return nil, err
	}

	signed := doc.ImportNode(standalone.Root())
	if cfg.ReferenceURI != "" {
		doc.PropagateIDAttribute(standalone, standalone.Root(), signed)
	}
	if err := doc.ReplaceNode(node, signed); err != nil {
		return nil, err
	}
	return signed, nil
}

// SignElement signs el in place. The Signature is inserted before
// nextSibling, which must be a child of el, or appended when nextSibling is
// nil.
func (e *Engine) SignElement(doc *Document, el *etree.Element, nextSibling etree.Token, key crypto.Signer, cfg SignConfig) error {
	err := e.signElement(doc, el, nextSibling, key, cfg)
	e.metrics.RecordSign(err == nil)
	return err
}

func (e *Engine) signElement(doc *Document, el *etree.Element, nextSibling etree.Token, key crypto.Signer, cfg SignConfig) error {
	if next, ok := nextSibling.(*etree.Element); ok && next == nil {
		nextSibling = nil
	}
	if doc == nil || el == nil {
		return fmt.Errorf("%w: element to be signed cannot be nil", ErrInvalidArgument)
	}
	if !doc.contains(el) {
		return fmt.Errorf("%w: <%s> is not part of the document", ErrInvalidArgument, el.FullTag())
	}
	if nextSibling != nil && nextSibling.Parent() != el {
		return fmt.Errorf("%w: next sibling is not a child of <%s>", ErrInvalidArgument, el.FullTag())
	}
	return e.sign(doc, el, nextSibling, key, cfg)
}

// sign builds a Signature for target, inserts it and fills in the digest and
// signature values. On error target is left as it was.
func (e *Engine) sign(doc *Document, target *etree.Element, nextSibling etree.Token, key crypto.Signer, cfg SignConfig) (err error) {
	if key == nil {
		return fmt.Errorf("%w: signing key cannot be nil", ErrInvalidArgument)
	}
	cfg = cfg.withDefaults(key)

	method, err := lookupSignatureMethod(cfg.SignatureMethod)
	if err != nil {
		return err
	}
	if _, err := lookupDigest(cfg.DigestMethod); err != nil {
		return err
	}
	if _, err := e.canonicalizer(cfg.CanonicalizationMethod); err != nil {
		return err
	}

	tmpl, err := newSignatureTemplate(cfg, key.Public())
	if err != nil {
		return err
	}
	if nextSibling != nil {
		target.InsertChildAt(nextSibling.Index(), tmpl.signature)
	} else {
		target.AddChild(tmpl.signature)
	}
	defer func() {
		if err != nil {
			target.RemoveChild(tmpl.signature)
		}
	}()

	digest, err := e.digestReference(doc, tmpl.signature, tmpl.reference)
	if err != nil {
		return err
	}
	tmpl.digestValue.SetText(digest)

	canonical, err := e.canonicalize(tmpl.signedInfo, cfg.CanonicalizationMethod, "")
	if err != nil {
		return err
	}
	value, err := signDigest(key, method, canonical)
	if err != nil {
		return err
	}
	tmpl.signatureValue.SetText(base64.StdEncoding.EncodeToString(value))

	e.logger.Debug("signed element",
		zap.String("element", target.FullTag()),
		zap.String("reference", cfg.ReferenceURI),
		zap.String("signatureMethod", cfg.SignatureMethod),
		zap.String("digestMethod", cfg.DigestMethod))
	return nil
}

type signatureTemplate struct {
	signature      *etree.Element
	signedInfo     *etree.Element
	digestValue    *etree.Element
	signatureValue *etree.Element
	reference      reference
}

func newSignatureTemplate(cfg SignConfig, pub crypto.PublicKey) (*signatureTemplate, error) {
	p := cfg.Prefix
	t := &signatureTemplate{
		reference: reference{uri: cfg.ReferenceURI, digestMethod: cfg.DigestMethod},
	}

	t.signature = etree.NewElement(qualify(p, "Signature"))
	if p == "" {
		t.signature.CreateAttr("xmlns", Namespace)
	} else {
		t.signature.CreateAttr("xmlns:"+p, Namespace)
	}

	t.signedInfo = t.signature.CreateElement(qualify(p, "SignedInfo"))
	t.signedInfo.CreateElement(qualify(p, "CanonicalizationMethod")).CreateAttr("Algorithm", cfg.CanonicalizationMethod)
	t.signedInfo.CreateElement(qualify(p, "SignatureMethod")).CreateAttr("Algorithm", cfg.SignatureMethod)

	ref := t.signedInfo.CreateElement(qualify(p, "Reference"))
	ref.CreateAttr("URI", cfg.ReferenceURI)
	transforms := ref.CreateElement(qualify(p, "Transforms"))
	for _, alg := range signingTransforms {
		transforms.CreateElement(qualify(p, "Transform")).CreateAttr("Algorithm", alg)
		t.reference.transforms = append(t.reference.transforms, transform{algorithm: alg})
	}
	ref.CreateElement(qualify(p, "DigestMethod")).CreateAttr("Algorithm", cfg.DigestMethod)
	t.digestValue = ref.CreateElement(qualify(p, "DigestValue"))

	t.signatureValue = t.signature.CreateElement(qualify(p, "SignatureValue"))

	info := KeyInfo{KeyName: cfg.KeyName}
	if !cfg.OmitKeyInfo {
		info.Certificate = cfg.Certificate
		info.PublicKey = pub
	}
	if err := appendKeyInfo(t.signature, p, info); err != nil {
		return nil, err
	}
	return t, nil
}
