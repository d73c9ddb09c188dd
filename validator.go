package signedxml

import (
	"crypto"
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// Report describes the outcome of validating every Signature of a document.
type Report struct {
	// Valid is true when the document has at least one Signature and all
	// of them are valid.
	Valid      bool
	Signatures []SignatureReport
}

// SignatureReport is the outcome for one Signature element.
type SignatureReport struct {
	// Index is the position of the Signature in document order.
	Index               int
	Valid               bool
	SignatureValueValid bool
	References          []ReferenceReport

	// KeyInfo is what the Signature says about its key. It plays no part
	// in deciding validity.
	KeyInfo *KeyInfo

	// Err is set when the Signature could not be evaluated at all.
	Err error
}

// ReferenceReport is the outcome for one Reference of a Signature.
type ReferenceReport struct {
	URI          string
	DigestMethod string
	Valid        bool

	// Element is the element the reference resolved to.
	Element *etree.Element
	Err     error
}

// Validate reports whether doc carries at least one Signature and every
// Signature is valid for publicKey. Validation stops at the first invalid
// Signature. A document without signatures is not valid. Problems with the
// signatures themselves never surface as errors, only as false; errors are
// reserved for missing arguments.
//
// publicKey may be an *rsa.PublicKey, an *ecdsa.PublicKey or an
// *x509.Certificate. Keys found in KeyInfo are never used.
func (e *Engine) Validate(doc *Document, publicKey crypto.PublicKey) (bool, error) {
	if err := checkValidationArgs(doc, publicKey); err != nil {
		return false, err
	}

	valid := true
	signatures := e.prepareValidation(doc)
	if len(signatures) == 0 {
		e.logger.Debug("Cannot find Signature element")
		valid = false
	}
	for i, sig := range signatures {
		if !e.validateSignature(doc, i, sig, publicKey).Valid {
			valid = false
			break
		}
	}

	e.metrics.RecordValidation(valid)
	return valid, nil
}

// ValidateReport validates like Validate but evaluates every Signature and
// returns the details.
func (e *Engine) ValidateReport(doc *Document, publicKey crypto.PublicKey) (*Report, error) {
	if err := checkValidationArgs(doc, publicKey); err != nil {
		return nil, err
	}

	signatures := e.prepareValidation(doc)
	report := &Report{Valid: len(signatures) > 0}
	if len(signatures) == 0 {
		e.logger.Debug("Cannot find Signature element")
	}
	for i, sig := range signatures {
		sr := e.validateSignature(doc, i, sig, publicKey)
		report.Valid = report.Valid && sr.Valid
		report.Signatures = append(report.Signatures, sr)
	}

	e.metrics.RecordValidation(report.Valid)
	return report, nil
}

// ValidateSignature reports whether the single Signature element sig of doc
// is valid for publicKey.
func (e *Engine) ValidateSignature(doc *Document, sig *etree.Element, publicKey crypto.PublicKey) bool {
	if checkValidationArgs(doc, publicKey) != nil || sig == nil {
		return false
	}
	return e.validateSignature(doc, 0, sig, publicKey).Valid
}

func checkValidationArgs(doc *Document, publicKey crypto.PublicKey) error {
	if doc == nil || doc.Root() == nil {
		return fmt.Errorf("%w: document to validate cannot be empty", ErrInvalidArgument)
	}
	if publicKey == nil {
		return fmt.Errorf("%w: public key cannot be nil", ErrInvalidArgument)
	}
	return nil
}

// prepareValidation restores ID resolution on the root and returns the
// Signature elements in document order.
func (e *Engine) prepareValidation(doc *Document) []*etree.Element {
	doc.establishRootID(e.idAttributes)

	var signatures []*etree.Element
	walkElements(doc.Root(), func(el *etree.Element) {
		if isSignatureElement(el) {
			signatures = append(signatures, el)
		}
	})
	return signatures
}

func (e *Engine) validateSignature(doc *Document, index int, sig *etree.Element, publicKey crypto.PublicKey) SignatureReport {
	report := SignatureReport{Index: index}
	log := e.logger.With(zap.Int("signature", index))

	if info, err := ParseKeyInfo(sig); err != nil {
		log.Debug("unable to read KeyInfo", zap.Error(err))
	} else {
		report.KeyInfo = info
	}

	data, err := parseSignature(sig)
	if err != nil {
		report.Err = err
		log.Debug("Verification failed", zap.Error(err))
		return report
	}

	if err := e.checkSignatureValue(data, publicKey); err != nil {
		log.Debug("signature value verification failed", zap.Error(err))
	} else {
		report.SignatureValueValid = true
	}
	log.Debug("Signature validation status", zap.Bool("valid", report.SignatureValueValid))

	referencesValid := true
	for _, ref := range data.references {
		rr := ReferenceReport{URI: ref.uri, DigestMethod: ref.digestMethod}
		if target, err := e.resolveReference(doc, sig, ref.uri); err == nil {
			rr.Element = target
		}
		digest, err := e.digestReference(doc, sig, ref)
		if err != nil {
			rr.Err = err
		} else {
			rr.Valid = digestEqual(digest, ref.digestValue)
		}
		log.Debug("reference validity status",
			zap.String("uri", ref.uri),
			zap.Bool("valid", rr.Valid),
			zap.Error(rr.Err))
		referencesValid = referencesValid && rr.Valid
		report.References = append(report.References, rr)
	}

	report.Valid = report.SignatureValueValid && referencesValid
	if !report.Valid {
		log.Debug("Verification failed")
	}
	return report
}

func (e *Engine) checkSignatureValue(data *signatureData, publicKey crypto.PublicKey) error {
	method, err := lookupSignatureMethod(data.sigAlgorithm)
	if err != nil {
		return err
	}
	canonical, err := e.canonicalize(data.signedInfo, data.canonAlgorithm, data.canonPrefixes)
	if err != nil {
		return err
	}
	if len(data.sigValue) == 0 {
		return errors.New("signedxml: empty SignatureValue")
	}
	return verifySignature(publicKey, method, canonical, data.sigValue)
}
