// Package signedxml signs and validates XML documents with enveloped XML
// digital signatures (http://www.w3.org/TR/xmldsig-core/).
//
// Documents are parsed with Parse, which refuses DOCTYPE declarations and
// entity definitions. An Engine, created once with NewEngine, signs a whole
// document, a single node or an element at an explicit insertion point, and
// validates every Signature of a document against a caller supplied public
// key.
package signedxml

import (
	"crypto"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"encoding/base64"
	"fmt"

	_ "golang.org/x/crypto/ripemd160"
)

// Namespaces used by the signatures this package reads and writes.
const (
	Namespace   = "http://www.w3.org/2000/09/xmldsig#"
	Namespace11 = "http://www.w3.org/2009/xmldsig11#"
)

// Digest method identifiers.
const (
	AlgSHA1      = "http://www.w3.org/2000/09/xmldsig#sha1"
	AlgSHA224    = "http://www.w3.org/2001/04/xmldsig-more#sha224"
	AlgSHA256    = "http://www.w3.org/2001/04/xmlenc#sha256"
	AlgSHA384    = "http://www.w3.org/2001/04/xmldsig-more#sha384"
	AlgSHA512    = "http://www.w3.org/2001/04/xmlenc#sha512"
	AlgRIPEMD160 = "http://www.w3.org/2001/04/xmlenc#ripemd160"
)

// Signature method identifiers.
const (
	AlgRSASHA1     = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	AlgRSASHA224   = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha224"
	AlgRSASHA256   = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgRSASHA384   = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha384"
	AlgRSASHA512   = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha512"
	AlgECDSASHA1   = "http://www.w3.org/2001/04/xmldsig-more#ecdsa-sha1"
	AlgECDSASHA256 = "http://www.w3.org/2001/04/xmldsig-more#ecdsa-sha256"
	AlgECDSASHA384 = "http://www.w3.org/2001/04/xmldsig-more#ecdsa-sha384"
	AlgECDSASHA512 = "http://www.w3.org/2001/04/xmldsig-more#ecdsa-sha512"
)

// Canonicalization and transform identifiers.
const (
	AlgExcC14N             = "http://www.w3.org/2001/10/xml-exc-c14n#"
	AlgExcC14NWithComments = "http://www.w3.org/2001/10/xml-exc-c14n#WithComments"
	AlgC14N10              = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgC14N10WithComments  = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315#WithComments"
	AlgC14N11              = "http://www.w3.org/2006/12/xml-c14n11"
	AlgC14N11WithComments  = "http://www.w3.org/2006/12/xml-c14n11#WithComments"
	AlgEnvelopedSignature  = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)

const (
	keyTypeRSA   = "rsa"
	keyTypeECDSA = "ecdsa"
)

type cryptoHash struct {
	algorithm string
	hash      crypto.Hash
}

var hashAlgorithms map[string]crypto.Hash
var signingAlgorithms map[string]cryptoHash

func init() {
	hashAlgorithms = map[string]crypto.Hash{
		AlgSHA1:      crypto.SHA1,
		AlgSHA224:    crypto.SHA224,
		AlgSHA256:    crypto.SHA256,
		AlgSHA384:    crypto.SHA384,
		AlgSHA512:    crypto.SHA512,
		AlgRIPEMD160: crypto.RIPEMD160,
	}

	signingAlgorithms = map[string]cryptoHash{
		AlgRSASHA1:     {algorithm: keyTypeRSA, hash: crypto.SHA1},
		AlgRSASHA224:   {algorithm: keyTypeRSA, hash: crypto.SHA224},
		AlgRSASHA256:   {algorithm: keyTypeRSA, hash: crypto.SHA256},
		AlgRSASHA384:   {algorithm: keyTypeRSA, hash: crypto.SHA384},
		AlgRSASHA512:   {algorithm: keyTypeRSA, hash: crypto.SHA512},
		AlgECDSASHA1:   {algorithm: keyTypeECDSA, hash: crypto.SHA1},
		AlgECDSASHA256: {algorithm: keyTypeECDSA, hash: crypto.SHA256},
		AlgECDSASHA384: {algorithm: keyTypeECDSA, hash: crypto.SHA384},
		AlgECDSASHA512: {algorithm: keyTypeECDSA, hash: crypto.SHA512},
	}
}

func lookupDigest(digestMethodURI string) (crypto.Hash, error) {
	h, ok := hashAlgorithms[digestMethodURI]
	if !ok || !h.Available() {
		return 0, fmt.Errorf("%w: digest method %q", ErrUnsupportedAlgorithm, digestMethodURI)
	}
	return h, nil
}

func lookupSignatureMethod(signatureMethodURI string) (cryptoHash, error) {
	alg, ok := signingAlgorithms[signatureMethodURI]
	if !ok {
		return cryptoHash{}, fmt.Errorf("%w: signature method %q", ErrUnsupportedAlgorithm, signatureMethodURI)
	}
	return alg, nil
}

// CalculateHash returns the base64 encoded digest of data using the digest
// method identified by digestMethodURI.
func CalculateHash(data []byte, digestMethodURI string) (string, error) {
	h, err := lookupDigest(digestMethodURI)
	if err != nil {
		return "", err
	}
	hasher := h.New()
	hasher.Write(data)
	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), nil
}
