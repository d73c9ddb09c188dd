package signedxml

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"

	"github.com/beevik/etree"
)

// KeyInfo is the key material carried in a Signature's KeyInfo element. It
// is informational only: validation always uses the caller's key.
type KeyInfo struct {
	KeyName     string
	Certificate *x509.Certificate
	PublicKey   crypto.PublicKey
}

var namedCurves = map[elliptic.Curve]string{
	elliptic.P256(): "urn:oid:1.2.840.10045.3.1.7",
	elliptic.P384(): "urn:oid:1.3.132.0.34",
	elliptic.P521(): "urn:oid:1.3.132.0.35",
}

func qualify(prefix, tag string) string {
	if prefix == "" {
		return tag
	}
	return prefix + ":" + tag
}

// appendKeyInfo writes info below sig as KeyName, X509Data and KeyValue, in
// that order, skipping empty items.
func appendKeyInfo(sig *etree.Element, prefix string, info KeyInfo) error {
	if info.KeyName == "" && info.Certificate == nil && info.PublicKey == nil {
		return nil
	}
	keyInfo := sig.CreateElement(qualify(prefix, "KeyInfo"))

	if info.KeyName != "" {
		keyInfo.CreateElement(qualify(prefix, "KeyName")).SetText(info.KeyName)
	}
	if info.Certificate != nil {
		x509Data := keyInfo.CreateElement(qualify(prefix, "X509Data"))
		x509Data.CreateElement(qualify(prefix, "X509Certificate")).SetText(EncodeCertificate(info.Certificate))
	}
	if info.PublicKey != nil {
		keyValue := keyInfo.CreateElement(qualify(prefix, "KeyValue"))
		if err := appendKeyValue(keyValue, prefix, info.PublicKey); err != nil {
			sig.RemoveChild(keyInfo)
			return err
		}
	}
	return nil
}

func appendKeyValue(keyValue *etree.Element, prefix string, pub crypto.PublicKey) error {
	switch pub := pub.(type) {
	case *rsa.PublicKey:
		rsaKey := keyValue.CreateElement(qualify(prefix, "RSAKeyValue"))
		rsaKey.CreateElement(qualify(prefix, "Modulus")).SetText(base64.StdEncoding.EncodeToString(pub.N.Bytes()))
		rsaKey.CreateElement(qualify(prefix, "Exponent")).SetText(base64.StdEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()))
	case *ecdsa.PublicKey:
		curve, ok := namedCurves[pub.Curve]
		if !ok {
			return fmt.Errorf("%w: unsupported curve %s", ErrSigning, pub.Curve.Params().Name)
		}
		point, err := pub.ECDH()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSigning, err)
		}
		ecKey := keyValue.CreateElement("dsig11:ECKeyValue")
		ecKey.CreateAttr("xmlns:dsig11", Namespace11)
		ecKey.CreateElement("dsig11:NamedCurve").CreateAttr("URI", curve)
		ecKey.CreateElement("dsig11:PublicKey").SetText(base64.StdEncoding.EncodeToString(point.Bytes()))
	default:
		return fmt.Errorf("%w: unsupported public key type %T", ErrSigning, pub)
	}
	return nil
}

// ParseKeyInfo extracts the KeyInfo of the Signature element sig. It returns
// nil when sig carries no KeyInfo.
func ParseKeyInfo(sig *etree.Element) (*KeyInfo, error) {
	if sig == nil {
		return nil, fmt.Errorf("%w: signature element is required", ErrInvalidArgument)
	}
	keyInfo := dsigChild(sig, "KeyInfo")
	if keyInfo == nil {
		return nil, nil
	}

	info := &KeyInfo{}
	if name := dsigChild(keyInfo, "KeyName"); name != nil {
		info.KeyName = strings.TrimSpace(name.Text())
	}
	if x509Data := dsigChild(keyInfo, "X509Data"); x509Data != nil {
		if certEl := dsigChild(x509Data, "X509Certificate"); certEl != nil {
			cert, err := ParseCertificate(certEl.Text())
			if err != nil {
				return nil, err
			}
			info.Certificate = cert
			info.PublicKey = cert.PublicKey
		}
	}
	if keyValue := dsigChild(keyInfo, "KeyValue"); keyValue != nil {
		pub, err := parseKeyValue(keyValue)
		if err != nil {
			return nil, err
		}
		if pub != nil {
			info.PublicKey = pub
		}
	}
	return info, nil
}

func parseKeyValue(keyValue *etree.Element) (crypto.PublicKey, error) {
	if rsaKey := dsigChild(keyValue, "RSAKeyValue"); rsaKey != nil {
		modulus := dsigChild(rsaKey, "Modulus")
		exponent := dsigChild(rsaKey, "Exponent")
		if modulus == nil || exponent == nil {
			return nil, fmt.Errorf("%w: incomplete RSAKeyValue", errMalformedSignature)
		}
		n, err := decodeBase64(modulus.Text())
		if err != nil {
			return nil, fmt.Errorf("%w: Modulus: %v", errMalformedSignature, err)
		}
		e, err := decodeBase64(exponent.Text())
		if err != nil {
			return nil, fmt.Errorf("%w: Exponent: %v", errMalformedSignature, err)
		}
		exp := new(big.Int).SetBytes(e)
		if !exp.IsInt64() || exp.Int64() > 1<<31-1 || exp.Int64() < 3 {
			return nil, fmt.Errorf("%w: invalid RSA exponent", errMalformedSignature)
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
	}

	for _, ecKey := range keyValue.ChildElements() {
		if ecKey.Tag != "ECKeyValue" || ecKey.NamespaceURI() != Namespace11 {
			continue
		}
		return parseECKeyValue(ecKey)
	}
	return nil, nil
}

func parseECKeyValue(ecKey *etree.Element) (crypto.PublicKey, error) {
	var curveURI, point string
	for _, child := range ecKey.ChildElements() {
		switch child.Tag {
		case "NamedCurve":
			curveURI = child.SelectAttrValue("URI", "")
		case "PublicKey":
			point = child.Text()
		}
	}

	var curve elliptic.Curve
	for c, uri := range namedCurves {
		if uri == curveURI {
			curve = c
		}
	}
	if curve == nil {
		return nil, fmt.Errorf("%w: unsupported named curve %q", errMalformedSignature, curveURI)
	}

	raw, err := decodeBase64(point)
	if err != nil {
		return nil, fmt.Errorf("%w: PublicKey: %v", errMalformedSignature, err)
	}
	if _, err := ecdhCurve(curve).NewPublicKey(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedSignature, err)
	}
	size := curveSize(&ecdsa.PublicKey{Curve: curve})
	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(raw[1 : 1+size]),
		Y:     new(big.Int).SetBytes(raw[1+size:]),
	}, nil
}

func ecdhCurve(curve elliptic.Curve) ecdh.Curve {
	switch curve {
	case elliptic.P384():
		return ecdh.P384()
	case elliptic.P521():
		return ecdh.P521()
	}
	return ecdh.P256()
}
