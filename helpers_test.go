package signedxml

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"sync"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"

	"github.com/moov-io/signedxml/keys"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:example:invoice" xmlns:x="urn:example:extra" ID="inv-1">
  <Number>42</Number>
  <Lines>
    <Line ID="line-1" amount="10.00">Widget</Line>
    <Line ID="line-2" amount="5.50">Gadget</Line>
  </Lines>
</Invoice>`

var (
	fixturesOnce sync.Once
	fixtureRSA   *rsa.PrivateKey
	fixtureRSA2  *rsa.PrivateKey
	fixtureEC    *ecdsa.PrivateKey
	fixtureCert  *x509.Certificate
	fixtureErr   error
)

func loadFixtures() {
	if fixtureRSA, fixtureErr = keys.GenerateRSA(2048); fixtureErr != nil {
		return
	}
	if fixtureRSA2, fixtureErr = keys.GenerateRSA(2048); fixtureErr != nil {
		return
	}
	if fixtureEC, fixtureErr = keys.GenerateECDSA(elliptic.P256()); fixtureErr != nil {
		return
	}
	fixtureCert, fixtureErr = keys.SelfSignedCertificate(fixtureRSA, "signedxml test", time.Hour)
}

func rsaKey(t testing.TB) *rsa.PrivateKey {
	fixturesOnce.Do(loadFixtures)
	require.NoError(t, fixtureErr)
	return fixtureRSA
}

func otherRSAKey(t testing.TB) *rsa.PrivateKey {
	fixturesOnce.Do(loadFixtures)
	require.NoError(t, fixtureErr)
	return fixtureRSA2
}

func ecKey(t testing.TB) *ecdsa.PrivateKey {
	fixturesOnce.Do(loadFixtures)
	require.NoError(t, fixtureErr)
	return fixtureEC
}

func certificate(t testing.TB) *x509.Certificate {
	fixturesOnce.Do(loadFixtures)
	require.NoError(t, fixtureErr)
	return fixtureCert
}

func engine(t testing.TB, opts ...Option) *Engine {
	e, err := NewEngine(opts...)
	require.NoError(t, err)
	return e
}

func parse(t testing.TB, xml string) *Document {
	doc, err := Parse([]byte(xml))
	require.NoError(t, err)
	return doc
}

func signatures(doc *Document) []*etree.Element {
	var out []*etree.Element
	walkElements(doc.Root(), func(el *etree.Element) {
		if isSignatureElement(el) {
			out = append(out, el)
		}
	})
	return out
}

func findElement(doc *Document, tag string) *etree.Element {
	var found *etree.Element
	walkElements(doc.Root(), func(el *etree.Element) {
		if found == nil && el.Tag == tag {
			found = el
		}
	})
	return found
}

func reparse(t testing.TB, doc *Document) *Document {
	data, err := doc.Serialize()
	require.NoError(t, err)
	return parse(t, string(data))
}
