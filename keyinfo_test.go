package signedxml

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"
)

func TestKeyInfoRoundTrip(t *testing.T) {
	for name, pub := range map[string]any{
		"rsa":   &rsaKey(t).PublicKey,
		"ecdsa": &ecKey(t).PublicKey,
	} {
		t.Run(name, func(t *testing.T) {
			sig := etree.NewElement("ds:Signature")
			sig.CreateAttr("xmlns:ds", Namespace)
			require.NoError(t, appendKeyInfo(sig, "ds", KeyInfo{KeyName: "k1", PublicKey: pub}))

			info, err := ParseKeyInfo(sig)
			require.NoError(t, err)
			require.Equal(t, "k1", info.KeyName)
			require.Nil(t, info.Certificate)

			switch want := pub.(type) {
			case *rsa.PublicKey:
				require.True(t, want.Equal(info.PublicKey))
			case *ecdsa.PublicKey:
				require.True(t, want.Equal(info.PublicKey))
			}
		})
	}
}

func TestParseKeyInfo(t *testing.T) {
	t.Run("no KeyInfo", func(t *testing.T) {
		doc := parse(t, `<Signature xmlns="http://www.w3.org/2000/09/xmldsig#"><SignedInfo/></Signature>`)
		info, err := ParseKeyInfo(doc.Root())
		require.NoError(t, err)
		require.Nil(t, info)
	})

	t.Run("nil signature", func(t *testing.T) {
		_, err := ParseKeyInfo(nil)
		require.True(t, errors.Is(err, ErrInvalidArgument))
	})

	t.Run("bad exponent", func(t *testing.T) {
		doc := parse(t, `<Signature xmlns="http://www.w3.org/2000/09/xmldsig#"><KeyInfo><KeyValue><RSAKeyValue>
<Modulus>AQAB</Modulus><Exponent>AQ==</Exponent></RSAKeyValue></KeyValue></KeyInfo></Signature>`)
		_, err := ParseKeyInfo(doc.Root())
		require.Error(t, err)
		require.Contains(t, err.Error(), "exponent")
	})

	t.Run("unknown curve", func(t *testing.T) {
		doc := parse(t, `<Signature xmlns="http://www.w3.org/2000/09/xmldsig#"><KeyInfo><KeyValue>
<dsig11:ECKeyValue xmlns:dsig11="http://www.w3.org/2009/xmldsig11#"><dsig11:NamedCurve URI="urn:oid:1.2.3"/>
<dsig11:PublicKey>BAE=</dsig11:PublicKey></dsig11:ECKeyValue></KeyValue></KeyInfo></Signature>`)
		_, err := ParseKeyInfo(doc.Root())
		require.Error(t, err)
		require.Contains(t, err.Error(), "named curve")
	})

	t.Run("bad certificate", func(t *testing.T) {
		doc := parse(t, `<Signature xmlns="http://www.w3.org/2000/09/xmldsig#"><KeyInfo><X509Data>
<X509Certificate>AQIDBA==</X509Certificate></X509Data></KeyInfo></Signature>`)
		_, err := ParseKeyInfo(doc.Root())
		require.True(t, errors.Is(err, ErrCertificateFormat))
	})
}
