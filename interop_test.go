package signedxml

import (
	"crypto/x509"
	"testing"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/stretchr/testify/require"
)

func TestValidateGoxmldsigSignature(t *testing.T) {
	key := rsaKey(t)
	cert := certificate(t)

	ctx, err := dsig.NewSigningContext(key, [][]byte{cert.Raw})
	require.NoError(t, err)
	ctx.Canonicalizer = dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("")

	source := etree.NewDocument()
	require.NoError(t, source.ReadFromString(sampleXML))
	signed, err := ctx.SignEnveloped(source.Root())
	require.NoError(t, err)

	out := etree.NewDocument()
	out.SetRoot(signed)
	data, err := out.WriteToBytes()
	require.NoError(t, err)

	doc, err := Parse(data)
	require.NoError(t, err)

	e := engine(t)
	valid, err := e.Validate(doc, &key.PublicKey)
	require.NoError(t, err)
	require.True(t, valid)

	report, err := e.ValidateReport(doc, cert)
	require.NoError(t, err)
	require.True(t, report.Valid)
	require.Len(t, report.Signatures, 1)
	require.Equal(t, "#inv-1", report.Signatures[0].References[0].URI)
	require.Equal(t, doc.Root(), report.Signatures[0].References[0].Element)
	require.NotNil(t, report.Signatures[0].KeyInfo)
	require.True(t, report.Signatures[0].KeyInfo.Certificate.Equal(cert))

	valid, err = e.Validate(doc, &otherRSAKey(t).PublicKey)
	require.NoError(t, err)
	require.False(t, valid)
}

func TestGoxmldsigValidatesSignature(t *testing.T) {
	key := rsaKey(t)
	cert := certificate(t)

	for _, uri := range []string{"", "#inv-1"} {
		t.Run("uri="+uri, func(t *testing.T) {
			doc := parse(t, sampleXML)
			require.NoError(t, engine(t).SignDocument(doc, key, SignConfig{
				ReferenceURI: uri,
				Certificate:  cert,
			}))

			data, err := doc.Serialize()
			require.NoError(t, err)
			parsed := etree.NewDocument()
			require.NoError(t, parsed.ReadFromBytes(data))

			ctx := dsig.NewDefaultValidationContext(&dsig.MemoryX509CertificateStore{
				Roots: []*x509.Certificate{cert},
			})
			_, err = ctx.Validate(parsed.Root())
			require.NoError(t, err)
		})
	}
}
