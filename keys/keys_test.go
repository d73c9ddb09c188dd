package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndStoreRSA(t *testing.T) {
	key, err := GenerateRSA(2048)
	require.NoError(t, err)

	cert, err := SelfSignedCertificate(key, "signer", time.Hour)
	require.NoError(t, err)
	require.Equal(t, "signer", cert.Subject.CommonName)
	require.True(t, cert.NotAfter.After(time.Now()))

	dir := t.TempDir()
	keyPath := filepath.Join(dir, "key.pem")
	pubPath := filepath.Join(dir, "pub.pem")
	certPath := filepath.Join(dir, "cert.pem")

	require.NoError(t, WritePrivateKey(keyPath, key))
	require.NoError(t, WritePublicKey(pubPath, &key.PublicKey))
	require.NoError(t, WriteCertificate(certPath, cert))

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadPrivateKey(keyPath)
	require.NoError(t, err)
	require.True(t, key.Equal(loaded))

	pub, err := LoadPublicKey(pubPath)
	require.NoError(t, err)
	require.True(t, key.PublicKey.Equal(pub))

	fromCert, err := LoadPublicKey(certPath)
	require.NoError(t, err)
	require.True(t, key.PublicKey.Equal(fromCert))

	loadedCert, err := LoadCertificate(certPath)
	require.NoError(t, err)
	require.True(t, cert.Equal(loadedCert))
}

func TestGenerateAndStoreECDSA(t *testing.T) {
	key, err := GenerateECDSA(elliptic.P256())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ec.pem")
	require.NoError(t, WritePrivateKey(path, key))

	loaded, err := LoadPrivateKey(path)
	require.NoError(t, err)
	ecKey, ok := loaded.(*ecdsa.PrivateKey)
	require.True(t, ok)
	require.True(t, key.Equal(ecKey))
}

func TestParsePrivateKeyPKCS1(t *testing.T) {
	key, err := GenerateRSA(2048)
	require.NoError(t, err)

	data := pemBlock(t, "RSA PRIVATE KEY", x509MarshalPKCS1(key))
	parsed, err := ParsePrivateKey(data)
	require.NoError(t, err)
	rsaKey, ok := parsed.(*rsa.PrivateKey)
	require.True(t, ok)
	require.True(t, key.Equal(rsaKey))
}

func TestParseErrors(t *testing.T) {
	_, err := ParsePrivateKey([]byte("not pem"))
	require.ErrorIs(t, err, ErrNoPEMData)

	_, err = ParsePublicKey(nil)
	require.ErrorIs(t, err, ErrNoPEMData)

	_, err = ParseCertificate(pemBlock(t, "PUBLIC KEY", []byte{1, 2, 3}))
	require.Error(t, err)

	_, err = LoadPrivateKey(filepath.Join(t.TempDir(), "missing.pem"))
	require.Error(t, err)
}
