package keys

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
)

func pemBlock(t *testing.T, blockType string, der []byte) []byte {
	t.Helper()
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
}

func x509MarshalPKCS1(key *rsa.PrivateKey) []byte {
	return x509.MarshalPKCS1PrivateKey(key)
}
