package signedxml

import (
	"bytes"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"
)

const (
	pemCertificateHeader = "-----BEGIN CERTIFICATE-----"
	pemCertificateFooter = "-----END CERTIFICATE-----"
)

// ParseCertificate decodes the text of an X509Certificate element. The body
// may be bare base64, as it appears inside XML-DSig, or a complete PEM block.
func ParseCertificate(body string) (*x509.Certificate, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: empty certificate", ErrCertificateFormat)
	}
	if !strings.Contains(body, pemCertificateHeader) {
		body = pemCertificateHeader + "\n" + body + "\n" + pemCertificateFooter
	}

	block, rest := pem.Decode([]byte(body))
	if block == nil {
		return nil, fmt.Errorf("%w: unable to decode pem block", ErrCertificateFormat)
	}
	if block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%w: unexpected pem block %q", ErrCertificateFormat, block.Type)
	}
	if len(bytes.TrimSpace(rest)) > 0 {
		return nil, fmt.Errorf("%w: trailing data after certificate", ErrCertificateFormat)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertificateFormat, err)
	}
	return cert, nil
}

// EncodeCertificate returns the base64 DER body written into X509Certificate.
func EncodeCertificate(cert *x509.Certificate) string {
	if cert == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(cert.Raw)
}
