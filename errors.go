package signedxml

import "errors"

// Errors returned by the package. Call sites wrap them with context, so
// compare with errors.Is.
var (
	// ErrInvalidArgument is returned when a required input is missing, such
	// as the node to sign, the document or the public key.
	ErrInvalidArgument = errors.New("signedxml: invalid argument")

	// ErrUnsupportedAlgorithm is returned for an unknown digest, signature,
	// canonicalization or transform identifier.
	ErrUnsupportedAlgorithm = errors.New("signedxml: unsupported algorithm")

	// ErrParse is returned for malformed or unsafe XML input.
	ErrParse = errors.New("signedxml: unable to parse xml")

	// ErrSigning is returned when the crypto provider fails to sign, or the
	// key does not match the signature method.
	ErrSigning = errors.New("signedxml: signing failed")

	// ErrCertificateFormat is returned for a malformed certificate blob.
	ErrCertificateFormat = errors.New("signedxml: malformed certificate")
)
