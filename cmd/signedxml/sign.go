package main

import (
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"github.com/spf13/cobra"

	"github.com/moov-io/signedxml"
	"github.com/moov-io/signedxml/keys"
)

var signCmd = &cobra.Command{
	Use:   "sign [FILE]",
	Short: "Sign an XML document with an enveloped signature",
	Example: `  # Sign the whole document and print it
  signedxml sign invoice.xml --key=private.pem

  # Embed the certificate and write the result to a file
  signedxml sign invoice.xml --key=private.pem --cert=certificate.pem -o signed.xml

  # Sign only the element with ID="line-1"
  signedxml sign invoice.xml --key=private.pem --node-id=line-1 -o signed.xml
`,
	Args: cobra.ExactArgs(1),
	RunE: signCmdRun,
}

type signFlags struct {
	output          string
	keyPath         string
	certPath        string
	keyName         string
	digest          string
	signatureMethod string
	c14n            string
	referenceURI    string
	nodeID          string
	omitKeyInfo     bool
}

var signArgs signFlags

func init() {
	signCmd.Flags().StringVarP(&signArgs.output, "output", "o", "",
		"path to write the signed document to (defaults to stdout)")
	signCmd.Flags().StringVarP(&signArgs.keyPath, "key", "k", "",
		"path to the PEM encoded private key (required)")
	signCmd.Flags().StringVar(&signArgs.certPath, "cert", "",
		"path to a PEM encoded certificate to embed in KeyInfo")
	signCmd.Flags().StringVar(&signArgs.keyName, "key-name", "",
		"KeyName to embed in KeyInfo")
	signCmd.Flags().StringVar(&signArgs.digest, "digest", "",
		"digest method URI (defaults to SHA-256)")
	signCmd.Flags().StringVar(&signArgs.signatureMethod, "signature-method", "",
		"signature method URI (defaults to RSA-SHA256 or ECDSA-SHA256 depending on the key)")
	signCmd.Flags().StringVar(&signArgs.c14n, "c14n", "",
		"canonicalization method URI (defaults to exclusive C14N)")
	signCmd.Flags().StringVar(&signArgs.referenceURI, "reference-uri", "",
		"URI of the signed Reference (defaults to the enveloping element)")
	signCmd.Flags().StringVar(&signArgs.nodeID, "node-id", "",
		"sign only the element whose ID attribute has this value")
	signCmd.Flags().BoolVar(&signArgs.omitKeyInfo, "omit-key-info", false,
		"do not embed KeyInfo")
	rootCmd.AddCommand(signCmd)
}

func signCmdRun(cmd *cobra.Command, args []string) error {
	if err := signArgsFromConfig(cmd); err != nil {
		return err
	}
	if signArgs.keyPath == "" {
		return errors.New("--key is required")
	}

	key, err := keys.LoadPrivateKey(signArgs.keyPath)
	if err != nil {
		return err
	}
	var cert *x509.Certificate
	if signArgs.certPath != "" {
		if cert, err = keys.LoadCertificate(signArgs.certPath); err != nil {
			return err
		}
	}

	doc, err := signedxml.ParseFile(args[0])
	if err != nil {
		return err
	}
	engine, err := conf.newEngine()
	if err != nil {
		return err
	}

	cfg := signedxml.SignConfig{
		DigestMethod:           signArgs.digest,
		SignatureMethod:        signArgs.signatureMethod,
		CanonicalizationMethod: signArgs.c14n,
		ReferenceURI:           signArgs.referenceURI,
		KeyName:                signArgs.keyName,
		Certificate:            cert,
		OmitKeyInfo:            signArgs.omitKeyInfo,
	}

	if signArgs.nodeID != "" {
		node, attr, err := findByID(doc, signArgs.nodeID, conf.idAttributes())
		if err != nil {
			return err
		}
		if err := doc.SetIDAttribute(node, attr); err != nil {
			return err
		}
		if cfg.ReferenceURI == "" {
			cfg.ReferenceURI = "#" + signArgs.nodeID
		}
		if _, err := engine.SignNode(doc, node, key, cfg); err != nil {
			return fmt.Errorf("failed to sign element %q: %w", signArgs.nodeID, err)
		}
	} else if err := engine.SignDocument(doc, key, cfg); err != nil {
		return fmt.Errorf("failed to sign document: %w", err)
	}

	if signArgs.output == "" {
		data, err := doc.Serialize()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := doc.WriteFile(signArgs.output); err != nil {
		return fmt.Errorf("failed to write signed document: %w", err)
	}
	rootCmd.Printf("✔ signed document written to: %s\n", signArgs.output)
	return nil
}

func signArgsFromConfig(cmd *cobra.Command) error {
	flags := cmd.Flags()
	for name, value := range map[string]string{
		"key":              conf.Key,
		"cert":             conf.Certificate,
		"key-name":         conf.KeyName,
		"digest":           conf.DigestMethod,
		"signature-method": conf.SignatureMethod,
		"c14n":             conf.CanonicalizationMethod,
		"reference-uri":    conf.ReferenceURI,
	} {
		if err := fromConfig(flags, name, value); err != nil {
			return err
		}
	}
	return boolFromConfig(flags, "omit-key-info", conf.OmitKeyInfo)
}

// findByID returns the single element carrying id in one of the attributes
// names, together with the attribute name.
func findByID(doc *signedxml.Document, id string, names []string) (*etree.Element, string, error) {
	var (
		found *etree.Element
		attr  string
		count int
	)
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, name := range names {
			if a := el.SelectAttr(name); a != nil && a.Space == "" && a.Value == id {
				found, attr = el, name
				count++
				break
			}
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(doc.Root())

	switch count {
	case 0:
		return nil, "", fmt.Errorf("no element with ID %q", id)
	case 1:
		return found, attr, nil
	}
	return nil, "", fmt.Errorf("ID %q is not unique", id)
}
