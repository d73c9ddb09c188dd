package main

import (
	"crypto"
	"errors"

	"github.com/spf13/cobra"

	"github.com/moov-io/signedxml"
	"github.com/moov-io/signedxml/keys"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [FILE]",
	Short: "Verify the enveloped signatures of an XML document",
	Example: `  # Verify with a public key
  signedxml verify signed.xml --public-key=public.pem

  # Verify with the signer's certificate and print details per reference
  signedxml verify signed.xml --cert=certificate.pem --report
`,
	Args: cobra.ExactArgs(1),
	RunE: verifyCmdRun,
}

type verifyFlags struct {
	publicKeyPath string
	certPath      string
	report        bool
}

var verifyArgs verifyFlags

var errVerificationFailed = errors.New("signature verification failed")

func init() {
	verifyCmd.Flags().StringVarP(&verifyArgs.publicKeyPath, "public-key", "p", "",
		"path to the PEM encoded public key")
	verifyCmd.Flags().StringVar(&verifyArgs.certPath, "cert", "",
		"path to the PEM encoded certificate of the signer")
	verifyCmd.Flags().BoolVar(&verifyArgs.report, "report", false,
		"print the result of every signature and reference")
	rootCmd.AddCommand(verifyCmd)
}

func verifyCmdRun(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if err := fromConfig(flags, "public-key", conf.PublicKey); err != nil {
		return err
	}
	if err := fromConfig(flags, "cert", conf.Certificate); err != nil {
		return err
	}

	publicKey, err := loadVerificationKey()
	if err != nil {
		return err
	}

	doc, err := signedxml.ParseFile(args[0])
	if err != nil {
		return err
	}
	engine, err := conf.newEngine()
	if err != nil {
		return err
	}

	if !verifyArgs.report {
		valid, err := engine.Validate(doc, publicKey)
		if err != nil {
			return err
		}
		if !valid {
			return errVerificationFailed
		}
		rootCmd.Println("✔ signature verified")
		return nil
	}

	report, err := engine.ValidateReport(doc, publicKey)
	if err != nil {
		return err
	}
	if len(report.Signatures) == 0 {
		rootCmd.Println("✗ no signature found")
	}
	for _, sig := range report.Signatures {
		rootCmd.Printf("%s signature %d: signature value valid: %t\n", mark(sig.Valid), sig.Index, sig.SignatureValueValid)
		if sig.Err != nil {
			rootCmd.Printf("  error: %v\n", sig.Err)
		}
		for _, ref := range sig.References {
			rootCmd.Printf("  %s reference %q (%s)\n", mark(ref.Valid), ref.URI, ref.DigestMethod)
			if ref.Err != nil {
				rootCmd.Printf("    error: %v\n", ref.Err)
			}
		}
	}
	if !report.Valid {
		return errVerificationFailed
	}
	return nil
}

func loadVerificationKey() (crypto.PublicKey, error) {
	switch {
	case verifyArgs.publicKeyPath != "":
		return keys.LoadPublicKey(verifyArgs.publicKeyPath)
	case verifyArgs.certPath != "":
		return keys.LoadCertificate(verifyArgs.certPath)
	}
	return nil, errors.New("one of --public-key or --cert is required")
}

func mark(ok bool) string {
	if ok {
		return "✔"
	}
	return "✗"
}
