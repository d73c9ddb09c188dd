package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/moov-io/signedxml/keys"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an RSA key pair and a self-signed certificate",
	Example: `  # Generate private.pem, public.pem and certificate.pem in the current directory
  signedxml keygen

  # Generate a 4096 bit key pair in ./keys
  signedxml keygen --output-dir=keys --bits=4096 --cn="Billing"
`,
	Args: cobra.NoArgs,
	RunE: keygenCmdRun,
}

type keygenFlags struct {
	outputDir  string
	bits       int
	commonName string
	validity   time.Duration
}

var keygenArgs = defaultKeygenFlags()

func defaultKeygenFlags() keygenFlags {
	return keygenFlags{
		outputDir:  ".",
		bits:       2048,
		commonName: "signedxml",
		validity:   365 * 24 * time.Hour,
	}
}

func init() {
	keygenCmd.Flags().StringVarP(&keygenArgs.outputDir, "output-dir", "o", keygenArgs.outputDir,
		"path to output directory (defaults to current directory)")
	keygenCmd.Flags().IntVar(&keygenArgs.bits, "bits", keygenArgs.bits,
		"RSA key size in bits")
	keygenCmd.Flags().StringVar(&keygenArgs.commonName, "cn", keygenArgs.commonName,
		"common name of the self-signed certificate")
	keygenCmd.Flags().DurationVar(&keygenArgs.validity, "validity", keygenArgs.validity,
		"validity period of the self-signed certificate")
	rootCmd.AddCommand(keygenCmd)
}

func keygenCmdRun(cmd *cobra.Command, args []string) error {
	if err := isDir(keygenArgs.outputDir); err != nil {
		return err
	}
	if keygenArgs.bits < 2048 {
		return fmt.Errorf("key size must be at least 2048 bits, got %d", keygenArgs.bits)
	}

	key, err := keys.GenerateRSA(keygenArgs.bits)
	if err != nil {
		return err
	}
	cert, err := keys.SelfSignedCertificate(key, keygenArgs.commonName, keygenArgs.validity)
	if err != nil {
		return err
	}

	privateKeyPath := filepath.Join(keygenArgs.outputDir, "private.pem")
	publicKeyPath := filepath.Join(keygenArgs.outputDir, "public.pem")
	certPath := filepath.Join(keygenArgs.outputDir, "certificate.pem")

	if err := keys.WritePrivateKey(privateKeyPath, key); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := keys.WritePublicKey(publicKeyPath, key.Public()); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	if err := keys.WriteCertificate(certPath, cert); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}

	rootCmd.Printf("✔ private key written to: %s\n", privateKeyPath)
	rootCmd.Printf("✔ public key written to: %s\n", publicKeyPath)
	rootCmd.Printf("✔ certificate written to: %s\n", certPath)
	return nil
}

func isDir(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("directory %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to check path %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path %s is not a directory", path)
	}
	return nil
}
