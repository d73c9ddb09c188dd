package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var VERSION = "0.0.0-dev.0"

var rootCmd = &cobra.Command{
	Use:           "signedxml",
	Version:       VERSION,
	SilenceUsage:  true,
	SilenceErrors: true,
	Short:         "Sign and verify XML documents with enveloped XML signatures",
	Long: `signedxml embeds XML-DSig enveloped signatures into XML documents
and validates the signatures of signed documents against a public key.`,
	PersistentPreRunE: setupRoot,
}

type rootFlags struct {
	configPath string
	debug      bool
}

var (
	rootArgs rootFlags
	conf     config
	logger   = zap.NewNop()
)

func init() {
	rootCmd.PersistentFlags().StringVar(&rootArgs.configPath, "config", "",
		"path to a TOML config file with default signing and verification settings")
	rootCmd.PersistentFlags().BoolVar(&rootArgs.debug, "debug", false,
		"log verification details to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("✗", err)
		os.Exit(1)
	}
}

func setupRoot(cmd *cobra.Command, args []string) error {
	var err error
	if conf, err = loadConfig(rootArgs.configPath); err != nil {
		return err
	}
	if rootArgs.debug {
		if logger, err = newLogger(zapcore.DebugLevel); err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
	} else {
		logger = zap.NewNop()
	}
	return nil
}

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.Config{
		Encoding:         "console",
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{"stderr"},
	}
	return cfg.Build()
}
