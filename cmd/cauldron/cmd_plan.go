package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	orchestrators "github.com/ochairo/cauldron/internal/domain-orchestrators"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
	"github.com/ochairo/cauldron/internal/domain/services"
	"github.com/ochairo/cauldron/internal/external-adapters/codec"
	"github.com/ochairo/cauldron/internal/external-adapters/gpg"
)

// passphraseEnv names the environment variable holding the signing key passphrase
const passphraseEnv = "CAULDRON_SIGNING_PASSPHRASE"

func runPlan(ctx context.Context, args []string) int {
	fs := pflag.NewFlagSet("plan", pflag.ContinueOnError)
	var common planFlags
	common.register(fs)
	var (
		infer   = fs.Bool("infer", false, "Explain how to make the workspace releasable when there is nothing to release")
		dryRun  = fs.Bool("dry-run", false, "Plan without build outputs (assume conservative runtime conditions)")
		format  = fs.StringP("format", "f", "json", "Manifest format: json, yaml or cbor")
		output  = fs.StringP("output", "o", "", "Write the manifest to this file instead of stdout")
		signKey = fs.String("sign-key", "", "Armored OpenPGP private key used to sign the manifest (passphrase from $"+passphraseEnv+")")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cauldron plan [options]

Plan every release of the workspace and print the manifest.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Exit Codes:
  0  Plan written
  1  Planning failed (unsupported cross-compile, feature mismatch, ...)
  2  Usage error

Examples:
  cauldron plan
  cauldron plan --target x86_64-pc-windows-msvc --target aarch64-apple-darwin
  cauldron plan --format cbor --output plan.cbor --sign-key release.asc
`)
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	manifestFormat, err := codec.ParseFormat(*format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	logger, err := common.logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	var signer *gpg.Signer
	if *signKey != "" {
		signer, err = gpg.NewSignerFromFile(*signKey, os.Getenv(passphraseEnv))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load signing key: %v\n", err)
			return 1
		}
	}

	opts := common.options()
	opts.Infer = *infer
	opts.DryRun = *dryRun
	opts.SigningCredentials = signer != nil

	if err := executePlan(ctx, &common, opts, manifestFormat, *output, signer, logger); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return 1
	}
	return 0
}

func executePlan(ctx context.Context, common *planFlags, opts orchestrators.PlanOptions, format codec.Format, output string, signer *gpg.Signer, logger interfaces.Logger) error {
	result, err := common.plan(ctx, opts, logger)
	if err != nil {
		return err
	}
	for _, installerErr := range result.InstallerErrors {
		logger.Warn("installer dropped", interfaces.F("error", installerErr))
	}

	manifest := services.BuildManifest(result.Graph)
	data, err := codec.Encode(format, manifest)
	if err != nil {
		return err
	}

	if output == "" || output == "-" {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write manifest: %w", err)
		}
	} else if err := os.WriteFile(output, data, 0600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	if result.Graph.Signing == nil || signer == nil {
		return nil
	}
	if output == "" || output == "-" {
		logger.Warn("manifest signing needs --output, skipping signature")
		return nil
	}
	var sig bytes.Buffer
	if err := signer.SignDetached(&sig, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to sign manifest: %w", err)
	}
	if err := os.WriteFile(output+".asc", sig.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write signature: %w", err)
	}
	logger.Info("manifest signed", interfaces.F("signature", output+".asc"), interfaces.F("key", signer.Fingerprint()))
	return nil
}
