// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

// Command scrate encodes and decodes scrate containers: a binary envelope
// around a source-package archive plus authenticated metadata.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/crate-spec/scrate"
	"github.com/crate-spec/scrate/config"
	"github.com/crate-spec/scrate/log"
	"github.com/crate-spec/scrate/pki"
)

type flags struct {
	encode   bool
	decode   bool
	mode     string
	cert     string
	pkey     string
	rootCAs  []string
	output   string
	cfgPath  string
	cliOnly  bool
	manifest string
	verbose  bool
}

// logger returns the operation tracer for f.verbose, or nil (discard) when
// tracing was not requested.
func (f *flags) logger() log.Logger {
	if !f.verbose {
		return nil
	}
	return log.New(os.Stderr, log.LevelDebug)
}

func main() {
	f := &flags{}
	root := &cobra.Command{
		Use:           "scrate [flags] <input>",
		Short:         "Encode and decode scrate signed source-package containers",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f, args[0])
		},
	}

	fs := root.Flags()
	fs.BoolVarP(&f.encode, "encode", "e", false, "encode a manifest and archive into a .scrate container")
	fs.BoolVarP(&f.decode, "decode", "d", false, "decode a .scrate container")
	fs.StringVar(&f.mode, "mode", "local", "signing mode: local or net")
	fs.StringVar(&f.cert, "cert", "", "PEM certificate path (local mode)")
	fs.StringVar(&f.pkey, "pkey", "", "PEM private key path (local mode)")
	fs.StringArrayVar(&f.rootCAs, "root-ca", nil, "PEM root CA path (repeatable)")
	fs.StringVar(&f.output, "output", "", "output path override")
	fs.StringVar(&f.cfgPath, "config", "", "TOML configuration file")
	fs.BoolVar(&f.cliOnly, "cli", false, "ignore any configuration file and take every parameter from flags")
	fs.StringVar(&f.manifest, "manifest", "", "package manifest path (encode only); populates [package]/[dependencies]")
	fs.BoolVar(&f.verbose, "verbose", false, "trace section layout, digest computation, and signature steps to stderr")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errString(err))
		os.Exit(1)
	}
}

// errString renders err the way the CLI reports failures: the error kind,
// if it carries one, followed by its message.
func errString(err error) string {
	var se *scrate.Error
	if e, ok := err.(*scrate.Error); ok {
		se = e
	}
	if se != nil {
		return se.Error()
	}
	return err.Error()
}

func run(f *flags, input string) error {
	if f.encode == f.decode {
		return fmt.Errorf("exactly one of -e/-d must be given")
	}

	if f.cfgPath != "" && !f.cliOnly {
		cfg, err := config.Load(f.cfgPath)
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		if f.encode {
			return encodeWithConfig(f, cfg, input)
		}
		return decodeWithConfig(f, cfg, input)
	}

	if f.encode {
		return encodeCLI(f, input)
	}
	return decodeCLI(f, input)
}

func readPEMs(paths []string) ([][]byte, error) {
	out := make([][]byte, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// populateManifest reads f.manifest (if given) into ctx's PackageInfo and
// dependency list, reporting any excluded dependency entries to stderr.
func populateManifest(f *flags, ctx *scrate.PackageContext) error {
	if f.manifest == "" {
		return nil
	}
	m, err := scrate.ManifestFromFile(f.manifest)
	if err != nil {
		return err
	}
	excluded, err := m.Populate(ctx)
	if err != nil {
		return err
	}
	for _, name := range excluded {
		fmt.Fprintf(os.Stderr, "scrate: dependency %q excluded: unsupported manifest attribute\n", name)
	}
	return nil
}

func encodeCLI(f *flags, input string) error {
	if f.mode != "local" {
		return fmt.Errorf("only --mode local is supported without a config file for network key material")
	}
	cert, err := os.ReadFile(f.cert)
	if err != nil {
		return err
	}
	pkey, err := os.ReadFile(f.pkey)
	if err != nil {
		return err
	}
	roots, err := readPEMs(f.rootCAs)
	if err != nil {
		return err
	}
	archive, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	ctx := scrate.NewPackageContext()
	ctx.Logger = f.logger()
	ctx.SetCrateBinary(archive)
	if err := populateManifest(f, ctx); err != nil {
		return err
	}
	if _, err := ctx.AddLocalSig(scrate.NewLocalSigner(cert, pkey, roots...), scrate.SigCrateBin); err != nil {
		return err
	}
	return writeEncoded(ctx, f.output)
}

func decodeCLI(f *flags, input string) error {
	roots, err := readPEMs(f.rootCAs)
	if err != nil {
		return err
	}
	buf, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	ctx, err := scrate.DecodeContainer(context.Background(), buf, roots, nil, f.logger())
	if err != nil {
		return err
	}
	return writeDecoded(ctx, f.output)
}

func encodeWithConfig(f *flags, cfg *config.Config, input string) error {
	archive, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	ctx := scrate.NewPackageContext()
	ctx.Logger = f.logger()
	ctx.SetCrateBinary(archive)
	if err := populateManifest(f, ctx); err != nil {
		return err
	}

	if f.mode == "net" {
		if cfg.Net == nil {
			return fmt.Errorf("config error: [net] section required for --mode net")
		}
		client := pki.NewClient(cfg.Net.PKIBaseURL, pki.WithRetry(cfg.Net.RetryTimes, cfg.Net.RetryDelay()))
		base := pki.BaseConfig{Algo: cfg.Net.Algo, Flow: cfg.Net.Flow, Kms: cfg.Net.Kms}
		kp, err := pki.GetOrFetchKeyPair(context.Background(), client, cfg.Net.KeyPairPath, base)
		if err != nil {
			return err
		}
		if _, err := ctx.AddNetworkSig(client, kp, base); err != nil {
			return err
		}
		return writeEncoded(ctx, pickOutput(f.output, cfg.NetworkEncode().Output))
	}

	lc := cfg.LocalEncode()
	cert, err := os.ReadFile(lc.Cert)
	if err != nil {
		return err
	}
	pkey, err := os.ReadFile(lc.PKey)
	if err != nil {
		return err
	}
	roots, err := readPEMs(lc.RootCAs)
	if err != nil {
		return err
	}
	if _, err := ctx.AddLocalSig(scrate.NewLocalSigner(cert, pkey, roots...), scrate.SigCrateBin); err != nil {
		return err
	}
	return writeEncoded(ctx, pickOutput(f.output, lc.Output))
}

func decodeWithConfig(f *flags, cfg *config.Config, input string) error {
	buf, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	var verifier *pki.Client
	if f.mode == "net" {
		if cfg.Net == nil {
			return fmt.Errorf("config error: [net] section required for --mode net")
		}
		verifier = pki.NewClient(cfg.Net.PKIBaseURL, pki.WithRetry(cfg.Net.RetryTimes, cfg.Net.RetryDelay()))
	}

	roots, err := readPEMs(cfg.LocalDecode().RootCAs)
	if err != nil {
		return err
	}
	ctx, err := scrate.DecodeContainer(context.Background(), buf, roots, verifier, f.logger())
	if err != nil {
		return err
	}
	out := cfg.NetworkDecode().Output
	if f.mode != "net" {
		out = cfg.LocalDecode().Output
	}
	return writeDecoded(ctx, pickOutput(f.output, out))
}

func pickOutput(flagVal, cfgVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return cfgVal
}

func writeEncoded(ctx *scrate.PackageContext, outDir string) error {
	buf, err := ctx.Encode(context.Background())
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s-%s.scrate", ctx.Pack.Name, ctx.Pack.Version)
	if outDir != "" {
		name = filepath.Join(outDir, name)
	}
	return os.WriteFile(name, buf, 0o644)
}

func writeDecoded(ctx *scrate.PackageContext, outDir string) error {
	crateName := fmt.Sprintf("%s-%s.crate", ctx.Pack.Name, ctx.Pack.Version)
	metaName := fmt.Sprintf("%s-%s-metadata.txt", ctx.Pack.Name, ctx.Pack.Version)
	if outDir != "" {
		crateName = filepath.Join(outDir, crateName)
		metaName = filepath.Join(outDir, metaName)
	}
	if err := os.WriteFile(crateName, ctx.Crate.Bytes, 0o644); err != nil {
		return err
	}
	meta := fmt.Sprintf("%+v\n%+v\n", ctx.Pack, ctx.Deps)
	return os.WriteFile(metaName, []byte(meta), 0o644)
}
