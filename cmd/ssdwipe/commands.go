/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/Stranger542/SSDWipe-BlockChain/internal/app"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/certificate"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/config"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/domain/model"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/lifecycle"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/server"
	"github.com/Stranger542/SSDWipe-BlockChain/internal/util"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	usageHeader = `usage: ssdwipe [-config file] <command> [flags]

commands:
  issue            -report r.json [-seal] [-retry] [-out artifact.txt]
  get              -key K
  verify-artifact  -key K -artifact a.txt
  verify-record    -key K -report r.json [-full]
  verify-signature -key K [-show]
  revoke           -key K -reason R
  keygen           -out key.pem
  serve
`
)

var errUsage = errors.New("usage")

type cli struct {
	cfg    config.Config
	stdout io.Writer
	stderr io.Writer
	logger *log.Logger
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("ssdwipe", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usageHeader) }
	configPath := global.String("config", "", "YAML configuration file")
	if err := global.Parse(args); err != nil {
		return exitUsage
	}
	if global.NArg() == 0 {
		global.Usage()
		return exitUsage
	}
	cmd, rest := global.Arg(0), global.Args()[1:]

	c := &cli{
		stdout: stdout,
		stderr: stderr,
		logger: log.New(stderr, "ssdwipe: ", log.LstdFlags),
	}

	var err error
	if cmd == "keygen" {
		err = c.keygen(rest)
	} else {
		if c.cfg, err = config.Load(*configPath); err != nil {
			color.New(color.FgRed).Fprintf(stderr, "config: %v\n", err)
			return exitFailed
		}
		c.cfg.Logger = c.logger
		switch cmd {
		case "issue":
			err = c.issue(ctx, rest)
		case "get":
			err = c.get(ctx, rest)
		case "verify-artifact":
			err = c.verifyArtifact(ctx, rest)
		case "verify-record":
			err = c.verifyRecord(ctx, rest)
		case "verify-signature":
			err = c.verifySignature(ctx, rest)
		case "revoke":
			err = c.revoke(ctx, rest)
		case "serve":
			err = c.serve(ctx)
		default:
			fmt.Fprintf(stderr, "unknown command %q\n", cmd)
			global.Usage()
			return exitUsage
		}
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		return exitUsage
	case errors.Is(err, errOutcomeFailed):
		return exitFailed
	default:
		color.New(color.FgRed).Fprintf(stderr, "error: %v\n", err)
		return exitFailed
	}
}

// parse parses a subcommand's flags and checks that every required flag is set.
func (c *cli) parse(fs *flag.FlagSet, args []string, required ...string) error {
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	for _, name := range required {
		if f := fs.Lookup(name); f == nil || f.Value.String() == "" {
			fmt.Fprintf(c.stderr, "%s: -%s is required\n", fs.Name(), name)
			fs.Usage()
			return errUsage
		}
	}
	return nil
}

func (c *cli) withApp(ctx context.Context, fn func(a *app.App) *lifecycle.Outcome) error {
	a, err := app.Open(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return c.report(fn(a))
}

func (c *cli) issue(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("issue", flag.ContinueOnError)
	reportPath := fs.String("report", "", "wipe report JSON")
	seal := fs.Bool("seal", false, "seal the record with the configured key")
	retry := fs.Bool("retry", false, "look the key up before writing")
	out := fs.String("out", "", "write the certificate artifact to this file")
	if err := c.parse(fs, args, "report"); err != nil {
		return err
	}
	raw, err := readReport(*reportPath)
	if err != nil {
		return err
	}
	if *seal {
		c.cfg.Seal.Enabled = true
		if err := c.cfg.Validate(); err != nil {
			return err
		}
	}

	return c.withApp(ctx, func(a *app.App) *lifecycle.Outcome {
		o := a.Manager.Issue(ctx, raw, lifecycle.IssueOptions{
			Seal:     *seal,
			Artifact: *out != "",
			IssuedAt: time.Now(),
			Retry:    *retry,
		})
		if o.Artifact != "" && o.Success {
			if err := os.WriteFile(*out, []byte(o.Artifact), 0o644); err != nil {
				c.logger.Printf("failed writing artifact: %v", err)
			} else {
				o.Artifact = ""
			}
		}
		return o
	})
}

func (c *cli) get(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	key := fs.String("key", "", "certificate key")
	if err := c.parse(fs, args, "key"); err != nil {
		return err
	}
	return c.withApp(ctx, func(a *app.App) *lifecycle.Outcome {
		return a.Manager.Lookup(ctx, *key)
	})
}

func (c *cli) verifyArtifact(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify-artifact", flag.ContinueOnError)
	key := fs.String("key", "", "certificate key")
	artifactPath := fs.String("artifact", "", "saved certificate artifact")
	if err := c.parse(fs, args, "key", "artifact"); err != nil {
		return err
	}
	artifact, err := os.ReadFile(*artifactPath)
	if err != nil {
		return err
	}
	return c.withApp(ctx, func(a *app.App) *lifecycle.Outcome {
		return a.Manager.VerifyArtifact(ctx, *key, artifact)
	})
}

func (c *cli) verifyRecord(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify-record", flag.ContinueOnError)
	key := fs.String("key", "", "certificate key")
	reportPath := fs.String("report", "", "wipe report JSON")
	full := fs.Bool("full", false, "compare every field instead of the default subset")
	if err := c.parse(fs, args, "key", "report"); err != nil {
		return err
	}
	raw, err := readReport(*reportPath)
	if err != nil {
		return err
	}
	return c.withApp(ctx, func(a *app.App) *lifecycle.Outcome {
		return a.Manager.VerifyReport(ctx, *key, raw, *full)
	})
}

func (c *cli) verifySignature(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify-signature", flag.ContinueOnError)
	key := fs.String("key", "", "certificate key")
	show := fs.Bool("show", false, "print the decoded seal")
	if err := c.parse(fs, args, "key"); err != nil {
		return err
	}
	return c.withApp(ctx, func(a *app.App) *lifecycle.Outcome {
		o := a.Manager.VerifySignature(ctx, *key)
		if *show && o.Record != nil && o.Record.DigitalSignature != "" {
			if text, err := certificate.RenderSeal(o.Record.DigitalSignature); err == nil {
				fmt.Fprintln(c.stderr, text)
			}
		}
		return o
	})
}

func (c *cli) revoke(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
	key := fs.String("key", "", "certificate key")
	reason := fs.String("reason", "", "revocation reason")
	if err := c.parse(fs, args, "key", "reason"); err != nil {
		return err
	}
	return c.withApp(ctx, func(a *app.App) *lifecycle.Outcome {
		return a.Manager.Revoke(ctx, *key, *reason)
	})
}

func (c *cli) keygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	out := fs.String("out", "", "PEM file to create")
	if err := c.parse(fs, args, "out"); err != nil {
		return err
	}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return err
	}
	pemBytes, err := config.EncodeSealingKey(key)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(*out, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(pemBytes); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	sealer, err := certificate.NewSealer(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "kid: %s\n", hex.EncodeToString(sealer.KID()))
	return nil
}

func (c *cli) serve(ctx context.Context) error {
	a, err := app.Open(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var gateway server.Gateway
	if a.Local != nil {
		gateway = a.Local
	}
	s, err := server.New(c.cfg.Server, a.Manager, gateway, c.logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

var errOutcomeFailed = errors.New("operation failed")

// report prints the outcome as JSON on stdout and a colored verdict on stderr.
func (c *cli) report(o *lifecycle.Outcome) error {
	text, err := util.RenderJSONPretty(o)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, text)

	switch {
	case o.Success && o.Verdict != "":
		color.New(color.FgGreen, color.Bold).Fprintf(c.stderr, "%s\n", o.Verdict)
	case o.Success:
		color.New(color.FgGreen).Fprintln(c.stderr, "OK")
	case o.Verdict == certificate.VerdictMismatch:
		color.New(color.FgRed, color.Bold).Fprintf(c.stderr, "%s %v\n", o.Verdict, o.MismatchedFields)
	default:
		color.New(color.FgRed).Fprintf(c.stderr, "FAILED: %s\n", o.Error)
	}
	if !o.Success {
		return errOutcomeFailed
	}
	return nil
}

func readReport(path string) (*model.RawReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return certificate.ParseReport(data)
}
