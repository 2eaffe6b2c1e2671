package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/VeduStorm/NovaCore/nova/app"
	"github.com/VeduStorm/NovaCore/nova/common"
	"github.com/VeduStorm/NovaCore/nova/common/logx"
	"github.com/VeduStorm/NovaCore/nova/server"
	"github.com/VeduStorm/NovaCore/nova/usage"
)

var cmd = logx.New(logx.WithPrefix("cmd"))

func Run() {
	ctx := context.Background()
	runner := usage.New(app.NewCheckRunner())

	// no arguments: the three checks against the default config
	if len(os.Args) == 1 {
		runner.RunAll(ctx, "")
		return
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		printHelp()

	case "login":
		runner.RunDefaultCheck(ctx, optArg(2))
	case "login-silent":
		runner.RunSilentCheck(ctx, optArg(2))
	case "login-noexit":
		runner.RunNoExitCheck(ctx, optArg(2))

	case "issue":
		if len(os.Args) < 3 || strings.TrimSpace(os.Args[2]) == "" {
			_, _ = fmt.Fprintln(os.Stderr, "Usage: novacore issue <REQUEST> [OUT]")
			os.Exit(common.ExitUsage)
		}
		must(IssueFromRequest(os.Args[2], optArg(3), os.Getenv))

	case "keygen":
		must(Keygen(os.Stdout))

	case "machine":
		must(Machine(os.Stdout))

	case "serve":
		must(server.Run(optArg(2)))

	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printHelp()
		os.Exit(common.ExitUsage)
	}
}

func optArg(i int) string {
	if len(os.Args) > i {
		return strings.TrimSpace(os.Args[i])
	}
	return ""
}

func must(err error) {
	if err != nil {
		cmd.Errorf("%v", err)
		os.Exit(common.ExitFailure)
	}
}

func printHelp() {
	fmt.Println(`Usage:
  novacore                          # run the default, silent and no-exit checks on config/config.json
  novacore login [PATH]             # default check
  novacore login-silent [PATH]      # check, quiet on success
  novacore login-noexit [PATH]      # check, never exits on mismatch
  novacore issue <REQUEST> [OUT]    # issue a license from a JSON/YAML request
  novacore keygen                   # print a fresh Ed25519 key pair and AES-256 key
  novacore machine                  # print this machine's code
  novacore serve [PATH]             # run the status server

Environment (issue):
  NOVACORE_SIGNING_KEY              # Ed25519 private key (seed or full key, base64/hex)
  NOVACORE_AES_KEY                  # optional AES-256 key; encrypts the payload
  NOVACORE_AAD                      # optional associated data, defaults to the built-in one

Examples:
  novacore login config/prod.yaml
  NOVACORE_SIGNING_KEY=... novacore issue request.yaml license.txt`)
}
