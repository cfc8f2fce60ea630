// Command clubctl reads from a running club site through its JSON API.
//
// Usage:
//
//	clubctl [-base=http://localhost:8080] [-timeout=15s] content [page]
//	clubctl page <home|about|events|resources|projects|pulse>
//	clubctl mutate <id> <incrementViews|incrementUpvotes>
//	clubctl reset-email <address>
//
// CLUBCTL_BASE_URL overrides the default base URL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/dalemusser/vlsiclub/internal/app/sitefetch"
	json "github.com/goccy/go-json"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: clubctl [flags] content [page] | page <name> | mutate <id> <action> | reset-email <address>")
	flag.PrintDefaults()
}

func main() {
	defBase := os.Getenv("CLUBCTL_BASE_URL")
	if defBase == "" {
		defBase = "http://localhost:8080"
	}
	base := flag.String("base", defBase, "base URL of the club site")
	timeout := flag.Duration("timeout", sitefetch.DefaultTimeout, "per-request timeout (15s to 30s)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	client, err := sitefetch.New(sitefetch.Config{BaseURL: *base, Timeout: *timeout})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := run(ctx, client, flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, message(err))
		os.Exit(1)
	}
	if err := printJSON(out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *sitefetch.Client, args []string) (any, error) {
	switch cmd, rest := args[0], args[1:]; cmd {
	case "content":
		page := ""
		if len(rest) > 0 {
			page = rest[0]
		}
		return c.Content(ctx, page)
	case "page":
		if len(rest) != 1 {
			return nil, fmt.Errorf("page needs a page name")
		}
		var v map[string]any
		err := c.Page(ctx, rest[0], &v)
		return v, err
	case "mutate":
		if len(rest) != 2 {
			return nil, fmt.Errorf("mutate needs an id and an action")
		}
		return c.Mutate(ctx, rest[0], rest[1])
	case "reset-email":
		if len(rest) != 1 {
			return nil, fmt.Errorf("reset-email needs an address")
		}
		msg, err := c.SendResetEmail(ctx, rest[0])
		return map[string]string{"message": msg}, err
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(b))
	return err
}

// message prefers the member-facing text of a fetch failure.
func message(err error) string {
	var fe *sitefetch.Error
	if errors.As(err, &fe) {
		if fe.Status != 0 {
			return fmt.Sprintf("%s (status %d)", fe.Message, fe.Status)
		}
		return fe.Message
	}
	return err.Error()
}
