// Command genaictl talks to a genai server from the terminal.
//
// Usage:
//
//	genaictl [-server URL] [-token T] chat <prompt...>
//	genaictl [-server URL] [-token T] image <prompt...>
//	genaictl [-server URL] status
//	genaictl [-server URL] [-token T] history [-limit N]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("genaictl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	server := fs.String("server", envOr("GENAI_SERVER", "http://localhost:5000"), "genai server URL")
	token := fs.String("token", os.Getenv("GENAI_TOKEN"), "bearer token for protected routes")
	timeout := fs.Duration("timeout", 5*time.Minute, "overall request timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: genaictl [flags] chat|image|status|history ...")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	c := newClient(*server, *token, nil)
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	var err error
	switch cmd {
	case "chat":
		r, e := c.Chat(ctx, strings.Join(rest, " "))
		if err = e; err == nil {
			renderChat(stdout, r)
		}
	case "image":
		r, e := c.Image(ctx, strings.Join(rest, " "))
		if err = e; err == nil {
			renderImage(stdout, r)
		}
	case "status":
		r, e := c.Status(ctx)
		if err = e; err == nil {
			renderStatus(stdout, r)
		}
	case "history":
		hfs := flag.NewFlagSet("history", flag.ContinueOnError)
		hfs.SetOutput(stderr)
		limit := hfs.Int("limit", 20, "number of entries")
		if err := hfs.Parse(rest); err != nil {
			return 2
		}
		r, e := c.History(ctx, *limit)
		if err = e; err == nil {
			renderHistory(stdout, r)
		}
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		return 2
	}

	if err != nil {
		renderError(stderr, err)
		return 1
	}
	return 0
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
