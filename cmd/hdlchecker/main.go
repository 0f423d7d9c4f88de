// Command hdlchecker runs the HDL project analyzer as an LSP server, an
// HTTP daemon, an MCP server, or a one-shot batch checker.
//
// Grounded on standardbeagle-lci/cmd/lci/main.go's cli.App/cli.Command
// structure: a root command with global flags plus one subcommand per
// mode, each wired to an Action function.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/suoto/hdl-checker/internal/diagnostics"
	"github.com/suoto/hdl-checker/internal/httpapi"
	"github.com/suoto/hdl-checker/internal/lsp"
	"github.com/suoto/hdl-checker/internal/mcpapi"
	"github.com/suoto/hdl-checker/internal/server"
)

// Exit codes for the `check` subcommand (spec §6).
const (
	exitOK           = 0
	exitBuildError   = 1
	exitConfigFailed = 2
)

func main() {
	app := &cli.App{
		Name:                   "hdlchecker",
		Usage:                  "Incremental VHDL/(System)Verilog project analyzer",
		Version:                server.Version,
		UseShortOptionHandling: true,
		Commands: []*cli.Command{
			{
				Name:   "lsp",
				Usage:  "Run as a Language Server Protocol server over stdio",
				Action: lspCommand,
			},
			{
				Name:  "http",
				Usage: "Run the HTTP daemon",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Address to listen on",
						Value: "127.0.0.1:50051",
					},
				},
				Action: httpCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Run an MCP server with stdio transport",
				Action: mcpCommand,
			},
			{
				Name:      "check",
				Usage:     "Build a project once and report diagnostics for every configured source",
				ArgsUsage: "PROJECT_FILE",
				Action:    checkCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "hdlchecker: %v\n", err)
		os.Exit(exitConfigFailed)
	}
}

func lspCommand(c *cli.Context) error {
	ctx := server.New(nil)
	srv := lsp.New(os.Stdin, os.Stdout, ctx, nil)
	defer ctx.Shutdown()
	return srv.Run()
}

func httpCommand(c *cli.Context) error {
	ctx := server.New(nil)
	defer ctx.Shutdown()

	notifyShutdown := make(chan struct{})
	handler := httpapi.New(ctx, nil, func() { close(notifyShutdown) })

	httpServer := &http.Server{Addr: c.String("addr"), Handler: handler.Mux()}
	serveErr := make(chan error, 1)
	go func() { serveErr <- httpServer.ListenAndServe() }()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-notifyShutdown:
		httpServer.Shutdown(context.Background())
	case <-sigs:
		httpServer.Shutdown(context.Background())
	}
	return nil
}

func mcpCommand(c *cli.Context) error {
	ctx := server.New(nil)
	defer ctx.Shutdown()
	return mcpapi.New(ctx, nil).Run(context.Background())
}

func checkCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: hdlchecker check PROJECT_FILE")
		os.Exit(exitConfigFailed)
	}
	projectFile := c.Args().Get(0)

	ctx := server.New(nil)
	proj, err := ctx.Project(context.Background(), projectFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hdlchecker: %v\n", err)
		os.Exit(exitConfigFailed)
	}
	proj.WaitForBuild()

	hasError := false
	for _, path := range proj.Paths() {
		diags, err := proj.MessagesFor(context.Background(), path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hdlchecker: %v\n", err)
			os.Exit(exitConfigFailed)
		}
		for _, d := range diags {
			printDiagnostic(d)
			if d.Severity == diagnostics.Error {
				hasError = true
			}
		}
	}

	if err := proj.Persist(); err != nil {
		fmt.Fprintf(os.Stderr, "hdlchecker: failed to persist cache: %v\n", err)
	}

	if hasError {
		os.Exit(exitBuildError)
	}
	os.Exit(exitOK)
	return nil
}

func printDiagnostic(d diagnostics.Diagnostic) {
	severityColor := color.New(color.FgWhite)
	switch d.Severity {
	case diagnostics.Error, diagnostics.StyleError:
		severityColor = color.New(color.FgRed)
	case diagnostics.Warning, diagnostics.StyleWarning:
		severityColor = color.New(color.FgYellow)
	}

	location := ""
	if d.Path != nil {
		location = d.Path.String()
	}
	if d.Line != nil {
		location += fmt.Sprintf(":%d", *d.Line)
		if d.Column != nil {
			location += fmt.Sprintf(":%d", *d.Column)
		}
	}

	severityColor.Fprintf(os.Stdout, "%s", d.Severity.String())
	fmt.Fprintf(os.Stdout, " %s: %s\n", location, d.Text)
}
