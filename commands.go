package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcncl/rnbdview/internal/browse"
	"github.com/mcncl/rnbdview/internal/config"
	"github.com/mcncl/rnbdview/internal/errors"
	"github.com/mcncl/rnbdview/internal/parser"
	"github.com/mcncl/rnbdview/internal/remote"
	"github.com/mcncl/rnbdview/internal/render"
	"github.com/mcncl/rnbdview/internal/server"
	"github.com/mcncl/rnbdview/internal/tree"
	"go.uber.org/zap"
)

// ShowCmd prints a dump as a tree or as flat paths.
type ShowCmd struct {
	Input   string `help:"Path to input dump (.json, .gz, .zst or .lz4). If not specified, reads from stdin." short:"i" type:"path"`
	Output  string `help:"Path to output file. If not specified, writes to stdout." short:"o" type:"path"`
	Format  string `help:"Output format: tree or paths." short:"F" placeholder:"FORMAT"`
	NoColor bool   `help:"Disable colored output." name:"no-color"`
}

// Run implements the show command.
func (c *ShowCmd) Run(ctx *Context) error {
	display := ctx.Config.Display
	if c.Format != "" {
		display.Format = c.Format
	}
	if c.NoColor || c.Output != "" {
		display.Color = false
	}
	if err := validateFormat(display.Format); err != nil {
		return err
	}

	doc, err := readInput(ctx, c.Input)
	if err != nil {
		return err
	}
	t, err := buildTree(ctx, doc)
	if err != nil {
		return err
	}
	return emit(ctx, display, t, title(doc), c.Output)
}

// BrowseCmd opens a dump in the terminal browser.
type BrowseCmd struct {
	Input string `help:"Path to input dump (.json, .gz, .zst or .lz4). If not specified, reads from stdin." short:"i" type:"path"`
}

// Run implements the browse command.
func (c *BrowseCmd) Run(ctx *Context) error {
	doc, err := readInput(ctx, c.Input)
	if err != nil {
		return err
	}
	t, err := buildTree(ctx, doc)
	if err != nil {
		return err
	}
	return browse.Run(t, title(doc))
}

// FetchCmd pulls the dump of a remote host over ssh.
type FetchCmd struct {
	Host    string `arg:"" help:"Host to fetch the dump from."`
	Output  string `help:"Save the dump to this file; .gz, .zst and .lz4 are compressed." short:"o" type:"path"`
	View    bool   `help:"Render the fetched dump as a tree instead of printing it."`
	Browse  bool   `help:"Open the fetched dump in the browser."`
	Command string `help:"Dump command to run on the host." placeholder:"CMD"`
}

// Run implements the fetch command.
func (c *FetchCmd) Run(ctx *Context) error {
	remoteCfg := ctx.Config.Remote
	if c.Command != "" {
		remoteCfg.DumpCommand = c.Command
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := remote.NewFetcher(ctx.Runner, remoteCfg, ctx.Logger)
	data, err := fetcher.Fetch(sigCtx, c.Host)
	if err != nil {
		return err
	}

	if c.Output != "" {
		if err := writeOutput(ctx, c.Output, data, fmt.Sprintf("Dump of %s", c.Host)); err != nil {
			return err
		}
	}
	if !c.View && !c.Browse {
		if c.Output != "" {
			return nil
		}
		return writeOutput(ctx, "", data, "")
	}

	doc, err := parser.ParseBytes(data, c.Host)
	if err != nil {
		return err
	}
	t, err := buildTree(ctx, doc)
	if err != nil {
		return err
	}
	if c.Browse {
		return browse.Run(t, c.Host)
	}
	return emit(ctx, ctx.Config.Display, t, c.Host, "")
}

// ServeCmd exposes the local dump over HTTP.
type ServeCmd struct {
	Port     int    `arg:"" optional:"" help:"Port to listen on (default 8000)."`
	Bind     string `help:"Address to bind to. Defaults to all interfaces." placeholder:"ADDR"`
	Command  string `help:"Command that prints the dump." placeholder:"CMD"`
	Compress bool   `help:"Gzip responses for clients that accept it."`
}

// Run implements the serve command.
func (c *ServeCmd) Run(ctx *Context) error {
	serverCfg := ctx.Config.Server
	if c.Port != 0 {
		serverCfg.Port = c.Port
	}
	if c.Bind != "" {
		serverCfg.Bind = c.Bind
	}
	if c.Command != "" {
		serverCfg.DumpCommand = c.Command
	}
	if c.Compress {
		serverCfg.Compress = true
	}
	if serverCfg.Port < 0 || serverCfg.Port > 65535 {
		return errors.NewConfigError(fmt.Sprintf("invalid port %d", serverCfg.Port), nil)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(serverCfg, ctx.Runner, ctx.Logger)
	ctx.Logger.Info("Starting server", zap.String("addr", srv.Addr()))
	return srv.ListenAndServe(sigCtx)
}

func validateFormat(format string) error {
	switch format {
	case config.FormatTree, config.FormatPaths:
		return nil
	default:
		return errors.NewConfigError(
			fmt.Sprintf("unknown format %q (want %q or %q)", format, config.FormatTree, config.FormatPaths), nil)
	}
}

// emit renders t and writes it to path, or stdout when path is empty.
func emit(ctx *Context, display config.DisplayConfig, t *tree.Tree, title, path string) error {
	var buf bytes.Buffer
	if err := render.NewRenderer(display).Render(&buf, t, title); err != nil {
		return errors.NewOutputError("failed to render tree", err)
	}
	return writeOutput(ctx, path, buf.Bytes(), "Tree")
}
