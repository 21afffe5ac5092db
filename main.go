package main

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/mcncl/rnbdview/internal/command"
	"github.com/mcncl/rnbdview/internal/config"
	"github.com/mcncl/rnbdview/internal/dumpfile"
	"github.com/mcncl/rnbdview/internal/errors"
	"github.com/mcncl/rnbdview/internal/logging"
	"github.com/mcncl/rnbdview/internal/models"
	"github.com/mcncl/rnbdview/internal/parser"
	"github.com/mcncl/rnbdview/internal/projector"
	"github.com/mcncl/rnbdview/internal/tree"
	"go.uber.org/zap"
)

// CLI defines the command-line interface
type CLI struct {
	Config   string `help:"Path to a config file. Defaults to .rnbdview.yml in the current directory or a parent." type:"path"`
	Debug    bool   `help:"Enable debug logging." short:"d"`
	OnError  string `help:"What to do with list items lacking their key field: abort or placeholder." name:"on-error" placeholder:"POLICY"`
	MaxDepth int    `help:"Deepest nesting level to render." name:"max-depth"`
	Version  bool   `help:"Show version information." short:"v"`

	Show   ShowCmd   `cmd:"" default:"withargs" help:"Print the tree of a dump (default command)."`
	Browse BrowseCmd `cmd:"" help:"Browse a dump interactively."`
	Fetch  FetchCmd  `cmd:"" help:"Fetch the dump of a remote host over ssh."`
	Serve  ServeCmd  `cmd:"" help:"Serve the local dump over HTTP."`
}

// Context holds the runtime context shared by all commands
type Context struct {
	Config *config.Config
	Logger *zap.Logger
	Runner command.Runner
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Version information
const (
	Version = "0.1.0"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.LookupEnv))
}

// execute parses args, runs the selected command and returns the exit code.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer, lookup func(string) (string, bool)) int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("rnbdview"),
		kong.Description("View RNBD/IBNBD JSON dumps as a tree"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		// Usage has already been shown by kong.UsageOnError()
		return 1
	}

	if cli.Version {
		_, _ = fmt.Fprintf(stdout, "rnbdview version %s\n", Version)
		return 0
	}

	cfg, err := loadConfig(&cli, lookup)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%s\n", errors.UserFriendlyError(err))
		return 1
	}

	newLogger := logging.New
	if strings.HasPrefix(kctx.Command(), "serve") {
		newLogger = logging.NewServer
	}
	logger, err := newLogger(cfg.Dev.Debug)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	logger.Debug("Configuration loaded",
		zap.String("command", kctx.Command()),
		zap.String("on_error", cfg.Projection.OnError),
		zap.Int("max_depth", cfg.Projection.MaxDepth))

	appCtx := &Context{
		Config: cfg,
		Logger: logger,
		Runner: command.ExecRunner{},
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}
	if err := kctx.Run(appCtx); err != nil {
		// Use our custom error handling to provide user-friendly error messages
		_, _ = fmt.Fprintf(stderr, "%s\n", errors.UserFriendlyError(err))
		_, _ = fmt.Fprintf(stderr, "\nFor help, run: rnbdview --help\n")
		return 1
	}
	return 0
}

// loadConfig layers defaults, the config file, environment and global flags.
func loadConfig(cli *CLI, lookup func(string) (string, bool)) (*config.Config, error) {
	path := cli.Config
	if path == "" {
		path = config.FindConfigFile()
	}

	cfg, err := config.Load(path, lookup)
	if err != nil {
		return nil, errors.NewConfigError(err.Error(), err)
	}

	if cli.Debug {
		cfg.Dev.Debug = true
	}
	if cli.OnError != "" {
		cfg.Projection.OnError = cli.OnError
	}
	if cli.MaxDepth > 0 {
		cfg.Projection.MaxDepth = cli.MaxDepth
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewConfigError(err.Error(), err)
	}
	return cfg, nil
}

// readInput parses the dump at path, or from stdin when path is empty.
func readInput(ctx *Context, path string) (models.Document, error) {
	if path != "" {
		return parser.ParseFile(path)
	}

	if f, ok := ctx.Stdin.(*os.File); ok {
		stdinInfo, err := f.Stat()
		if err != nil {
			return models.Document{}, errors.NewInputError("failed to access stdin", err)
		}
		if (stdinInfo.Mode() & os.ModeCharDevice) != 0 {
			// Terminal is interactive (not piped)
			return models.Document{}, errors.NewInputError("no input provided", errors.ErrNoInput)
		}
	}

	data, err := io.ReadAll(ctx.Stdin)
	if err != nil {
		return models.Document{}, errors.NewInputError("failed to read from stdin", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Document{}, errors.NewInputError("empty input received from stdin", errors.ErrEmptyInput)
	}
	return parser.ParseBytes(data, "stdin")
}

// buildTree projects doc using the configured projection settings.
func buildTree(ctx *Context, doc models.Document) (*tree.Tree, error) {
	t, err := tree.Build(doc.Root,
		projector.WithErrorPolicy(ctx.Config.ErrorPolicy()),
		projector.WithMaxDepth(ctx.Config.Projection.MaxDepth),
		projector.WithLogger(ctx.Logger),
	)
	if err != nil {
		// Keyer errors carry their own hints
		var missing *errors.MissingFieldError
		var malformed *errors.MalformedInputError
		if stderrors.As(err, &missing) || stderrors.As(err, &malformed) {
			return nil, err
		}
		return nil, errors.NewProjectionError("failed to build tree", err)
	}

	ctx.Logger.Debug("Tree built",
		zap.String("source", doc.Source),
		zap.Int("nodes", t.Len()))
	return t, nil
}

// writeOutput writes text to the file at path, or to stdout when path is empty.
func writeOutput(ctx *Context, path string, data []byte, what string) error {
	if path != "" {
		if err := dumpfile.Write(path, data); err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", path), err)
		}
		_, _ = fmt.Fprintf(ctx.Stderr, "%s written to %s\n", what, path)
		return nil
	}

	if _, err := ctx.Stdout.Write(data); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

func title(doc models.Document) string {
	if doc.Source == "" {
		return "dump"
	}
	return doc.Source
}
