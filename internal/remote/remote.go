// Package remote probes hosts with ping and fetches dumps from them over ssh.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mcncl/rnbdview/internal/command"
	"github.com/mcncl/rnbdview/internal/config"
	apperrors "github.com/mcncl/rnbdview/internal/errors"
	"github.com/mcncl/rnbdview/internal/logging"
	"go.uber.org/zap"
)

// Prober checks whether a host answers a single ping.
type Prober struct {
	Runner  command.Runner
	Command string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewProber builds a Prober from the remote settings.
func NewProber(runner command.Runner, cfg config.RemoteConfig, logger *zap.Logger) *Prober {
	return &Prober{
		Runner:  runner,
		Command: cfg.PingCommand,
		Timeout: cfg.Timeout,
		Logger:  logger,
	}
}

// Args returns the ping arguments used for host.
func (p *Prober) Args(host string) []string {
	return []string{"-c", "1", "-W", seconds(p.Timeout), host}
}

// Probe reports whether host is reachable. Any failure to run ping counts as
// unreachable.
func (p *Prober) Probe(ctx context.Context, host string) bool {
	logger := logging.OrNop(p.Logger)
	if err := validateHost(host); err != nil {
		logger.Debug("Refusing to probe host", zap.String("host", host), zap.Error(err))
		return false
	}

	// ping's own -W bounds the wait; the context deadline catches a hung binary.
	ctx, cancel := context.WithTimeout(ctx, p.Timeout+5*time.Second)
	defer cancel()

	res, err := p.Runner.Run(ctx, p.command(), p.Args(host)...)
	if err != nil {
		logger.Debug("Probe failed",
			zap.String("host", host),
			zap.Int("exit_code", res.ExitCode),
			zap.Error(err))
		return false
	}
	logger.Debug("Probe succeeded", zap.String("host", host), zap.Duration("took", res.Duration))
	return true
}

func (p *Prober) command() string {
	if p.Command == "" {
		return "ping"
	}
	return p.Command
}

// Fetcher runs the dump command on a remote host over ssh.
type Fetcher struct {
	Runner      command.Runner
	SSHCommand  string
	SSHOptions  []string
	DumpCommand string
	Timeout     time.Duration

	// Prober, when set, is consulted before ssh is started.
	Prober *Prober
	Logger *zap.Logger
}

// NewFetcher builds a Fetcher, with a liveness probe, from the remote settings.
func NewFetcher(runner command.Runner, cfg config.RemoteConfig, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		Runner:      runner,
		SSHCommand:  cfg.SSHCommand,
		SSHOptions:  append([]string(nil), cfg.SSHOptions...),
		DumpCommand: cfg.DumpCommand,
		Timeout:     cfg.Timeout,
		Prober:      NewProber(runner, cfg, logger),
		Logger:      logger,
	}
}

// Args returns the ssh arguments used for host.
func (f *Fetcher) Args(host string) []string {
	args := append([]string(nil), f.SSHOptions...)
	args = append(args, "-o", "ConnectTimeout="+seconds(f.Timeout), host, f.DumpCommand)
	return args
}

// Fetch returns the dump printed by host. On any failure the payload is empty
// and the error says why.
func (f *Fetcher) Fetch(ctx context.Context, host string) ([]byte, error) {
	logger := logging.OrNop(f.Logger)

	if err := validateHost(host); err != nil {
		return nil, apperrors.NewRemoteError(fmt.Sprintf("invalid host %q", host), err)
	}

	if f.Prober != nil && !f.Prober.Probe(ctx, host) {
		logger.Warn("Host did not answer ping", zap.String("host", host))
		return nil, apperrors.NewRemoteError(fmt.Sprintf("cannot reach %s", host), apperrors.ErrUnreachable)
	}

	logger.Debug("Fetching dump",
		zap.String("host", host),
		zap.String("command", f.DumpCommand))

	res, err := f.Runner.Run(ctx, f.sshCommand(), f.Args(host)...)
	if err != nil {
		if msg := strings.TrimSpace(string(res.Stderr)); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, apperrors.NewRemoteError(fmt.Sprintf("dump from %s failed", host), err)
	}

	if len(bytes.TrimSpace(res.Stdout)) == 0 {
		return nil, apperrors.NewRemoteError(fmt.Sprintf("dump from %s failed", host), apperrors.ErrEmptyDump)
	}

	logger.Debug("Fetched dump",
		zap.String("host", host),
		zap.Int("bytes", len(res.Stdout)),
		zap.Duration("took", res.Duration))
	return res.Stdout, nil
}

func (f *Fetcher) sshCommand() string {
	if f.SSHCommand == "" {
		return "ssh"
	}
	return f.SSHCommand
}

// validateHost rejects names ssh or ping would read as an option.
func validateHost(host string) error {
	if strings.TrimSpace(host) == "" {
		return fmt.Errorf("host name is empty")
	}
	if strings.HasPrefix(host, "-") {
		return fmt.Errorf("host name must not start with '-'")
	}
	if strings.ContainsAny(host, " \t\n") {
		return fmt.Errorf("host name must not contain whitespace")
	}
	return nil
}

// seconds renders d as whole seconds, rounded up, never less than one.
func seconds(d time.Duration) string {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}
