package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mcncl/rnbdview/internal/command"
	"github.com/mcncl/rnbdview/internal/config"
	apperrors "github.com/mcncl/rnbdview/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

// fakeRunner answers by program name and records every call.
type fakeRunner struct {
	results map[string]command.Result
	errs    map[string]error
	calls   []call
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (command.Result, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	return f.results[name], f.errs[name]
}

func remoteConfig() config.RemoteConfig {
	return config.NewConfig().Remote
}

func TestProber_Args(t *testing.T) {
	p := &Prober{Timeout: 1500 * time.Millisecond}
	assert.Equal(t, []string{"-c", "1", "-W", "2", "server1"}, p.Args("server1"))

	p.Timeout = 0
	assert.Equal(t, []string{"-c", "1", "-W", "1", "server1"}, p.Args("server1"))
}

func TestProber_Probe(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		runner := &fakeRunner{}
		p := NewProber(runner, remoteConfig(), nil)

		assert.True(t, p.Probe(context.Background(), "server1"))
		require.Len(t, runner.calls, 1)
		assert.Equal(t, "ping", runner.calls[0].name)
		assert.Equal(t, []string{"-c", "1", "-W", "10", "server1"}, runner.calls[0].args)
	})

	t.Run("no answer", func(t *testing.T) {
		runner := &fakeRunner{
			results: map[string]command.Result{"ping": {ExitCode: 1}},
			errs:    map[string]error{"ping": fmt.Errorf("ping: exit status 1")},
		}
		p := NewProber(runner, remoteConfig(), nil)
		assert.False(t, p.Probe(context.Background(), "server1"))
	})

	t.Run("option-like host never reaches ping", func(t *testing.T) {
		runner := &fakeRunner{}
		p := NewProber(runner, remoteConfig(), nil)
		assert.False(t, p.Probe(context.Background(), "-oProxyCommand=x"))
		assert.Empty(t, runner.calls)
	})
}

func TestFetcher_Args(t *testing.T) {
	f := NewFetcher(&fakeRunner{}, remoteConfig(), nil)
	assert.Equal(t,
		[]string{"-o", "BatchMode=yes", "-o", "ConnectTimeout=10", "server1", config.DefaultDumpCommand},
		f.Args("server1"))
}

func TestFetcher_Fetch(t *testing.T) {
	dump := []byte(`{"exports":[{"mapping_path":"/dev/x","state":"open"}]}`)
	runner := &fakeRunner{
		results: map[string]command.Result{"ssh": {Stdout: dump}},
	}
	f := NewFetcher(runner, remoteConfig(), nil)

	got, err := f.Fetch(context.Background(), "server1")
	require.NoError(t, err)
	assert.Equal(t, dump, got)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, "ping", runner.calls[0].name)
	assert.Equal(t, "ssh", runner.calls[1].name)
}

func TestFetcher_Unreachable(t *testing.T) {
	runner := &fakeRunner{
		errs: map[string]error{"ping": fmt.Errorf("ping: exit status 2")},
	}
	f := NewFetcher(runner, remoteConfig(), nil)

	got, err := f.Fetch(context.Background(), "server1")
	require.Error(t, err)
	assert.Empty(t, got)
	assert.True(t, errors.Is(err, apperrors.ErrUnreachable))
	assert.Len(t, runner.calls, 1, "ssh must not run when the probe fails")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeRemote, appErr.Type)
}

func TestFetcher_SSHFailure(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]command.Result{"ssh": {
			Stdout:   []byte(`{"partial"`),
			Stderr:   []byte("Permission denied (publickey).\n"),
			ExitCode: 255,
		}},
		errs: map[string]error{"ssh": fmt.Errorf("ssh: exit status 255")},
	}
	f := NewFetcher(runner, remoteConfig(), nil)

	got, err := f.Fetch(context.Background(), "server1")
	require.Error(t, err)
	assert.Empty(t, got, "partial output is discarded")
	assert.Contains(t, err.Error(), "Permission denied")
}

func TestFetcher_EmptyOutput(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]command.Result{"ssh": {Stdout: []byte("\n  \n")}},
	}
	f := NewFetcher(runner, remoteConfig(), nil)

	got, err := f.Fetch(context.Background(), "server1")
	require.Error(t, err)
	assert.Empty(t, got)
	assert.True(t, errors.Is(err, apperrors.ErrEmptyDump))
}

func TestFetcher_NoProber(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]command.Result{"ssh": {Stdout: []byte("{}")}},
	}
	f := NewFetcher(runner, remoteConfig(), nil)
	f.Prober = nil

	_, err := f.Fetch(context.Background(), "server1")
	require.NoError(t, err)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "ssh", runner.calls[0].name)
}

func TestFetcher_ZeroLogger(t *testing.T) {
	runner := &fakeRunner{
		errs: map[string]error{"ping": fmt.Errorf("ping: exit status 1")},
	}
	f := &Fetcher{
		Runner:      runner,
		SSHCommand:  "ssh",
		DumpCommand: config.DefaultDumpCommand,
		Prober:      &Prober{Runner: runner, Command: "ping"},
	}

	_, err := f.Fetch(context.Background(), "server1")
	assert.True(t, errors.Is(err, apperrors.ErrUnreachable))
	assert.False(t, f.Prober.Probe(context.Background(), "-oProxyCommand=x"))
}

func TestFetcher_InvalidHost(t *testing.T) {
	for _, host := range []string{"", "  ", "-F/tmp/evil", "two hosts"} {
		t.Run(fmt.Sprintf("%q", host), func(t *testing.T) {
			runner := &fakeRunner{}
			f := NewFetcher(runner, remoteConfig(), nil)

			_, err := f.Fetch(context.Background(), host)
			require.Error(t, err)
			assert.Empty(t, runner.calls)
		})
	}
}
