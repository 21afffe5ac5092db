package command

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_Stdout(t *testing.T) {
	requireShell(t)

	name, args := Shell(`printf '{"imports": null}'`)
	res, err := ExecRunner{}.Run(context.Background(), name, args...)
	require.NoError(t, err)
	assert.Equal(t, `{"imports": null}`, string(res.Stdout))
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.Truncated)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	requireShell(t)

	name, args := Shell(`echo partial; echo oops >&2; exit 3`)
	res, err := ExecRunner{}.Run(context.Background(), name, args...)
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "partial\n", string(res.Stdout))
	assert.Equal(t, "oops\n", string(res.Stderr))
}

func TestExecRunner_MissingProgram(t *testing.T) {
	res, err := ExecRunner{}.Run(context.Background(), "rnbdview-no-such-program")
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
}

func TestExecRunner_Timeout(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	name, args := Shell(`sleep 5`)
	_, err := ExecRunner{}.Run(ctx, name, args...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestExecRunner_Truncated(t *testing.T) {
	requireShell(t)

	name, args := Shell(`printf '0123456789'`)
	res, err := ExecRunner{MaxOutput: 4}.Run(context.Background(), name, args...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTruncated))
	assert.True(t, res.Truncated)
	assert.Equal(t, "0123", string(res.Stdout))
}

func TestLimitedWriter(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, max: 5}

	n, err := lw.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, lw.truncated)

	n, err = lw.Write([]byte("defg"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.True(t, lw.truncated)

	n, err = lw.Write([]byte("h"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "abcde", buf.String())
}

func TestShell(t *testing.T) {
	name, args := Shell("rnbd dump json all")
	assert.Equal(t, "sh", name)
	assert.Equal(t, []string{"-c", "rnbd dump json all"}, args)
}
