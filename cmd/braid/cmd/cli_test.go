package cmd

import (
	"io"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ExitMocks struct {
	mock.Mock
	fatalCalls int
}

func (m *ExitMocks) Fatalf(format string, v ...interface{}) {
	m.fatalCalls++
}

func (m *ExitMocks) Fatalln(v ...interface{}) {
	m.fatalCalls++
}

// https://github.com/stretchr/testify/issues/610
func MakeFatalfMock(m *ExitMocks) func(string, ...interface{}) {
	return func(format string, v ...interface{}) {
		m.Fatalf(format, v...)
	}
}

func MakeFatallnMock(m *ExitMocks) func(...interface{}) {
	return func(v ...interface{}) {
		m.Fatalln(v...)
	}
}

var exitMocks *ExitMocks

func setupCLITest(t *testing.T) string {
	t.Helper()
	exitMocks = new(ExitMocks)
	logFatalf = MakeFatalfMock(exitMocks)
	logFatalln = MakeFatallnMock(exitMocks)
	return t.TempDir()
}

// runCapture executes one braid invocation and returns the lines it printed
func runCapture(t *testing.T, args ...string) []string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	saved := infoLogger
	infoLogger = log.New(w, "", 0)
	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()
	infoLogger = saved
	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, execErr)
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func TestRecordRoundTrip(t *testing.T) {
	dir := setupCLITest(t)

	out := runCapture(t, "record", "create", "task", "--title", "Fix login flow", "--dir", dir)
	require.Equal(t, []string{"task-1"}, out)
	out = runCapture(t, "record", "create", "task", "--title", "Wire up logging", "--dir", dir)
	require.Equal(t, []string{"task-2"}, out)
	require.Equal(t, 0, exitMocks.fatalCalls)

	out = runCapture(t, "record", "list", "--dir", dir)
	require.Len(t, out, 2)
	require.Equal(t, "task-1 , task , open , Fix login flow", out[0])
	require.Equal(t, "task-2 , task , open , Wire up logging", out[1])

	out = runCapture(t, "record", "update", "task-1", "--status", "closed", "--dir", dir)
	require.Len(t, out, 1)
	require.NotEmpty(t, out[0]) // the new content hash

	out = runCapture(t, "record", "list", "--status", "closed", "--dir", dir)
	require.Len(t, out, 1)
	require.True(t, strings.HasPrefix(out[0], "task-1 , task , closed"))

	out = runCapture(t, "record", "get", "task-1", "--dir", dir)
	require.True(t, strings.HasPrefix(out[0], "# hash: "))
	require.Equal(t, 0, exitMocks.fatalCalls)
}

func TestRecordGetMissing(t *testing.T) {
	dir := setupCLITest(t)

	runCapture(t, "record", "get", "task-9", "--dir", dir)
	require.Equal(t, 1, exitMocks.fatalCalls)
}
