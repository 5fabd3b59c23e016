package e2e

import (
	"bytes"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	addr := freeAddr(t)
	serverURL := "http://" + addr

	server := exec.Command(binaryPath, "serve", "--addr", addr, "--store", "sqlite", "--db", filepath.Join(home, "sessions.db"))
	server.Env = testEnv(home)
	var serverOut bytes.Buffer
	server.Stdout = &serverOut
	server.Stderr = &serverOut
	require.NoError(t, server.Start())
	t.Cleanup(func() { _ = server.Process.Kill() })

	require.Eventually(t, func() bool {
		_, _, err := runSessiond(t, binaryPath, home, "sessions", "list", "--server", serverURL)
		return err == nil
	}, 10*time.Second, 50*time.Millisecond)

	_, stderr, err := runSessiond(t, binaryPath, home, "run", "--app", "smoke", "--task", "noop", "--server", serverURL, "--", "true")
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err := runSessiond(t, binaryPath, home, "sessions", "list", "--server", serverURL)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "No active sessions.")

	stdout, stderr, err = runSessiond(t, binaryPath, home, "sessions", "sweep", "--server", serverURL)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "deleted 0 stale session(s)")

	require.NoError(t, server.Process.Signal(syscall.SIGTERM))
	require.NoError(t, server.Wait(), "server output: %s", serverOut.String())
	assert.Contains(t, serverOut.String(), "listening on "+serverURL)
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "sessiond-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/sessiond")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build sessiond binary: %s", string(output))
	return binaryPath
}

func runSessiond(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = testEnv(home)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func testEnv(home string) []string {
	return append(os.Environ(), "HOME="+home, "SESSIOND_CONFIG="+filepath.Join(home, ".sessiond"))
}

func freeAddr(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return addr
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}
