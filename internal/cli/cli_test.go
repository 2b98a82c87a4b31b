package cli_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/courier/internal/cli"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "courier.yaml")
	cfg := fmt.Sprintf(`
backend: pebble
timeout: 200ms
log:
  level: error
pebble:
  dir: %s
`, filepath.Join(dir, "data"))
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := cli.NewRoot("test")
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestEmitThenOnce(t *testing.T) {
	as := assert.New(t)
	cfg := writeConfig(t)

	_, err := run(t, "--config", cfg, "emit", "greetings", `"hello"`, "42", "plain")
	as.NoError(err)
	_, err = run(t, "--config", cfg, "emit", "greetings", `{"a":true}`)
	as.NoError(err)

	out, err := run(t, "--config", cfg, "once", "greetings", "-n", "2")
	as.NoError(err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	as.Equal([]string{`["hello",42,"plain"]`, `[{"a":true}]`}, lines)

	// every run starts from the beginning of the topic
	out, err = run(t, "--config", cfg, "once", "greetings")
	as.NoError(err)
	as.Equal(`["hello",42,"plain"]`, strings.TrimSpace(out))
}

func TestOnceTimesOut(t *testing.T) {
	as := assert.New(t)
	cfg := writeConfig(t)

	_, err := run(t, "--config", cfg, "once", "silence", "--timeout", "20ms")
	as.ErrorIs(err, cli.ErrTimedOut)
}

func TestPurge(t *testing.T) {
	as := assert.New(t)
	cfg := writeConfig(t)

	_, err := run(t, "--config", cfg, "emit", "t", "1")
	as.NoError(err)
	_, err = run(t, "--config", cfg, "purge", "t")
	as.NoError(err)
	_, err = run(t, "--config", cfg, "once", "t", "--timeout", "20ms")
	as.ErrorIs(err, cli.ErrTimedOut)
}

func TestInit(t *testing.T) {
	as := assert.New(t)
	path := filepath.Join(t.TempDir(), "courier.yaml")

	out, err := run(t, "init", path)
	as.NoError(err)
	as.Contains(out, path)
	_, err = os.Stat(path)
	as.NoError(err)

	_, err = run(t, "init", path)
	as.Error(err)
}

func TestBadBackendFlag(t *testing.T) {
	as := assert.New(t)
	cfg := writeConfig(t)
	_, err := run(t, "--config", cfg, "--backend", "tape", "emit", "t")
	as.ErrorContains(err, `backend "tape" is not valid`)
}

func TestMissingTopic(t *testing.T) {
	as := assert.New(t)
	cfg := writeConfig(t)
	_, err := run(t, "--config", cfg, "emit")
	as.Error(err)
}
