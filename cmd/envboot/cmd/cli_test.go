package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/oneconcern/envboot/internal/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

const (
	testDataset = "places365_standard"
	testArchive = "places365standard_easyformat.tar"
)

type cliResult struct {
	code   int
	exited bool
	stdout string
	stderr string
}

// runCLI executes envboot with args, catching calls to os.Exit
func runCLI(t testing.TB, args ...string) cliResult {
	t.Helper()
	return runCLIContext(context.Background(), t, args...)
}

func runCLIContext(ctx context.Context, t testing.TB, args ...string) cliResult {
	t.Helper()
	var (
		res            cliResult
		stdout, stderr bytes.Buffer
	)
	app := newCLI()
	app.exit = func(code int) {
		if !res.exited {
			res.exited = true
			res.code = code
		}
	}
	rootCmd := newRootCmd(app)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)

	app.execute(ctx, rootCmd)
	res.stdout, res.stderr = stdout.String(), stderr.String()
	return res
}

// testEnv lays out a work directory with a staging directory and a fake package manager
type testEnv struct {
	dir     string
	data    string
	script  string
	record  string
	archive []byte
	srv     *httptest.Server
	gets    int32
}

func newTestEnv(t *testing.T, archive []byte) *testEnv {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	t.Setenv("HOME", t.TempDir())

	env := &testEnv{
		dir:     t.TempDir(),
		archive: archive,
	}
	env.data = filepath.Join(env.dir, "datasets")
	require.NoError(t, os.MkdirAll(env.data, 0755))

	env.record = filepath.Join(env.dir, "pip-args.txt")
	env.script = filepath.Join(env.dir, "fake-pip")
	content := `#!/bin/sh
echo "$@" > "` + env.record + `"
if [ -n "$FAKE_PM_EXIT" ]; then
  echo "no setup.py or pyproject.toml found" >&2
  exit "$FAKE_PM_EXIT"
fi
`
	require.NoError(t, os.WriteFile(env.script, []byte(content), 0700))

	env.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			atomic.AddInt32(&env.gets, 1)
		}
		if r.URL.Path != "/places/"+testArchive {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(env.archive)
	}))
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) args(extra ...string) []string {
	return append([]string{
		"--package-path", filepath.Join(e.dir, "pkg"),
		"--package-command", e.script + " install -e",
		"--dataset-url", e.srv.URL + "/places/" + testArchive,
		"--dataset-dir", e.data,
		"--staging-dir", e.data,
		"--loglevel", "none",
	}, extra...)
}

func (e *testEnv) requests() int {
	return int(atomic.LoadInt32(&e.gets))
}

func (e *testEnv) datasetExists() bool {
	info, err := os.Stat(filepath.Join(e.data, testDataset))
	return err == nil && info.IsDir()
}

func (e *testEnv) archiveExists() bool {
	_, err := os.Stat(filepath.Join(e.data, testArchive))
	return err == nil
}

func (e *testEnv) installed(t testing.TB) bool {
	args, err := os.ReadFile(e.record)
	if os.IsNotExist(err) {
		return false
	}
	require.NoError(t, err)
	assert.Equal(t, "install -e "+filepath.Join(e.dir, "pkg"), strings.TrimSpace(string(args)))
	return true
}

func datasetArchive(t testing.TB) []byte {
	return fixtures.Tarball(t, fixtures.Plain, fixtures.DatasetTree(testDataset, 2, 2, 256)...)
}

func TestBootstrap(t *testing.T) {
	env := newTestEnv(t, datasetArchive(t))

	res := runCLI(t, env.args()...)
	require.Falsef(t, res.exited, "unexpected exit %d: %s", res.code, res.stderr)

	assert.True(t, env.installed(t))
	assert.True(t, env.datasetExists())
	assert.False(t, env.archiveExists())
	assert.Equal(t, 1, env.requests())
	assert.Contains(t, res.stdout, "install")
	assert.Contains(t, res.stdout, "8 files")

	_, err := os.Stat(filepath.Join(env.data, testDataset, "val", "class_001", "00000001.jpg"))
	require.NoError(t, err)

	// a second run does not download anything
	res = runCLI(t, env.args()...)
	require.False(t, res.exited)
	assert.Equal(t, 1, env.requests())
	assert.Contains(t, res.stdout, filepath.Join(env.data, testDataset)+" already exists, skipping download")
}

func TestBootstrapSkipsExistingDataset(t *testing.T) {
	env := newTestEnv(t, []byte("never served"))
	marker := filepath.Join(env.data, testDataset, "anything.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(marker), 0755))
	require.NoError(t, os.WriteFile(marker, []byte("left alone"), 0600))

	res := runCLI(t, env.args()...)
	require.False(t, res.exited)

	assert.Equal(t, 0, env.requests())
	assert.Contains(t, res.stdout, "skipping download")
	content, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "left alone", string(content))
}

func TestBootstrapUnreachable(t *testing.T) {
	env := newTestEnv(t, datasetArchive(t))
	env.srv.Close()

	res := runCLI(t, env.args()...)
	require.True(t, res.exited)
	assert.Equal(t, exitNetwork, res.code)
	assert.Contains(t, res.stderr, "fetch: download failed")

	assert.True(t, env.installed(t), "the install step does not depend on the fetch step")
	assert.False(t, env.datasetExists())
	assert.False(t, env.archiveExists())
}

func TestBootstrapInstallFailure(t *testing.T) {
	t.Setenv("FAKE_PM_EXIT", "1")

	t.Run("both steps run", func(t *testing.T) {
		env := newTestEnv(t, datasetArchive(t))
		res := runCLI(t, env.args()...)
		require.True(t, res.exited)
		assert.Equal(t, exitInstall, res.code)
		assert.Contains(t, res.stderr, "install: package install failed")
		assert.Contains(t, res.stderr, "no setup.py or pyproject.toml found")
		assert.True(t, env.datasetExists())
	})

	t.Run("fail fast", func(t *testing.T) {
		env := newTestEnv(t, datasetArchive(t))
		res := runCLI(t, env.args("--fail-fast")...)
		require.True(t, res.exited)
		assert.Equal(t, exitInstall, res.code)
		assert.Equal(t, 0, env.requests())
		assert.False(t, env.datasetExists())
		assert.Contains(t, res.stdout, "not run")
	})

	t.Run("parallel", func(t *testing.T) {
		env := newTestEnv(t, datasetArchive(t))
		res := runCLI(t, env.args("--parallel")...)
		require.True(t, res.exited)
		assert.Equal(t, exitInstall, res.code)
		assert.True(t, env.datasetExists())
	})

	t.Run("skipped", func(t *testing.T) {
		env := newTestEnv(t, datasetArchive(t))
		res := runCLI(t, env.args("--skip-install")...)
		require.False(t, res.exited)
		assert.False(t, env.installed(t))
		assert.True(t, env.datasetExists())
	})
}

func TestFetchCorruptArchive(t *testing.T) {
	garbage := []byte(strings.Repeat("definitely not a tarball ", 64))

	env := newTestEnv(t, garbage)
	res := runCLI(t, append([]string{"fetch"}, env.args()...)...)
	require.True(t, res.exited)
	assert.Equal(t, exitExtract, res.code)
	assert.False(t, env.archiveExists())
	assert.False(t, env.installed(t))

	env = newTestEnv(t, garbage)
	res = runCLI(t, append([]string{"fetch"}, env.args("--keep-archive-on-failure")...)...)
	require.True(t, res.exited)
	assert.Equal(t, exitExtract, res.code)
	assert.True(t, env.archiveExists())
}

func TestFetchMissingStaging(t *testing.T) {
	env := newTestEnv(t, datasetArchive(t))
	res := runCLI(t, append([]string{"fetch"}, env.args("--staging-dir", filepath.Join(env.dir, "nowhere"))...)...)
	require.True(t, res.exited)
	assert.Equal(t, exitFilesystem, res.code)
	assert.Equal(t, 0, env.requests())
}

func TestInstallCommand(t *testing.T) {
	env := newTestEnv(t, nil)
	// the dataset settings are not checked when only installing
	res := runCLI(t, append([]string{"install"}, env.args("--dataset-url", "ftp://nowhere")...)...)
	require.Falsef(t, res.exited, "unexpected exit %d: %s", res.code, res.stderr)
	assert.True(t, env.installed(t))
	assert.Equal(t, 0, env.requests())

	// the last occurrence of a flag wins
	missing := filepath.Join(env.dir, "no-such-pip")
	res = runCLI(t, append([]string{"config"}, env.args("--package-command", missing+" install --editable")...)...)
	require.Falsef(t, res.exited, "unexpected exit %d: %s", res.code, res.stderr)
	var config Config
	require.NoError(t, yaml.Unmarshal([]byte(res.stdout), &config))
	assert.Equal(t, []string{missing, "install", "--editable"}, config.Package.Command)

	res = runCLI(t, append([]string{"install"}, env.args("--package-command", missing+" install -e")...)...)
	require.True(t, res.exited)
	assert.Equal(t, exitInstall, res.code)
	assert.Contains(t, res.stderr, "package manager unavailable")
}

func TestBootstrapInterrupted(t *testing.T) {
	env := newTestEnv(t, datasetArchive(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := runCLIContext(ctx, t, env.args()...)
	require.True(t, res.exited, "an interrupted run does not succeed")
	assert.Equal(t, exitGeneral, res.code)
	assert.Contains(t, res.stderr, "interrupted")
	assert.Contains(t, res.stdout, "cancelled")

	assert.False(t, env.installed(t))
	assert.Equal(t, 0, env.requests())
	assert.False(t, env.datasetExists())
}

func TestInvalidArguments(t *testing.T) {
	env := newTestEnv(t, nil)

	for name, args := range map[string][]string{
		"log level":    env.args("--loglevel", "chatty"),
		"dataset url":  env.args("--dataset-url", "ftp://example.com/ds.tar"),
		"unknown flag": env.args("--no-such-flag"),
		"extra args":   append(env.args(), "extra"),
		"package path": env.args("--package-path", ""),
	} {
		args := args
		t.Run(name, func(t *testing.T) {
			res := runCLI(t, args...)
			require.True(t, res.exited)
			assert.Equal(t, exitInvalidConfig, res.code)
		})
	}
	assert.Equal(t, 0, env.requests())
	assert.False(t, env.installed(t))
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	file := filepath.Join(dir, "envboot.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
dataset:
  url: https://example.com/mirror/places365.tar.gz
  keep-archive-on-failure: true
run:
  fail-fast: true
`), 0600))
	t.Setenv(configEnv, file)
	t.Setenv("ENVBOOT_DATASET_NAME", "from-env")
	t.Setenv("ENVBOOT_PACKAGE_COMMAND", "uv pip install -e")
	t.Setenv("ENVBOOT_RUN_SKIP_FETCH", "true")

	res := runCLI(t, "config", "--parallel", "--run-skip-fetch-is-not-a-flag")
	require.True(t, res.exited, "unknown flags are rejected")

	res = runCLI(t, "config", "--parallel", "--skip-fetch=false")
	require.Falsef(t, res.exited, "unexpected exit %d: %s", res.code, res.stderr)
	assert.Contains(t, res.stdout, "# config file: "+file)

	var config Config
	require.NoError(t, yaml.Unmarshal([]byte(res.stdout), &config))
	assert.Equal(t, Config{
		Package: PackageConfig{
			Path:    defaultPkg,
			Command: []string{"uv", "pip", "install", "-e"},
		},
		Dataset: DatasetConfig{
			URL:                  "https://example.com/mirror/places365.tar.gz",
			Dir:                  defaultDir,
			Name:                 "from-env",
			Staging:              defaultDir,
			KeepArchiveOnFailure: true,
		},
		Run: RunConfig{
			FailFast:    true,
			Parallel:    true,
			SkipInstall: false,
			SkipFetch:   false,
		},
		LogLevel: defaultLevel,
	}, config)
}

func TestConfigFileMissing(t *testing.T) {
	t.Setenv(configEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	res := runCLI(t, "config")
	require.True(t, res.exited)
	assert.Equal(t, exitInvalidConfig, res.code)
	assert.Contains(t, res.stderr, "invalid configuration")
}

func TestVersion(t *testing.T) {
	// the version is printed whatever the configuration
	t.Setenv(configEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	res := runCLI(t, "version")
	require.False(t, res.exited)
	assert.Contains(t, res.stdout, "Version: dev")
}
