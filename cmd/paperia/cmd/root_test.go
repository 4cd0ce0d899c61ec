package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	root := GetRootCommand()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "paperia", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)

	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"migrate", "dbhealth", "ocr", "ingest", "watch", "export"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCommandHelp(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "human review")
}

func TestArgsValidation(t *testing.T) {
	_, err := run(t, "ocr")
	assert.Error(t, err)

	_, err = run(t, "ingest")
	assert.Error(t, err)

	_, err = run(t, "export", "--from", "01/02/2024")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--from must be YYYY-MM-DD")
}

func TestMigrateHealthExport(t *testing.T) {
	dir := t.TempDir()
	dsnFlag := "sqlite://" + filepath.Join(dir, "cli.db")
	t.Setenv("DB_URL", "")
	t.Setenv("PAPERIA_DATABASE_DSN", "")

	out, err := run(t, "migrate", "--dsn", dsnFlag, "--env-file", filepath.Join(dir, "missing.env"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "schema up to date")

	out, err = run(t, "dbhealth", "--dsn", dsnFlag)
	require.NoError(t, err, out)
	assert.Contains(t, out, "DB health: OK")
	assert.Contains(t, out, "documents: 0 (0 reviewed)")

	xlsx := filepath.Join(dir, "out.xlsx")
	out, err = run(t, "export", "--dsn", dsnFlag, "--out", xlsx, "--from", "2024-01-01")
	require.NoError(t, err, out)
	assert.Contains(t, out, "wrote "+xlsx)
	assert.FileExists(t, xlsx)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("WARN").String())
	assert.Equal(t, "INFO", parseLevel("bogus").String())
}
