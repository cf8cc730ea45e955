package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/neko233-com/csv233-go/pkg/csv233"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp(&out)
	app.ErrWriter = &bytes.Buffer{}
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	err := app.Run(append([]string{"csv233", "--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	return out.String(), err
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestShow(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "Student.csv", "id,name\n1,a\n2,b\n3,c\n")

	out, err := runApp(t, "show", "--limit", "2", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2 columns, 3 rows")
	assert.Contains(t, out, "id | name")
	assert.Contains(t, out, "1 | a")
	assert.Contains(t, out, "2 | b")
	assert.NotContains(t, out, "3 | c")
	assert.Contains(t, out, "... 1 more rows")
}

func TestShowSeparatorFlag(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "Semi.csv", "a;b\n1;2\n")

	out, err := runApp(t, "--separator", ";", "show", path)
	require.NoError(t, err)
	assert.Contains(t, out, "a | b")
	assert.Contains(t, out, "1 | 2")
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := writeCSV(t, dir, "good.csv", "x,y\n1,2\n")
	bad := writeCSV(t, dir, "bad.csv", "x,y\n1,2\n3\n")

	out, err := runApp(t, "check", good, bad)
	require.Error(t, err)
	assert.Contains(t, out, "OK   "+good)
	assert.Contains(t, out, "FAIL "+bad)

	_, err = runApp(t, "check", good)
	require.NoError(t, err)
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	src := writeCSV(t, dir, "Student.csv", "id,name\n1,a\n")
	dst := filepath.Join(dir, "Student.json")

	_, err := runApp(t, "convert", src, dst)
	require.NoError(t, err)

	table, err := csv233.NewDefaultRegistry(',').ReadTable(dst, ',')
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, table.Header())
	assert.Equal(t, [][]string{{"1", "a"}}, table.Rows())
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "A.csv", "id\n1\n")
	writeCSV(t, dir, "B.csv", "id,name\n1,b\n")
	writeCSV(t, dir, "notes.md", "skip")
	outDir := filepath.Join(t.TempDir(), "out")

	_, err := runApp(t, "batch", "--to", "tsv", dir, outDir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "B.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "id\tname\n1\tb\n", string(data))
	assert.FileExists(t, filepath.Join(outDir, "A.tsv"))
	assert.NoFileExists(t, filepath.Join(outDir, "notes.tsv"))

	_, err = runApp(t, "batch", "--to", "yaml", dir, outDir)
	require.Error(t, err)
}

func TestUsageErrors(t *testing.T) {
	_, err := runApp(t, "show")
	require.Error(t, err)
	_, err = runApp(t, "convert", "only-one")
	require.Error(t, err)
	_, err = runApp(t, "--log-level", "loud", "check", "x.csv")
	require.Error(t, err)
}
