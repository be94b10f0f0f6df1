package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		flagTariffOut = ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTariffQuote(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "", "tariff", "quote", "150")
	require.NoError(t, err)
	assert.Contains(t, out, "101-150")
	assert.Contains(t, out, "Total: 375.00")

	_, err = execute(t, "", "tariff", "quote", "lots")
	assert.Error(t, err)
}

func TestTariffImport(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	order := filepath.Join(dir, "order.txt")
	require.NoError(t, os.WriteFile(order, []byte(
		"First 100 units Rs. 2.00 per unit\nAbove 100 units Rs. 5.00 per unit\nMinimum charge Rs. 30\n"), 0o644))

	out, err := execute(t, "", "tariff", "import", order)
	require.NoError(t, err)
	assert.Contains(t, out, `minimum_charge = "30.00"`)
	assert.Contains(t, out, `rate = "5.00"`)

	dest := filepath.Join(dir, "tariff.toml")
	out, err = execute(t, "", "tariff", "import", order, "--out", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 slabs")
	assert.FileExists(t, dest)
}

func TestHashPassword(t *testing.T) {
	out, err := execute(t, "s3cret\n", "hash-password")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}
