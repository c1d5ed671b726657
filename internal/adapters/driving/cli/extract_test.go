package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/reqspan/internal/core/domain"
)

func writeTestDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.md")
	content := "## 睡眠评分\n评分弹窗展示昨晚睡眠评分\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func resetExtractFlags() {
	extractJSON = false
	extractDocID = ""
	extractModulesOnly = false
	extractWatch = false
}

func TestExtractCmd_Use(t *testing.T) {
	assert.Equal(t, "extract [file]", extractCmd.Use)
}

func TestExtractCmd_RequiresInput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetExtractFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"extract"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--doc")
}

func TestExtractCmd_MatchesFromFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetExtractFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"extract", writeTestDoc(t)})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Found 1 modules")
	assert.Contains(t, buf.String(), "睡眠评分")
	assert.Contains(t, buf.String(), "lines 3-8")
	assert.Contains(t, buf.String(), "high")
}

func TestExtractCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetExtractFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"extract", "--json", writeTestDoc(t)})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	require.NoError(t, err)

	var matches []domain.ModuleMatch
	require.NoError(t, json.Unmarshal(buf.Bytes(), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "module_1", matches[0].ID)
	assert.Equal(t, [2]int{3, 8}, matches[0].Positions)
	assert.Equal(t, domain.ConfidenceHigh, matches[0].Confidence)
}

func TestExtractCmd_ModulesOnly(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetExtractFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"extract", "--modules-only", writeTestDoc(t)})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "睡眠评分")
	assert.Contains(t, buf.String(), "keywords: 评分弹窗")
	assert.NotContains(t, buf.String(), "lines")
}

func TestExtractCmd_StoredDocument(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetExtractFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"extract", "--doc", "doc-1"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Found 1 modules")
}

func TestExtractCmd_UnknownStoredDocument(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetExtractFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"extract", "--doc", "missing"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestExtractCmd_WatchRequiresFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetExtractFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"extract", "--watch", "--doc", "doc-1"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--watch")
}

func TestExcerptPreview(t *testing.T) {
	assert.Equal(t, "first line", excerptPreview("\n\nfirst line\nsecond"))
	assert.Equal(t, "", excerptPreview("   \n\t\n"))

	long := excerptPreview(strings.Repeat("很", 100))
	assert.Len(t, []rune(long), 81)
	assert.Contains(t, long, "…")
}
