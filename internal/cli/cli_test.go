package cli

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/harrylevesque/txt2qr/internal/models"
)

// run executes the CLI in an isolated work and data dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	return runEnv(t, dir, []string{}, args...)
}

func runEnv(t *testing.T, dir string, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(&RootOptions{WorkDir: dir, Env: env})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--data-dir", filepath.Join(dir, "data")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"classify"}, {"generate"}, {"history", "list"}, {"history", "show"},
		{"history", "delete"}, {"history", "clear"}, {"ocr"}, {"upload"},
		{"premium", "status"}, {"premium", "purchase"}, {"premium", "restore"},
		{"keygen"}, {"serve"}, {"config"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "%v", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "classify", "example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "type:      url")
	assert.Contains(t, out, "formatted: https://example.com")

	out, err = run(t, dir, "--format", "json", "classify", "contact@example.com")
	require.NoError(t, err)
	var res ClassifyResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, models.TypeEmail, res.Type)
	assert.Equal(t, "mailto:contact@example.com", res.Formatted)

	_, err = run(t, dir, "--format", "xml", "classify", "x")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	pngFile := filepath.Join(dir, "site.png")

	out, err := run(t, dir, "generate", "example.com", "-o", pngFile, "--size", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+pngFile+" (url: https://example.com)")
	f, err := os.Open(pngFile)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())

	svgFile := filepath.Join(dir, "note.svg")
	_, err = run(t, dir, "generate", "hello", "-o", svgFile, "--save")
	require.NoError(t, err)
	data, err := os.ReadFile(svgFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<svg"))

	_, err = run(t, dir, "generate", "x", "-o", pngFile, "--type", "barcode")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHistoryCommands(t *testing.T) {
	dir := t.TempDir()
	for _, text := range []string{"first note", "https://example.com"} {
		_, err := run(t, dir, "generate", text, "-o", filepath.Join(dir, "qr.png"), "--save")
		require.NoError(t, err)
	}

	out, err := run(t, dir, "--format", "yaml", "history", "list")
	require.NoError(t, err)
	var records []models.QRRecord
	require.NoError(t, yaml.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "https://example.com", records[0].Text)
	assert.Equal(t, models.TypeURL, records[0].Type)

	out, err = run(t, dir, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ICON")
	assert.Contains(t, out, "link")
	assert.Contains(t, out, "first note")

	out, err = run(t, dir, "history", "show", records[1].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "text:  first note")

	_, err = run(t, dir, "history", "show", "missing")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, err = run(t, dir, "history", "delete", records[1].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+records[1].ID)

	_, err = run(t, dir, "history", "clear")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err = run(t, dir, "history", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared 1 records")

	out, err = run(t, dir, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No QR codes saved yet.")
}

func TestPremiumCommands(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "premium", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "free: ads shown")

	_, err = run(t, dir, "premium", "purchase", "r-1")
	assert.Equal(t, ExitFailure, GetExitCode(err), "web has no store")

	out, err = run(t, dir, "--platform", "mobile", "premium", "purchase", "r-1")
	require.NoError(t, err)
	assert.Contains(t, out, "premium: ads removed")

	out, err = run(t, dir, "--format", "json", "premium", "restore")
	require.NoError(t, err)
	var st PremiumStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.True(t, st.Premium)
}

func TestKeygen(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, "keygen")
	require.NoError(t, err)
	keyFile := filepath.Join(dir, "data", "master.key")
	assert.Contains(t, out, keyFile)

	info, err := os.Stat(keyFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = run(t, dir, "keygen")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestUpload_NotConfigured(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "menu.pdf")
	require.NoError(t, os.WriteFile(file, []byte("pdf"), 0o600))

	_, err := run(t, dir, "upload", file)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConfigFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "txt2qr.json"), []byte(`{
		// sqlite keeps everything in one file
		"storage": {"backend": "sqlite"},
	}`), 0o600))

	_, err := run(t, dir, "generate", "hi", "-o", filepath.Join(dir, "qr.png"), "--save")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "data", "txt2qr.db"))
	assert.NoError(t, err)

	_, err = run(t, dir, "--storage", "mongo", "history", "list")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func showRecord(t *testing.T, dir, id string) models.QRRecord {
	t.Helper()
	out, err := run(t, dir, "--format", "json", "history", "show", id)
	require.NoError(t, err)
	var rec models.QRRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	return rec
}

func TestGenerate_SavesEncodedText(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		args []string
		want string
		typ  models.ContentType
	}{
		{[]string{"contact@example.com"}, "mailto:contact@example.com", models.TypeEmail},
		{[]string{"5551234567", "--type", "sms"}, "sms:5551234567", models.TypeSMS},
		{[]string{"smsto:5551234:hi"}, "smsto:5551234:hi", models.TypeSMS},
		{[]string{"example.com"}, "https://example.com", models.TypeURL},
	}
	for _, tt := range tests {
		args := append([]string{"--format", "json", "generate", "-o", filepath.Join(dir, "qr.png"), "--save"}, tt.args...)
		out, err := run(t, dir, args...)
		require.NoError(t, err)
		var res GenerateResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		require.NotEmpty(t, res.SavedID)
		assert.Equal(t, tt.want, res.Formatted)

		rec := showRecord(t, dir, res.SavedID)
		assert.Equal(t, res.Formatted, rec.Text, "saved text is the encoded text")
		assert.Equal(t, tt.typ, rec.Type)
	}
}

func TestOCR_SavesEncodedText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ParsedResults":[{"ParsedText":"contact@example.com"}]}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	img := filepath.Join(dir, "card.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\nfake"), 0o600))

	env := []string{"TXT2QR_OCR_ENDPOINT=" + srv.URL}
	out, err := runEnv(t, dir, env, "--format", "json", "ocr", img, "--save")
	require.NoError(t, err)
	var res OCRResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, models.TypeEmail, res.Type)
	assert.Equal(t, "mailto:contact@example.com", res.Formatted)

	rec := showRecord(t, dir, res.SavedID)
	assert.Equal(t, res.Formatted, rec.Text)
	assert.Equal(t, models.TypeEmail, rec.Type)
}

func TestConfigCommand(t *testing.T) {
	dir := t.TempDir()
	env := []string{
		"TXT2QR_UPLOAD_ACCESS_KEY=AKIAEXAMPLE",
		"TXT2QR_UPLOAD_SECRET_KEY=s3cret",
		"TXT2QR_OCR_API_KEY=K123",
	}

	out, err := runEnv(t, dir, env, "--storage", "sqlite", "config")
	require.NoError(t, err)
	for _, secret := range []string{"AKIAEXAMPLE", "s3cret", "K123"} {
		assert.NotContains(t, out, secret)
	}
	assert.Contains(t, out, `"backend": "sqlite"`)

	out, err = runEnv(t, dir, env, "--format", "yaml", "config")
	require.NoError(t, err)
	var v map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &v))
	upload, ok := v["upload"].(map[string]any)
	require.True(t, ok, out)
	assert.Equal(t, "********", upload["access_key"])
}
