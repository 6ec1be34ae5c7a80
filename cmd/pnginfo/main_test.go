package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// binaryPath holds the path to the compiled pnginfo binary. Set in TestMain.
var binaryPath string

func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "pnginfo-test-bin-*")
	if err != nil {
		panic(err)
	}
	binaryPath = filepath.Join(tmp, "pnginfo")
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		// Tests skip when the binary is missing.
		binaryPath = ""
	}

	code := m.Run()
	os.RemoveAll(tmp)
	os.Exit(code)
}

func skipIfNoBinary(t *testing.T) {
	t.Helper()
	if binaryPath == "" {
		t.Skip("pnginfo binary not built; skipping")
	}
}

// runPnginfo executes pnginfo with the given arguments and optional stdin.
func runPnginfo(t *testing.T, stdin []byte, args ...string) (stdout, stderr []byte, err error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// createTestPNG writes an opaque 32x32 gradient PNG into dir.
func createTestPNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 8), G: uint8(y * 8), B: 128, A: 255})
		}
	}
	path := filepath.Join(dir, "input.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func exitCode(err error) int {
	if ee, ok := err.(*exec.ExitError); ok {
		return ee.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		explicit, input, suffix, want string
	}{
		{"out.png", "in.png", ".x", "out.png"},
		{"", "dir/photo.png", ".stealth.png", "photo.stealth.png"},
		{"", "-", ".webp", "output.webp"},
		{"-", "in.png", ".webp", "-"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.explicit, tt.input, tt.suffix); got != tt.want {
			t.Errorf("outputPath(%q, %q, %q) = %q, want %q", tt.explicit, tt.input, tt.suffix, got, tt.want)
		}
	}
}

func TestExtensionFor(t *testing.T) {
	for mt, want := range map[string]string{"image/jpeg": ".jpg", "image/webp": ".webp", "x/y": ".bin"} {
		if got := extensionFor(mt); got != want {
			t.Errorf("extensionFor(%q) = %q, want %q", mt, got, want)
		}
	}
}

func TestUsage(t *testing.T) {
	skipIfNoBinary(t)
	_, stderr, err := runPnginfo(t, nil)
	if exitCode(err) != 1 || !strings.Contains(string(stderr), "Usage:") {
		t.Fatalf("exit=%d stderr=%s", exitCode(err), stderr)
	}
	_, stderr, err = runPnginfo(t, nil, "bogus")
	if exitCode(err) != 1 || !strings.Contains(string(stderr), `unknown command "bogus"`) {
		t.Fatalf("exit=%d stderr=%s", exitCode(err), stderr)
	}
}

func TestEmbedThenRead(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()
	input := createTestPNG(t, dir)
	marked := filepath.Join(dir, "marked.png")

	if _, stderr, err := runPnginfo(t, nil, "embed", "-json", `{"prompt":"cat","steps":20}`, "-o", marked, input); err != nil {
		t.Fatalf("embed: %v\n%s", err, stderr)
	}
	stdout, stderr, err := runPnginfo(t, nil, "read", marked)
	if err != nil {
		t.Fatalf("read: %v\n%s", err, stderr)
	}
	var got map[string]any
	if err := json.Unmarshal(stdout, &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	want := map[string]any{"prompt": "cat", "steps": 20.0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("read = %v, want %v", got, want)
	}
}

func TestTextThenRead(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()
	input := createTestPNG(t, dir)
	tagged := filepath.Join(dir, "tagged.png")

	if _, stderr, err := runPnginfo(t, nil, "text", "-k", "Author", "-t", "Alice", "-o", tagged, input); err != nil {
		t.Fatalf("text: %v\n%s", err, stderr)
	}
	data, err := os.ReadFile(tagged)
	if err != nil {
		t.Fatal(err)
	}
	stdout, stderr, err := runPnginfo(t, data, "read", "-")
	if err != nil {
		t.Fatalf("read: %v\n%s", err, stderr)
	}
	var got map[string]string
	if err := json.Unmarshal(stdout, &got); err != nil || got["Author"] != "Alice" {
		t.Fatalf("read = %s (%v)", stdout, err)
	}

	stdout, _, err = runPnginfo(t, nil, "chunks", tagged)
	if err != nil {
		t.Fatalf("chunks: %v", err)
	}
	if !strings.Contains(string(stdout), "tEXt") || !strings.Contains(string(stdout), `"Alice"`) {
		t.Errorf("chunks output:\n%s", stdout)
	}
}

func TestReadAbsentExitsNonZero(t *testing.T) {
	skipIfNoBinary(t)
	input := createTestPNG(t, t.TempDir())
	stdout, stderr, err := runPnginfo(t, nil, "read", "-v", input)
	if exitCode(err) != 1 {
		t.Fatalf("exit = %d, want 1", exitCode(err))
	}
	if len(stdout) != 0 {
		t.Errorf("stdout = %q, want empty", stdout)
	}
	if !strings.Contains(string(stderr), "no metadata found") {
		t.Errorf("stderr = %s", stderr)
	}
}

func TestEmbedTooSmall(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "tiny.png")
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(input, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "x.png")
	_, stderr, err := runPnginfo(t, nil, "embed", "-json", `{"a":1}`, "-o", out, input)
	if exitCode(err) != 1 || !strings.Contains(string(stderr), "too small") {
		t.Fatalf("exit=%d stderr=%s", exitCode(err), stderr)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output written despite failure: %v", err)
	}
}

func TestCompressJPEG(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()
	input := createTestPNG(t, dir)
	out := filepath.Join(dir, "out.jpg")

	if _, stderr, err := runPnginfo(t, nil, "compress", "-backend", "jpeg", "-q", "0.6", "-scale", "0.5", "-o", out, input); err != nil {
		t.Fatalf("compress: %v\n%s", err, stderr)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("output is not JPEG: %v", err)
	}
	if cfg.Width != 16 || cfg.Height != 16 {
		t.Errorf("size = %dx%d, want 16x16", cfg.Width, cfg.Height)
	}
}

func TestCompressRejectsBadQuality(t *testing.T) {
	skipIfNoBinary(t)
	input := createTestPNG(t, t.TempDir())
	_, stderr, err := runPnginfo(t, nil, "compress", "-backend", "jpeg", "-q", "7", "-o", "-", input)
	if exitCode(err) != 1 || !strings.Contains(string(stderr), "quality") {
		t.Fatalf("exit=%d stderr=%s", exitCode(err), stderr)
	}
}

func TestCompressDefaultBackend(t *testing.T) {
	skipIfNoBinary(t)
	input := createTestPNG(t, t.TempDir())

	stdout, stderr, err := runPnginfo(t, nil, "compress", "-o", "-", input)
	if err != nil {
		t.Fatalf("compress: %v\n%s", err, stderr)
	}
	if len(stdout) < 12 || string(stdout[:4]) != "RIFF" || string(stdout[8:12]) != "WEBP" {
		t.Fatalf("output is not WebP: % x", stdout[:min(12, len(stdout))])
	}
}

func TestReadKeepsMarkup(t *testing.T) {
	skipIfNoBinary(t)
	dir := t.TempDir()
	input := createTestPNG(t, dir)
	tagged := filepath.Join(dir, "tagged.png")

	if _, stderr, err := runPnginfo(t, nil, "text", "-k", "parameters", "-t", "<lora:x:1>", "-o", tagged, input); err != nil {
		t.Fatalf("text: %v\n%s", err, stderr)
	}
	stdout, stderr, err := runPnginfo(t, nil, "read", tagged)
	if err != nil {
		t.Fatalf("read: %v\n%s", err, stderr)
	}
	if !strings.Contains(string(stdout), "<lora:x:1>") {
		t.Errorf("read output escaped markup:\n%s", stdout)
	}
}
