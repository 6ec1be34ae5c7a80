// Command pnginfo reads and writes image generation metadata.
//
// Usage:
//
//	pnginfo read [-v] <input>                       Print embedded metadata as JSON
//	pnginfo chunks <input.png>                      List PNG text chunks
//	pnginfo embed -json <text> [-o out] <input>     Hide JSON in the alpha channel
//	pnginfo text -k key -t text [-z|-i] <input.png> Add a PNG text chunk
//	pnginfo compress [options] <input>              Re-encode for upload
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/deepteams/pnginfo"
	"github.com/deepteams/pnginfo/compress"
	"github.com/deepteams/pnginfo/mux"
	"github.com/deepteams/pnginfo/stealth"
)

// errNoMetadata makes read exit non-zero without extra output.
var errNoMetadata = errors.New("no metadata found")

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "read":
		err = runRead(os.Args[2:])
	case "chunks":
		err = runChunks(os.Args[2:])
	case "embed":
		err = runEmbed(os.Args[2:])
	case "text":
		err = runText(os.Args[2:])
	case "compress":
		err = runCompress(os.Args[2:])
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "pnginfo: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "pnginfo: %v\n", err)
		}
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  pnginfo read [-v] <input>                Print embedded metadata as JSON
  pnginfo chunks <input.png>               List PNG text chunks
  pnginfo embed -json <text> <input>       Hide JSON in the alpha channel
  pnginfo text -k key -t text <input.png>  Add a PNG text chunk
  pnginfo compress [options] <input>       Re-encode an image for upload

Use "-" as input to read from stdin, "-o -" to write to stdout.

Run "pnginfo <command> -h" for command-specific options.
`)
}

// newLogger returns a text logger on stderr; verbose enables debug output.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// readInput reads the whole file at path, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// outputPath picks the destination for a derived file. An explicit path
// wins; otherwise the input's base name gets suffix.
func outputPath(explicit, input, suffix string) string {
	if explicit != "" {
		return explicit
	}
	if input == "-" {
		return "output" + suffix
	}
	return strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + suffix
}

// writeOutput writes data to path, or stdout when path is "-". A failed
// write leaves no partial file behind.
func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// --- read ---

func runRead(args []string) error {
	fs := flag.NewFlagSet("read", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "log why lookups fail")
	noStealth := fs.Bool("no-stealth", false, "only consult PNG text chunks")
	maxSize := fs.Int64("max", stealth.DefaultMaxInflatedSize, "maximum decompressed watermark size in bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("read: missing input file\nUsage: pnginfo read [-v] <input>")
	}

	data, err := readInput(fs.Arg(0))
	if err != nil {
		return err
	}
	log := newLogger(*verbose)
	md := pnginfo.GetImageData(data, &pnginfo.Options{
		Logger:          log,
		DisableStealth:  *noStealth,
		MaxInflatedSize: *maxSize,
	})
	if md.Absent() {
		return errNoMetadata
	}
	log.Debug("metadata found", "source", md.Kind)

	js, err := md.JSON()
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, js, "", "  "); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	out.WriteByte('\n')
	_, err = os.Stdout.Write(out.Bytes())
	return err
}

// --- chunks ---

func runChunks(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("chunks: missing input file\nUsage: pnginfo chunks <input.png>")
	}
	data, err := readInput(args[0])
	if err != nil {
		return err
	}
	d, err := mux.NewDemuxer(data)
	if err != nil {
		return fmt.Errorf("chunks: %w", err)
	}
	texts, err := d.TextChunks()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pnginfo: chunks: skipped: %v\n", err)
	}

	h := d.Header()
	fmt.Printf("Dimensions: %d x %d\n", h.Width, h.Height)
	fmt.Printf("Alpha:      %v\n", h.HasAlpha())
	fmt.Printf("Chunks:     %d\n", len(d.Chunks()))

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, tc := range texts {
		var attrs []string
		if tc.Compressed {
			attrs = append(attrs, "compressed")
		}
		if tc.Language != "" {
			attrs = append(attrs, "lang="+tc.Language)
		}
		if tc.TranslatedKeyword != "" {
			attrs = append(attrs, "translated="+tc.TranslatedKeyword)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%q\n", tc.Kind, tc.Keyword, strings.Join(attrs, ","), tc.Text)
	}
	return tw.Flush()
}

// --- embed ---

func runEmbed(args []string) error {
	fs := flag.NewFlagSet("embed", flag.ContinueOnError)
	text := fs.String("json", "", "JSON document to embed (required)")
	output := fs.String("o", "", `output path (default: <input>.stealth.png, "-" for stdout)`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || *text == "" {
		return fmt.Errorf("embed: missing input file or -json\nUsage: pnginfo embed -json <text> [-o out.png] <input>")
	}
	inputPath := fs.Arg(0)

	data, err := readInput(inputPath)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("embed: decoding input: %w", err)
	}
	marked, err := stealth.EmbedJSON(img, []byte(*text))
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, marked); err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	out := outputPath(*output, inputPath, ".stealth.png")
	if err := writeOutput(out, buf.Bytes()); err != nil {
		return err
	}
	if out != "-" {
		fmt.Fprintf(os.Stderr, "Embedded %d bytes of JSON %s → %s\n", len(*text), inputPath, out)
	}
	return nil
}

// --- text ---

func runText(args []string) error {
	fs := flag.NewFlagSet("text", flag.ContinueOnError)
	keyword := fs.String("k", "", "chunk keyword (required)")
	text := fs.String("t", "", "chunk text")
	compressed := fs.Bool("z", false, "compress the text (zTXt, or compressed iTXt with -i)")
	international := fs.Bool("i", false, "write a UTF-8 iTXt chunk")
	lang := fs.String("lang", "", "iTXt language tag")
	output := fs.String("o", "", `output path (default: <input>.text.png, "-" for stdout)`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || *keyword == "" {
		return fmt.Errorf("text: missing input file or -k\nUsage: pnginfo text -k key -t text [-z|-i] [-o out.png] <input.png>")
	}
	inputPath := fs.Arg(0)

	tc := mux.TextChunk{Kind: mux.KindText, Keyword: *keyword, Text: *text}
	switch {
	case *international:
		tc.Kind = mux.KindInternational
		tc.Compressed = *compressed
		tc.Language = *lang
	case *compressed:
		tc.Kind = mux.KindCompressed
	}

	data, err := readInput(inputPath)
	if err != nil {
		return err
	}
	result, err := mux.InsertText(data, tc)
	if err != nil {
		return fmt.Errorf("text: %w", err)
	}

	out := outputPath(*output, inputPath, ".text.png")
	if err := writeOutput(out, result); err != nil {
		return err
	}
	if out != "-" {
		fmt.Fprintf(os.Stderr, "Added %s %q %s → %s\n", tc.Kind, tc.Keyword, inputPath, out)
	}
	return nil
}

// --- compress ---

func runCompress(args []string) error {
	fs := flag.NewFlagSet("compress", flag.ContinueOnError)
	quality := fs.Float64("q", 0.75, "quality 0-1")
	scale := fs.Float64("scale", 1, "resize factor (0,1]")
	backend := fs.String("backend", compress.DefaultBackend, "codec: "+strings.Join(compress.Backends(), "/"))
	dataURL := fs.Bool("dataurl", false, "input and output are base64 data URLs")
	verbose := fs.Bool("v", false, "log codec timings")
	output := fs.String("o", "", `output path (default: <input>.<ext>, "-" for stdout)`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("compress: missing input file\nUsage: pnginfo compress [options] <input>")
	}
	inputPath := fs.Arg(0)

	c, err := compress.New(&compress.Options{
		Backend: *backend,
		Scale:   *scale,
		Logger:  newLogger(*verbose),
	})
	if err != nil {
		return fmt.Errorf("compress: %w", err)
	}
	data, err := readInput(inputPath)
	if err != nil {
		return err
	}

	var result []byte
	ext := extensionFor(c.MIMEType())
	if *dataURL {
		s, err := c.CompressDataURL(string(data), *quality)
		if err != nil {
			return fmt.Errorf("compress: %w", err)
		}
		result, ext = []byte(s+"\n"), ".txt"
	} else if result, err = c.Compress(data, *quality); err != nil {
		return fmt.Errorf("compress: %w", err)
	}

	out := outputPath(*output, inputPath, ext)
	if err := writeOutput(out, result); err != nil {
		return err
	}
	if out != "-" {
		ratio := 0.0
		if len(data) > 0 {
			ratio = float64(len(result)) / float64(len(data)) * 100
		}
		fmt.Fprintf(os.Stderr, "Compressed %s → %s (%d → %d bytes, %.1f%%)\n",
			inputPath, out, len(data), len(result), ratio)
	}
	return nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	return ".bin"
}
