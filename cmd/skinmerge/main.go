// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"

	"github.com/sam-fredrickson/skinmerge"
)

var version = "dev"

func main() {
	var failed bool
	defer func() {
		if failed {
			os.Exit(1)
		}
	}()

	program := os.Args[0]
	opts := skinmerge.SkinOptions()
	seq := sequenceFusion(opts.SequenceFusion)
	keyed := keyedFusion(opts.KeyedFusion)
	var outputPath string
	var outputFormat format
	var showVersion bool
	var verbose bool

	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "usage: %s [flags] DEFAULTS OVERRIDE...\n\n", program)
		fmt.Fprintf(out, "Merges player skin configurations (YAML, JSON, TOML).\n")
		fmt.Fprintf(out, "Controls in lists are matched by their union key and deep-merged;\n")
		fmt.Fprintf(out, "new controls are inserted after the insertion marker.\n\n")
		fmt.Fprintf(out, "Example:\n")
		fmt.Fprintf(out, "  # apply a customer override to the default skin\n")
		fmt.Fprintf(out, "  %s -out skin.json default.json customer.json\n\n", program)
		fmt.Fprintf(out, "  # merge every list position by position\n")
		fmt.Fprintf(out, "  %s -seq deep -keyed deep default.yaml override.yaml\n\n", program)
		fmt.Fprintf(out, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.StringVar(&opts.UnionKey, "union-key", opts.UnionKey, "field that identifies list elements (empty disables keyed lists)")
	flag.Var(&seq, "seq", `positional list fusion [replace, deep] (default "replace")`)
	flag.Var(&keyed, "keyed", `keyed list fusion [replace, prepend, deep] (default "prepend")`)
	flag.BoolVar(&opts.SwapRoles, "swap", false, "merge each document into the following one instead")
	flag.BoolVar(&opts.CloneOnCopy, "clone", opts.CloneOnCopy, "deep-clone values copied into the result")
	flag.StringVar(&opts.InsertionMarker, "marker", opts.InsertionMarker, "union key value new controls are inserted after")
	flag.StringVar(&outputPath, "out", "", "output file path (defaults to stdout)")
	flag.Var(&outputFormat, "format", `output format [json, yaml, toml] (defaults to first file's format)`)
	flag.BoolVar(&showVersion, "version", false, "show version and exit")
	flag.BoolVar(&verbose, "v", false, "log merge progress to stderr")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts.SequenceFusion = seq.Fusion()
	opts.KeyedFusion = keyed.Fusion()

	files := flag.Args()
	var output io.Writer
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			failed = true
			return
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	err := Run(logger, opts, files, outputFormat, output)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		_, _ = fmt.Fprintf(os.Stderr, "usage: %s [flags] DEFAULTS OVERRIDE...\n", program)
		failed = true
		return
	}
}

// Run reads files, merges them in order with opts and writes the result to
// output. The output format defaults to the format of the first file.
func Run(
	logger *slog.Logger,
	opts skinmerge.Options,
	files []string,
	outputFormat format,
	output io.Writer,
) error {
	if len(files) == 0 {
		return fmt.Errorf("no files to merge")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	merger, err := skinmerge.NewUntypedMerger(opts)
	if err != nil {
		return err
	}
	logger.Debug("merging",
		"files", len(files),
		"unionKey", opts.UnionKey,
		"sequenceFusion", opts.SequenceFusion,
		"keyedFusion", opts.KeyedFusion,
		"swapRoles", opts.SwapRoles,
	)

	var docs []any
	for _, file := range files {
		var doc any
		fileFormat, err := unmarshalFile(file, &doc)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		logger.Debug("read document", "file", file, "format", fileFormat)
		docs = append(docs, doc)
		if outputFormat == "" {
			outputFormat = fileFormat
		}
	}

	merged := merger.Merge(docs...)

	marshaled, err := outputFormat.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to marshal result as %s: %w", outputFormat, err)
	}

	_, err = output.Write(marshaled)
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	logger.Debug("wrote result", "format", outputFormat, "bytes", len(marshaled))

	return nil
}

func unmarshalFile(file string, out any) (format, error) {
	var f format

	contents, err := os.ReadFile(file)
	if err != nil {
		return f, err
	}

	extension := strings.ToLower(filepath.Ext(file))
	var unmarshal func([]byte, any) error
	switch extension {
	case ".yaml", ".yml":
		f = validFormats["yaml"]
		unmarshal = yaml.Unmarshal
	case ".json":
		f = validFormats["json"]
		unmarshal = json.Unmarshal
	case ".toml":
		f = validFormats["toml"]
		unmarshal = toml.Unmarshal
	}
	if unmarshal == nil {
		return f, fmt.Errorf("unsupported file format: %s", extension)
	}

	if err := unmarshal(contents, out); err != nil {
		return f, err
	}

	return f, nil
}

type sequenceFusion skinmerge.SequenceFusion

func (s *sequenceFusion) String() string {
	return s.Fusion().String()
}

func (s *sequenceFusion) Set(value string) error {
	fusion, err := skinmerge.ParseSequenceFusion(value)
	if err != nil {
		return err
	}
	*s = sequenceFusion(fusion)
	return nil
}

func (s *sequenceFusion) Fusion() skinmerge.SequenceFusion {
	return skinmerge.SequenceFusion(*s)
}

type keyedFusion skinmerge.KeyedFusion

func (k *keyedFusion) String() string {
	return k.Fusion().String()
}

func (k *keyedFusion) Set(value string) error {
	fusion, err := skinmerge.ParseKeyedFusion(value)
	if err != nil {
		return err
	}
	*k = keyedFusion(fusion)
	return nil
}

func (k *keyedFusion) Fusion() skinmerge.KeyedFusion {
	return skinmerge.KeyedFusion(*k)
}

type format string

var validFormats = map[string]format{
	"":     format(""),
	"json": format("json"),
	"yaml": format("yaml"),
	"toml": format("toml"),
}

func (f *format) String() string {
	return string(*f)
}

func (f *format) Set(value string) error {
	value = strings.ToLower(value)
	format, ok := validFormats[value]
	if !ok {
		return fmt.Errorf("invalid format %q", value)
	}
	*f = format
	return nil
}

func (f *format) Marshal(doc any) ([]byte, error) {
	switch *f {
	case "json":
		return json.MarshalIndent(doc, "", "  ")
	case "yaml":
		return yaml.Marshal(doc)
	case "toml":
		return toml.Marshal(doc)
	default:
		return nil, fmt.Errorf("invalid format %q", *f)
	}
}
