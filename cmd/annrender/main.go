package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/shanehull/annrelay/internal/ai"
	"github.com/shanehull/annrelay/internal/config"
	"github.com/shanehull/annrelay/internal/logging"
	"github.com/shanehull/annrelay/internal/render"
	"github.com/shanehull/annrelay/internal/types"
)

var (
	textArg  = flag.String("text", "", "(-t) Raw announcement text or comma-delimited exchange record")
	fileArg  = flag.String("file", "", "(-f) Read the announcement from a file (- for stdin)")
	outPath  = flag.String("out", "", "(-o) Output path (default: <stock code or 'announcement'>.<format>)")
	format   = flag.String("format", "png", "Output format: png or svg")
	seed     = flag.Uint64("seed", 0, "Background pattern seed (0: random)")
	printAnn = flag.Bool("json", false, "Print the enhanced announcement as JSON")
	cfgPath  = flag.String("config", config.DefaultPath, "Path to the YAML config file")
)

func init() {
	flag.StringVar(textArg, "t", "", "(-t) Raw announcement text (shorthand)")
	flag.StringVar(fileArg, "f", "", "(-f) Read the announcement from a file (shorthand)")
	flag.StringVar(outPath, "o", "", "(-o) Output path (shorthand)")

	flag.Usage = func() {
		flagSet := flag.CommandLine
		fmt.Printf("Usage of %s:\n", filepath.Base(os.Args[0]))

		order := []string{"text", "file", "out", "format", "seed", "json", "config"}
		for _, name := range order {
			f := flagSet.Lookup(name)
			if f != nil {
				fmt.Printf("  -%s\n", f.Name)
				fmt.Printf("    %s\n", f.Usage)
			}
		}
	}
}

func readInput() (string, error) {
	switch {
	case *textArg != "":
		return *textArg, nil
	case *fileArg == "-":
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	case *fileArg != "":
		b, err := os.ReadFile(*fileArg)
		return string(b), err
	}
	return "", fmt.Errorf("one of -text or -file is required")
}

func outputName(ann types.Announcement, ext string) string {
	if *outPath != "" {
		return *outPath
	}
	name := strings.ToLower(strings.TrimSpace(ann.StockCode))
	if name == "" {
		name = "announcement"
	}
	return name + "." + ext
}

func main() {
	flag.Parse()

	raw, err := readInput()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}
	if strings.TrimSpace(raw) == "" {
		fmt.Println("Error: announcement text is empty.")
		os.Exit(1)
	}

	ext := strings.ToLower(*format)
	if ext != "png" && ext != "svg" {
		fmt.Printf("Error: unsupported format %q (png or svg).\n", *format)
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath, ".env")
	if err != nil {
		fmt.Printf("Fatal error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level, "console")
	if err != nil {
		fmt.Printf("Fatal error setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	enhancer, err := ai.NewEnhancer(ctx, cfg.AI.APIKey, cfg.AI.Model, logger.Named("ai"))
	if err != nil {
		logger.Fatal("failed to set up ai client", zap.Error(err))
	}

	ann := enhancer.Enhance(ctx, raw)

	var opts []render.Option
	if *seed != 0 {
		opts = append(opts, render.WithSeed(*seed))
	}
	r := render.New(opts...)

	var data []byte
	if ext == "svg" {
		data = r.RenderSVG(ann)
	} else if data, err = r.Render(ann); err != nil {
		logger.Fatal("failed to render announcement", zap.Error(err))
	}

	out := outputName(ann, ext)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		logger.Fatal("failed to write image", zap.String("path", out), zap.Error(err))
	}

	fmt.Printf("Rendered %s [%s] %s -> %s (%s)\n", ann.StockCode, ann.Severity, ann.Title, out, ann.Source)

	if *printAnn {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(ann)
	}
}
