package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/binlens/internal/config"
	"github.com/danmuck/binlens/internal/decode"
	"github.com/danmuck/binlens/internal/logging"
	"github.com/danmuck/binlens/internal/outline"
	"github.com/danmuck/binlens/internal/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	hint      string
	output    string
	fields    bool
	anomalies bool
	seed      uint64
}

func main() {
	configPath := flag.String("config", "", "optional binlens TOML config")
	hint := flag.String("hint", "", "format hint (jpg, png, gif); defaults to the file extension")
	output := flag.String("output", "", "output form: text|json")
	fields := flag.Bool("fields", false, "list rendered fields under each record")
	anomalies := flag.Bool("anomalies", true, "report recovered anomalies")
	seed := flag.Uint64("seed", 0, "palette seed")
	flag.Parse()

	cfg := config.DefaultCLIConfig()
	if *configPath != "" {
		loaded, err := config.LoadCLIConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		cfg = loaded
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["output"] {
		cfg.Output = *output
	}
	if set["fields"] {
		cfg.Fields = *fields
	}
	if set["seed"] {
		cfg.Seed = *seed
	}
	if err := config.ValidateCLIConfig(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logging.ConfigureRuntime()
	if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
		zerolog.SetGlobalLevel(lvl)
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: binlens [flags] FILE...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	opts := options{
		hint:      *hint,
		output:    cfg.Output,
		fields:    cfg.Fields,
		anomalies: *anomalies,
		seed:      cfg.Seed,
	}
	failed := false
	for _, path := range flag.Args() {
		if err := run(os.Stdout, path, opts); err != nil {
			log.Error().Err(err).Str("file", path).Msg("decode failed")
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func run(w io.Writer, path string, opts options) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	hint := opts.hint
	if hint == "" {
		hint = path
	}
	res, err := session.Decode(buf, hint, decode.Options{Seed: opts.seed})
	if err != nil {
		return err
	}

	if opts.output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			File      string           `json:"file"`
			Format    string           `json:"format"`
			Size      int              `json:"size"`
			Outline   []outline.Node   `json:"outline"`
			Anomalies []decode.Anomaly `json:"anomalies"`
		}{path, res.Format, len(buf), outline.Build(res.Tree, buf), res.Anomalies})
	}

	fmt.Fprintf(w, "%s (%s, %d bytes)\n", path, res.Format, len(buf))
	if err := outline.WriteText(w, res.Tree, buf, outline.TextOptions{Fields: opts.fields}); err != nil {
		return err
	}
	if opts.anomalies && len(res.Anomalies) > 0 {
		fmt.Fprintf(w, "%d anomalies:\n", len(res.Anomalies))
		for _, a := range res.Anomalies {
			fmt.Fprintf(w, "  %s\n", a)
		}
	}
	return nil
}
