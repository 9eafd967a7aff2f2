// Command webclone renders a page in a headless browser and saves it as a
// self-contained offline copy: one document, merged style and script bundles,
// local media files, and a pair of serving helpers.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kong"
	"github.com/briandowns/spinner"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/webclone/internal/ai"
	"github.com/go-scripts/webclone/internal/clone"
	"github.com/go-scripts/webclone/internal/config"
)

type cliFlags struct {
	URL string `arg:"" help:"Page to clone."`

	Output      string `help:"Output directory." short:"o"`
	ConfigFile  string `help:"Path to YAML configuration file." default:"config.yaml"`
	Concurrency int    `help:"Maximum concurrent asset fetches." short:"c"`
	Timeout     string `help:"Per-asset fetch timeout (e.g. 30s)."`
	AIEndpoint  string `help:"OpenAI-compatible endpoint for the optional markup rewrite."`
	AIModel     string `help:"Model name for the markup rewrite."`
	Verbose     bool   `help:"Enable debug logging." short:"v"`
}

func main() {
	var flags cliFlags
	kong.Parse(&flags,
		kong.Name("webclone"),
		kong.Description("Clone a web page into a self-contained offline copy."),
	)

	if flags.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		log.Fatal("failed to load configuration", "error", err)
	}
	applyFlags(cfg, flags)

	opts := clone.Options{URL: flags.URL, Config: cfg}
	if cfg.AI.Endpoint != "" {
		rewriter, err := ai.NewRewriter(ai.Config{
			Endpoint:     cfg.AI.Endpoint,
			Model:        cfg.AI.Model,
			SystemPrompt: cfg.AI.Prompt,
			Temperature:  cfg.AI.Temperature,
		})
		if err != nil {
			log.Fatal("invalid AI configuration", "error", err)
		}
		opts.Rewriter = rewriter
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" cloning %s", flags.URL)
	s.Start()

	result, err := clone.Run(context.Background(), opts)
	s.Stop()
	if err != nil {
		log.Fatal("clone failed", "url", flags.URL, "error", err)
	}

	log.Info("clone complete",
		"title", result.Title,
		"output", result.OutputDir,
		"fetched", result.AssetsFetched,
		"attempted", result.AssetsAttempted,
		"failed", result.AssetsFailed,
	)
	fmt.Printf("Saved to %s (%d/%d assets fetched)\n",
		result.OutputDir, result.AssetsFetched, result.AssetsAttempted)
	if result.AssetsFailed > 0 {
		fmt.Printf("%d assets kept their remote references\n", result.AssetsFailed)
	}
	fmt.Printf("Serve locally with: sh %s/serve.sh\n", result.OutputDir)
}

func applyFlags(cfg *config.Config, flags cliFlags) {
	if flags.Output != "" {
		cfg.OutputDir = flags.Output
	}
	if flags.Concurrency > 0 {
		cfg.Concurrency = flags.Concurrency
	}
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			log.Fatal("invalid timeout", "value", flags.Timeout, "error", err)
		}
		cfg.FetchTimeout = config.Duration(d)
	}
	if flags.AIEndpoint != "" {
		cfg.AI.Endpoint = flags.AIEndpoint
	}
	if flags.AIModel != "" {
		cfg.AI.Model = flags.AIModel
	}
}
