package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ethix/internal/audit"
	"ethix/internal/config"
	"ethix/internal/crawler"
	"ethix/internal/llm"
	"ethix/internal/logging"
	"ethix/internal/rag"
	"ethix/internal/report"
	"ethix/internal/retry"
)

func newAuditCommand(opts *cliOptions) *cobra.Command {
	var (
		name        string
		profileFile string
		crawl       bool
		contract    string
		generative  bool
		outputDir   string
		noFeedback  bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Run an ethics risk assessment for an AI service",
		Long: `Assesses an AI service against the indexed ethics guidelines.

The service profile comes from --file, from --crawl (a web search for
the service's public description), or from an interactive questionnaire.
The assessment scores ten risk categories on a 1-5 scale; any category
at or above the risk threshold prompts for reviewer feedback and a
single re-evaluation. The final report is written as Markdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if contract != "" {
				cfg.Evaluator.Contract = contract
			}
			if generative {
				cfg.Recommend.Mode = "generative"
			}
			if outputDir != "" {
				cfg.Output.Dir = outputDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.NewComponentLogger("audit")
			ctx := cmd.Context()

			client, err := llm.NewOpenAIClient(cfg.LLMClientConfig())
			if err != nil {
				return fmt.Errorf("create LLM client: %w", err)
			}
			client = llm.NewRetryClient(client, retry.DefaultConfig())

			profile, err := buildProfile(cmd, cfg, client, name, profileFile, crawl)
			if err != nil {
				return err
			}

			fmt.Printf("%s opening guideline store\n", blue("→"))
			store, built, err := rag.OpenGuidelineStore(ctx, cfg.GuidelineStoreConfig(), logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if built {
				fmt.Printf("%s indexed %d guideline chunks\n", green("✓"), store.Count())
			}

			var collector audit.FeedbackCollector = consoleCollector{}
			if noFeedback {
				collector = silentCollector{}
			}

			var recommender audit.Recommender = audit.NewRuleRecommender()
			if cfg.Recommend.Mode == "generative" {
				recommender = audit.NewGenerativeRecommender(client, cfg.Recommend.ContextLimit)
			}

			retriever := audit.NewGuidelineRetriever(store, cfg.RetrieverConfig())
			evaluator := audit.NewEvaluator(client, cfg.EvaluatorAuditConfig())
			loop := audit.NewLoopController(retriever, evaluator, collector, cfg.LoopAuditConfig())
			pipeline := audit.NewPipeline(audit.NewFactorExtractor(client), retriever, evaluator, loop, recommender)

			fmt.Printf("%s assessing %s\n", blue("→"), bold(profile.Name))
			run, err := pipeline.Execute(ctx, profile)
			if err != nil {
				return err
			}

			builder := report.NewBuilder(logger)
			path, err := builder.Write(run, cfg.Output.Dir)
			if err != nil {
				return err
			}

			if renderer, rerr := newMarkdownRenderer(); rerr == nil {
				_ = renderer.renderAndPrint(builder.Render(run))
			}

			fmt.Printf("%s total risk score %s\n", green("✓"), bold(fmt.Sprintf("%.1f / 5", run.Final.TotalScore())))
			if run.Revised {
				fmt.Printf("%s assessment revised once after reviewer feedback\n", cyan("i"))
			}
			fmt.Printf("%s report written to %s\n", green("✓"), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Service name")
	cmd.Flags().StringVarP(&profileFile, "file", "f", "", "Service profile YAML file")
	cmd.Flags().BoolVar(&crawl, "crawl", false, "Fetch the service description from the web (requires --name)")
	cmd.Flags().StringVar(&contract, "contract", "", `Evaluator output contract: "structured" or "freetext"`)
	cmd.Flags().BoolVar(&generative, "generative", false, "Generate recommendations with the LLM instead of the rule table")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Report output directory (overrides config)")
	cmd.Flags().BoolVar(&noFeedback, "no-feedback", false, "Skip the reviewer feedback prompt")

	return cmd
}

// buildProfile resolves the service profile from a file, the web
// crawler or the interactive questionnaire, in that order.
func buildProfile(cmd *cobra.Command, cfg *config.Config, client llm.Client, name, profileFile string, crawl bool) (audit.ServiceProfile, error) {
	var profile audit.ServiceProfile

	switch {
	case profileFile != "":
		data, err := os.ReadFile(profileFile)
		if err != nil {
			return profile, fmt.Errorf("read profile: %w", err)
		}
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return profile, fmt.Errorf("parse profile %s: %w", profileFile, err)
		}
		if name != "" {
			profile.Name = name
		}
		return profile, nil

	case crawl:
		if name == "" {
			return profile, fmt.Errorf("--crawl requires --name")
		}
		fmt.Printf("%s collecting public description of %s\n", blue("→"), bold(name))
		c := crawler.New(client, crawler.Config{
			SearchAPIKey: cfg.Crawler.SearchAPIKey,
			SearchURL:    cfg.Crawler.SearchURL,
			MaxChars:     cfg.Crawler.MaxChars,
			Timeout:      cfg.Crawler.Timeout,
			CacheTTL:     cfg.Crawler.CacheTTL,
		}, logging.NewComponentLogger("crawler"))
		summary, err := c.Describe(cmd.Context(), name)
		if err != nil {
			return profile, err
		}
		if summary == "" {
			fmt.Printf("%s nothing found on the web, falling back to manual entry\n", yellow("!"))
			return promptProfile(name)
		}
		profile.Name = name
		profile.Purpose = summary
		return profile, nil

	default:
		if !isTTY() {
			return profile, fmt.Errorf("no TTY: provide --file or --crawl")
		}
		return promptProfile(name)
	}
}

// silentCollector accepts the initial assessment without asking.
type silentCollector struct{}

func (silentCollector) Collect(_ context.Context, _ audit.Assessment, _ []string) (string, error) {
	return "", nil
}
