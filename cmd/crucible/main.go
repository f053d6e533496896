// crucible synthesizes verified code artifacts from structured
// specifications: candidates come from a generator model, then pass
// through structural validation, control-flow verification, and
// rule-driven repair until one is accepted or the budget runs out.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"crucible/internal/candidate"
	"crucible/internal/generator"
	"crucible/internal/ir"
	"crucible/internal/logging"
	"crucible/internal/rules"
	"crucible/internal/runner"
	"crucible/internal/session"
)

var (
	verbose      bool
	apiKey       string
	model        string
	language     string
	rulesPath    string
	maxAttempts  int
	batchWidth   int
	repairPasses int
	verifyMillis int
	runTests     bool
)

// specFile is the on-disk session input: the specification plus
// optional test cases for the counterexample loop.
type specFile struct {
	Signature  ir.Signature   `yaml:"signature"`
	Assertions []ir.Assertion `yaml:"assertions,omitempty"`
	Effects    []ir.Effect    `yaml:"effects,omitempty"`
	TestCases  []struct {
		Inputs   []string `yaml:"inputs"`
		Expected string   `yaml:"expected"`
	} `yaml:"test_cases,omitempty"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "crucible",
		Short: "Synthesis-verification-repair engine",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var logger *zap.Logger
			var err error
			if verbose {
				logger, err = zap.NewDevelopment()
			} else {
				logger, err = zap.NewProduction()
			}
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			logging.SetLogger(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	synthCmd := &cobra.Command{
		Use:   "synth <spec.yaml>",
		Short: "Run one synthesis session from a spec file",
		Args:  cobra.ExactArgs(1),
		RunE:  runSynth,
	}
	synthCmd.Flags().StringVar(&apiKey, "api-key", os.Getenv("GEMINI_API_KEY"), "Gemini API key")
	synthCmd.Flags().StringVar(&model, "model", "", "generator model name")
	synthCmd.Flags().StringVar(&language, "language", "python", "candidate language (python or go)")
	synthCmd.Flags().StringVar(&rulesPath, "rules", "", "extra YAML rule table")
	synthCmd.Flags().IntVar(&maxAttempts, "attempts", 3, "max generation rounds")
	synthCmd.Flags().IntVar(&batchWidth, "batch", 1, "best-of-N batch width")
	synthCmd.Flags().IntVar(&repairPasses, "repair-passes", 4, "max repair passes per candidate")
	synthCmd.Flags().IntVar(&verifyMillis, "verify-timeout-ms", 500, "verifier wall-clock bound")
	synthCmd.Flags().BoolVar(&runTests, "run-tests", false, "execute test cases in the sandboxed runner (go candidates only)")
	rootCmd.AddCommand(synthCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runSynth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read spec: %w", err)
	}
	var sf specFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("parse spec: %w", err)
	}
	spec := &ir.Spec{Signature: sf.Signature, Assertions: sf.Assertions, Effects: sf.Effects}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("spec: %w", err)
	}

	lang := candidate.Language(language)
	if lang != candidate.LanguagePython && lang != candidate.LanguageGo {
		return fmt.Errorf("unsupported language %q", language)
	}

	if apiKey == "" {
		return errors.New("no API key: pass --api-key or set GEMINI_API_KEY")
	}
	gen, err := generator.NewGeminiGenerator(ctx, apiKey, model, lang)
	if err != nil {
		return err
	}

	lib, err := loadLibrary(spec)
	if err != nil {
		return err
	}

	cfg := session.Config{
		Budget: session.Budget{
			MaxAttempts:     maxAttempts,
			MaxRepairPasses: repairPasses,
			BatchWidth:      batchWidth,
			Temperatures:    []float64{0.2, 0.6, 0.9},
		},
		VerifyTimeout: time.Duration(verifyMillis) * time.Millisecond,
	}
	if runTests && len(sf.TestCases) > 0 {
		cfg.Runner = runner.NewYaegiRunner(0)
		for _, tc := range sf.TestCases {
			cfg.TestCases = append(cfg.TestCases, candidate.TestCase{Inputs: tc.Inputs, Expected: tc.Expected})
		}
	}

	ctrl := session.NewController(gen, lib, cfg)
	defer ctrl.Close()

	res, err := ctrl.Run(ctx, spec)
	if res != nil {
		fmt.Print(res.Report())
	}
	if err != nil && !errors.Is(err, session.ErrExhausted) {
		return err
	}
	return nil
}

// loadLibrary builds the builtin rules for the spec and merges an
// optional user rule table on top.
func loadLibrary(spec *ir.Spec) (*rules.Library, error) {
	if rulesPath == "" {
		return rules.DefaultLibrary(spec)
	}

	data, err := os.ReadFile(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("read rule table: %w", err)
	}
	extra, err := rules.LoadYAML(data)
	if err != nil {
		return nil, err
	}

	builtin, err := rules.DefaultLibrary(spec)
	if err != nil {
		return nil, err
	}
	merged := rules.NewLibrary()
	for _, r := range builtin.Rules() {
		if err := merged.Register(r); err != nil {
			return nil, err
		}
	}
	for _, r := range extra.Rules() {
		if err := merged.Register(r); err != nil {
			return nil, err
		}
	}
	merged.Seal()
	return merged, nil
}
