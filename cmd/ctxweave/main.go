// Package main is the entry point for the ctxweave CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mfaure/ctxweave/internal/bridge"
	"github.com/mfaure/ctxweave/internal/config"
	"github.com/mfaure/ctxweave/internal/correlate"
	"github.com/mfaure/ctxweave/internal/gateway"
	"github.com/mfaure/ctxweave/internal/telemetry"
	"github.com/mfaure/ctxweave/pkg/conversation"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ctxweave",
		Short:         "Dependency correlation and context bridging for compressed agent conversations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.AddCommand(versionCmd(), analyzeCmd(), bridgeCmd(), serveCmd(), configCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("ctxweave %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <conversation-file>",
		Short: "Detect dependency references and clusters in a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			doc, err := conversation.LoadFile(args[0])
			if err != nil {
				return err
			}

			correlator := correlate.New(cfg.Correlator)
			result := correlator.Correlate(doc.Items)

			asJSON, _ := cmd.Flags().GetBool("json")
			if asJSON {
				return printJSON(cmd, result)
			}
			printCorrelation(cmd, correlator, doc.Items, result)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Emit machine-readable JSON")
	return cmd
}

func bridgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bridge <conversation-file>",
		Short: "Generate context bridges for the gaps an external filter left",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			doc, err := conversation.LoadFile(args[0])
			if err != nil {
				return err
			}

			retained, _ := cmd.Flags().GetStringSlice("retained")
			if len(retained) == 0 {
				retained = doc.Retained
			}
			if len(retained) == 0 {
				return fmt.Errorf("no retained ids: pass --retained or add a retained list to the file")
			}

			strategyName, _ := cmd.Flags().GetString("strategy")
			var strategy bridge.Strategy
			if strategyName != "" {
				strategy, err = bridge.ParseStrategy(strategyName)
				if err != nil {
					return err
				}
			}

			builder := bridge.NewBuilder(correlate.New(cfg.Correlator), cfg.Bridge)
			result, err := builder.Build(doc.Items, retained, strategy)
			if err != nil {
				return err
			}

			asJSON, _ := cmd.Flags().GetBool("json")
			if asJSON {
				return printJSON(cmd, result)
			}
			printBridging(cmd, result)
			return nil
		},
	}
	cmd.Flags().StringSlice("retained", nil, "Comma-separated ids the filter kept")
	cmd.Flags().String("strategy", "", "Bridging strategy (conservative, moderate, aggressive, dependency_only)")
	cmd.Flags().Bool("json", false, "Emit machine-readable JSON")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis engine over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
			if err != nil {
				return err
			}
			defer func() {
				_ = shutdown(context.Background())
			}()

			correlator := correlate.New(cfg.Correlator)
			builder := bridge.NewBuilder(correlator, cfg.Bridge)
			server := gateway.New(cfg.Gateway, logger, correlator, builder)
			return server.Run(ctx)
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration OK")
			return nil
		},
	})
	return cmd
}

// loadConfig reads the --config file when given, otherwise returns an empty
// config whose zero values resolve to package defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return &config.Config{}, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCorrelation(cmd *cobra.Command, correlator *correlate.Correlator, items []conversation.ContentItem, result *correlate.Result) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Processed %d items: %d references (%d filtered out), %d clusters\n\n",
		result.ItemsProcessed, len(result.References), result.Stats.ReferencesFiltered, len(result.Clusters))

	if len(result.IncompleteToolCalls) > 0 {
		fmt.Fprintf(out, "Incomplete tool calls: %v\n\n", result.IncompleteToolCalls)
	}

	for _, ref := range result.References {
		fmt.Fprintf(out, "  [%s/%s] %s → %s  conf=%.2f  %s\n",
			ref.Kind, ref.Strength, ref.SourceID, ref.TargetID, ref.Confidence, ref.MatchedText)
	}
	if len(result.References) > 0 {
		fmt.Fprintln(out)
	}

	for _, cl := range result.Clusters {
		fmt.Fprintf(out, "  cluster %s (%s): %s\n", cl.ID, cl.Strength, cl.Summary)
	}
	if len(result.Clusters) > 0 {
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Dependency strength scores:")
	scored := make([]conversation.ContentItem, len(items))
	copy(scored, items)
	sort.SliceStable(scored, func(i, j int) bool {
		return correlator.StrengthScore(scored[i].ID, result) > correlator.StrengthScore(scored[j].ID, result)
	})
	for _, it := range scored {
		fmt.Fprintf(out, "  %-12s %.3f\n", it.ID, correlator.StrengthScore(it.ID, result))
	}
}

func printBridging(cmd *cobra.Command, result *bridge.BridgingResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Strategy %s: %d bridges, %d gaps filled, %d tokens, preservation %.2f\n\n",
		result.Strategy, len(result.Bridges), result.GapsFilled, result.TotalTokenCost, result.PreservationScore)

	for _, br := range result.Bridges {
		fmt.Fprintf(out, "  [%s p=%d conf=%.2f cost=%d] %s\n", br.Type, br.Priority, br.Confidence, br.TokenCost, br.Content)
		for _, ref := range br.PreservedReferences {
			fmt.Fprintf(out, "      preserves %s\n", ref)
		}
	}
}
