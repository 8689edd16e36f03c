package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/argus/internal/application"
	appanalysis "github.com/bryanwahyu/argus/internal/application/analysis"
	domain "github.com/bryanwahyu/argus/internal/domain/analysis"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "argus-api",
	Short:         "Image analysis demo service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default $CONFIG_PATH or ./config.yaml)")

	analyzeCmd.PersistentFlags().String("file", "", "image file name to record")
	analyzeCmd.PersistentFlags().Uint64("seed", 0, "fixed random seed; random when unset")
	analyzeDetectCmd.Flags().String("target", "", "object to look for")
	analyzeCmd.AddCommand(analyzeDetectCmd, analyzeGeneralCmd)

	listCmd.Flags().Int("page", 1, "page number")
	listCmd.Flags().Int("page-size", 20, "records per page")

	rootCmd.AddCommand(serveCmd, migrateCmd, analyzeCmd, getCmd, listCmd)
}

// --- migrate ---

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the image_analysis table in the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		repo, db, err := openStore(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}
		if repo == nil {
			logger.Info("memory driver has no schema")
			return nil
		}
		defer db.Close()
		logger.Info("schema ready", "driver", cfg.Database.Driver)
		return nil
	},
}

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run an analysis and store the record",
	Long: `Run an analysis without the HTTP server and store the record.

Examples:
  argus-api analyze detect --file photo1.jpg --target keys
  argus-api analyze general --file room.png --seed 42`,
}

var analyzeDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Look for one object in the image",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		return runAnalyze(cmd, domain.TypeObjectDetection, target)
	},
}

var analyzeGeneralCmd = &cobra.Command{
	Use:   "general",
	Short: "List the objects seen in the image",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd, domain.TypeGeneralAnalysis, "")
	},
}

func runAnalyze(cmd *cobra.Command, t domain.Type, target string) error {
	file, _ := cmd.Flags().GetString("file")
	seed, _ := cmd.Flags().GetUint64("seed")
	if file == "" {
		return fmt.Errorf("--file is required")
	}

	svc, closeFn, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()
	if cmd.Flags().Changed("seed") {
		svc.Rand = application.SeededRand{Seed1: seed, Seed2: seed}
	}

	rec, err := svc.Analyze(cmd.Context(), appanalysis.AnalyzeCommand{
		FileName:     file,
		AnalysisType: t,
		TargetObject: target,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), rec)
}

// --- get / list ---

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a stored analysis record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}
		svc, closeFn, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		rec, err := svc.Get(cmd.Context(), domain.ID(id))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rec)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored analysis records, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("page-size")

		svc, closeFn, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		list, err := svc.List(cmd.Context(), page, size)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), list)
	},
}

func newService(ctx context.Context) (*appanalysis.Service, func(), error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	svc := &appanalysis.Service{
		Repo:   b.repo,
		Clock:  application.SystemClock{},
		Rand:   application.SystemRand{},
		Logger: logger,
	}
	return svc, b.Close, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
