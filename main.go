package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"traitforge/builder"
	"traitforge/core"
	"traitforge/db"
	"traitforge/logging"
	"traitforge/metadata"
	"traitforge/resize"
	"traitforge/supply"
	"traitforge/validation"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Use fmt here since logger isn't initialized yet
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	// Determine if running in development mode
	isDevelopment := os.Getenv("DEV_MODE") == "true"

	logFile := core.GetEnvOrDefault("TRAITFORGE_LOG_FILE", "traitforge.log")
	logger, err := logging.NewLogger(isDevelopment, logFile)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(core.ExitCodeError)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Printf("Failed to sync logger: %v\n", syncErr)
		}
	}()

	mode := "generate"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	switch mode {
	case "generate":
		os.Exit(runGenerate(logger))
	case "resize":
		os.Exit(runResize(logger))
	case "validate":
		os.Exit(runValidateSupply(logger))
	case "check":
		// Configuration check only, no generation.
		suite := validation.NewSuite().WithShowProgress(true)
		if !suite.Validate().Success {
			os.Exit(core.ExitCodeError)
		}
		os.Exit(core.ExitCodeSuccess)
	default:
		fmt.Printf("Unknown mode %q. Modes: generate (default), resize, validate, check\n", mode)
		os.Exit(core.ExitCodeError)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, plus a
// getter for the exit code matching the received signal.
func signalContext(logger *logging.Logger) (context.Context, context.CancelFunc, func() int) {
	ctx, cancel := context.WithCancel(context.Background())

	exitCode := core.ExitCodeSuccess
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-sigChan
		if !ok {
			return
		}
		logger.Info("Received interrupt signal. Shutting down...",
			zap.String("signal", sig.String()))
		if sig == syscall.SIGTERM {
			exitCode = core.ExitCodeSIGTERM
		} else {
			exitCode = core.ExitCodeSIGINT
		}
		cancel()
	}()

	return ctx, func() { signal.Stop(sigChan); close(sigChan); cancel() }, func() int { return exitCode }
}

// runGenerate validates configuration, then runs the full generation
// pipeline.
func runGenerate(logger *logging.Logger) int {
	suite := validation.NewSuite().WithShowProgress(true)
	result := suite.Validate()
	if !result.Success {
		logger.Error("Startup validation failed", zap.Error(result.GetFirstError()))
		return core.ExitCodeError
	}

	// Reuse what the validation suite already loaded.
	config := suite.Checker().Config()
	reg := suite.Checker().Registry()

	logger.Info("Configuration loaded",
		zap.String("traits_file", config.TraitsFile),
		zap.String("output_dir", config.OutputDir),
		zap.Int("collection_size", config.CollectionSize),
		zap.Int("base_index", config.BaseIndex),
		zap.Bool("seeded", config.HasSeed),
		zap.Int("retry_budget", config.RetryBudget),
		zap.Int("workers", config.Workers),
		zap.Bool("dev_mode", config.DevMode),
	)

	var store *db.Store
	if config.ManifestDB != "" {
		var err error
		store, err = db.Open(config.ManifestDB)
		if err != nil {
			logger.Error("Failed to open manifest database", zap.Error(err))
			return core.ExitCodeError
		}
		defer store.Close()
	}

	b, err := builder.New(reg, metadata.EmitterConfig{
		NameTemplate:        config.NameTemplate,
		DescriptionTemplate: config.DescriptionTemplate,
		ImageBaseURL:        config.ImageBaseURL,
	}, builder.Config{
		Size:        config.CollectionSize,
		BaseIndex:   config.BaseIndex,
		Seed:        config.Seed,
		HasSeed:     config.HasSeed,
		RetryBudget: config.RetryBudget,
		Workers:     config.Workers,
		ImagesDir:   config.ImagesDir,
		MetadataDir: config.MetadataDir,
	}, store, logger)
	if err != nil {
		logger.Error("Failed to create builder", zap.Error(err))
		return core.ExitCodeError
	}

	ctx, stop, signalExit := signalContext(logger)
	defer stop()

	runResult, err := b.Build(ctx)
	if err != nil {
		var retryErr *core.RetryExhaustedError
		switch {
		case errors.As(err, &retryErr):
			logger.Warn("Generation aborted with partial output",
				zap.Int("produced", runResult.Produced),
				zap.Int("retry_budget", retryErr.Budget))
			return core.ExitCodeAborted
		case ctx.Err() != nil:
			logger.Warn("Generation cancelled",
				zap.Int("produced", runResult.Produced))
			return signalExit()
		default:
			logger.Error("Generation failed", zap.Error(err))
			return core.ExitCodeError
		}
	}

	for _, vc := range runResult.Manifest.VariantCounts() {
		logger.Debug("Variant count",
			zap.String("category", vc.Category),
			zap.String("variant", vc.Variant),
			zap.Int("count", vc.Count))
	}
	logger.Info("Collection complete",
		zap.String("run_id", runResult.RunID),
		zap.Int64("seed", runResult.Seed),
		zap.Int("produced", runResult.Produced),
		zap.Int("retries", runResult.Retries))
	return core.ExitCodeSuccess
}

// runResize batch-resizes the generated images. Source and destination
// default to the configured output layout; positional arguments override:
//
//	traitforge resize [src-dir [dst-dir]]
func runResize(logger *logging.Logger) int {
	outputDir := core.GetEnvOrDefault("TRAITFORGE_OUTPUT_DIR", "./output")
	srcDir := filepath.Join(outputDir, "images")
	dstDir := filepath.Join(outputDir, "resized")
	if len(os.Args) > 2 {
		srcDir = os.Args[2]
	}
	if len(os.Args) > 3 {
		dstDir = os.Args[3]
	}
	size := core.ParseIntEnv("TRAITFORGE_RESIZE_SIZE", resize.DefaultSize)
	workers := core.ParseIntEnv("TRAITFORGE_WORKERS", 4)

	ctx, stop, signalExit := signalContext(logger)
	defer stop()

	batch := resize.NewBatch(srcDir, dstDir, size, workers, logger)
	result, err := batch.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return signalExit()
		}
		logger.Error("Resize batch failed", zap.Error(err))
		return core.ExitCodeError
	}
	if result.Failed > 0 {
		logger.Warn("Resize batch finished with failures",
			zap.Int("resized", result.Resized),
			zap.Int("failed", result.Failed))
		return core.ExitCodeError
	}
	return core.ExitCodeSuccess
}

// runValidateSupply checks a finished collection for missing pairs, index
// gaps, unparseable documents, and duplicate attribute sets.
func runValidateSupply(logger *logging.Logger) int {
	outputDir := core.GetEnvOrDefault("TRAITFORGE_OUTPUT_DIR", "./output")
	imagesDir := filepath.Join(outputDir, "images")
	metadataDir := filepath.Join(outputDir, "metadata")
	if len(os.Args) > 2 {
		imagesDir = os.Args[2]
	}
	if len(os.Args) > 3 {
		metadataDir = os.Args[3]
	}

	opts := supply.Options{
		MinID:           core.ParseIntEnv("TRAITFORGE_SUPPLY_MIN_ID", 0),
		MaxID:           core.ParseIntEnv("TRAITFORGE_SUPPLY_MAX_ID", 0),
		CheckImageField: core.ParseBoolEnv("TRAITFORGE_SUPPLY_CHECK_IMAGE_FIELD", false),
	}

	report, err := supply.Validate(imagesDir, metadataDir, opts)
	if err != nil {
		logger.Error("Supply validation failed to run", zap.Error(err))
		return core.ExitCodeError
	}

	fmt.Println(report.Summary())
	for _, bad := range report.InvalidDocuments {
		logger.Warn("Invalid metadata document", zap.Int("id", bad.ID), zap.String("reason", bad.Reason))
	}
	for _, bad := range report.DuplicateAttributes {
		logger.Warn("Duplicate attribute set", zap.Int("id", bad.ID), zap.String("reason", bad.Reason))
	}

	if !report.Valid {
		return core.ExitCodeError
	}
	return core.ExitCodeSuccess
}
