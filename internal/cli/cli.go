// ============================================================================
// Emberlog CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Provides user-friendly command line interface based on Cobra
//
// Command Structure:
//   emberlog                        # Root command
//   ├── run                         # Start the logging pipeline
//   │   └── --config, -c           # Specify config file
//   ├── emit                        # Submit records from a JSON file
//   │   └── --file, -f             # Specify records JSON file
//   ├── status                      # View pipeline configuration
//   ├── --version                   # Display version information
//   └── --help                      # Display help information
//
// Configuration Management:
//   Uses YAML format config file (default: configs/default.yaml)
//   Configuration items include:
//   - appenders: one entry per sink (console/memory/file), with level
//   - queue: main and per-appender queue sizes
//   - metrics: Prometheus monitoring configuration
//   - diagnostics: periodic snapshot recorder configuration
//
// run Command:
//   Starts the full pipeline:
//   1. Load config file
//   2. Build appenders and construct the LogWriter
//   3. Start the Metrics HTTP server (if enabled)
//   4. Start the diagnostics recorder (if enabled)
//   5. Listen for system signals (SIGINT, SIGTERM)
//   6. Gracefully shut down
//
// ============================================================================

package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/emberlog/pipeline/internal/appenders"
	"github.com/emberlog/pipeline/internal/diagnostics"
	"github.com/emberlog/pipeline/internal/logpipe"
	"github.com/emberlog/pipeline/internal/metrics"
)

// AppenderConfig describes one configured sink.
type AppenderConfig struct {
	Name            string `yaml:"name"`
	Type            string `yaml:"type"` // console | memory | file
	Level           string `yaml:"level"`
	Path            string `yaml:"path,omitempty"`
	BatchSize       int    `yaml:"batch_size,omitempty"`
	FlushIntervalMs int    `yaml:"flush_interval_ms,omitempty"`
}

// Config represents the complete pipeline configuration structure.
// Maps config file fields through YAML tags.
type Config struct {
	Appenders []AppenderConfig `yaml:"appenders"`

	Queue struct {
		MainSize     int `yaml:"main_size"`
		AppenderSize int `yaml:"appender_size"`
	} `yaml:"queue"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`

	Diagnostics struct {
		Enabled         bool   `yaml:"enabled"`
		Dir             string `yaml:"dir"`
		IntervalSeconds int    `yaml:"interval_seconds"`
		RetentionCount  int    `yaml:"retention_count"`
	} `yaml:"diagnostics"`
}

var (
	configFile   string
	globalWriter *logpipe.LogWriter
)

// BuildCLI assembles the emberlog root command and its subcommands.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "emberlog",
		Short: "Emberlog: an asynchronous, multi-sink logging pipeline",
		Long: `Emberlog decouples producers from slow or unreliable sinks:
- Bounded, backpressured main queue
- One worker goroutine per appender, independently restartable
- Prometheus metrics and periodic diagnostics snapshots`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildEmitCommand())
	rootCmd.AddCommand(buildStatusCommand())

	return rootCmd
}

func buildRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the pipeline and block until terminated",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline()
		},
	}
	return cmd
}

func runPipeline() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log.Printf("Starting emberlog with %d appenders\n", len(cfg.Appenders))

	writer, _, err := buildWriter(cfg)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	globalWriter = writer
	defer writer.Close()

	if cfg.Metrics.Enabled {
		go func() {
			log.Printf("Starting metrics server on :%d\n", cfg.Metrics.Port)
			if err := metrics.StartServer(cfg.Metrics.Port); err != nil {
				log.Printf("Metrics server error: %v\n", err)
			}
		}()
	}

	if cfg.Diagnostics.Enabled {
		recorder := diagnostics.NewRecorder(
			writer,
			cfg.Diagnostics.Dir,
			time.Duration(cfg.Diagnostics.IntervalSeconds)*time.Second,
			cfg.Diagnostics.RetentionCount,
		)
		if err := recorder.Start(); err != nil {
			log.Printf("Diagnostics recorder failed to start: %v\n", err)
		} else {
			defer recorder.Stop()
		}
	}

	log.Println("Pipeline started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Received shutdown signal, stopping gracefully...")

	return nil
}

func buildWriter(cfg *Config) (*logpipe.LogWriter, *metrics.Collector, error) {
	var built []logpipe.Appender
	var levels []logpipe.Level

	for _, ac := range cfg.Appenders {
		level, err := logpipe.ParseLevel(ac.Level)
		if err != nil {
			return nil, nil, err
		}

		appender, err := buildAppender(ac)
		if err != nil {
			return nil, nil, err
		}

		built = append(built, appender)
		levels = append(levels, level)
	}

	var collector *metrics.Collector
	opts := []logpipe.Option{}
	if cfg.Queue.MainSize > 0 {
		opts = append(opts, logpipe.WithMainQueueSize(cfg.Queue.MainSize))
	}
	if cfg.Queue.AppenderSize > 0 {
		opts = append(opts, logpipe.WithAppenderQueueSize(cfg.Queue.AppenderSize))
	}
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
		opts = append(opts, logpipe.WithMetrics(collector))
	}

	writer, err := logpipe.BuildLogWriter(built, levels, opts...)
	if err != nil {
		return nil, nil, err
	}
	return writer, collector, nil
}

func buildAppender(ac AppenderConfig) (logpipe.Appender, error) {
	switch ac.Type {
	case "console":
		return appenders.NewConsoleAppender(ac.Name), nil
	case "memory":
		return appenders.NewMemoryAppender(ac.Name), nil
	case "file":
		if ac.Path == "" {
			return nil, fmt.Errorf("%w: file appender %q requires a path", logpipe.ConfigurationError, ac.Name)
		}
		batchSize := ac.BatchSize
		if batchSize <= 0 {
			batchSize = 1
		}
		flushInterval := time.Duration(ac.FlushIntervalMs) * time.Millisecond
		return appenders.NewFileAppender(ac.Name, ac.Path, batchSize, flushInterval), nil
	default:
		return nil, fmt.Errorf("%w: unknown appender type %q", logpipe.ConfigurationError, ac.Type)
	}
}

func buildEmitCommand() *cobra.Command {
	var recordsFile string

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Submit records from a JSON file through a one-shot pipeline build",
		Long:  "Builds a pipeline from config, submits every record in the file, then shuts down once they drain.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if recordsFile == "" {
				return fmt.Errorf("records file is required (use --file or -f)")
			}
			return emitRecords(recordsFile)
		},
	}

	cmd.Flags().StringVarP(&recordsFile, "file", "f", "", "JSON file containing records to submit")
	cmd.MarkFlagRequired("file")

	return cmd
}

type recordInput struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Tag     string `json:"tag"`
}

func emitRecords(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read records file: %w", err)
	}

	var inputs []recordInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return fmt.Errorf("failed to parse records file: %w", err)
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	writer, _, err := buildWriter(cfg)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer writer.Close()

	submitted := 0
	for _, in := range inputs {
		level, err := logpipe.ParseLevel(in.Level)
		if err != nil {
			log.Printf("Skipping record with invalid level %q: %v\n", in.Level, err)
			continue
		}
		if err := writer.Log(level, in.Message, in.Tag); err != nil {
			log.Printf("Failed to submit record: %v\n", err)
			continue
		}
		submitted++
	}

	log.Printf("Submitted %d/%d records from %s\n", submitted, len(inputs), filePath)
	return nil
}

func buildStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pipeline configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus()
		},
	}
	return cmd
}

func showStatus() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Emberlog pipeline status")
	fmt.Printf("  Config file:        %s\n", configFile)
	fmt.Printf("  Appenders:          %d configured\n", len(cfg.Appenders))
	for _, ac := range cfg.Appenders {
		fmt.Printf("    - %-12s type=%-8s level=%s\n", ac.Name, ac.Type, ac.Level)
	}
	fmt.Printf("  Main queue size:    %d\n", cfg.Queue.MainSize)
	fmt.Printf("  Appender queue size: %d\n", cfg.Queue.AppenderSize)

	if cfg.Metrics.Enabled {
		fmt.Printf("  Metrics:            enabled on :%d/metrics\n", cfg.Metrics.Port)
	} else {
		fmt.Println("  Metrics:            disabled")
	}

	if globalWriter != nil {
		fmt.Printf("  Registered at runtime: %d\n", globalWriter.AppendersCount())
		fmt.Printf("  Computed min_level:    %s\n", globalWriter.MinLevel())
	} else {
		fmt.Println("  Pipeline not running in this process (run 'emberlog run' to start)")
		if minLevel, ok := computeConfiguredMinLevel(cfg); ok {
			fmt.Printf("  Computed min_level:    %s\n", minLevel)
		}
	}

	return nil
}

// computeConfiguredMinLevel previews the min_level a writer built from
// cfg would compute, without actually constructing one. Returns false
// if cfg has no appenders or any appender's level fails to parse.
func computeConfiguredMinLevel(cfg *Config) (logpipe.Level, bool) {
	if len(cfg.Appenders) == 0 {
		return 0, false
	}
	min, err := logpipe.ParseLevel(cfg.Appenders[0].Level)
	if err != nil {
		return 0, false
	}
	for _, ac := range cfg.Appenders[1:] {
		level, err := logpipe.ParseLevel(ac.Level)
		if err != nil {
			return 0, false
		}
		if level < min {
			min = level
		}
	}
	return min, true
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	return &cfg, nil
}
