// Command ultrasearch-service is the long-lived UltraSearch process: it
// wires volume discovery, NTFS watching, the metadata and content
// indices, the scheduler, and the IPC server (spec §2), then blocks
// until asked to stop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ultrasearch/ultrasearch/pkg/errs"
	"github.com/ultrasearch/ultrasearch/pkg/log"
	"github.com/ultrasearch/ultrasearch/pkg/service"
)

var (
	// Version is stamped via ldflags in a real release build.
	Version = "dev"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ultrasearch-service: %v\n", err)
		if wrapped, ok := err.(*wrappedRunErr); ok {
			return wrapped.code
		}
		return exitFatal
	}
	return exitClean
}

// Exit codes named in spec §6: 0 clean stop, 64 config error, 65 state
// directory unreadable, 70 fatal I/O.
const (
	exitClean    = 0
	exitConfig   = 64
	exitStateDir = 65
	exitFatal    = 70
)

// wrappedRunErr lets rootCmd.RunE report a specific exit code without
// cobra's own error formatting losing it.
type wrappedRunErr struct {
	code int
	err  error
}

func (w *wrappedRunErr) Error() string { return w.err.Error() }
func (w *wrappedRunErr) Unwrap() error { return w.err }

var rootCmd = &cobra.Command{
	Use:     "ultrasearch-service",
	Short:   "UltraSearch NTFS-native search service",
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		workerPath, _ := cmd.Flags().GetString("worker-path")
		pipeName, _ := cmd.Flags().GetString("pipe-name")

		svc, err := service.New(service.Config{
			ConfigPath: configPath,
			WorkerPath: workerPath,
			PipeName:   pipeName,
		})
		if err != nil {
			if errs.Is(err, errs.ConfigInvalid) {
				return &wrappedRunErr{code: exitConfig, err: err}
			}
			if errs.Is(err, errs.IoFatal) {
				return &wrappedRunErr{code: exitStateDir, err: err}
			}
			return &wrappedRunErr{code: exitFatal, err: err}
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := svc.Start(ctx); err != nil {
			return &wrappedRunErr{code: exitFatal, err: err}
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		log.WithComponent("main").Info().Msg("shutdown signal received")
		if err := svc.Stop(); err != nil {
			return &wrappedRunErr{code: exitFatal, err: err}
		}

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	rootCmd.Flags().String("config", "config/config.toml", "Path to config.toml")
	rootCmd.Flags().String("worker-path", "ultrasearch-worker", "Path to the ultrasearch-worker binary")
	rootCmd.Flags().String("pipe-name", "", "IPC pipe name override (defaults to the protocol's standard name)")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
