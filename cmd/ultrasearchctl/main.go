// Command ultrasearchctl is the CLI client for a running
// ultrasearch-service, talking to it over the IPC pipe (spec §4.7) to
// issue searches and inspect or change its configuration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ultrasearch/ultrasearch/pkg/ipc"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ultrasearchctl: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ultrasearchctl",
	Short: "UltraSearch command-line client",
}

func init() {
	rootCmd.PersistentFlags().String("pipe-name", "", "IPC pipe name override (defaults to the protocol's standard name)")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)

	searchCmd.Flags().Int("limit", 50, "Maximum number of results")
	searchCmd.Flags().Int("offset", 0, "Result offset for pagination")
	searchCmd.Flags().String("mode", "auto", "Search mode: auto, name, content, hybrid")
	searchCmd.Flags().Int("deadline-ms", 2000, "Per-request deadline in milliseconds")

	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

func dial(cmd *cobra.Command) (*ipc.Client, error) {
	pipeName, _ := cmd.Flags().GetString("pipe-name")
	if pipeName == "" {
		pipeName = ipc.DefaultPipeName
	}
	return ipc.Dial(pipeName)
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search the metadata and content indices",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := args[0]
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		mode, _ := cmd.Flags().GetString("mode")
		deadlineMs, _ := cmd.Flags().GetInt("deadline-ms")

		c, err := dial(cmd)
		if err != nil {
			return fmt.Errorf("connect to service: %w", err)
		}
		defer c.Close()

		resp, err := c.Search(query, limit, offset, mode, deadlineMs)
		if err != nil {
			return fmt.Errorf("search request failed: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("%s: %s", resp.ErrKind, resp.ErrMsg)
		}

		if len(resp.Hits) == 0 {
			fmt.Println("No results")
			return nil
		}

		for _, hit := range resp.Hits {
			fmt.Printf("%.3f  %s\n", hit.Score, hit.Path)
			if hit.Snippet != "" {
				fmt.Printf("       %s\n", hit.Snippet)
			}
		}
		if resp.TimedOut {
			fmt.Fprintln(os.Stderr, "warning: query timed out, results are partial")
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report service health",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial(cmd)
		if err != nil {
			return fmt.Errorf("connect to service: %w", err)
		}
		defer c.Close()

		resp, err := c.Status()
		if err != nil {
			return fmt.Errorf("status request failed: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("%s: %s", resp.ErrKind, resp.ErrMsg)
		}

		s := resp.Status
		fmt.Printf("version:          %s\n", s.Version)
		fmt.Printf("uptime:           %ds\n", s.UptimeSeconds)
		fmt.Printf("metadata docs:    %d\n", s.MetadataDocsTotal)
		fmt.Printf("content docs:     %d\n", s.ContentDocsTotal)
		fmt.Printf("scheduler state:  %s\n", s.SchedulerIdle)
		fmt.Printf("content queue:    %d\n", s.QueueDepth)
		fmt.Println("volumes:")
		for _, v := range s.Volumes {
			if v.LastError != "" {
				fmt.Printf("  %s  %s  (%s)\n", v.Name, v.State, v.LastError)
				continue
			}
			fmt.Printf("  %s  %s\n", v.Name, v.State)
		}
		if len(s.Quarantined) > 0 {
			fmt.Println("quarantined:")
			for _, q := range s.Quarantined {
				fmt.Printf("  %s: %s\n", q.Path, q.Reason)
			}
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or change running configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial(cmd)
		if err != nil {
			return fmt.Errorf("connect to service: %w", err)
		}
		defer c.Close()

		resp, err := c.ConfigGet(args[0])
		if err != nil {
			return fmt.Errorf("config_get request failed: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("%s: %s", resp.ErrKind, resp.ErrMsg)
		}

		fmt.Println(resp.ConfigValue)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial(cmd)
		if err != nil {
			return fmt.Errorf("connect to service: %w", err)
		}
		defer c.Close()

		resp, err := c.ConfigSet(args[0], args[1])
		if err != nil {
			return fmt.Errorf("config_set request failed: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("%s: %s", resp.ErrKind, resp.ErrMsg)
		}

		fmt.Printf("%s = %s\n", args[0], resp.ConfigValue)
		return nil
	},
}
