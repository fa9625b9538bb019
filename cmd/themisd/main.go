// Command themisd is a demo CLI/daemon entry point over the Themis
// indexing core: open a store, put/get/scan entities, declare indexes,
// checkpoint/restore, and stream the changefeed over SSE.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/themis-db/themis/internal/config"
	"github.com/themis-db/themis/internal/engine"
)

var (
	configPath string
	jsonOutput bool
	eng        *engine.Engine
)

var rootCmd = &cobra.Command{
	Use:   "themisd",
	Short: "themisd - multi-model indexing core demo daemon/CLI",
	Long:  "A KV-backed entity store with secondary indexes, a graph index, a vector index, and a changefeed.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		e, err := engine.Open(cfg)
		if err != nil {
			return fmt.Errorf("opening engine: %w", err)
		}
		eng = e
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if eng == nil {
			return nil
		}
		return eng.Close()
	},
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "themisd: "+format+"\n", args...)
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(declareIndexCmd)
	rootCmd.AddCommand(checkpointCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(serveChangefeedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
