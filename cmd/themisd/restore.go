package main

import (
	"github.com/spf13/cobra"

	"github.com/themis-db/themis/internal/engine"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <dir>",
	Short: "Replace the data directory with a checkpoint and reopen the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := eng.Config
		if err := eng.Close(); err != nil {
			return err
		}
		restored, err := engine.Restore(args[0], cfg)
		if err != nil {
			return err
		}
		eng = restored
		cmd.Printf("restored from %s\n", args[0])
		return nil
	},
}
