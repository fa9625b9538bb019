package main

import (
	"github.com/spf13/cobra"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint <dir>",
	Short: "Write a full backup of the store's current state to dir",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := eng.Store().Checkpoint(args[0]); err != nil {
			return err
		}
		cmd.Printf("checkpoint written to %s\n", args[0])
		return nil
	},
}
