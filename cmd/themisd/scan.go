package main

import (
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan <table> <column> <value>",
	Short: "List primary keys matching an equality index lookup",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, col, val := args[0], args[1], args[2]
		pks, err := eng.ScanKeysEqual(table, col, val)
		if err != nil {
			return err
		}
		for _, pk := range pks {
			cmd.Println(pk)
		}
		return nil
	},
}
