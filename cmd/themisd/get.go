package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <table> <pk>",
	Short: "Read an entity's primary record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, pk := args[0], args[1]
		e, err := eng.Get(table, pk)
		if err != nil {
			return err
		}
		fields, err := e.Fields()
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(fields, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(out))
		return nil
	},
}
