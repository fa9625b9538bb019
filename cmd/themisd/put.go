package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/themis-db/themis/internal/entity"
)

var putCmd = &cobra.Command{
	Use:   "put <table> <pk> <field=value>...",
	Short: "Write an entity's fields through the write coordinator",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, pk := args[0], args[1]
		fields := map[string]entity.Value{}
		for _, kv := range args[2:] {
			field, value, ok := strings.Cut(kv, "=")
			if !ok {
				fatalf("invalid field assignment %q, expected field=value", kv)
			}
			fields[field] = entity.String(value)
		}
		if err := eng.Put(table, pk, fields, nil); err != nil {
			return err
		}
		cmd.Printf("put %s/%s\n", table, pk)
		return nil
	},
}
