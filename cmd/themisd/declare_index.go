package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/themis-db/themis/internal/index"
)

var (
	declareIndexUnique bool
	declareIndexFlavor string
)

var declareIndexCmd = &cobra.Command{
	Use:   "declare-index <table> <col[,col...]>",
	Short: "Declare a secondary index on a table's column(s)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := args[0]
		columns := strings.Split(args[1], ",")
		flavor := index.Flavor(declareIndexFlavor)
		if err := eng.Index.DeclareIndex(table, columns, flavor, declareIndexUnique, index.Params{}); err != nil {
			return err
		}
		cmd.Printf("declared %s index on %s(%s)\n", flavor, table, args[1])
		return nil
	},
}

func init() {
	declareIndexCmd.Flags().StringVar(&declareIndexFlavor, "flavor", string(index.FlavorEquality), "Index flavor: equality|composite|range|sparse|geo|ttl|fulltext")
	declareIndexCmd.Flags().BoolVar(&declareIndexUnique, "unique", false, "Enforce uniqueness")
}
