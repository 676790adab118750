package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/speeddraw/internal/style"
)

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List paint-reveal styles",
	Example: `  # List styles in table format (default)
  speeddraw styles

  # List styles in JSON format
  speeddraw styles --format json`,
	RunE: runStyles,
}

var stylesFormat string

func init() {
	rootCmd.AddCommand(stylesCmd)

	stylesCmd.Flags().StringVarP(&stylesFormat, "format", "f", "table", "output format (table or json)")
}

func runStyles(cmd *cobra.Command, args []string) error {
	infos := style.Catalog()

	switch stylesFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(infos)
	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION\tBEST FOR")
		fmt.Fprintln(w, "--\t----\t-----------\t--------")
		for _, info := range infos {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", int(info.ID), info.Name, info.Description, info.BestFor)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", stylesFormat)
	}
}
