package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	policyCmd.AddCommand(policyListCmd)
	policyCmd.AddCommand(policyShowCmd)
	rootCmd.AddCommand(policyCmd)
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect loaded policy documents",
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the loaded policy documents",
	Run: func(cmd *cobra.Command, args []string) {
		for name, document := range App.Documents {
			fmt.Printf("%s\t%d rules", name, len(document.Rules))
			if document.Notify != nil && document.Notify.Enabled() {
				fmt.Printf("\tnotify")
			}
			fmt.Println()
		}
	},
}

var policyShowCmd = &cobra.Command{
	Use:   "show [template]",
	Short: "Print a policy document as YAML",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		document, ok := App.Documents[args[0]]
		if !ok {
			color.Red("no policy document for template %q", args[0])
			return
		}
		fmt.Print(document.String())
	},
}
