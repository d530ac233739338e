package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/virot/tamemycerts/pkg/directory"
	"github.com/virot/tamemycerts/pkg/request"
)

var (
	csrFile       string
	principalFile string
	templateName  string
	requestID     int
)

func init() {
	validateCmd.PersistentFlags().StringVar(&csrFile, "csr", "", "PEM encoded certificate signing request")
	validateCmd.PersistentFlags().StringVar(&principalFile, "principal", "", "JSON file with the resolved directory principal")
	validateCmd.PersistentFlags().StringVar(&templateName, "template", "", "Certificate template / policy document name")
	validateCmd.PersistentFlags().IntVar(&requestID, "request-id", 0, "Request ID assigned by the issuing pipeline")
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a certificate signing request against a policy document",
	Long: `Parses a PEM encoded CSR, evaluates it against the named policy
document together with the supplied directory principal, and prints the
verdict. The exit code is nonzero when the request is denied.`,
	Run: func(cmd *cobra.Command, args []string) {

		document, ok := App.Documents[templateName]
		if !ok {
			App.Logger.Fatalf("no policy document for template %q", templateName)
		}

		pemBytes, err := afero.ReadFile(App.FS, csrFile)
		if err != nil {
			App.Logger.FatalError(err)
		}
		req, err := request.FromPEM(requestID, templateName, pemBytes)
		if err != nil {
			App.Logger.FatalError(err)
		}

		var principal *directory.Principal
		if principalFile != "" {
			principalBytes, err := afero.ReadFile(App.FS, principalFile)
			if err != nil {
				App.Logger.FatalError(err)
			}
			principal = &directory.Principal{}
			if err := json.Unmarshal(principalBytes, principal); err != nil {
				App.Logger.FatalError(err)
			}
		} else {
			principal = &directory.Principal{}
		}

		result := App.Pipeline.Validate(req, principal, document)

		if result.DeniedForIssuance() {
			color.Red("DENIED (%s)", result.Code)
			for _, description := range result.Descriptions {
				fmt.Printf("  %s\n", description)
			}
		} else {
			color.Green("APPROVED")
		}
		for _, warning := range result.Warnings {
			color.Yellow("  warning: %s", warning)
		}

		if result.DeniedForIssuance() {
			os.Exit(1)
		}
	},
}
