package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/virot/tamemycerts/pkg/app"
)

var (
	App       *app.App
	DebugFlag bool
	ConfigDir,
	LogDir,
	PolicyDir,
	ExportDir string
)

var rootCmd = &cobra.Command{
	Use:   app.Name,
	Short: "Policy engine for certificate signing requests",
	Long: `Evaluates certificate signing requests against ordered policy rule
lists, verifies embedded YubiKey PIV attestation statements against the
pinned Yubico root, and renders outcome notifications. The verdict is
handed back to the issuing pipeline; this tool never signs anything.`,
	TraverseChildren: true,
}

func init() {

	cobra.OnInitialize(func() {
		App = app.NewApp().Init(&app.AppInitParams{
			Debug:     DebugFlag,
			ConfigDir: ConfigDir,
			LogDir:    LogDir,
			PolicyDir: PolicyDir,
			ExportDir: ExportDir,
		})
	})

	rootCmd.PersistentFlags().BoolVarP(&DebugFlag, "debug", "", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVarP(&ConfigDir, "config-dir", "", "/etc/"+app.Name, "Directory where configuration files are stored")
	rootCmd.PersistentFlags().StringVarP(&LogDir, "log-dir", "", "log", "Logging directory")
	rootCmd.PersistentFlags().StringVarP(&PolicyDir, "policy-dir", "", "policies", "Directory containing policy documents")
	rootCmd.PersistentFlags().StringVarP(&ExportDir, "export-dir", "", "", "Directory for validation audit exports (disabled when empty)")

	viper.BindPFlags(rootCmd.PersistentFlags())
}

func Execute() error {
	return rootCmd.Execute()
}
