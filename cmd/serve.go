package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/virot/tamemycerts/pkg/webservice"
)

var webServicePort int

func init() {
	serveCmd.PersistentFlags().IntVar(&webServicePort, "port", 0, "Web service port (overrides configuration)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the validation web service",
	Long: `Starts the REST boundary the issuing pipeline calls for each
certificate request. Policy documents are loaded once at startup.`,
	Run: func(cmd *cobra.Command, args []string) {

		cfg := App.WebService
		if webServicePort > 0 {
			cfg.Port = webServicePort
		}
		if cfg.Port == 0 {
			cfg.Port = 8330
		}

		server := webservice.NewWebServer(
			App.Logger, cfg, App.Pipeline, App.Documents)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			server.Shutdown()
		}()

		if err := server.Run(); err != nil {
			App.Logger.FatalError(err)
		}
	},
}
