package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/doctopus/leavewatch/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// webCmd represents the web command
var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Start the leavewatch dashboard",
	Long: `Start a web server showing the leave report, the replacement dashboard and
the checklist used to mark doctors as replaced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		fetcher, err := newFetcher()
		if err != nil {
			return err
		}

		srv := server.New(server.Config{
			ReportURL: viper.GetString("report.url"),
			Username:  viper.GetString("web.username"),
			Password:  viper.GetString("web.password"),
		}, store, fetcher)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// A failed first fetch is rendered on the page and can be retried from there.
		_ = srv.Refresh(ctx)

		return srv.Start(ctx, viper.GetString("web.bind"))
	},
}

func init() {
	rootCmd.AddCommand(webCmd)

	webCmd.Flags().StringP("bind", "b", ":8501", "Address to bind the server to")
	webCmd.Flags().StringP("username", "u", "", "Username for basic auth (optional)")
	webCmd.Flags().StringP("password", "p", "", "Password for basic auth (optional)")

	viper.BindPFlag("web.bind", webCmd.Flags().Lookup("bind"))
	viper.BindPFlag("web.username", webCmd.Flags().Lookup("username"))
	viper.BindPFlag("web.password", webCmd.Flags().Lookup("password"))
}
