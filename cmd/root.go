package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/doctopus/leavewatch/internal/utils"
	"github.com/doctopus/leavewatch/pkg/tracking"
	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "leavewatch",
	Short: "Keep track of which doctors on leave have been replaced.",
	Long: `leavewatch reads the weekly leave report exported from Metabase and records,
for every doctor on leave, whether a replacement has been found.

Run "leavewatch web" for the dashboard, or use the other commands from a shell.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.leavewatch.yaml)")
	pf.StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	pf.String("url", "", "Metabase CSV export URL of the leave report")
	pf.String("proxy", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	pf.Int("retries", 0, "Extra attempts when fetching the report fails")
	pf.Duration("timeout", 0, "Timeout for fetching the report (0 disables it)")
	pf.String("store", "", "Path of the tracking store (default depends on --store-backend)")
	pf.String("store-backend", tracking.BackendJSON, "Tracking store backend. Available: json, sqlite")

	viper.BindPFlag("report.url", pf.Lookup("url"))
	viper.BindPFlag("report.proxy", pf.Lookup("proxy"))
	viper.BindPFlag("report.retries", pf.Lookup("retries"))
	viper.BindPFlag("report.timeout", pf.Lookup("timeout"))
	viper.BindPFlag("store.path", pf.Lookup("store"))
	viper.BindPFlag("store.backend", pf.Lookup("store-backend"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".leavewatch")
		viper.SetConfigType("yaml")
	}

	// LEAVEWATCH_REPORT_URL, LEAVEWATCH_STORE_BACKEND, ...
	viper.SetEnvPrefix("leavewatch")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}

	viper.SetDefault("web.bind", ":8501")
	viper.SetDefault("web.username", "")
	viper.SetDefault("web.password", "")

	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	if err := utils.SetLogLevel(levelString); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if f := viper.ConfigFileUsed(); f != "" {
		utils.Log.Debugf("Using config file %s", f)
	}
}
