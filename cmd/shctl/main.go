package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"nithronos/secheaders/pkg/client"
)

var (
	// Version info (set by build)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// Global flags
	cfgFile    string
	baseURL    string
	token      string
	outputJSON bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "shctl",
	Short: "Security headers policy command-line interface",
	Long: `shctl manages security header policies held by shd.

Commands that take -f work on a local YAML or JSON document without
contacting the daemon.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/shd/cli.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "", "shd API URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "API token")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))

	rootCmd.AddCommand(
		newDefaultsCmd(),
		newGetCmd(),
		newPutCmd(),
		newHeadersCmd(),
		newValidateCmd(),
		newScoreCmd(),
		newExportCmd(),
		newPostureCmd(),
		newVersionCmd(),
		newCompletionCmd(),
	)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("cli")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME/.config/shd")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("SHCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}

	if baseURL == "" {
		baseURL = viper.GetString("url")
		if baseURL == "" {
			baseURL = "http://127.0.0.1:9100"
		}
	}
	if token == "" {
		token = viper.GetString("token")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiClient() *client.Client {
	return client.New(baseURL, token)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
