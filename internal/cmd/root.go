// Package cmd implements the adunit command line.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/OlenaTeqBlaze/adunit/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "adunit",
	Short: "Interstitial ad unit lifecycle simulator",
	Long: `adunit drives an interstitial ad unit through its lifecycle
(idle, loading, ready, showing) against a simulated ad network.

Run scripted scenarios with 'adunit run', or explore the lifecycle
interactively with 'adunit simulate'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/adunit/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("ADUNIT")
	// Replace dots with underscores for nested keys in env vars
	// e.g., ADUNIT_SIMULATOR_FILL_RATE for simulator.fill_rate
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
