package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"acumensync/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "acumensync",
	Short: "Reconcile Acumen work shifts into SQLite, sum biweekly/monthly hours, and mirror them to Google Calendar.",
	Long: `
This CLI pulls work-shift records from the Acumen DCI portal for a configured
employee roster, reconciles them against a local SQLite database, computes
biweekly and monthly hour totals per service code, and idempotently mirrors
accepted shifts into Google Calendar.
`,
	Example: `
  # Create configuration file
  acumensync config create

  # Daily batch for the current month-to-date
  acumensync run

  # Preview decisions without touching the store, calendar, or mail
  acumensync run --dry-run

  # Reconcile a specific month
  acumensync run --month 2026-07

  # Print period summaries from the local store only
  acumensync report --month 2026-07

  # Export summaries
  acumensync export --month 2026-07 --output ./hours.xlsx
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	config.SetDefaults()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "configFile", "", "Config file override (default discovery: $HOME/.acumensync.yaml, then ./.acumensync.yaml)")

	rootCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if !requiresConfig(cmd) {
			return nil
		}

		_, err := config.LoadAndValidate()
		return err
	}
}

func requiresConfig(cmd *cobra.Command) bool {
	return cmd != nil && cmd.Name() == "run"
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".acumensync" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".acumensync")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "No config file found. Create one first with: acumensync config create")
	}
}
