package cmd

import "github.com/spf13/cobra"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage acumensync configuration file values.",
	Long: `Create and display the acumensync configuration file.

The configuration stores application-wide values and the employee roster:
- acumen.url
- calendar.id / calendar.timezone / calendar.credentials
- mail.host / mail.port / mail.from
- sync retry and deadline budgets
- employees (name, credential env references, notify email, calendar color)
`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
