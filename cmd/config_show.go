package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"acumensync/config"
)

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show active configuration values.",
	Long: `Display the currently loaded configuration and the resolved config file path.

This command validates the configuration before printing values.`,
	Example: `
  # Show active configuration
  acumensync config show
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			fmt.Println("Invalid config:", err)
			return
		}

		if configPath := viper.ConfigFileUsed(); configPath != "" {
			fmt.Println("Config file loaded from:", configPath)
			fmt.Println("Configuration:")
			fmt.Printf("acumen.url: %s\n", cfg.Acumen.URL)
			fmt.Printf("calendar.id: %s\n", cfg.Calendar.ID)
			fmt.Printf("calendar.timezone: %s\n", cfg.Calendar.Timezone)
			fmt.Printf("calendar.credentials: %s\n", cfg.Calendar.Credentials)
			fmt.Printf("mail.host: %s\n", cfg.Mail.Host)
			fmt.Printf("mail.port: %d\n", cfg.Mail.Port)
			fmt.Printf("mail.from: %s\n", cfg.Mail.From)
			fmt.Printf("sync.max_retries: %d\n", cfg.Sync.MaxRetries)
			fmt.Printf("sync.initial_backoff: %s\n", cfg.Sync.InitialBackoff)
			fmt.Printf("sync.call_timeout: %s\n", cfg.Sync.CallTimeout)
			fmt.Printf("sync.run_deadline: %s\n", cfg.Sync.RunDeadline)
			fmt.Printf("employees: %d\n", len(cfg.Employees))
			for i, employee := range cfg.Employees {
				fmt.Printf("employees[%d].name: %s\n", i, employee.Name)
				fmt.Printf("employees[%d].email_env: %s\n", i, employee.EmailEnv)
				fmt.Printf("employees[%d].password_env: %s\n", i, employee.PasswordEnv)
				fmt.Printf("employees[%d].notify_email: %s\n", i, employee.NotifyEmail)
				fmt.Printf("employees[%d].color_id: %s\n", i, employee.ColorID)
			}
		}
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
