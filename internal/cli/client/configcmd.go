package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ConfigCmd manages the global config file.
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change stored settings",
	}

	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configSetCmd())

	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective settings and where each comes from",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := GetConfigPath()
			if err != nil {
				return err
			}
			globalConfig, err := LoadGlobalConfig()
			if err != nil {
				return err
			}
			if globalConfig == nil {
				globalConfig = &GlobalConfig{}
			}

			flag := func(name string) string {
				v, _ := cmd.Flags().GetString(name)
				return v
			}

			fmt.Printf("Config file: %s\n", path)
			rows := []struct {
				label, flag, env, stored, def string
				secret                        bool
			}{
				{"api_url", flag("api-url"), envAPIURL, globalConfig.APIURL, defaultAPIURL, false},
				{"client_id", flag("client"), envClientID, globalConfig.ClientID, "", false},
				{"model_provider", "", envModelProvider, globalConfig.ModelProvider, defaultModelProvider, false},
				{"api_key", "", envAPIKey, globalConfig.APIKey, "", true},
			}
			for _, r := range rows {
				value, source := resolveSetting(r.flag, r.env, r.stored, r.def)
				if r.secret && value != "" {
					value = maskSecret(value)
				}
				if value == "" {
					value = "(unset)"
				}
				fmt.Printf("  %-15s %s [%s]\n", r.label, value, source)
			}
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting (api_url, client_id, model_provider, api_key)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			var apply func(*GlobalConfig)
			switch key {
			case "api_url":
				apply = func(c *GlobalConfig) { c.APIURL = value }
			case "client_id":
				if !IsValidClientID(value) {
					return fmt.Errorf("client id %q is not a UUID", value)
				}
				apply = func(c *GlobalConfig) { c.ClientID = value }
			case "model_provider":
				apply = func(c *GlobalConfig) { c.ModelProvider = value }
			case "api_key":
				apply = func(c *GlobalConfig) { c.APIKey = value }
			default:
				return fmt.Errorf("unknown setting %q", key)
			}

			if err := UpdateGlobalConfig(apply); err != nil {
				return err
			}
			fmt.Printf("Saved %s\n", key)
			return nil
		},
	}
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
