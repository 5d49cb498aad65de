package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
)

// RegisterRequest mirrors the server's registration body.
type RegisterRequest struct {
	Name   string                        `json:"name,omitempty"`
	Config *domain.TenantConfigOverrides `json:"config,omitempty"`
}

// RegisterResponse is the registration result.
type RegisterResponse struct {
	ClientID  string `json:"client_id"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at"`
	Message   string `json:"message"`
}

// RegisterCmd creates the register command.
func RegisterCmd() *cobra.Command {
	var (
		name       string
		configFile string
		save       bool
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new client",
		Long: `Registers a new client on the server and prints its client id.

Per-client settings can be given in a YAML file:

  embedding_provider: huggingface-default
  chunk_size: 800
  chunk_overlap: 100
  mmr_k: 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runRegister(cmd, name, configFile, save, outputJSON)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name for the client")
	cmd.Flags().StringVarP(&configFile, "config-file", "f", "", "YAML file with per-client settings")
	cmd.Flags().BoolVar(&save, "save", false, "Store the new client id in the global config")

	return cmd
}

func runRegister(cmd *cobra.Command, name, configFile string, save, outputJSON bool) error {
	req := RegisterRequest{Name: name}
	if configFile != "" {
		overrides, err := readOverrides(configFile)
		if err != nil {
			return err
		}
		req.Config = overrides
	}

	api, _, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/api/clients/register", req)
	if err != nil {
		return fmt.Errorf("failed to register client: %w", err)
	}

	var result RegisterResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if save {
		if err := UpdateGlobalConfig(func(c *GlobalConfig) { c.ClientID = result.ClientID }); err != nil {
			return fmt.Errorf("client registered but config not saved: %w", err)
		}
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Client registered: %s\n", result.ClientID)
	fmt.Println(result.Message)
	if save {
		fmt.Println("Saved as the default client.")
	}
	return nil
}

func readOverrides(path string) (*domain.TenantConfigOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var overrides domain.TenantConfigOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &overrides, nil
}
