package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ClientStats are a client's ingestion counters.
type ClientStats struct {
	DocumentsCount int     `json:"documents_count"`
	ChunksCount    int     `json:"chunks_count"`
	LastUpdated    *string `json:"last_updated"`
}

// ClientInfo represents a client from the API.
type ClientInfo struct {
	ClientID  string                 `json:"client_id"`
	Name      string                 `json:"name"`
	CreatedAt string                 `json:"created_at"`
	Config    map[string]interface{} `json:"config"`
	Stats     ClientStats            `json:"stats"`
}

// InfoCmd creates the info command.
func InfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the client's settings and stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runInfo(cmd, outputJSON)
		},
	}

	return cmd
}

func runInfo(cmd *cobra.Command, outputJSON bool) error {
	api, settings, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}
	clientID, err := settings.RequireClientID()
	if err != nil {
		return err
	}

	resp, err := api.Get("/api/clients/" + clientID)
	if err != nil {
		return fmt.Errorf("failed to get client: %w", err)
	}

	var info ClientInfo
	if err := json.Unmarshal(resp.Data, &info); err != nil {
		return fmt.Errorf("failed to parse client: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(info, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printClientInfo(info)
	return nil
}

func printClientInfo(info ClientInfo) {
	fmt.Printf("Client: %s\n", info.ClientID)
	if info.Name != "" {
		fmt.Printf("Name: %s\n", info.Name)
	}
	fmt.Printf("Created: %s\n", info.CreatedAt)
	fmt.Printf("Documents: %d\n", info.Stats.DocumentsCount)
	fmt.Printf("Chunks: %d\n", info.Stats.ChunksCount)
	if info.Stats.LastUpdated != nil {
		fmt.Printf("Last updated: %s\n", *info.Stats.LastUpdated)
	} else {
		fmt.Println("Last updated: never")
	}
	if len(info.Config) > 0 {
		fmt.Println()
		fmt.Println("--- Config ---")
		for _, key := range []string{"embedding_provider", "chunk_size", "chunk_overlap", "mmr_k", "mmr_fetch_k", "mmr_lambda_mult", "max_context_length"} {
			if v, ok := info.Config[key]; ok {
				fmt.Printf("%s: %v\n", key, v)
			}
		}
	}
}
