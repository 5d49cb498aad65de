package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// ClientPage is one page of the admin client listing.
type ClientPage struct {
	Items   []ClientInfo `json:"items"`
	Cursor  string       `json:"cursor,omitempty"`
	HasMore bool         `json:"has_more"`
}

// CacheStats mirrors the server's vector index cache report.
type CacheStats struct {
	Size     int `json:"size"`
	Capacity int `json:"capacity"`
	Stats    struct {
		Hits      uint64 `json:"hits"`
		Misses    uint64 `json:"misses"`
		Evictions uint64 `json:"evictions"`
	} `json:"stats"`
}

// AdminCmd groups the server administration commands.
func AdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer clients on the server",
	}

	cmd.AddCommand(adminListCmd())
	cmd.AddCommand(adminDeleteCmd())
	cmd.AddCommand(adminCacheCmd())

	return cmd
}

func adminListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List registered clients",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAdminList(cmd, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runAdminList(cmd *cobra.Command, limit int, cursor string, outputJSON bool) error {
	api, _, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	path := "/api/admin/clients"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("failed to list clients: %w", err)
	}

	var page ClientPage
	if err := json.Unmarshal(resp.Data, &page); err != nil {
		return fmt.Errorf("failed to parse clients: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(page, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(page.Items) == 0 {
		fmt.Println("No clients found")
		return nil
	}
	fmt.Println("Clients:")
	for _, c := range page.Items {
		name := c.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("  %s: %s (documents: %d, chunks: %d)\n", c.ClientID, name, c.Stats.DocumentsCount, c.Stats.ChunksCount)
	}
	if page.HasMore && page.Cursor != "" {
		fmt.Printf("\nMore results available. Use --cursor %s\n", page.Cursor)
	}
	return nil
}

func adminDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <client-id>",
		Short: "Delete a client and its documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID := args[0]
			if !IsValidClientID(clientID) {
				return fmt.Errorf("client id %q is not a UUID", clientID)
			}
			if !force && !confirm(cmd, fmt.Sprintf("Delete client %s and all of its documents?", clientID)) {
				fmt.Println("Aborted.")
				return nil
			}

			api, _, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if _, err := api.Delete("/api/admin/clients/" + clientID); err != nil {
				return fmt.Errorf("failed to delete client: %w", err)
			}
			fmt.Printf("Client %s deleted\n", clientID)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "y", false, "Skip the confirmation prompt")

	return cmd
}

func adminCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache",
		Short: "Show vector index cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, _, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Get("/api/admin/cache")
			if err != nil {
				return fmt.Errorf("failed to get cache stats: %w", err)
			}

			var stats CacheStats
			if err := json.Unmarshal(resp.Data, &stats); err != nil {
				return fmt.Errorf("failed to parse cache stats: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(stats, "", "  ")
				fmt.Println(string(output))
				return nil
			}
			fmt.Printf("Resident indices: %d/%d\n", stats.Size, stats.Capacity)
			fmt.Printf("Hits: %d, misses: %d, evictions: %d\n", stats.Stats.Hits, stats.Stats.Misses, stats.Stats.Evictions)
			return nil
		},
	}
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	var answer string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &answer); err != nil {
		return false
	}
	return answer == "y" || answer == "Y" || answer == "yes"
}
