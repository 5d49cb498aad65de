package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/marianoInsa/ChatBot-RAG/internal/config"
	"github.com/marianoInsa/ChatBot-RAG/internal/database"
	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
	"github.com/marianoInsa/ChatBot-RAG/internal/pagination"
	"github.com/marianoInsa/ChatBot-RAG/internal/repository"
)

// ClientsCmd inspects persisted client metadata directly in the database.
func ClientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Inspect persisted clients",
		Long:  "List and show client metadata stored in CHATBOT_DATABASE_URL, without a running server",
	}

	cmd.AddCommand(ClientsListCmd())
	cmd.AddCommand(ClientsShowCmd())

	return cmd
}

func ClientsListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted clients",
		Long:  "List persisted clients, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runClientsList(outputFormat, limit, cursor)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runClientsList(outputFormat string, limit int, cursorStr string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	cursor, err := pagination.DecodeCursor(cursorStr)
	if err != nil {
		return fmt.Errorf("invalid cursor: %w", err)
	}

	result, err := repository.NewTenantRepository(pool).ListWithCursor(ctx, cursor, limit)
	if err != nil {
		return fmt.Errorf("failed to list clients: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(result.Items))
		for i, t := range result.Items {
			data[i] = tenantJSON(t)
		}
		output := map[string]interface{}{
			"items":    data,
			"cursor":   result.NextCursor,
			"has_more": result.HasMore,
		}
		jsonBytes, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	if len(result.Items) == 0 {
		fmt.Println("No clients found")
		return nil
	}
	fmt.Println("Clients:")
	for _, t := range result.Items {
		name := t.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("  %s: %s (created: %s, documents: %d, chunks: %d)\n",
			t.ID, name, t.CreatedAt.Format("2006-01-02 15:04:05"), t.Stats.DocumentsCount, t.Stats.ChunksCount)
	}
	if result.HasMore && result.NextCursor != "" {
		fmt.Printf("\nMore results available. Use --cursor %s\n", result.NextCursor)
	}

	return nil
}

func ClientsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <client-id>",
		Short: "Show one persisted client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			tenant, err := repository.NewTenantRepository(pool).GetByID(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load client: %w", err)
			}

			jsonBytes, _ := json.MarshalIndent(tenantJSON(tenant), "", "  ")
			fmt.Println(string(jsonBytes))
			return nil
		},
	}

	return cmd
}

func tenantJSON(t *domain.Tenant) map[string]interface{} {
	return map[string]interface{}{
		"client_id":  t.ID,
		"name":       t.Name,
		"created_at": t.CreatedAt,
		"config":     t.Config,
		"stats":      t.Stats,
	}
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasDatabase() {
		return nil, fmt.Errorf("CHATBOT_DATABASE_URL is not set")
	}

	return database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
}
