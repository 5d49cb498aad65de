package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marianoInsa/ChatBot-RAG/internal/cli"
	"github.com/marianoInsa/ChatBot-RAG/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatbot",
		Short: "ChatBot CLI - register clients, upload documents and chat",
		Long: `ChatBot CLI talks to a chatbotd server.

Environment variables:
  CHATBOT_API_URL          API base URL (default: http://localhost:8080)
  CHATBOT_CLIENT_ID        Client id used by upload, chat and info
  CHATBOT_MODEL_PROVIDER   Chat model provider (default: gemini)
  CHATBOT_MODEL_API_KEY    Model provider API key sent with chat requests`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	rootCmd.PersistentFlags().String("client", "", "Client id (overrides env and config)")
	cli.BindEnv(rootCmd.PersistentFlags(), "api-url", "CHATBOT_API_URL")
	cli.BindEnv(rootCmd.PersistentFlags(), "client", "CHATBOT_CLIENT_ID")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.RegisterCmd())
	rootCmd.AddCommand(client.UploadCmd())
	rootCmd.AddCommand(client.ChatCmd())
	rootCmd.AddCommand(client.InfoCmd())
	rootCmd.AddCommand(client.AdminCmd())
	rootCmd.AddCommand(client.ConfigCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
