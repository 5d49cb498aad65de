package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marianoInsa/ChatBot-RAG/internal/cli"
	"github.com/marianoInsa/ChatBot-RAG/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatbotd",
		Short: "ChatBot RAG daemon",
		Long:  "ChatBot RAG daemon for running the API server and inspecting persisted clients",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.ClientsCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
