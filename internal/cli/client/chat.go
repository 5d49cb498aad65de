package client

import (
	"encoding/json"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/marianoInsa/ChatBot-RAG/internal/cli"
)

// ChatRequest mirrors the server's chat body.
type ChatRequest struct {
	Question      string `json:"question"`
	ModelProvider string `json:"model_provider"`
	APIKey        string `json:"api_key,omitempty"`
}

// ChatResponse is the model's answer.
type ChatResponse struct {
	Response string `json:"response"`
}

// Asker sends one question and returns the answer.
type Asker interface {
	Ask(question string) (string, error)
}

// chatSession binds a client id and provider to an API client
type chatSession struct {
	api      *APIClient
	clientID string
	provider string
	apiKey   string
}

func (s *chatSession) Ask(question string) (string, error) {
	resp, err := s.api.Post(fmt.Sprintf("/api/clients/%s/chat", s.clientID), ChatRequest{
		Question:      question,
		ModelProvider: s.provider,
		APIKey:        s.apiKey,
	})
	if err != nil {
		return "", err
	}

	var result ChatResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return result.Response, nil
}

// ChatCmd creates the chat command.
func ChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: "Ask the client's assistant a question",
		Long: `Asks a question against the client's uploaded documents.

With a question argument the answer is printed and the command exits.
Without one an interactive chat session starts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runChat(cmd, strings.Join(args, " "), outputJSON)
		},
	}

	cmd.Flags().String("provider", "", "Model provider: gemini, groq or ollama")
	cmd.Flags().String("api-key", "", "Model provider API key (overrides the server's credential)")
	cli.BindEnv(cmd.Flags(), "provider", envModelProvider)
	cli.BindEnv(cmd.Flags(), "api-key", envAPIKey)

	return cmd
}

func runChat(cmd *cobra.Command, question string, outputJSON bool) error {
	api, settings, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}
	clientID, err := settings.RequireClientID()
	if err != nil {
		return err
	}

	session := &chatSession{
		api:      api,
		clientID: clientID,
		provider: settings.ModelProvider,
		apiKey:   settings.APIKey,
	}

	if strings.TrimSpace(question) == "" {
		_, err := tea.NewProgram(NewChatModel(session, clientID, settings.ModelProvider), tea.WithAltScreen()).Run()
		return err
	}

	answer, err := session.Ask(question)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(ChatResponse{Response: answer}, "", "  ")
		fmt.Println(string(output))
		return nil
	}
	fmt.Println(answer)
	return nil
}
