// Command provision pushes the assistant configuration to the voice-AI
// provider. One-shot setup tooling; the webhook server runs without it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"intake-platform/internal/provision"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "provision",
		Short:         "Provision the voice assistant with the upstream provider",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newApplyCmd())
	return root
}

func newApplyCmd() *cobra.Command {
	var (
		file     string
		updateID string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update the assistant from a definition file",
		Long: `Reads an assistant definition (yaml), merges in the fixed caller-information
schemas and the webhook server settings from the environment, and pushes the
result to the provider.

Environment: VAPI_API_KEY (required), VAPI_BASE_URL, BROKERAGE_NAME,
WEBHOOK_URL, WEBHOOK_SECRET.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := provision.LoadDefinition(file)
			if err != nil {
				return err
			}

			brokerage := os.Getenv("BROKERAGE_NAME")
			if brokerage == "" {
				brokerage = "Realflow"
			}
			body := provision.Build(def, provision.BuildParams{
				Brokerage:     brokerage,
				WebhookURL:    os.Getenv("WEBHOOK_URL"),
				WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
			})

			if dryRun {
				out, err := json.MarshalIndent(body, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}

			apiKey := os.Getenv("VAPI_API_KEY")
			if apiKey == "" {
				return fmt.Errorf("VAPI_API_KEY is required")
			}
			baseURL := os.Getenv("VAPI_BASE_URL")
			if baseURL == "" {
				baseURL = "https://api.vapi.ai"
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			client := provision.NewClient(baseURL, apiKey)
			var assistant provision.Assistant
			if updateID != "" {
				assistant, err = client.UpdateAssistant(ctx, updateID, body)
			} else {
				assistant, err = client.CreateAssistant(ctx, body)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Assistant %s (%s) provisioned\n", assistant.Name, assistant.ID)
			if url := os.Getenv("WEBHOOK_URL"); url != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Webhook URL: %s\n", url)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "assistant.yaml", "assistant definition file")
	cmd.Flags().StringVar(&updateID, "update", "", "update an existing assistant by id instead of creating")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the provider request body and exit")
	return cmd
}
