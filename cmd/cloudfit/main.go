package main

import (
	"log"
	"os"

	"cloudfit/pkg/client"

	"github.com/spf13/cobra"
)

var (
	backendURL string
	apiKey     string

	backend *client.Client
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cloudfit",
		Short: "Cloudfit CLI",
		Long:  `Cloudfit CLI is a command line interface for managing training jobs on a cloudfit backend.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			backend = client.New(backendURL, apiKey)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&backendURL, "backend-url", "u", defaultBackendURL(), "base URL of the cloudfit backend")
	rootCmd.PersistentFlags().StringVarP(&apiKey, "api-key", "k", os.Getenv("CLOUDFIT_API_KEY"), "API key sent with every request")

	rootCmd.AddCommand(NewJobsCmd())
	rootCmd.AddCommand(NewHealthCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func defaultBackendURL() string {
	if url := os.Getenv("CLOUDFIT_BACKEND_URL"); url != "" {
		return url
	}
	return "http://localhost:3001"
}

func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check backend health",
		Long:  `Check that the configured backend is up and reachable.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := backend.Health(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("ok")
			return nil
		},
	}
}
