package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/sessionguard/internal/infra/resilience"
	"github.com/vietddude/sessionguard/internal/infra/transport"
)

var (
	callQuery    string
	callVars     string
	callCacheKey string
)

var callCmd = &cobra.Command{
	Use:   "call [operation]",
	Short: "Run one GraphQL operation through the resilient client",
	Args:  cobra.ExactArgs(1),
	Run:   runCall,
}

func init() {
	callCmd.Flags().StringVarP(&callQuery, "query", "q", "", "GraphQL document")
	callCmd.Flags().StringVar(&callVars, "vars", "", "variables as a JSON object")
	callCmd.Flags().StringVar(&callCacheKey, "cache-key", "", "serve repeated calls from the identity cache")
	_ = callCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	req := transport.GraphQLRequest{Query: callQuery}
	if callVars != "" {
		if err := json.Unmarshal([]byte(callVars), &req.Variables); err != nil {
			slog.Error("Invalid --vars", "error", err)
			os.Exit(1)
		}
	}

	app := mustApp(ctx, cfg)
	defer app.Close()

	op := resilience.NewOperation(args[0], req)
	op.CacheKey = callCacheKey

	result, err := app.Client.Do(ctx, op)
	var surfaced *resilience.SurfacedError
	switch {
	case errors.Is(err, resilience.ErrSessionTerminated):
		slog.Error("Session ended, run login again", "operation", op.Name)
		os.Exit(2)
	case errors.As(err, &surfaced):
		slog.Error("Operation rejected", "operation", op.Name, "category", surfaced.Category.String(), "message", surfaced.Message)
		os.Exit(1)
	case err != nil:
		slog.Error("Operation failed", "operation", op.Name, "error", err)
		os.Exit(1)
	case result == nil:
		slog.Info("Operation absorbed", "operation", op.Name)
		return
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		slog.Error("Failed to encode result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
