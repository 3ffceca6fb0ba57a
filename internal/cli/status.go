package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the configured session holds a credential",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	app := mustApp(ctx, cfg)
	defer app.Close()

	st, err := app.Client.Status(ctx)
	if err != nil {
		slog.Error("Failed to read session status", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "SESSION\tBACKEND\tAUTHENTICATED")
	_, _ = fmt.Fprintf(w, "%s\t%s\t%t\n", cfg.Credentials.Session, cfg.Credentials.Backend, st.Authenticated)
	_ = w.Flush()
}
