package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	accessToken  string
	refreshToken string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an issued token pair for the configured session",
	Long: `Stores an access and refresh token for the configured session. With the
memory backend the pair only lives for this process, so use redis or postgres.`,
	Run: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the configured session",
	Run:   runLogout,
}

func init() {
	loginCmd.Flags().StringVar(&accessToken, "access-token", os.Getenv("SESSIONGUARD_ACCESS_TOKEN"), "access token")
	loginCmd.Flags().StringVar(&refreshToken, "refresh-token", os.Getenv("SESSIONGUARD_REFRESH_TOKEN"), "refresh token")
	rootCmd.AddCommand(loginCmd, logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	app := mustApp(ctx, cfg)
	defer app.Close()

	if err := app.Client.Login(ctx, accessToken, refreshToken); err != nil {
		slog.Error("Failed to store credentials", "error", err)
		os.Exit(1)
	}
	slog.Info("Credentials stored", "session", cfg.Credentials.Session, "backend", cfg.Credentials.Backend)
}

func runLogout(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	app := mustApp(ctx, cfg)
	defer app.Close()

	app.Client.Logout(ctx)
}
