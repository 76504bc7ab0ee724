package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/orgs/cmd/server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool   `help:"Enable debug mode."`
		EnvFile string `help:"dotenv file loaded before reading configuration" default:".env" env:"ORGS_ENV_FILE"`
		Version kong.VersionFlag

		Serve   commands.ServeCmd   `cmd:"" help:"Run the invitation expiry sweeper"`
		Migrate commands.MigrateCmd `cmd:"" help:"Apply database migrations"`
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version, EnvFile: cli.EnvFile})
	cmd.FatalIfErrorf(err)
}
