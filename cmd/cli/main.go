package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/orgs/cmd/cli/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Org    commands.OrgCmd    `cmd:"" help:"Manage organizations"`
		Policy commands.PolicyCmd `cmd:"" help:"Manage permissions policies"`
		Member commands.MemberCmd `cmd:"" help:"Manage members"`
		Invite commands.InviteCmd `cmd:"" help:"Manage invitations"`
		Sweep  commands.SweepCmd  `cmd:"" help:"Expire overdue pending invitations"`

		Debug   bool   `help:"Enable debug mode."`
		EnvFile string `help:"dotenv file loaded before reading configuration" default:".env" env:"ORGS_ENV_FILE"`
		AsID    string `name:"as-id" help:"acting principal ID" env:"ORGS_AS_ID"`
		AsEmail string `name:"as-email" help:"acting principal email" env:"ORGS_AS_EMAIL"`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:   cli.Debug,
		Version: version,
		EnvFile: cli.EnvFile,
		AsID:    cli.AsID,
		AsEmail: cli.AsEmail,
	})
	cmd.FatalIfErrorf(err)
}
