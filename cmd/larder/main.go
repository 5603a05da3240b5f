package main

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/dukerupert/larder/cmd/larder/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Serve    commands.ServeCmd    `cmd:"" default:"1" help:"Run the HTTP server"`
		Register commands.RegisterCmd `cmd:"" help:"Register a user in a new household"`
		Token    commands.TokenCmd    `cmd:"" help:"Issue a session token for a user"`
		Item     commands.ItemCmd     `cmd:"" help:"Manage the item catalog"`
		Recipe   commands.RecipeCmd   `cmd:"" help:"Manage recipes"`
		Version  kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("larder"),
		kong.Description("Household fridge and shopping list service."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Version: version})
	cmd.FatalIfErrorf(err)
}
