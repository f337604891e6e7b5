package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Server  ServerCmd        `cmd:"" help:"Run the three-card poker server"`
	Client  ClientCmd        `cmd:"" help:"Play interactively from the terminal"`
	Auto    AutoCmd          `cmd:"" help:"Run scripted clients against a server"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("tricard"),
		kong.Description("Multiplayer three-card poker server and test clients"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
