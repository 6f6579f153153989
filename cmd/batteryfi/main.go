package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	app := &cli.App{
		Name:  "batteryfi",
		Usage: "browse BatteryFi pools, marketplace and dashboard from a terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file to load before reading the environment",
			},
			&cli.StringFlag{
				Name:    "email",
				Usage:   "sign in as this user before running the command",
				EnvVars: []string{"BATTERYFI_EMAIL"},
			},
			&cli.StringFlag{
				Name:    "password",
				EnvVars: []string{"BATTERYFI_PASSWORD"},
			},
		},
		Commands: []*cli.Command{
			cmdShell,
			cmdDashboard,
			cmdPools,
			cmdStake,
			cmdMarketplace,
			cmdSell,
			cmdBuy,
			cmdWallet,
			cmdSignUp,
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("batteryfi", "err", err)
		os.Exit(1)
	}
}
