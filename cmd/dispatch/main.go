package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/promo-dispatch/internal/config"
	"github.com/andresuchdata/promo-dispatch/pkg/logger"
)

func inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.PathFlag{
			Name:     "inventory",
			Aliases:  []string{"i"},
			Usage:    "Inventory workbook (xlsx)",
			Required: true,
		},
		&cli.PathFlag{
			Name:     "promotion",
			Aliases:  []string{"p"},
			Usage:    "Promotion workbook with SKU targets and shop targets sheets (xlsx)",
			Required: true,
		},
	}
}

func paramFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "sales-policy",
			Usage:   "Daily sales rate policy: last_month or blended",
			EnvVars: []string{"DISPATCH_SALES_POLICY"},
		},
		&cli.TimestampFlag{
			Name:   "as-of",
			Usage:  "Calculation date (YYYY-MM-DD), defaults to now",
			Layout: "2006-01-02",
		},
	}
}

func outputFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.PathFlag{
			Name:  "out",
			Usage: "Directory the xlsx report is written to",
			Value: cfg.App.OutputDir,
		},
		&cli.BoolFlag{
			Name:  "upload",
			Usage: "Archive the report in the configured object storage",
		},
	}
}

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.Log.Level)

	app := &cli.App{
		Name:  "dispatch",
		Usage: "Compute promotion demand and suggested dispatch quantities",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   cfg.Log.Level,
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "analyze",
				Usage: "Run one analysis and write the xlsx report",
				Flags: concat(inputFlags(), paramFlags(), outputFlags(cfg), []cli.Flag{
					&cli.Float64Flag{
						Name:  "lead-time",
						Usage: "Lead time in days",
						Value: cfg.Dispatch.LeadTimeDefault,
					},
				}),
				Action: func(c *cli.Context) error { return runAnalyze(c, cfg) },
			},
			{
				Name:  "sweep",
				Usage: "Run the same inputs at several lead times and compare",
				Flags: concat(inputFlags(), paramFlags(), []cli.Flag{
					&cli.StringFlag{
						Name:  "lead-times",
						Usage: "Comma separated lead times, e.g. 1,2,2.5",
					},
					&cli.Float64Flag{Name: "from", Usage: "First lead time of a stepped sweep", Value: cfg.Dispatch.LeadTimeMin},
					&cli.Float64Flag{Name: "to", Usage: "Last lead time of a stepped sweep", Value: cfg.Dispatch.LeadTimeMax},
					&cli.Float64Flag{Name: "step", Usage: "Lead time step of a stepped sweep", Value: cfg.Dispatch.LeadTimeStep},
				}),
				Action: func(c *cli.Context) error { return runSweep(c, cfg) },
			},
			{
				Name:  "fetch",
				Usage: "Download the input workbooks from Google Drive and analyze them",
				Flags: concat(paramFlags(), outputFlags(cfg), []cli.Flag{
					&cli.StringFlag{Name: "inventory-id", Usage: "Drive file id of the inventory workbook"},
					&cli.StringFlag{Name: "promotion-id", Usage: "Drive file id of the promotion workbook"},
					&cli.StringFlag{Name: "folder", Usage: "Drive folder path to download every xlsx from instead"},
					&cli.PathFlag{Name: "dir", Usage: "Download directory for --folder", Value: "./data/inputs"},
					&cli.Float64Flag{Name: "lead-time", Usage: "Lead time in days", Value: cfg.Dispatch.LeadTimeDefault},
					&cli.StringFlag{
						Name:    "credentials",
						Usage:   "Service account credentials JSON",
						EnvVars: []string{"GOOGLE_DRIVE_CREDENTIALS_JSON"},
						Value:   cfg.Drive.CredentialsJSON,
					},
				}),
				Action: func(c *cli.Context) error { return runFetch(c, cfg) },
			},
			{
				Name:  "cache",
				Usage: "Manage the analysis result cache",
				Subcommands: []*cli.Command{
					{
						Name:   "clear",
						Usage:  "Drop every cached analysis result",
						Action: func(c *cli.Context) error { return runClearCache(c, cfg) },
					},
				},
			},
			{
				Name:   "reports",
				Usage:  "List archived reports",
				Action: func(c *cli.Context) error { return runListReports(c, cfg) },
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("dispatch failed")
	}
}

func concat(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
