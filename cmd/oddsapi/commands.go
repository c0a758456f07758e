package main

import (
	"context"
	"errors"

	"github.com/spf13/pflag"

	"github.com/samvad-hq/oddsapi-go/internal/app"
	"github.com/samvad-hq/oddsapi-go/pkg/oddsapi"
)

type command struct {
	name    string
	usage   string
	summary string
	flags   func(fs *pflag.FlagSet)
	exec    func(ctx context.Context, r *app.Runner, fs *pflag.FlagSet) (app.Result, error)
}

var commands = []command{
	{
		name:    string(oddsapi.OpSports),
		usage:   "[flags]",
		summary: "List sports (in and out of season unless --all=false)",
		flags: func(fs *pflag.FlagSet) {
			fs.Bool("all", true, "include out-of-season sports")
		},
		exec: func(ctx context.Context, r *app.Runner, fs *pflag.FlagSet) (app.Result, error) {
			all, err := fs.GetBool("all")
			if err != nil {
				return app.Result{}, err
			}
			return r.Execute(ctx, app.Request{Operation: oddsapi.OpSports, All: oddsapi.Bool(all)})
		},
	},
	{
		name:    string(oddsapi.OpOdds),
		usage:   "[flags]",
		summary: "Fetch bookmaker odds for upcoming and live events of a sport",
		flags: func(fs *pflag.FlagSet) {
			fs.String("sport", oddsapi.DefaultSport, "sport key")
			fs.String("regions", oddsapi.DefaultRegions, "bookmaker regions, comma delimited (uk, us, eu, au)")
			fs.String("markets", oddsapi.DefaultMarkets, "markets, comma delimited (h2h, spreads, totals, outrights)")
			fs.String("odds-format", oddsapi.DefaultOddsFormat, "decimal or american")
			fs.String("date-format", oddsapi.DefaultDateFormat, "iso or unix")
		},
		exec: func(ctx context.Context, r *app.Runner, _ *pflag.FlagSet) (app.Result, error) {
			return r.Execute(ctx, app.Request{Operation: oddsapi.OpOdds})
		},
	},
	{
		name:    string(oddsapi.OpScores),
		usage:   "[flags]",
		summary: "Fetch live, upcoming and recently completed scores for a sport",
		flags: func(fs *pflag.FlagSet) {
			fs.String("sport", oddsapi.DefaultSport, "sport key")
			fs.Int("days-from", oddsapi.DefaultDaysFrom, "include games completed this many days ago (1-3)")
			fs.String("date-format", oddsapi.DefaultDateFormat, "iso or unix")
		},
		exec: func(ctx context.Context, r *app.Runner, fs *pflag.FlagSet) (app.Result, error) {
			req := app.Request{Operation: oddsapi.OpScores}
			if fs.Changed("days-from") {
				days, err := fs.GetInt("days-from")
				if err != nil {
					return app.Result{}, err
				}
				req.DaysFrom = oddsapi.Int(days)
			}
			return r.Execute(ctx, req)
		},
	},
	{
		name:    string(oddsapi.OpUsage),
		usage:   "[flags]",
		summary: "Report remaining and used request quota",
		exec: func(ctx context.Context, r *app.Runner, _ *pflag.FlagSet) (app.Result, error) {
			return r.Execute(ctx, app.Request{Operation: oddsapi.OpUsage})
		},
	},
	{
		name:    "run",
		usage:   "<profile> [flags]",
		summary: "Execute a named request profile",
		flags: func(fs *pflag.FlagSet) {
			fs.String("profiles", "./configs/profiles.yaml", "profiles file (YAML/JSON)")
		},
		exec: func(ctx context.Context, r *app.Runner, fs *pflag.FlagSet) (app.Result, error) {
			if fs.NArg() != 1 {
				return app.Result{}, errors.New("run expects exactly one profile id")
			}
			return r.ExecuteProfile(ctx, fs.Arg(0))
		},
	},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}
