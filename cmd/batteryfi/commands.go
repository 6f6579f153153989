package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/batteryfi/batteryfi/internal/app"
	"github.com/batteryfi/batteryfi/internal/config"
	"github.com/batteryfi/batteryfi/internal/dashboard"
	"github.com/batteryfi/batteryfi/internal/marketplace"
	"github.com/batteryfi/batteryfi/internal/notify"
	"github.com/batteryfi/batteryfi/internal/pools"
	"github.com/batteryfi/batteryfi/internal/session"
	"github.com/batteryfi/batteryfi/internal/shell"
)

// run is the per-command environment: dependencies, the optional session
// and the recorder whose notifications are printed when the command ends.
type run struct {
	deps *app.Deps
	sess *session.Session
	rec  *notify.Recorder
	out  io.Writer
}

func withRun(action func(cctx *cli.Context, r *run) error) cli.ActionFunc {
	return func(cctx *cli.Context) error {
		ctx := cctx.Context

		cfg, err := config.Load(cctx.String("env-file"))
		if err != nil {
			return err
		}
		deps, err := app.Build(ctx, cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		r := &run{deps: deps, rec: notify.NewRecorder(), out: cctx.App.Writer}
		defer printNotifications(cctx.App.ErrWriter, r.rec)

		if email := cctx.String("email"); email != "" {
			sess, err := deps.Sessions.SignIn(ctx, r.rec, email, cctx.String("password"))
			if err != nil {
				return err
			}
			r.sess = sess
		}
		return action(cctx, r)
	}
}

func (r *run) print(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printNotifications(w io.Writer, rec *notify.Recorder) {
	for _, n := range rec.All() {
		mark := "*"
		if n.Variant == notify.VariantDestructive {
			mark = "!"
		}
		fmt.Fprintf(w, "%s %s: %s\n", mark, n.Title, n.Description)
	}
}

var cmdShell = &cli.Command{
	Name:      "shell",
	Usage:     "render the view for a navigation tab",
	ArgsUsage: "[dashboard|community|marketplace]",
	Action: withRun(func(cctx *cli.Context, r *run) error {
		ctx := cctx.Context
		tab := cctx.Args().First()
		page := shell.New(r.deps.Store, dashboard.NewSimulator(nil)).Navigate(ctx, tab, r.sess, r.rec)
		return r.print(page)
	}),
}

var cmdDashboard = &cli.Command{
	Name:  "dashboard",
	Usage: "show battery telemetry and rewards",
	Action: withRun(func(cctx *cli.Context, r *run) error {
		ctx := cctx.Context
		v := dashboard.NewView(dashboard.NewSimulator(nil), r.sess)
		v.Mount(ctx)
		return r.print(v.Snapshot())
	}),
}

var cmdPools = &cli.Command{
	Name:  "pools",
	Usage: "list community pools and your stakes",
	Action: withRun(func(cctx *cli.Context, r *run) error {
		ctx := cctx.Context
		v := pools.NewView(r.deps.Store, r.sess, r.rec)
		v.Mount(ctx)
		return r.print(v.Snapshot())
	}),
}

var cmdStake = &cli.Command{
	Name:      "stake",
	Usage:     "stake BATT into a pool (requires --email)",
	ArgsUsage: "POOL_ID AMOUNT",
	Action: withRun(func(cctx *cli.Context, r *run) error {
		ctx := cctx.Context
		args := cctx.Args()
		v := pools.NewView(r.deps.Store, r.sess, r.rec)
		v.Mount(ctx)

		poolID, amount := args.Get(0), args.Get(1)
		if err := v.Stake(ctx, poolID, amount); err == nil {
			annual, monthly := stakeRewards(v, poolID, amount)
			return r.print(map[string]string{"expected_annual": annual, "expected_monthly": monthly})
		}
		return nil
	}),
}

var cmdMarketplace = &cli.Command{
	Name:  "marketplace",
	Usage: "browse active listings",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "search"},
		&cli.StringFlag{Name: "type", Value: marketplace.FilterAll},
		&cli.StringFlag{Name: "sort", Value: marketplace.SortCreatedAt, Usage: "created_at, price_low, price_high or quantity"},
	},
	Action: withRun(func(cctx *cli.Context, r *run) error {
		ctx := cctx.Context
		v := marketplace.NewView(r.deps.Store, r.sess, r.rec)
		v.SetSearch(cctx.String("search"))
		v.SetFilter(cctx.String("type"))
		v.SetSort(cctx.String("sort"))
		v.Mount(ctx)
		return r.print(v.Snapshot())
	}),
}

var cmdSell = &cli.Command{
	Name:  "sell",
	Usage: "submit a listing draft (requires --email)",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "type", Value: "energy_trade"},
		&cli.StringFlag{Name: "title"},
		&cli.StringFlag{Name: "description"},
		&cli.StringFlag{Name: "price"},
		&cli.StringFlag{Name: "quantity"},
		&cli.StringFlag{Name: "unit", Value: "kwh"},
		&cli.StringFlag{Name: "location"},
		&cli.StringFlag{Name: "delivery"},
	},
	Action: withRun(func(cctx *cli.Context, r *run) error {
		ctx := cctx.Context
		v := marketplace.NewView(r.deps.Store, r.sess, r.rec)
		v.Mount(ctx)
		v.SetDraft(marketplace.Draft{
			ListingType:        cctx.String("type"),
			Title:              cctx.String("title"),
			Description:        cctx.String("description"),
			Price:              cctx.String("price"),
			Quantity:           cctx.String("quantity"),
			Unit:               cctx.String("unit"),
			LocationConstraint: cctx.String("location"),
			EnergyDeliveryTime: cctx.String("delivery"),
		})
		v.SubmitDraft(ctx)
		return nil
	}),
}

var cmdBuy = &cli.Command{
	Name:      "buy",
	Usage:     "request a purchase of a listing (requires --email)",
	ArgsUsage: "LISTING_ID",
	Action: withRun(func(cctx *cli.Context, r *run) error {
		ctx := cctx.Context
		v := marketplace.NewView(r.deps.Store, r.sess, r.rec)
		v.Mount(ctx)
		id := cctx.Args().First()
		l, ok := v.Find(id)
		if !ok {
			return fmt.Errorf("listing %q not found", id)
		}
		v.Purchase(l)
		return nil
	}),
}

var cmdWallet = &cli.Command{
	Name:  "wallet",
	Usage: "connect the wallet at WALLET_RPC_URL and link it to your profile",
	Action: withRun(func(cctx *cli.Context, r *run) error {
		ctx := cctx.Context
		w := r.deps.Wallets.For("cli")
		w.Connect(ctx, r.sess, r.rec)
		return r.print(w.Status())
	}),
}

var cmdSignUp = &cli.Command{
	Name:  "signup",
	Usage: "create an account",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "new-email", Required: true},
		&cli.StringFlag{Name: "new-password", Required: true},
		&cli.StringFlag{Name: "confirm-password", Required: true},
		&cli.StringFlag{Name: "username"},
		&cli.StringFlag{Name: "full-name"},
	},
	Action: withRun(func(cctx *cli.Context, r *run) error {
		ctx := cctx.Context
		r.deps.Sessions.SignUp(ctx, r.rec, session.SignUpForm{
			Email:           cctx.String("new-email"),
			Password:        cctx.String("new-password"),
			ConfirmPassword: cctx.String("confirm-password"),
			Username:        cctx.String("username"),
			FullName:        cctx.String("full-name"),
		})
		return nil
	}),
}

func stakeRewards(v *pools.View, poolID, amount string) (string, string) {
	for _, p := range v.Pools() {
		if p.ID != poolID {
			continue
		}
		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return "", ""
		}
		annual, monthly := pools.ExpectedReward(amt, p.APYRate)
		return annual.StringFixed(2), monthly.StringFixed(2)
	}
	return "", ""
}
