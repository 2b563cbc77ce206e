package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli"
)

func printJSON(raw json.RawMessage) {
	var pretty map[string]interface{}
	if err := json.Unmarshal(raw, &pretty); err == nil {
		out, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(out))
		return
	}
	fmt.Println(string(raw))
}

// readMacaroon reads and base64-encodes the macaroon file at path, for
// methods that mutate AdminConfig.
func readMacaroon(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

var createWalletCommand = cli.Command{
	Name:      "createwallet",
	Usage:     "publish a new maker-funded wallet",
	ArgsUsage: "maker order_hash asset hashlock_or_root funding",
	Flags: []cli.Flag{
		cli.Uint64Flag{Name: "parts", Usage: "Merkle partial-fill part count, 0 to disable"},
		cli.Int64Flag{Name: "auction_taking_start", Usage: "Dutch-auction taking amount at auction start"},
		cli.Int64Flag{Name: "auction_taking_end", Usage: "Dutch-auction taking amount at auction end"},
		cli.DurationFlag{Name: "auction_duration", Usage: "Dutch-auction decay duration"},
	},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 5 {
			return cli.ShowCommandHelp(ctx, "createwallet")
		}
		funding, err := strconv.ParseInt(ctx.Args().Get(4), 10, 64)
		if err != nil {
			return err
		}

		params := map[string]interface{}{
			"maker":            ctx.Args().Get(0),
			"order_hash":       ctx.Args().Get(1),
			"asset":            ctx.Args().Get(2),
			"hashlock_or_root": ctx.Args().Get(3),
			"parts":            ctx.Uint64("parts"),
			"funding":          funding,
			"auction": map[string]interface{}{
				"start_unix":           time.Now().Unix(),
				"duration":             ctx.Duration("auction_duration"),
				"taking_amount_start":  ctx.Int64("auction_taking_start"),
				"taking_amount_end":    ctx.Int64("auction_taking_end"),
			},
		}

		c := getClient(ctx)
		defer c.Close()

		resp, err := c.call("create_wallet", "", params)
		if err != nil {
			return err
		}
		printJSON(resp)
		return nil
	},
}

func escrowParamsFromFlags(ctx *cli.Context) map[string]interface{} {
	return map[string]interface{}{
		"taker":          ctx.String("taker"),
		"resolver":       ctx.String("resolver"),
		"safety_deposit": ctx.Int64("safety_deposit"),
		"timelocks": map[string]interface{}{
			"dst_withdrawal":          ctx.Duration("dst_withdrawal"),
			"dst_public_withdrawal":   ctx.Duration("dst_public_withdrawal"),
			"dst_cancellation":        ctx.Duration("dst_cancellation"),
			"src_withdrawal":          ctx.Duration("src_withdrawal"),
			"src_public_withdrawal":   ctx.Duration("src_public_withdrawal"),
			"src_cancellation":        ctx.Duration("src_cancellation"),
			"src_public_cancellation": ctx.Duration("src_public_cancellation"),
		},
		"secret_hash":  ctx.String("secret_hash"),
		"secret_index": ctx.Uint64("secret_index"),
		"proof":        ctx.StringSlice("proof"),
	}
}

func timelockFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: "taker"},
		cli.StringFlag{Name: "resolver"},
		cli.Int64Flag{Name: "safety_deposit"},
		cli.DurationFlag{Name: "dst_withdrawal"},
		cli.DurationFlag{Name: "dst_public_withdrawal"},
		cli.DurationFlag{Name: "dst_cancellation"},
		cli.DurationFlag{Name: "src_withdrawal"},
		cli.DurationFlag{Name: "src_public_withdrawal"},
		cli.DurationFlag{Name: "src_cancellation"},
		cli.DurationFlag{Name: "src_public_cancellation"},
		cli.StringFlag{Name: "secret_hash", Usage: "leaf secret hash, only for Merkle-mode wallets"},
		cli.Uint64Flag{Name: "secret_index", Usage: "leaf index, only for Merkle-mode wallets"},
		cli.StringSliceFlag{Name: "proof", Usage: "sibling hash at each Merkle level, leaf to root"},
	}
}

var createEscrowSrcCommand = cli.Command{
	Name:      "createescrowsrc",
	Usage:     "fund a new source-side escrow by draining a wallet",
	ArgsUsage: "wallet_id fill_amount offered_taking_amount",
	Flags:     timelockFlags(),
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 3 {
			return cli.ShowCommandHelp(ctx, "createescrowsrc")
		}
		fill, err := strconv.ParseInt(ctx.Args().Get(1), 10, 64)
		if err != nil {
			return err
		}
		offered, err := strconv.ParseInt(ctx.Args().Get(2), 10, 64)
		if err != nil {
			return err
		}

		params := map[string]interface{}{
			"wallet_id":             ctx.Args().Get(0),
			"fill_amount":           fill,
			"offered_taking_amount": offered,
			"params":                escrowParamsFromFlags(ctx),
		}

		c := getClient(ctx)
		defer c.Close()

		resp, err := c.call("create_escrow_src", "", params)
		if err != nil {
			return err
		}
		printJSON(resp)
		return nil
	},
}

var createEscrowDstCommand = cli.Command{
	Name:      "createescrowdst",
	Usage:     "fund a new destination-side escrow directly",
	ArgsUsage: "order_hash asset hashlock amount maker src_cancellation_ts",
	Flags:     timelockFlags(),
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 6 {
			return cli.ShowCommandHelp(ctx, "createescrowdst")
		}
		amount, err := strconv.ParseInt(ctx.Args().Get(3), 10, 64)
		if err != nil {
			return err
		}
		srcCancellationTS, err := strconv.ParseInt(ctx.Args().Get(5), 10, 64)
		if err != nil {
			return err
		}

		params := map[string]interface{}{
			"order_hash":          ctx.Args().Get(0),
			"asset":               ctx.Args().Get(1),
			"hashlock":            ctx.Args().Get(2),
			"amount":              amount,
			"maker":               ctx.Args().Get(4),
			"src_cancellation_ts": srcCancellationTS,
			"params":              escrowParamsFromFlags(ctx),
		}

		c := getClient(ctx)
		defer c.Close()

		resp, err := c.call("create_escrow_dst", "", params)
		if err != nil {
			return err
		}
		printJSON(resp)
		return nil
	},
}

func settlementCommand(name, method, usage string, needSecret bool) cli.Command {
	argsUsage := "escrow_id caller"
	if needSecret {
		argsUsage += " secret_hex"
	}
	return cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: argsUsage,
		Action: func(ctx *cli.Context) error {
			want := 2
			if needSecret {
				want = 3
			}
			if ctx.NArg() != want {
				return cli.ShowCommandHelp(ctx, name)
			}

			params := map[string]interface{}{
				"escrow_id": ctx.Args().Get(0),
				"caller":    ctx.Args().Get(1),
			}
			if needSecret {
				params["secret"] = ctx.Args().Get(2)
			}

			c := getClient(ctx)
			defer c.Close()

			resp, err := c.call(method, "", params)
			if err != nil {
				return err
			}
			printJSON(resp)
			return nil
		},
	}
}

var withdrawSrcCommand = settlementCommand(
	"withdrawsrc", "withdraw_src", "reveal the secret and claim a source escrow's principal", true,
)
var withdrawDstCommand = settlementCommand(
	"withdrawdst", "withdraw_dst", "reveal the secret and claim a destination escrow's principal", true,
)
var cancelSrcCommand = settlementCommand(
	"cancelsrc", "cancel_src", "return a source escrow's principal after its withdrawal window lapses", false,
)
var cancelDstCommand = settlementCommand(
	"canceldst", "cancel_dst", "return a destination escrow's principal after its withdrawal window lapses", false,
)

var rescueCommand = cli.Command{
	Name:      "rescue",
	Usage:     "force-drain an object that has sat Active past its rescue delay",
	ArgsUsage: "object_id rescuer",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 2 {
			return cli.ShowCommandHelp(ctx, "rescue")
		}
		params := map[string]interface{}{
			"object_id": ctx.Args().Get(0),
			"rescuer":   ctx.Args().Get(1),
		}

		c := getClient(ctx)
		defer c.Close()

		resp, err := c.call("rescue", "", params)
		if err != nil {
			return err
		}
		printJSON(resp)
		return nil
	},
}

var adminBakeCommand = cli.Command{
	Name:  "admin",
	Usage: "mint a fresh admin macaroon and write it to --macaroonpath",
	Subcommands: []cli.Command{
		{
			Name:  "bake",
			Usage: "mint a fresh admin macaroon",
			Action: func(ctx *cli.Context) error {
				c := getClient(ctx)
				defer c.Close()

				resp, err := c.call("admin_bake", "", nil)
				if err != nil {
					return err
				}

				var out struct {
					Macaroon string `json:"macaroon"`
				}
				if err := json.Unmarshal(resp, &out); err != nil {
					return err
				}

				raw, err := base64.StdEncoding.DecodeString(out.Macaroon)
				if err != nil {
					return err
				}

				path := cleanAndExpandPath(ctx.GlobalString("macaroonpath"))
				if err := os.WriteFile(path, raw, 0600); err != nil {
					return err
				}
				fmt.Printf("admin macaroon written to %s\n", path)
				return nil
			},
		},
	},
}

var adminConfigCommand = cli.Command{
	Name:  "adminconfig",
	Usage: "print the currently active AdminConfig",
	Action: func(ctx *cli.Context) error {
		c := getClient(ctx)
		defer c.Close()

		resp, err := c.call("admin_config", "", nil)
		if err != nil {
			return err
		}

		var cfg struct {
			RescueDelay      time.Duration `json:"RescueDelay"`
			MinSafetyDeposit int64         `json:"MinSafetyDeposit"`
		}
		if err := json.Unmarshal(resp, &cfg); err != nil {
			printJSON(resp)
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"field", "value"})
		t.AppendRow(table.Row{"rescue_delay", cfg.RescueDelay})
		t.AppendRow(table.Row{"min_safety_deposit", cfg.MinSafetyDeposit})
		t.Render()
		return nil
	},
}

var adminUpdateConfigCommand = cli.Command{
	Name:      "adminupdateconfig",
	Usage:     "update AdminConfig, presenting the admin macaroon",
	ArgsUsage: "rescue_delay min_safety_deposit",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 2 {
			return cli.ShowCommandHelp(ctx, "adminupdateconfig")
		}
		delay, err := time.ParseDuration(ctx.Args().Get(0))
		if err != nil {
			return err
		}
		minDeposit, err := strconv.ParseInt(ctx.Args().Get(1), 10, 64)
		if err != nil {
			return err
		}

		mac, err := readMacaroon(cleanAndExpandPath(ctx.GlobalString("macaroonpath")))
		if err != nil {
			return err
		}

		params := map[string]interface{}{
			"rescue_delay":       delay,
			"min_safety_deposit": minDeposit,
		}

		c := getClient(ctx)
		defer c.Close()

		resp, err := c.call("admin_update_config", mac, params)
		if err != nil {
			return err
		}
		printJSON(resp)
		return nil
	},
}
