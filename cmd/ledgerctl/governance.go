package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/jmerrifield20/ledgerd/internal/identity"
	"github.com/jmerrifield20/ledgerd/internal/ledger"
	"github.com/jmerrifield20/ledgerd/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ── offer ────────────────────────────────────────────────────────────────────

var offerCmd = &cobra.Command{
	Use:   "offer [<amount> <cycles>]",
	Short: "Submit an auction offer, or show the current best offer",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected no arguments or <amount> <cycles>")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		var best *client.BestOffer
		if len(args) == 0 {
			best, err = c.BestOffer(ctx)
		} else {
			amount, perr := strconv.ParseUint(args[0], 10, 64)
			if perr != nil {
				return fmt.Errorf("amount: %w", perr)
			}
			cycles, perr := strconv.ParseUint(args[1], 10, 64)
			if perr != nil {
				return fmt.Errorf("cycles: %w", perr)
			}
			best, err = c.SubmitOffer(ctx, client.Offer{Amount: amount, NumAttachedCycles: cycles})
		}
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(best)
		}
		fmt.Printf("Best offer: %d tokens for %d cycles (round supply %d)\n", best.Amount, best.NumCycles, best.TotalAmount)
		return nil
	},
}

// ── vote / proposals ─────────────────────────────────────────────────────────

var voteAgainst bool

var voteCmd = &cobra.Command{
	Use:   "vote <proposal-id>",
	Short: "Vote for a proposal (use --against to vote no)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("proposal id: %w", err)
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		p, err := c.Vote(ctx, id, !voteAgainst)
		if err != nil {
			return fmt.Errorf("vote: %w", err)
		}
		if outputJSON {
			return printJSON(p)
		}
		fmt.Printf("Proposal %d: %d for, %d against\n", p.ID, p.VotesFor, p.VotesAgainst)
		return nil
	},
}

var proposalsCmd = &cobra.Command{
	Use:   "proposals",
	Short: "List proposal tallies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		list, err := c.Proposals(ctx)
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(list)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tFOR\tAGAINST")
		for _, p := range list {
			fmt.Fprintf(w, "%d\t%d\t%d\n", p.ID, p.VotesFor, p.VotesAgainst)
		}
		return w.Flush()
	},
}

// ── maintainers ──────────────────────────────────────────────────────────────

var maintainersCmd = &cobra.Command{
	Use:   "maintainers [account...]",
	Short: "List maintainers, or replace the set with the given accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		if len(args) > 0 {
			n, err := c.UpdateMaintainers(ctx, args)
			if err != nil {
				return fmt.Errorf("update maintainers: %w", err)
			}
			fmt.Printf("Maintainer set now has %d account(s)\n", n)
			return nil
		}

		list, err := c.Maintainers(ctx)
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(list)
		}
		if len(list) == 0 {
			fmt.Println("No maintainers; the next caller to set them becomes the first.")
		}
		for _, m := range list {
			fmt.Println(m)
		}
		return nil
	},
}

// ── module ───────────────────────────────────────────────────────────────────

var moduleCmd = &cobra.Command{
	Use:   "module [file]",
	Short: "Upload a code module from file, or show the stored module",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		var info *client.ModuleInfo
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			info, err = c.UploadModule(ctx, f)
			if err != nil {
				return fmt.Errorf("upload: %w", err)
			}
		} else {
			info, err = c.ModuleInfo(ctx)
			if err != nil {
				return err
			}
		}
		if outputJSON {
			return printJSON(info)
		}
		fmt.Printf("Size:     %d bytes\n", info.Size)
		fmt.Printf("SHA-256:  %s\n", info.Checksum)
		return nil
	},
}

// ── token ────────────────────────────────────────────────────────────────────

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage caller tokens",
}

var tokenTTL time.Duration

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <account>",
	Short: "Issue a bearer token for an account",
	Long: `issue signs a caller token with the server's signing key, read from
signing_key in the config file or LEDGERCTL_SIGNING_KEY / IDENTITY_SIGNING_KEY.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := issueToken(viper.GetString("signing_key"), viper.GetString("issuer"), args[0], tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

// issueToken signs a caller token for account. An empty issuer defaults to
// the server's default, "ledgerd".
func issueToken(key, issuerName, account string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", fmt.Errorf("no signing key configured")
	}
	id, err := ledger.ParseAccountID(account)
	if err != nil {
		return "", fmt.Errorf("account: %w", err)
	}
	if issuerName == "" {
		issuerName = "ledgerd"
	}
	tokens, err := identity.NewTokenIssuer([]byte(key), issuerName, ttl)
	if err != nil {
		return "", err
	}
	return tokens.Issue(id)
}

func init() {
	voteCmd.Flags().BoolVar(&voteAgainst, "against", false, "vote against the proposal")
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	tokenCmd.AddCommand(tokenIssueCmd)
	rootCmd.AddCommand(offerCmd, voteCmd, proposalsCmd, maintainersCmd, moduleCmd, tokenCmd)
}
