package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/jmerrifield20/ledgerd/pkg/client"
	"github.com/spf13/cobra"
)

// ── info ─────────────────────────────────────────────────────────────────────

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show token metadata and supply",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		tok, err := c.Token(ctx)
		if err != nil {
			return err
		}
		circ, err := c.Circulating(ctx)
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(map[string]any{"token": tok, "circulating": circ})
		}

		u := units{decimals: tok.Decimals, symbol: tok.Symbol, raw: rawUnits}
		fmt.Printf("Name:         %s\n", tok.Name)
		fmt.Printf("Symbol:       %s\n", tok.Symbol)
		fmt.Printf("Decimals:     %d\n", tok.Decimals)
		fmt.Printf("Total supply: %s\n", u.format(tok.TotalSupply))
		fmt.Printf("Circulating:  %s\n", u.format(circ))
		if tok.EnforceSupplyCap {
			fmt.Println("Supply cap:   enforced")
		}
		return nil
	},
}

// ── balance ──────────────────────────────────────────────────────────────────

var balanceCmd = &cobra.Command{
	Use:   "balance <account>",
	Short: "Show an account balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		bal, err := c.Balance(ctx, args[0])
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(client.Balance{Account: args[0], Balance: bal})
		}
		u, err := loadUnits(ctx, c)
		if err != nil {
			return err
		}
		fmt.Println(u.format(bal))
		return nil
	},
}

// ── transfer / mint ──────────────────────────────────────────────────────────

var transferMemo string

var transferCmd = &cobra.Command{
	Use:   "transfer <to> <amount>",
	Short: "Transfer tokens from the caller to another account",
	Example: `  ledgerctl --as alice transfer bob 1.5 --memo rent
  ledgerctl --token $TOKEN --raw transfer bob 150000000`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		u, err := loadUnits(ctx, c)
		if err != nil {
			return err
		}
		amount, err := u.parse(args[1])
		if err != nil {
			return err
		}

		tx, err := c.Transfer(ctx, args[0], amount, []byte(transferMemo))
		if err != nil {
			return fmt.Errorf("transfer: %w", err)
		}
		if outputJSON {
			return printJSON(tx)
		}
		fmt.Printf("Transaction %d: %s → %s  %s\n", tx.Index, tx.From, tx.To, u.format(tx.Amount))
		fmt.Printf("Hash: %s\n", tx.Hash)
		return nil
	},
}

var mintCmd = &cobra.Command{
	Use:   "mint <to> <amount>",
	Short: "Mint new tokens to an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		u, err := loadUnits(ctx, c)
		if err != nil {
			return err
		}
		amount, err := u.parse(args[1])
		if err != nil {
			return err
		}

		bal, err := c.Mint(ctx, args[0], amount)
		if err != nil {
			return fmt.Errorf("mint: %w", err)
		}
		if outputJSON {
			return printJSON(client.Balance{Account: args[0], Balance: bal})
		}
		fmt.Printf("Minted. %s now holds %s\n", args[0], u.format(bal))
		return nil
	},
}

// ── txs ──────────────────────────────────────────────────────────────────────

var (
	txsAccount string
	txsStart   int
	txsLength  int
)

var txsCmd = &cobra.Command{
	Use:   "txs [index]",
	Short: "List transactions, or show one by index",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		var txs []client.Transaction
		if len(args) == 1 {
			idx, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("index must be an integer: %w", err)
			}
			tx, err := c.Transaction(ctx, idx)
			if err != nil {
				return err
			}
			txs = []client.Transaction{*tx}
		} else {
			var page *client.TransactionPage
			if txsAccount != "" {
				page, err = c.AccountTransactions(ctx, txsAccount, txsStart, txsLength)
			} else {
				page, err = c.Transactions(ctx, txsStart, txsLength)
			}
			if err != nil {
				return err
			}
			txs = page.Transactions
		}

		if outputJSON {
			return printJSON(txs)
		}
		u, err := loadUnits(ctx, c)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tTIME\tFROM\tTO\tAMOUNT\tMEMO")
		for _, tx := range txs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%q\n",
				tx.Index, tx.Timestamp.Format("2006-01-02T15:04:05Z07:00"), tx.From, tx.To, u.format(tx.Amount), tx.Memo)
		}
		return w.Flush()
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Ask the server to verify the transaction hash chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		v, err := c.VerifyTransactions(ctx)
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(v)
		}
		if !v.Valid {
			return fmt.Errorf("transaction log is corrupt after %d entries: %s", v.Length, v.Error)
		}
		fmt.Printf("Transaction log OK: %d entries, root %s\n", v.Length, v.Root)
		return nil
	},
}

func init() {
	transferCmd.Flags().StringVar(&transferMemo, "memo", "", "memo attached to the transaction (max 32 bytes)")

	txsCmd.Flags().StringVar(&txsAccount, "account", "", "only transactions sent or received by this account")
	txsCmd.Flags().IntVar(&txsStart, "start", 0, "index of the first transaction (or first match with --account)")
	txsCmd.Flags().IntVar(&txsLength, "length", 20, "maximum number of transactions")

	rootCmd.AddCommand(infoCmd, balanceCmd, transferCmd, mintCmd, txsCmd, verifyCmd)
}
