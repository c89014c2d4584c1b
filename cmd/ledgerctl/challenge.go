package main

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jmerrifield20/ledgerd/internal/ledger"
	"github.com/jmerrifield20/ledgerd/internal/registry"
	"github.com/jmerrifield20/ledgerd/pkg/client"
	"github.com/spf13/cobra"
)

var challengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Show the current proof-of-work challenge and best solution",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		ch, err := c.Challenge(ctx)
		if err != nil {
			return err
		}
		best, err := c.BestSolution(ctx)
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(map[string]any{"challenge": ch, "best": best})
		}
		fmt.Printf("Version:       %d\n", ch.Version)
		fmt.Printf("Min ones:      %d\n", ch.MinNumOnes)
		fmt.Printf("Time:          %d\n", ch.Time)
		fmt.Printf("Randomness:    %d\n", ch.Randomness)
		fmt.Printf("Parent hash:   %s\n", hex.EncodeToString(ch.ParentHash))
		fmt.Printf("Best strength: %d\n", best.CurMinOnes)
		return nil
	},
}

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Close the current epoch and open a new challenge (maintainers)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		ch, err := c.RotateChallenge(ctx)
		if err != nil {
			return fmt.Errorf("rotate: %w", err)
		}
		if outputJSON {
			return printJSON(ch)
		}
		fmt.Printf("New epoch at %d, parent %s\n", ch.Time, hex.EncodeToString(ch.ParentHash))
		return nil
	},
}

var (
	solvePrincipal string
	solveMaxTries  uint64
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Search for a proof against the current challenge and submit it",
	Long: `solve fetches the current challenge, searches nonces until the proof
digest has at least min_num_ones leading one bits, and submits it.

The proof is bound to --principal, which defaults to the --as caller.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		principal := solvePrincipal
		if principal == "" {
			principal = callerName
		}
		account, err := ledger.ParseAccountID(principal)
		if err != nil {
			return fmt.Errorf("--principal: %w", err)
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		ch, err := c.Challenge(ctx)
		if err != nil {
			return err
		}

		nonce, strength, err := searchProof(ctx, ch, account, solveMaxTries)
		if err != nil {
			return err
		}
		fmt.Printf("Found proof with %d leading ones\n", strength)

		res, err := c.SubmitSolution(ctx, client.Solution{
			Time:      ch.Time,
			Principal: &principal,
			Bytes:     nonce,
			Version:   ch.Version,
		})
		if err != nil {
			return fmt.Errorf("submit: %w", err)
		}
		if outputJSON {
			return printJSON(res)
		}
		fmt.Printf("Accepted. Epoch best is now %d\n", res.CurMinOnes)
		return nil
	},
}

// searchProof tries 8-byte big-endian nonces until one meets the challenge
// difficulty for principal.
func searchProof(ctx context.Context, ch *client.Challenge, principal ledger.AccountID, maxTries uint64) ([]byte, uint8, error) {
	rc := registry.Challenge{
		Version:    ch.Version,
		MinNumOnes: ch.MinNumOnes,
		Time:       ch.Time,
		Randomness: ch.Randomness,
		ParentHash: ch.ParentHash,
	}
	nonce := make([]byte, 8)
	for i := uint64(0); i < maxTries; i++ {
		if i%(1<<16) == 0 && ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		binary.BigEndian.PutUint64(nonce, i)
		if s := registry.Strength(registry.Digest(rc, principal, nonce)); s >= rc.MinNumOnes {
			return nonce, s, nil
		}
	}
	return nil, 0, errors.New("no proof found; raise --max-tries")
}

func init() {
	solveCmd.Flags().StringVar(&solvePrincipal, "principal", "", "account the proof is bound to (default: --as caller)")
	solveCmd.Flags().Uint64Var(&solveMaxTries, "max-tries", 1<<26, "maximum nonces to try")

	rootCmd.AddCommand(challengeCmd, rotateCmd, solveCmd)
}
