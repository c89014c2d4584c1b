package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmerrifield20/ledgerd/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile    string
	serverURL  string
	authToken  string
	callerName string
	outputJSON bool
	rawUnits   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "ledgerd command-line client",
	Long: `ledgerctl talks to a ledgerd server: balances, transfers, the
transaction log, proof-of-work challenges, auction offers and votes.

Amounts are read and printed in display units using the token's decimals.
Pass --raw to work in base units instead.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".ledgerctl"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("ledgerctl")
		viper.AutomaticEnv()
		_ = viper.BindEnv("signing_key", "LEDGERCTL_SIGNING_KEY", "IDENTITY_SIGNING_KEY")

		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && cfgFile != "" {
				return fmt.Errorf("read config: %w", err)
			}
		}

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if authToken == "" {
			authToken = viper.GetString("token")
		}
		if callerName == "" {
			callerName = viper.GetString("caller")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.ledgerctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "ledgerd base URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "bearer token identifying the caller")
	rootCmd.PersistentFlags().StringVar(&callerName, "as", "", "caller account on development servers without a signing key")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print raw JSON responses")
	rootCmd.PersistentFlags().BoolVar(&rawUnits, "raw", false, "read and print amounts in base units")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ledgerctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ledgerctl %s\n", version)
	},
}

// newClient builds an SDK client from the global flags and config.
func newClient() (*client.Client, error) {
	var opts []client.Option
	if authToken != "" {
		opts = append(opts, client.WithBearerToken(authToken))
	}
	if callerName != "" {
		opts = append(opts, client.WithCaller(callerName))
	}
	return client.New(serverURL, opts...)
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// units converts between display and base units for one token.
type units struct {
	decimals uint8
	symbol   string
	raw      bool
}

func loadUnits(ctx context.Context, c *client.Client) (units, error) {
	if rawUnits {
		return units{raw: true}, nil
	}
	tok, err := c.Token(ctx)
	if err != nil {
		return units{}, fmt.Errorf("fetch token metadata: %w", err)
	}
	return units{decimals: tok.Decimals, symbol: tok.Symbol}, nil
}

func (u units) parse(display string) (string, error) {
	if u.raw {
		return display, nil
	}
	return client.ParseUnits(display, u.decimals)
}

func (u units) format(base string) string {
	if u.raw {
		return base
	}
	s, err := client.FormatUnits(base, u.decimals)
	if err != nil {
		return base
	}
	return s + " " + u.symbol
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
