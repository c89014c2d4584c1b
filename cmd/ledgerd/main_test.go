package main

import (
	"errors"
	"testing"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func TestCallerTokens(t *testing.T) {
	t.Cleanup(viper.Reset)

	tests := []struct {
		name       string
		key        string
		devMode    bool
		wantErr    error
		wantIssuer bool
	}{
		{"no key, dev mode off", "", false, errNoSigningKey, false},
		{"no key, dev mode on", "", true, nil, false},
		{"signing key", "0123456789abcdef0123456789abcdef", false, nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			viper.Reset()
			viper.Set("identity.signing_key", tc.key)
			viper.Set("identity.dev_mode", tc.devMode)
			viper.Set("identity.issuer", "ledgerd")

			tokens, err := callerTokens(zap.NewNop())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if (tokens != nil) != tc.wantIssuer {
				t.Errorf("issuer present = %v, want %v", tokens != nil, tc.wantIssuer)
			}
		})
	}
}

func TestLoadConfig_devModeDefaultsOff(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()
	if err := loadConfig(); err != nil {
		t.Fatal(err)
	}
	if viper.GetBool("identity.dev_mode") {
		t.Error("identity.dev_mode must default to false")
	}
}
