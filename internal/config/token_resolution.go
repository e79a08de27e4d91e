package config

import (
	"github.com/osmoscraft/osmosync/internal/tokenfile"
)

// TokenSource names where the access token came from.
type TokenSource string

// Token sources in precedence order.
const (
	TokenFromConfig TokenSource = "config"
	TokenFromEnv    TokenSource = "env"
	TokenFromFile   TokenSource = "token file"
	TokenNone       TokenSource = ""
)

// ResolveToken returns the access token to use: access_token in the config
// file, then OSMOSYNC_TOKEN, then the token file written by `connect`.
// A missing token file is not an error; the result is simply empty.
func ResolveToken(cfg *Config, env EnvOverrides, tokenPath string) (string, TokenSource, error) {
	if cfg.AccessToken != "" {
		return cfg.AccessToken, TokenFromConfig, nil
	}

	if env.Token != "" {
		return env.Token, TokenFromEnv, nil
	}

	if tokenPath == "" {
		return "", TokenNone, nil
	}

	tok, _, err := tokenfile.Load(tokenPath)
	if err != nil {
		return "", TokenNone, err
	}

	if tok == nil || tok.AccessToken == "" {
		return "", TokenNone, nil
	}

	return tok.AccessToken, TokenFromFile, nil
}
