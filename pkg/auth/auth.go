// Package auth resolves backend credentials once at process start.
// Components receive the resulting AuthContext explicitly and never
// read the ambient environment themselves.
package auth

import (
	"errors"
	"os"

	"github.com/liliang-cn/tubechat/pkg/config"
)

type Method string

const (
	MethodEnv    Method = "env"
	MethodConfig Method = "config"
)

// AuthContext carries the credential material for the retrieval and
// generation backend.
type AuthContext struct {
	APIKey  string
	BaseURL string
	Method  Method
}

// ErrNoCredentials is returned when neither the environment nor the
// config file provides an API key.
var ErrNoCredentials = errors.New(
	"authentication failed: set OPENAI_API_KEY in the environment (or .env), " +
		"or put api_key under [backend] in tubechat.toml")

// Resolve checks OPENAI_API_KEY first, then the config file.
func Resolve(cfg *config.Config) (*AuthContext, error) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return &AuthContext{APIKey: key, BaseURL: cfg.Backend.BaseURL, Method: MethodEnv}, nil
	}
	if cfg.Backend.APIKey != "" {
		return &AuthContext{APIKey: cfg.Backend.APIKey, BaseURL: cfg.Backend.BaseURL, Method: MethodConfig}, nil
	}
	return nil, ErrNoCredentials
}
