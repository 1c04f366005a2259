// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	ProviderOpenAI = "openai"
	ProviderYandex = "yandex"
)

// Providers lists the accepted provider names.
var Providers = []string{ProviderOpenAI, ProviderYandex}

// Options select and configure a provider.
type Options struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string

	YandexOAuthToken string
	YandexFolderID   string

	// Timeout bounds the HTTP round trip for the OpenAI-compatible client.
	Timeout time.Duration
}

// New creates the Generator named by opts.Provider.
func New(opts Options) (Generator, error) {
	switch strings.ToLower(opts.Provider) {
	case ProviderOpenAI, "":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		var hc *http.Client
		if opts.Timeout > 0 {
			hc = &http.Client{Timeout: opts.Timeout}
		}
		return NewOpenAI(opts.APIKey, opts.BaseURL, opts.Model, hc), nil
	case ProviderYandex:
		if opts.YandexOAuthToken == "" || opts.YandexFolderID == "" {
			return nil, fmt.Errorf("yandex provider requires an OAuth token and folder id")
		}
		return NewYandex(opts.YandexOAuthToken, opts.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", opts.Provider)
	}
}
