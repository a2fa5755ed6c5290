// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"os"
)

// DefaultProvider creates a provider from environment variables.
// Checks in order: OLLAMA_HOST, DEEPSEEK_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY.
// Falls back to mock if nothing is configured.
func DefaultProvider() (Provider, error) {
	if os.Getenv("OLLAMA_HOST") != "" || os.Getenv("OLLAMA_BASE_URL") != "" || os.Getenv("OLLAMA_MODEL") != "" {
		return NewProvider(ProviderConfig{Type: "ollama"})
	}
	if key := os.Getenv("DEEPSEEK_API_KEY"); key != "" {
		return NewProvider(ProviderConfig{
			Type:         "openai",
			BaseURL:      "https://api.deepseek.com/v1",
			APIKey:       key,
			DefaultModel: "deepseek-chat",
		})
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		return NewProvider(ProviderConfig{Type: "openai"})
	}
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return NewProvider(ProviderConfig{Type: "anthropic"})
	}
	return NewProvider(ProviderConfig{Type: "mock"})
}

// ProviderFromEnv creates a provider from a specific environment variable
// naming the provider type (e.g. LLM_PROVIDER=ollama).
func ProviderFromEnv(envVar string) (Provider, error) {
	providerType := os.Getenv(envVar)
	if providerType == "" {
		return DefaultProvider()
	}
	return NewProvider(ProviderConfig{Type: providerType})
}

// QuickChat is a convenience function for a single-turn chat completion.
func QuickChat(ctx context.Context, provider Provider, systemPrompt, userPrompt string) (string, error) {
	resp, err := provider.Chat(ctx, ChatRequest{
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}
