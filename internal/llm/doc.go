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

// Package llm provides a unified interface for Large Language Model providers.
//
// This package abstracts the differences between various LLM APIs, providing
// a consistent interface for chat completions. It backs the activity
// classifier and the insight engine's advice section.
//
// # Supported Providers
//
//   - Ollama: Local models, no API key required (default)
//   - OpenAI / OpenAI-compatible (including DeepSeek): set via api_base
//   - Anthropic: Claude models
//   - Mock: For testing without real API calls
//
// # Quick Start
//
//	provider, err := llm.NewProvider(llm.ProviderConfig{
//	    Type:   "openai",
//	    APIKey: os.Getenv("DEEPSEEK_API_KEY"),
//	})
//	resp, err := provider.Chat(ctx, llm.ChatRequest{
//	    Messages: []llm.Message{{Role: "user", Content: "classify this"}},
//	})
//
// # Provider Selection
//
// [DefaultProvider] selects a provider from environment variables, checking
// in order: OLLAMA_HOST/OLLAMA_MODEL, DEEPSEEK_API_KEY, OPENAI_API_KEY,
// ANTHROPIC_API_KEY, falling back to the mock provider.
package llm
