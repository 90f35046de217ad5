// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// MODEL DESCRIPTOR TYPE
// =============================================================================

// Descriptor is a catalog entry for a completion model.
//
// The JSON field names match the completion endpoint's wire format and the
// persisted conversation format, so descriptors round-trip through storage
// and import/export without translation.
type Descriptor struct {
	// ID is the model identifier used in API calls
	ID string `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// MaxLength is the maximum prompt length in characters
	MaxLength int `json:"maxLength"`

	// TokenLimit is the model's context window in tokens
	TokenLimit int `json:"tokenLimit"`
}

// =============================================================================
// MODEL CATALOG
// =============================================================================

// Model identifiers for the supported completion models.
const (
	ModelGPT35 = "gpt-3.5-turbo"
	ModelGPT4  = "gpt-4"

	// DefaultModelID is used for new conversations and for repairing
	// persisted conversations whose model is missing or unrecognized.
	DefaultModelID = ModelGPT35
)

// Catalog is the static table of supported completion models.
var Catalog = map[string]Descriptor{
	ModelGPT35: {
		ID:         ModelGPT35,
		Name:       "GPT-3.5",
		MaxLength:  12000,
		TokenLimit: 4000,
	},
	ModelGPT4: {
		ID:         ModelGPT4,
		Name:       "GPT-4",
		MaxLength:  24000,
		TokenLimit: 8000,
	},
}

// DefaultSystemPrompt is the system instruction applied to conversations that
// do not carry one of their own.
const DefaultSystemPrompt = "You are ChatGPT, a large language model trained by OpenAI. Follow the user's instructions carefully. Respond using markdown."

// Lookup returns the catalog entry for a model id.
func Lookup(id string) (Descriptor, bool) {
	d, ok := Catalog[id]
	return d, ok
}

// Default returns the descriptor for the default model.
func Default() Descriptor {
	return Catalog[DefaultModelID]
}
