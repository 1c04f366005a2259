// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package persona

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ListingPhrases is how many example phrases the public listing carries.
const ListingPhrases = 3

// Generation defaults applied when a profile leaves them unset.
const (
	DefaultTemperature float32 = 1.0
	DefaultMaxTokens           = 200
	DefaultTopP        float32 = 0.9
)

// =============================================================================
// PROFILE TYPES
// =============================================================================

// Profile is the server-side definition of a persona.
type Profile struct {
	ID          string
	Name        string
	Description string
	Phrases     []string

	// Fragment is injected into the system prompt. Never sent to clients
	// except as the listing description.
	Fragment string

	// Zero means the package default.
	Temperature float32
	MaxTokens   int
}

// Params returns the generation parameters for this profile.
func (p Profile) Params() Params {
	params := Params{
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		TopP:        DefaultTopP,
	}
	if p.Temperature > 0 {
		params.Temperature = p.Temperature
	}
	if p.MaxTokens > 0 {
		params.MaxTokens = p.MaxTokens
	}
	return params
}

// Instruction renders the profile section appended to the base prompt.
func (p Profile) Instruction() string {
	return "\nYOUR PROFILE: " + p.Fragment +
		"\nYOUR TYPICAL PHRASES: " + strings.Join(p.Phrases, ", ") + "\n"
}

// Params are per-persona sampling settings for the generation API.
type Params struct {
	Temperature float32
	MaxTokens   int
	TopP        float32
}

// Listing is the public view of a persona sent to clients.
type Listing struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Phrases     []string `json:"phrases"`
}

func (l Listing) clone() Listing {
	l.Phrases = append([]string(nil), l.Phrases...)
	return l
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is an immutable, ordered set of profiles and the base prompt they
// extend. It is safe for concurrent use.
type Catalog struct {
	base      string
	defaultID string
	order     []string
	profiles  map[string]Profile
}

// New builds a catalog. Ids are NFC-normalized and must be unique and
// non-empty, and defaultID must name one of the profiles.
func New(base, defaultID string, profiles ...Profile) (*Catalog, error) {
	c := &Catalog{
		base:     base,
		profiles: make(map[string]Profile, len(profiles)),
	}
	for _, p := range profiles {
		id := Normalize(p.ID)
		if id == "" {
			return nil, fmt.Errorf("persona with empty id")
		}
		if _, dup := c.profiles[id]; dup {
			return nil, fmt.Errorf("duplicate persona id %q", id)
		}
		p.ID = id
		p.Phrases = append([]string(nil), p.Phrases...)
		c.profiles[id] = p
		c.order = append(c.order, id)
	}
	c.defaultID = Normalize(defaultID)
	if _, ok := c.profiles[c.defaultID]; !ok {
		return nil, fmt.Errorf("default persona %q not in catalog", defaultID)
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(BaseInstruction, DefaultID, builtin...)
	if err != nil {
		panic("persona: invalid built-in catalog: " + err.Error())
	}
	return c
}

// Normalize canonicalizes a persona id for lookup.
func Normalize(id string) string {
	return norm.NFC.String(strings.TrimSpace(id))
}

// Lookup finds a profile by id.
func (c *Catalog) Lookup(id string) (Profile, bool) {
	p, ok := c.profiles[Normalize(id)]
	return p, ok
}

// DefaultID returns the id used when a request names no persona.
func (c *Catalog) DefaultID() string {
	return c.defaultID
}

// IDs returns every persona id in catalog order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// Listings returns the public listing: the prompt fragment as description
// and the first ListingPhrases phrases.
func (c *Catalog) Listings() []Listing {
	out := make([]Listing, 0, len(c.order))
	for _, id := range c.order {
		p := c.profiles[id]
		phrases := p.Phrases
		if len(phrases) > ListingPhrases {
			phrases = phrases[:ListingPhrases]
		}
		out = append(out, Listing{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Fragment,
			Phrases:     append([]string(nil), phrases...),
		})
	}
	return out
}

// SystemPrompt returns the full system prompt for p.
func (c *Catalog) SystemPrompt(p Profile) string {
	return c.base + p.Instruction()
}
