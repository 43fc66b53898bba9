// Package id generates prefixed, URL-safe identifiers for stored records.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the record types this server creates.
const (
	PrefixSession  = "rs"
	PrefixBook     = "book"
	PrefixCategory = "cat"
	PrefixToken    = "tok"
)

// Generate returns prefix + "-" + a 21 character NanoID (e.g. "rs-V1StGXR8_Z5jdHi6B-myT").
// Fails only when the system cannot supply secure randomness.
func Generate(prefix string) (string, error) {
	nid, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + nid, nil
}

// MustGenerate is like Generate but panics on failure.
// Reserved for seeding and tests.
func MustGenerate(prefix string) string {
	v, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return v
}
