// Package token handles the access tokens carried by sessions: minting and
// verification for the bundled Redis-backed store, and unverified claim
// decoding for identity derivation from externally-issued tokens.
package token
