package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// KeyInput is the command fingerprint material. Two logically equal inputs
// must derive the same key no matter how their maps were built.
type KeyInput struct {
	Method   string
	Path     string
	TenantID string
	UserID   string
	Query    map[string]any
	Body     any
	Scope    string
}

// Key pairs the derived hash with the input it was derived from.
type Key struct {
	Key   string
	Input KeyInput
}

// DeriveKey fingerprints a command: canonical object {m,p,t,u,q,b,s},
// key-sorted JSON serialization, sha256 hex over the canonical bytes.
func DeriveKey(in KeyInput) (Key, error) {
	q, err := canonicalize(in.Query)
	if err != nil {
		return Key{}, fmt.Errorf("canonicalize query: %w", err)
	}
	b, err := canonicalize(in.Body)
	if err != nil {
		return Key{}, fmt.Errorf("canonicalize body: %w", err)
	}
	canonical := map[string]any{
		"m": strings.ToUpper(strings.TrimSpace(in.Method)),
		"p": in.Path,
		"t": in.TenantID,
		"u": in.UserID,
		"q": q,
		"b": b,
		"s": in.Scope,
	}
	// encoding/json writes map keys in sorted order, which is the whole
	// point: insertion order never reaches the hash.
	raw, err := json.Marshal(canonical)
	if err != nil {
		return Key{}, fmt.Errorf("marshal canonical input: %w", err)
	}
	sum := sha256.Sum256(raw)
	return Key{Key: hex.EncodeToString(sum[:]), Input: in}, nil
}

// canonicalize round-trips v through JSON so struct field order collapses
// into map form before the final key-sorted serialization.
func canonicalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
