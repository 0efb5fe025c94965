// Package content implements the two standard namespaces built purely
// from validators: hash:// content addressing and link:// authenticated
// pointers, plus the immutable:// write-once rule.
package content

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/roach88/stratum/internal/canonical"
	"github.com/roach88/stratum/internal/protocol"
	"github.com/roach88/stratum/internal/uri"
)

// newDigest returns a fresh hash.Hash for a supported algorithm name.
func newDigest(algorithm string) (hash.Hash, bool) {
	switch strings.ToLower(algorithm) {
	case "sha256":
		return sha256.New(), true
	case "sha384":
		return sha512.New384(), true
	case "sha512":
		return sha512.New(), true
	}
	return nil, false
}

// Algorithms lists the supported digest algorithm names.
func Algorithms() []string {
	return []string{"sha256", "sha384", "sha512"}
}

// ComputeDigest hashes a value under the named algorithm and returns
// the lowercase hex digest. Binary values ([]byte) are hashed as raw
// bytes; everything else is canonicalized per RFC 8785 first, so
// semantically identical objects always hash identically regardless of
// field order.
func ComputeDigest(algorithm string, value any) (string, error) {
	h, ok := newDigest(algorithm)
	if !ok {
		return "", fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}

	if raw, ok := value.([]byte); ok {
		h.Write(raw)
		return hex.EncodeToString(h.Sum(nil)), nil
	}

	encoded, err := canonical.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("canonicalize for hashing: %w", err)
	}
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashURI computes the content address of a value:
// hash://<algorithm>/<hex-digest>.
func HashURI(algorithm string, value any) (uri.URI, error) {
	digest, err := ComputeDigest(algorithm, value)
	if err != nil {
		return uri.URI{}, err
	}
	return uri.URI{Scheme: "hash", Namespace: strings.ToLower(algorithm), Path: digest}, nil
}

// HashValidator accepts a write only if the payload hashes to the
// digest claimed by its hash://<algorithm>/<digest> address.
//
// Error discrimination matters to callers: a malformed address or an
// unsupported algorithm is reported distinctly from a digest mismatch.
// Re-writing identical content to the same address is accepted
// (idempotent by construction: the digest check cannot distinguish it
// from a first write), while different content at an existing address
// necessarily fails the digest comparison, which makes hash records
// write-once.
func HashValidator() protocol.Validator {
	return func(ctx context.Context, tx protocol.Transaction, read protocol.Reader) error {
		u := tx.URI
		if u.Scheme != "hash" {
			return protocol.Errorf(protocol.CodeMalformedURI, u.String(),
				"hash validator applied to non-hash scheme %q", u.Scheme)
		}

		claimed := u.Path
		if claimed == "" || strings.Contains(claimed, "/") {
			return protocol.Errorf(protocol.CodeMalformedURI, u.String(),
				"hash uri must be hash://<algorithm>/<hex-digest>")
		}
		if _, err := hex.DecodeString(claimed); err != nil {
			return protocol.Errorf(protocol.CodeMalformedURI, u.String(),
				"digest is not hex: %v", err)
		}

		if _, ok := newDigest(u.Namespace); !ok {
			return protocol.Errorf(protocol.CodeUnsupportedAlgorithm, u.String(),
				"unsupported hash algorithm %q (supported: %s)",
				u.Namespace, strings.Join(Algorithms(), ", "))
		}

		computed, err := ComputeDigest(u.Namespace, tx.Value)
		if err != nil {
			return protocol.Errorf(protocol.CodeValidationRejected, u.String(),
				"cannot hash payload: %v", err)
		}

		if !strings.EqualFold(computed, claimed) {
			return protocol.Errorf(protocol.CodeHashMismatch, u.String(),
				"content hashes to %s, address claims %s", computed, strings.ToLower(claimed))
		}
		return nil
	}
}
