package content

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"strings"

	"github.com/roach88/stratum/internal/protocol"
	"github.com/roach88/stratum/internal/uri"
)

// LinkValidator accepts a value only if it is itself a syntactically
// valid URI string. The target is not dereferenced or existence-checked.
func LinkValidator() protocol.Validator {
	return func(ctx context.Context, tx protocol.Transaction, read protocol.Reader) error {
		target, ok := tx.Value.(string)
		if !ok {
			return protocol.Errorf(protocol.CodeValidationRejected, tx.URI.String(),
				"link value must be a uri string (got %T)", tx.Value)
		}
		if _, err := uri.Parse(target); err != nil {
			return protocol.Errorf(protocol.CodeMalformedURI, tx.URI.String(),
				"link target: %v", err)
		}
		return nil
	}
}

// SignedLink is the envelope an authenticated link value must carry:
// the pointed-to URI plus an ed25519 signature over its bytes, both
// fields hex-encoded where binary.
type SignedLink struct {
	Payload   string
	Signature string
}

// SignedLinkValidator accepts link://accounts/<pubkey-hex>/<path>
// writes whose value is a {payload, signature} envelope verified
// against the public key embedded in the address. Only after signature
// verification is the inner payload required to be a well-formed URI.
func SignedLinkValidator() protocol.Validator {
	return func(ctx context.Context, tx protocol.Transaction, read protocol.Reader) error {
		u := tx.URI

		keyHex, _, _ := strings.Cut(u.Path, "/")
		if keyHex == "" {
			return protocol.Errorf(protocol.CodeMalformedURI, u.String(),
				"signed link uri must be link://%s/<pubkey-hex>/<path>", u.Namespace)
		}
		pub, err := hex.DecodeString(keyHex)
		if err != nil || len(pub) != ed25519.PublicKeySize {
			return protocol.Errorf(protocol.CodeMalformedURI, u.String(),
				"address does not carry a %d-byte hex ed25519 public key", ed25519.PublicKeySize)
		}

		env, err := decodeSignedLink(tx.Value)
		if err != nil {
			return protocol.Errorf(protocol.CodeValidationRejected, u.String(), "%v", err)
		}

		sig, err := hex.DecodeString(env.Signature)
		if err != nil || len(sig) != ed25519.SignatureSize {
			return protocol.Errorf(protocol.CodeBadSignature, u.String(),
				"signature is not a %d-byte hex string", ed25519.SignatureSize)
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), []byte(env.Payload), sig) {
			return protocol.Errorf(protocol.CodeBadSignature, u.String(),
				"signature does not verify against address key")
		}

		if _, err := uri.Parse(env.Payload); err != nil {
			return protocol.Errorf(protocol.CodeMalformedURI, u.String(),
				"signed link target: %v", err)
		}
		return nil
	}
}

func decodeSignedLink(v any) (*SignedLink, error) {
	if env, ok := v.(SignedLink); ok {
		return &env, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, protocol.Errorf(protocol.CodeValidationRejected, "",
			"signed link value must be a {payload, signature} object (got %T)", v)
	}
	payload, ok := obj["payload"].(string)
	if !ok {
		return nil, protocol.Errorf(protocol.CodeValidationRejected, "",
			"signed link envelope missing string field \"payload\"")
	}
	signature, ok := obj["signature"].(string)
	if !ok {
		return nil, protocol.Errorf(protocol.CodeValidationRejected, "",
			"signed link envelope missing string field \"signature\"")
	}
	return &SignedLink{Payload: payload, Signature: signature}, nil
}
