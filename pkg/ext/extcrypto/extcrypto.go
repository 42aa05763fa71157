// Package extcrypto provides hashing and identifier commands over the
// canonical encoding of Rei values.
//
// Every digest is computed over the same canonical bytes that seal uses, so
// `v |> hash:blake3` equals `(v |> seal).hash` under the default hasher.
package extcrypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"strings"

	"github.com/google/uuid"
	"github.com/segmentio/fasthash/fnv1a"
	"github.com/zeebo/blake3"

	"github.com/sandrolain/gorei/pkg/evaluator"
	"github.com/sandrolain/gorei/pkg/ext/extutil"
	"github.com/sandrolain/gorei/pkg/functions"
	"github.com/sandrolain/gorei/pkg/types"
)

// Namespace is the UUID namespace used for content-derived identifiers.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/sandrolain/gorei"))

// All returns all crypto command definitions.
func All() []functions.Entry {
	return extutil.Entries(
		UUID,
		Hash,
		HMAC,
	)
}

// UUID returns the definition for `v |> uuid`.
// The identifier is a version 5 UUID derived from the canonical encoding of
// v, so equal values always get the same id. `v |> uuid:random` returns a
// fresh version 4 UUID and ignores v.
func UUID() functions.Entry {
	return functions.Entry{
		Name: "uuid",
		Handler: func(name string, v types.Value, inv functions.Invocation) (types.Value, error) {
			if inv.Mode() == "random" {
				id, err := uuid.NewRandom()
				if err != nil {
					return nil, extutil.Wrap(name, err)
				}
				return types.String(id.String()), nil
			}
			data, err := types.MarshalCanonical(v)
			if err != nil {
				return nil, extutil.Wrap(name, err)
			}
			return types.String(uuid.NewSHA1(Namespace, data).String()), nil
		},
	}
}

// Hash returns the definition for `v |> hash:algorithm`.
// Supported algorithms: "blake3" (default), "sha256", "sha512", "fnv".
// Returns a lowercase hex-encoded digest.
func Hash() functions.Entry {
	return functions.Entry{
		Name: "hash",
		Handler: func(name string, v types.Value, inv functions.Invocation) (types.Value, error) {
			algorithm := algorithmOf(inv)
			data, err := types.MarshalCanonical(v)
			if err != nil {
				return nil, extutil.Wrap(name, err)
			}
			if algorithm == "fnv" {
				return types.String(evaluator.FNVHasher(data)), nil
			}
			h, err := newHasher(name, algorithm)
			if err != nil {
				return nil, err
			}
			h.Write(data)
			return types.String(hex.EncodeToString(h.Sum(nil))), nil
		},
	}
}

// HMAC returns the definition for `v |> hmac(key)` and `v |> hmac:sha512(key)`.
// Defaults to sha256.
func HMAC() functions.Entry {
	return functions.Entry{
		Name: "hmac",
		Handler: func(name string, v types.Value, inv functions.Invocation) (types.Value, error) {
			key, ok := evaluator.StringArg(inv, 0)
			if !ok {
				return nil, extutil.Failf(name, "expects a string key")
			}
			algorithm := strings.ToLower(inv.Mode())
			if algorithm == "" {
				algorithm = "sha256"
			}
			if _, err := newHasher(name, algorithm); err != nil {
				return nil, err
			}
			data, err := types.MarshalCanonical(v)
			if err != nil {
				return nil, extutil.Wrap(name, err)
			}
			mac := hmac.New(func() hash.Hash {
				h, _ := newHasher(name, algorithm)
				return h
			}, []byte(key))
			mac.Write(data)
			return types.String(hex.EncodeToString(mac.Sum(nil))), nil
		},
	}
}

func algorithmOf(inv functions.Invocation) string {
	if m := inv.Mode(); m != "" {
		return strings.ToLower(m)
	}
	if s, ok := evaluator.StringArg(inv, 0); ok {
		return strings.ToLower(s)
	}
	return "blake3"
}

func newHasher(command, algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "blake3":
		return blake3.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, extutil.Failf(command, "unsupported algorithm %q; use blake3, sha256, sha512 or fnv", algorithm)
	}
}

// Fingerprint returns the 64-bit FNV-1a fingerprint of a value's canonical
// encoding.
func Fingerprint(v types.Value) (uint64, error) {
	data, err := types.MarshalCanonical(v)
	if err != nil {
		return 0, err
	}
	return fnv1a.HashBytes64(data), nil
}
