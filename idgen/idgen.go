// Package idgen provides pluggable ID generation for folio.
//
// Constructors across the repo accept a Generator, making the ID strategy
// a startup-time decision rather than a compile-time one. Node identities
// use a dedicated time-prefixed format (see NodeID) so that the registry
// can recognise an identity written by a previous session on either of
// the two identity channels.
package idgen

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// NanoID returns a Generator that produces base-36 IDs of the given length.
// This is the lightweight strategy — short, URL-safe, fast.
func NanoID(length int) Generator {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	return func() string {
		b := make([]byte, length)
		// Read length random bytes in one syscall, then map to alphabet.
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		for i := range b {
			b[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return string(b)
	}
}

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable, globally unique.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Timestamped returns a Generator that produces IDs in the format
// "20060102T150405Z_<suffix>" where suffix comes from the inner generator.
func Timestamped(gen Generator) Generator {
	return func() string {
		return time.Now().UTC().Format("20060102T150405Z") + "_" + gen()
	}
}

// nodePrefix marks canvas node identities.
const nodePrefix = "node_"

// nodeSuffixLen is the random component of a node identity. Six base-36
// chars on top of a millisecond timestamp makes collisions negligible.
const nodeSuffixLen = 6

// NodeID returns a Generator for canvas node identities:
// "node_<epoch-millis base36>_<6 base36 chars>". The time prefix keeps
// identities roughly sortable by creation and trivially distinguishable
// from host-assigned attribute values.
func NodeID() Generator {
	suffix := NanoID(nodeSuffixLen)
	return func() string {
		return nodePrefix + strconv.FormatInt(time.Now().UnixMilli(), 36) + "_" + suffix()
	}
}

// IsNodeID reports whether s is a well-formed node identity as produced by
// NodeID. The registry uses this to decide whether an attribute value found
// on a live element is one of ours or host noise.
func IsNodeID(s string) bool {
	if !strings.HasPrefix(s, nodePrefix) {
		return false
	}
	rest := s[len(nodePrefix):]
	ts, suffix, ok := strings.Cut(rest, "_")
	if !ok || ts == "" || len(suffix) != nodeSuffixLen {
		return false
	}
	if _, err := strconv.ParseInt(ts, 36, 64); err != nil {
		return false
	}
	for _, c := range suffix {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')) {
			return false
		}
	}
	return true
}

// Default is the repo default for generic IDs: UUIDv7 (RFC 9562).
var Default Generator = UUIDv7()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// Parse validates a UUID string and returns it or an error.
func Parse(s string) (string, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid UUID: %w", err)
	}
	return u.String(), nil
}
