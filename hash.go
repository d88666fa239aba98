package tlcache

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// KeySeparator joins the repository prefix and the triple hash.
	KeySeparator = "_"

	// RegistrySuffix is appended to the prefix to address the registry entry.
	// It contains non-hex characters, so no derived key can ever equal it.
	RegistrySuffix = "_registry"

	// tripleDelimiter separates locale, group and namespace before hashing.
	tripleDelimiter = "\x00"
)

// HashTriple returns the 16-character hex xxhash64 of the joined triple.
// The result is stable across runs and processes.
func HashTriple(locale, group, namespace string) string {
	h := xxhash.New()
	h.WriteString(locale)
	h.WriteString(tripleDelimiter)
	h.WriteString(group)
	h.WriteString(tripleDelimiter)
	h.WriteString(namespace)
	return fmt.Sprintf("%016x", h.Sum64())
}

// DeriveKey builds the cache key for a (locale, group, namespace) triple.
func DeriveKey(prefix, locale, group, namespace string) string {
	return prefix + KeySeparator + HashTriple(locale, group, namespace)
}

// RegistryKey returns the address of the registry entry for prefix.
func RegistryKey(prefix string) string {
	return prefix + RegistrySuffix
}

// validateTriple rejects empty components and components containing the
// hash delimiter, which would make distinct triples collide.
func validateTriple(locale, group, namespace string) error {
	fields := [...]struct{ name, value string }{
		{"locale", locale},
		{"group", group},
		{"namespace", namespace},
	}
	for _, f := range fields {
		if f.value == "" {
			return &InvalidArgumentError{Field: f.name, Message: "must not be empty"}
		}
		if strings.Contains(f.value, tripleDelimiter) {
			return &InvalidArgumentError{Field: f.name, Message: "must not contain NUL bytes"}
		}
	}
	return nil
}

// ownsKey reports whether key has the shape of a key derived under prefix.
func ownsKey(prefix, key string) bool {
	hash, ok := strings.CutPrefix(key, prefix+KeySeparator)
	if !ok || len(hash) != 16 {
		return false
	}
	for _, r := range hash {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
