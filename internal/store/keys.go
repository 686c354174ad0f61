package store

import "strings"

// Bucket prefixes.
const (
	PrefixBookmark = "bookmark:"
	PrefixHidden   = "hidden:"
)

// entryKey is the full key of one bucket entry.
func entryKey(prefix, id string) string {
	return prefix + id
}

// idFromKey strips the bucket prefix from a key.
func idFromKey(prefix, key string) string {
	return strings.TrimPrefix(key, prefix)
}
