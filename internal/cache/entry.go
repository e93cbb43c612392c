package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"dirscout/internal/discover"
)

// SchemaVersion is bumped whenever the entry layout or the key scheme
// changes. Entries persisted under any other version are treated as
// absent and purged lazily; there are no legacy-format readers.
const SchemaVersion = 3

// Entry is one cached result set. It is only ever replaced wholesale,
// never partially updated.
type Entry struct {
	Candidates    []discover.Candidate `json:"candidates"`
	CreatedAt     time.Time            `json:"createdAt"`
	CacheKey      string               `json:"cacheKey"`
	SchemaVersion int                  `json:"schemaVersion"`
}

// KeyFor derives the cache key for a parameter set: a version tag plus
// a sha256 over the field-ordered serialization. List order inside the
// parameters is significant; there is no reordering or dedup, so the
// same logical search with reordered roots is a distinct key.
func KeyFor(params discover.SearchParameters) string {
	serialized := strings.Join(params.KeyFields(), "\n")
	sum := sha256.Sum256([]byte(serialized))
	return "v3|" + hex.EncodeToString(sum[:])
}

// fileNameFor is the on-disk file name for a key: a hash of the key
// itself, so lookups are deterministic without a directory index.
func fileNameFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:]) + ".json"
}
