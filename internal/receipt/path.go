package receipt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const uuidPattern = `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`

// storagePathPattern is the hard contract for uploaded receipt images,
// validated on both sides of the wire:
// receipts/{user_id}/{random_uuid}.{ext}
var storagePathPattern = regexp.MustCompile(
	`^receipts/` + uuidPattern + `/` + uuidPattern + `\.(jpg|jpeg|png|webp|heic)$`)

// ValidStoragePath reports whether p matches the storage path contract.
func ValidStoragePath(p string) bool {
	return storagePathPattern.MatchString(p)
}

// NewStoragePath builds a storage path for a fresh upload, scoped by the
// owning user and a random identifier.
func NewStoragePath(userID uuid.UUID, ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	return fmt.Sprintf("receipts/%s/%s.%s", userID.String(), uuid.New().String(), ext)
}

// PathUserID extracts the user id segment from a storage path. Returns false
// if the path does not match the contract.
func PathUserID(p string) (uuid.UUID, bool) {
	if !ValidStoragePath(p) {
		return uuid.Nil, false
	}
	parts := strings.Split(p, "/")
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
