package idgen

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ConversationID returns a UUIDv7 identifier string.
// If UUIDv7 generation fails, it falls back to a random UUIDv4.
func ConversationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// MessageID returns a ULID string. ULIDs sort lexically in creation order,
// which keeps message retrieval stable when two rows share a timestamp.
func MessageID() string {
	return ulid.Make().String()
}
