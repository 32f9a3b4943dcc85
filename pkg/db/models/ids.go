package models

import "github.com/google/uuid"

// ensureID assigns a v4 id when the caller left it zero. Postgres also
// defaults ids, but sqlite has no gen_random_uuid.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
