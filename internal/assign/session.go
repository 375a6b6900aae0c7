package assign

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionKey is the well-known client storage key (cookie name) under
// which a browser keeps its session id.
const SessionKey = "qf_session_id"

// NewSessionID generates a session identifier: a timestamp combined
// with a random token. Generated once per browser and reused across
// visits via client-held storage.
func NewSessionID() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("s_%d_%s", time.Now().UnixMilli(), random)
}
