package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateReference builds the human-facing transaction reference, e.g. TXN-20261018-1A2B3C4D.
func GenerateReference(now time.Time, id uuid.UUID) string {
	return fmt.Sprintf("TXN-%s-%s", now.UTC().Format("20060102"), strings.ToUpper(id.String()[:8]))
}
