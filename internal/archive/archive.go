// Package archive persists raw HTML snapshots captured during crawls.
package archive

import (
	"fmt"
	"strings"
)

// SnapshotPath builds the object path for a seed page snapshot.
func SnapshotPath(prefix, host, contentHash string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.html", host, contentHash)
	}
	return fmt.Sprintf("%s/%s/%s.html", prefix, host, contentHash)
}
