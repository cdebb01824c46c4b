package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// SanitizeName returns a storage-safe version of a file name. Path
// separators and parent references are removed so a name can never leave
// its prefix.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

// ObjectKey builds the storage key for an upload:
// invoices/<user>/<yyyy>/<mm>/<uuid>-<name>
func ObjectKey(userID, fileName string, now time.Time) string {
	return path.Join(
		"invoices",
		SanitizeName(userID),
		fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", int(now.Month())),
		uuid.NewString()+"-"+SanitizeName(fileName),
	)
}
