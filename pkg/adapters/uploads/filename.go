// Package uploads stores uploaded SQL dumps on local disk, optionally mirrored to S3-compatible storage.
package uploads

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// AllowedExtension is the only accepted dump extension.
const AllowedExtension = ".sql"

var filenameUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename flattens a client-supplied name into a safe single path component.
// Path separators become word breaks, whitespace runs become underscores, anything
// outside [A-Za-z0-9_.-] is dropped, and leading or trailing dots and underscores are trimmed.
func SecureFilename(name string) string {
	name = strings.NewReplacer("/", " ", `\`, " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = filenameUnsafe.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// ValidateFilename sanitizes name and checks its extension.
func ValidateFilename(name string) (string, error) {
	safe := SecureFilename(name)
	if safe == "" || !strings.EqualFold(filepath.Ext(safe), AllowedExtension) {
		return "", fmt.Errorf("%w: %q (only %s files are accepted)", domain.ErrInvalidFilename, name, AllowedExtension)
	}
	return safe, nil
}
