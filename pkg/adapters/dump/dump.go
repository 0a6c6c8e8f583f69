// Package dump reads SQL dump files for import into scratch databases.
package dump

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

const maxIdentifierLen = 63

var (
	identifierUnsafe = regexp.MustCompile(`[^0-9a-zA-Z_]`)
	useStatement     = regexp.MustCompile("(?i)^\\s*USE\\s+[`\"]?\\w+[`\"]?\\s*;?\\s*$")
	copyFromStdin    = regexp.MustCompile(`(?i)^\s*COPY\s+.+\s+FROM\s+stdin.*;\s*$`)
)

// Identifier derives the database name for a dump: its base filename without
// extension, with every character outside [0-9a-zA-Z_] replaced by an underscore,
// lowercased. Distinct filenames may share an identifier.
func Identifier(dumpPath string) string {
	base := filepath.Base(dumpPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ToLower(identifierUnsafe.ReplaceAllString(name, "_"))
	if len(name) > maxIdentifierLen {
		name = name[:maxIdentifierLen]
	}
	if name == "" {
		name = "dataset"
	}
	return name
}

// Chunk is one unit of import work: either a batch of plain statements or a COPY block.
type Chunk struct {
	SQL      string
	CopyData string
	IsCopy   bool
}

// Split breaks a dump into statement batches and COPY ... FROM stdin blocks.
// USE statements and psql meta-commands are dropped so the dump lands in the target database.
func Split(r io.Reader) ([]Chunk, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var (
		chunks  []Chunk
		pending strings.Builder
		copying *Chunk
		data    strings.Builder
	)

	flush := func() {
		if sql := strings.TrimSpace(pending.String()); sql != "" {
			chunks = append(chunks, Chunk{SQL: sql})
		}
		pending.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()

		if copying != nil {
			if line == `\.` {
				copying.CopyData = data.String()
				chunks = append(chunks, *copying)
				copying = nil
				data.Reset()
				continue
			}
			data.WriteString(line)
			data.WriteByte('\n')
			continue
		}

		switch {
		case useStatement.MatchString(line):
			continue
		case strings.HasPrefix(strings.TrimSpace(line), `\`):
			continue
		case copyFromStdin.MatchString(line):
			flush()
			copying = &Chunk{SQL: strings.TrimSuffix(strings.TrimSpace(line), ";"), IsCopy: true}
			continue
		}

		pending.WriteString(line)
		pending.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}
	if copying != nil {
		return nil, fmt.Errorf("unterminated COPY block: %s", copying.SQL)
	}
	flush()
	return chunks, nil
}

// Load opens and splits the dump at path.
// A missing file is reported as domain.ErrSourceMissing.
func Load(path string) ([]Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSourceMissing, path)
		}
		return nil, fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()
	return Split(f)
}
