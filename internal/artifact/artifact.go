// Package artifact models files retrieved from remote hosts and resolves
// collision-free local destinations for them.
package artifact

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/zeebo/blake3"

	"github.com/felixgeelhaar/adscope/internal/errors"
)

// Artifact is a file produced remotely and copied to the local machine.
type Artifact struct {
	// Path is the local destination the file was copied to.
	Path string

	// Size is the verified byte length of the local copy.
	Size int64

	// ProducedAt is when the local copy was verified.
	ProducedAt time.Time

	// Scope is the logical scope tag the file was produced under
	// (computer/user/both).
	Scope string

	// Checksum is the blake3 hex digest of the local copy.
	Checksum string
}

// Verify checks that the local copy at path is non-empty and returns its
// size and blake3 checksum. Transferred files must never be trusted on the
// copy call's say-so alone.
func Verify(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", errors.Wrap(errors.ErrCodeArtifactTransfer,
			fmt.Sprintf("cannot open transferred artifact: %s", path), err)
	}
	defer f.Close()

	hasher := blake3.New()
	n, err := io.Copy(hasher, f)
	if err != nil {
		return 0, "", errors.Wrap(errors.ErrCodeArtifactTransfer,
			fmt.Sprintf("cannot read transferred artifact: %s", path), err)
	}
	if n == 0 {
		return 0, "", errors.NewArtifactEmptyError(path)
	}

	return n, hex.EncodeToString(hasher.Sum(nil)), nil
}

// New verifies the local copy at path and returns the artifact record.
func New(path, scope string) (*Artifact, error) {
	size, sum, err := Verify(path)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Path:       path,
		Size:       size,
		ProducedAt: time.Now(),
		Scope:      scope,
		Checksum:   sum,
	}, nil
}
