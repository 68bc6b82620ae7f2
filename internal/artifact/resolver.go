package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/adscope/internal/errors"
)

// stampLayout gives second resolution; together with the host name it makes
// generated file names pairwise distinct across one run's hosts.
const stampLayout = "20060102-150405"

// GeneratedName returns the canonical file name for a host's artifact:
// <prefix>_<host>_<timestamp>.<ext>.
func GeneratedName(prefix, host, ext string, runStamp time.Time) string {
	return fmt.Sprintf("%s_%s_%s.%s", prefix, host, runStamp.Format(stampLayout), ext)
}

// ResolvePath derives a concrete local file path from a caller-supplied
// output location. Policy, in order:
//
//  1. No location → generated name in the current working directory.
//  2. Location is an existing directory → generated name inside it.
//  3. Location ends in a path separator, or its base has no extension →
//     treated as a directory to create, then as (2).
//  4. Otherwise → used verbatim; the parent directory is created if missing.
func ResolvePath(location, prefix, host, ext string, runStamp time.Time) (string, error) {
	name := GeneratedName(prefix, host, ext, runStamp)

	if location == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeArtifactPath, "cannot resolve working directory", err)
		}
		return filepath.Join(cwd, name), nil
	}

	if info, err := os.Stat(location); err == nil && info.IsDir() {
		return filepath.Join(location, name), nil
	}

	endsInSep := strings.HasSuffix(location, "/") || strings.HasSuffix(location, string(os.PathSeparator))
	if endsInSep || filepath.Ext(filepath.Base(location)) == "" {
		if err := os.MkdirAll(location, 0o755); err != nil {
			return "", errors.Wrap(errors.ErrCodeArtifactPath,
				fmt.Sprintf("cannot create output directory: %s", location), err)
		}
		return filepath.Join(location, name), nil
	}

	if parent := filepath.Dir(location); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return "", errors.Wrap(errors.ErrCodeArtifactPath,
				fmt.Sprintf("cannot create parent directory: %s", parent), err)
		}
	}
	return location, nil
}
