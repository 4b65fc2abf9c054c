// Package refcache decides whether reference renders cached on disk can be
// reused. The cache directory holds a signature file with the SHA-256 of the
// reference executable and the auxiliary inputs it was run with; any change
// to those bytes invalidates every cached image.
package refcache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"raycheck/logging"
)

// SignatureFile is the name of the signature inside the cache directory
const SignatureFile = "signature"

const hashBufferSize = 32 * 1024

// Inputs are the files that determine the reference images. Empty paths are
// skipped.
type Inputs struct {
	Executable  string
	SceneConfig string
	Texture     string
}

// Decision is the outcome of comparing the stored and current signatures
type Decision int

const (
	// Valid means the cached images were produced from the current inputs
	Valid Decision = iota
	// NeedsPopulation means no signature was stored yet
	NeedsPopulation
	// Invalidate means the inputs changed and the cache must be purged
	Invalidate
)

func (d Decision) String() string {
	switch d {
	case Valid:
		return "valid"
	case NeedsPopulation:
		return "needs population"
	case Invalidate:
		return "invalidate"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Repopulate reports whether reference images have to be rendered again
func (d Decision) Repopulate() bool {
	return d != Valid
}

// ComputeSignature hashes the executable, then the scene config, then the
// texture, and returns the lower-case hex digest.
func ComputeSignature(in Inputs) (string, error) {
	sha := sha256.New()
	buf := make([]byte, hashBufferSize)
	for _, path := range []string{in.Executable, in.SceneConfig, in.Texture} {
		if path == "" {
			continue
		}
		if err := hashFile(sha, path, buf); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(sha.Sum(nil)), nil
}

func hashFile(w io.Writer, path string, buf []byte) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open %s for hashing: %w", path, err)
	}
	defer f.Close()

	if _, err := io.CopyBuffer(w, f, buf); err != nil {
		return fmt.Errorf("cannot hash %s: %w", path, err)
	}
	return nil
}

// ReadSignature returns the stored signature of dir, if any. Only the first
// line is considered.
func ReadSignature(dir string) (string, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, SignatureFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cannot read signature in %s: %w", dir, err)
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i+1]
	}
	return string(data), true, nil
}

// Decide compares a stored signature against the current one
func Decide(stored string, found bool, current string) Decision {
	switch {
	case !found:
		return NeedsPopulation
	case stored != current:
		return Invalidate
	default:
		return Valid
	}
}

// Validate checks the cache in dir against the inputs and acts on the
// decision: an invalid cache is removed recursively, the directory is
// (re)created, and a new signature is written unless the cache was valid.
// It returns the signature of the current inputs and must complete before
// any reference image is read or written.
func Validate(dir string, in Inputs) (Decision, string, error) {
	current, err := ComputeSignature(in)
	if err != nil {
		return Valid, "", err
	}

	stored, found, err := ReadSignature(dir)
	if err != nil {
		return Valid, "", err
	}

	decision := Decide(stored, found, current)
	logging.DebugLog("Reference cache %s: %s (stored %q, current %q)", dir, decision, stored, current)

	if decision == Invalidate {
		logging.Info("Refcache %s is out of date, flushing", dir)
		if err := os.RemoveAll(dir); err != nil {
			return decision, current, fmt.Errorf("cannot flush reference cache %s: %w", dir, err)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return decision, current, fmt.Errorf("cannot create reference cache %s: %w", dir, err)
	}

	if decision.Repopulate() {
		if err := os.WriteFile(filepath.Join(dir, SignatureFile), []byte(current), 0o644); err != nil {
			return decision, current, fmt.Errorf("cannot write signature in %s: %w", dir, err)
		}
	}

	return decision, current, nil
}
