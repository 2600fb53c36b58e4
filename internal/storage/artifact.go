package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrArtifactExists is returned when the target name is already taken
var ErrArtifactExists = errors.New("artifact already exists")

// ArtifactStore writes report artifacts into one directory. An artifact is
// written once and never replaced.
type ArtifactStore struct {
	dir  string
	perm os.FileMode
}

// NewArtifactStore creates a store rooted at dir
func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir, perm: 0644}
}

// Dir returns the directory artifacts are written to
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// Create writes data as name and returns the final path. The data is
// staged in a temp file, checked, then hard-linked into place so readers
// never see a partial artifact.
func (s *ArtifactStore) Create(name string, data []byte) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", errors.Errorf("invalid artifact name %q", name)
	}
	target := filepath.Join(s.dir, name)

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return target, errors.Wrap(err, "create artifact directory")
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return target, errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return target, errors.Wrap(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return target, errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return target, errors.Wrap(err, "close temp file")
	}
	if err := os.Chmod(tmpName, s.perm); err != nil {
		return target, errors.Wrap(err, "chmod temp file")
	}

	if err := verifyFileIntegrity(tmpName, data); err != nil {
		return target, errors.Wrap(err, "file integrity check failed")
	}

	if err := os.Link(tmpName, target); err != nil {
		if os.IsExist(err) {
			return target, ErrArtifactExists
		}
		// some filesystems refuse hard links
		if err := writeExclusive(target, data, s.perm); err != nil {
			return target, err
		}
	}
	return target, nil
}

func writeExclusive(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if os.IsExist(err) {
			return ErrArtifactExists
		}
		return errors.Wrap(err, "create artifact")
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return errors.Wrap(err, "write artifact")
	}
	return f.Close()
}

// verifyFileIntegrity compares the checksum on disk with the expected data
func verifyFileIntegrity(path string, expected []byte) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	want := sha256.Sum256(expected)
	if !bytes.Equal(h.Sum(nil), want[:]) {
		return errors.Errorf("checksum mismatch: got %s, want %s",
			hex.EncodeToString(h.Sum(nil)), hex.EncodeToString(want[:]))
	}
	return nil
}
