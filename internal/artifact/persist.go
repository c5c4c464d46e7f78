package artifact

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Save writes the bundle to path as gzip-compressed JSON, creating
// parent directories as needed. The write goes through a temp file and
// rename so a crash never leaves a truncated artifact behind.
func Save(a *Artifact, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "artifact: create directory")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*")
	if err != nil {
		return eris.Wrap(err, "artifact: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	zw := gzip.NewWriter(tmp)
	enc := json.NewEncoder(zw)
	if err := enc.Encode(a); err != nil {
		tmp.Close()
		return eris.Wrap(err, "artifact: encode bundle")
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return eris.Wrap(err, "artifact: close gzip writer")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "artifact: close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrap(err, "artifact: rename into place")
	}

	zap.L().Info("artifact saved",
		zap.String("path", path),
		zap.String("id", a.ID),
		zap.String("family", string(a.ModelFamily)))
	return nil
}

// Load reads a bundle back. Artifacts written by a different schema
// version fail with an explicit error rather than partially decoding.
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, eris.Wrap(err, "artifact: open gzip reader")
	}
	defer zr.Close() //nolint:errcheck

	var a Artifact
	if err := json.NewDecoder(zr).Decode(&a); err != nil {
		return nil, eris.Wrap(err, "artifact: decode bundle")
	}
	if a.SchemaVersion != SchemaVersion {
		return nil, eris.Errorf("artifact: schema version %d not supported (want %d)", a.SchemaVersion, SchemaVersion)
	}
	if len(a.FeatureNames) == 0 {
		return nil, eris.New("artifact: bundle has no feature contract")
	}
	return &a, nil
}
