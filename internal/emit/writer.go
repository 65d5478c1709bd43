package emit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kingrea/sando/internal/token"
)

// ManifestFile is the flat token map written next to the css directory.
const ManifestFile = "tokens.json"

// Manifest is the resolved value of every token, keyed by dotted path.
type Manifest struct {
	DefaultFlavor string                       `json:"defaultFlavor,omitempty"`
	Ingredients   map[string]string            `json:"ingredients"`
	Flavors       map[string]map[string]string `json:"flavors"`
	// Recipes are resolved against the default flavor.
	Recipes map[string]string `json:"recipes"`
}

// Values flattens root into dotted path → CSS text.
func Values(root *token.Group) map[string]string {
	out := map[string]string{}
	_ = root.Walk(func(p token.Path, tok *token.Token) error {
		if text, ok := tok.Text(); ok {
			out[p.String()] = text
		}
		return nil
	})
	return out
}

// Writer lays generated files out below an output directory.
type Writer struct {
	OutDir string
	Logger *zap.Logger

	writeFile func(path string, data []byte) error
}

// NewWriter returns a writer rooted at outDir.
func NewWriter(outDir string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{OutDir: outDir, Logger: logger, writeFile: WriteFileAtomic}
}

// Write renders every sheet, the index and the manifest in memory, writes
// the stylesheets into a staging directory and swaps it in for the previous
// css directory. The old css directory stays untouched if anything fails
// before the swap. It returns the written paths relative to OutDir.
func (w *Writer) Write(sheets []Sheet, manifest *Manifest) ([]string, error) {
	files := make(map[string][]byte, len(sheets)+2)
	for _, sheet := range sheets {
		rel := sheet.RelPath()
		if _, dup := files[rel]; dup {
			return nil, fmt.Errorf("emit: two sheets map to %s", rel)
		}
		var buf bytes.Buffer
		if err := Render(&buf, sheet); err != nil {
			return nil, fmt.Errorf("emit: render %s: %w", rel, err)
		}
		files[rel] = buf.Bytes()
	}
	var index bytes.Buffer
	if err := RenderIndex(&index, sheets); err != nil {
		return nil, fmt.Errorf("emit: render index: %w", err)
	}
	files["css/index.css"] = index.Bytes()
	if manifest != nil {
		data, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("emit: encode manifest: %w", err)
		}
		files[ManifestFile] = append(data, '\n')
	}

	written := make([]string, 0, len(files))
	for rel := range files {
		written = append(written, rel)
	}
	sort.Strings(written)

	if err := os.MkdirAll(w.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("emit: ensure %s: %w", w.OutDir, err)
	}
	staging, err := os.MkdirTemp(w.OutDir, ".css-")
	if err != nil {
		return nil, fmt.Errorf("emit: create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)
	if err := os.Chmod(staging, 0o755); err != nil {
		return nil, fmt.Errorf("emit: chmod staging dir: %w", err)
	}
	for _, rel := range written {
		if rel == ManifestFile {
			continue
		}
		target := filepath.Join(staging, filepath.FromSlash(strings.TrimPrefix(rel, "css/")))
		if err := w.write(target, files[rel]); err != nil {
			return nil, err
		}
		w.Logger.Debug("staged file", zap.String("path", rel), zap.Int("bytes", len(files[rel])))
	}
	if err := swapDir(staging, filepath.Join(w.OutDir, "css")); err != nil {
		return nil, err
	}

	if data, ok := files[ManifestFile]; ok {
		target := filepath.Join(w.OutDir, ManifestFile)
		if err := w.write(target, data); err != nil {
			return nil, err
		}
		w.Logger.Debug("wrote file", zap.String("path", target), zap.Int("bytes", len(data)))
	}
	return written, nil
}

func (w *Writer) write(path string, data []byte) error {
	if w.writeFile == nil {
		return WriteFileAtomic(path, data)
	}
	return w.writeFile(path, data)
}

// swapDir moves staging into place at dir. A previous dir is moved aside
// first and restored if the final rename fails.
func swapDir(staging, dir string) error {
	backup := staging + ".old"
	hadOld := true
	if err := os.Rename(dir, backup); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("emit: move aside %s: %w", dir, err)
		}
		hadOld = false
	}
	if err := os.Rename(staging, dir); err != nil {
		if hadOld {
			_ = os.Rename(backup, dir)
		}
		return fmt.Errorf("emit: replace %s: %w", dir, err)
	}
	if hadOld {
		if err := os.RemoveAll(backup); err != nil {
			return fmt.Errorf("emit: remove previous %s: %w", dir, err)
		}
	}
	return nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("emit: ensure %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("emit: create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("emit: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("emit: close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("emit: chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("emit: rename %s: %w", path, err)
	}
	return nil
}
