package migrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// ManifestError describes a migration manifest that could not be loaded.
type ManifestError struct {
	Path    string
	Message string
	Line    int // 0 when unknown
}

func (e *ManifestError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// manifest is the document shape shared by the YAML, JSON and CUE formats:
//
//	migrations: [{name: "...", sql: "..."}, ...]
type manifest struct {
	Migrations []Migration `json:"migrations" yaml:"migrations"`
}

// LoadManifest reads an ordered migration list from path.
//
// The format follows the extension: .yaml/.yml, .json or .cue hold a
// top-level "migrations" list. A directory is read as one migration per *.sql
// file, ordered by file name, named after the file without its extension.
//
// Names must be non-empty and unique; SQL must not be blank.
func LoadManifest(path string) ([]Migration, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ManifestError{Path: path, Message: fmt.Sprintf("cannot access manifest: %v", err)}
	}

	var migrations []Migration
	if info.IsDir() {
		migrations, err = loadDir(path)
	} else {
		migrations, err = loadFile(path)
	}
	if err != nil {
		return nil, err
	}

	if err := validateManifest(path, migrations); err != nil {
		return nil, err
	}
	return migrations, nil
}

func loadFile(path string) ([]Migration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ManifestError{Path: path, Message: fmt.Sprintf("read manifest: %v", err)}
	}

	var doc manifest
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && err != io.EOF {
			return nil, &ManifestError{Path: path, Message: fmt.Sprintf("parse YAML: %v", err)}
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, &ManifestError{Path: path, Message: fmt.Sprintf("parse JSON: %v", err)}
		}
	case ".cue":
		return loadCUE(path, data)
	default:
		return nil, &ManifestError{Path: path, Message: fmt.Sprintf("unsupported manifest extension %q (want .yaml, .yml, .json, .cue or a directory)", ext)}
	}
	return doc.Migrations, nil
}

// loadCUE evaluates a CUE file and decodes its "migrations" list.
func loadCUE(path string, data []byte) ([]Migration, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, cueManifestError(path, "building CUE value", err)
	}

	list := v.LookupPath(cue.ParsePath("migrations"))
	if !list.Exists() {
		return nil, &ManifestError{Path: path, Message: "missing top-level migrations list"}
	}

	var migrations []Migration
	if err := list.Decode(&migrations); err != nil {
		return nil, cueManifestError(path, "decoding migrations", err)
	}
	return migrations, nil
}

func cueManifestError(path, what string, err error) *ManifestError {
	me := &ManifestError{Path: path, Message: fmt.Sprintf("%s: %v", what, err)}
	for _, e := range errors.Errors(err) {
		if pos := e.Position(); pos.IsValid() {
			me.Line = pos.Line()
			break
		}
	}
	return me
}

func loadDir(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ManifestError{Path: dir, Message: fmt.Sprintf("read directory: %v", err)}
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	migrations := make([]Migration, 0, len(files))
	for _, file := range files {
		content, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return nil, &ManifestError{Path: filepath.Join(dir, file), Message: fmt.Sprintf("read migration: %v", err)}
		}
		migrations = append(migrations, Migration{
			Name: strings.TrimSuffix(file, filepath.Ext(file)),
			SQL:  string(content),
		})
	}
	return migrations, nil
}

func validateManifest(path string, migrations []Migration) error {
	seen := make(map[string]int, len(migrations))
	for i, m := range migrations {
		if strings.TrimSpace(m.Name) == "" {
			return &ManifestError{Path: path, Message: fmt.Sprintf("migration %d has no name", i)}
		}
		if prev, dup := seen[m.Name]; dup {
			return &ManifestError{Path: path, Message: fmt.Sprintf("migration %q appears at positions %d and %d", m.Name, prev, i)}
		}
		seen[m.Name] = i
		if strings.TrimSpace(m.SQL) == "" {
			return &ManifestError{Path: path, Message: fmt.Sprintf("migration %q has no SQL", m.Name)}
		}
	}
	return nil
}
