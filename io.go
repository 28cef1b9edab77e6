// File: confspec/io.go

package confspec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileType identifies a supported config file encoding.
type FileType string

const (
	FileTypeJSON FileType = "json"
	FileTypeYAML FileType = "yaml"
	FileTypeTOML FileType = "toml"
)

// FileTypes lists the supported config file encodings.
var FileTypes = []FileType{FileTypeJSON, FileTypeYAML, FileTypeTOML}

func validFileType(t FileType) bool {
	for _, known := range FileTypes {
		if t == known {
			return true
		}
	}
	return false
}

// detectFileType determines a file type from the filename extension,
// returning "" when the extension is not recognized.
func detectFileType(path string) FileType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FileTypeJSON
	case ".yaml", ".yml":
		return FileTypeYAML
	case ".toml", ".tml":
		return FileTypeTOML
	default:
		return ""
	}
}

// loadFileToMap reads and parses a config file, requiring the parsed result
// to be a mapping. Errors wrap kind, which distinguishes schema loading
// (ErrSpec) from override loading (ErrLoad).
func loadFileToMap(path string, fileType FileType, kind error) (map[string]any, error) {
	if !validFileType(fileType) {
		return nil, fmt.Errorf("%w: unsupported file type %q (supported: %v)",
			kind, fileType, FileTypes)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", kind, path, err)
	}

	data := make(map[string]any)
	switch fileType {
	case FileTypeJSON:
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("%w: parsing JSON file %s: %v", kind, path, err)
		}
	case FileTypeYAML:
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("%w: parsing YAML file %s: %v", kind, path, err)
		}
	case FileTypeTOML:
		if err := toml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("%w: parsing TOML file %s: %v", kind, path, err)
		}
	}
	return data, nil
}

// writeMapToFile serializes a mapping and writes it atomically. JSON output
// is sorted and indented for deterministic diffs.
func writeMapToFile(data map[string]any, path string, fileType FileType) error {
	var encoded []byte
	var err error

	switch fileType {
	case FileTypeJSON:
		encoded, err = json.MarshalIndent(data, "", "    ")
		if err == nil {
			encoded = append(encoded, '\n')
		}
	case FileTypeYAML:
		encoded, err = yaml.Marshal(data)
	case FileTypeTOML:
		var buf bytes.Buffer
		encoder := toml.NewEncoder(&buf)
		if err = encoder.Encode(data); err == nil {
			encoded = buf.Bytes()
		}
	default:
		return fmt.Errorf("%w: unsupported file type %q (supported: %v)",
			ErrLoad, fileType, FileTypes)
	}
	if err != nil {
		return fmt.Errorf("%w: encoding %s output for %s: %v", ErrLoad, fileType, path, err)
	}

	return atomicWriteFile(path, encoded)
}

// atomicWriteFile writes data through a temp file in the target directory
// and renames it into place. The temp file lives next to the target so the
// rename never crosses filesystems.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: creating directory %s: %v", ErrLoad, dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file in %s: %v", ErrLoad, dir, err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("%w: writing %s: %v", ErrLoad, tempPath, err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("%w: syncing %s: %v", ErrLoad, tempPath, err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", ErrLoad, tempPath, err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("%w: setting permissions on %s: %v", ErrLoad, tempPath, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("%w: replacing %s: %v", ErrLoad, path, err)
	}

	return nil
}

// fileExists reports whether path names a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
