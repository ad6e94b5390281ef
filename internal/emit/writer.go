package emit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"codegen-pipeline/internal/async"
	"codegen-pipeline/internal/rollback"
)

// File permission constants.
const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// GeneratedFile is one rendered output file.
type GeneratedFile struct {
	// Filename is relative to the output directory.
	Filename string
	Content  []byte
}

// WriteFile writes file below outputDir, creating directories as needed,
// and returns the written path with an action that removes it again.
func WriteFile(file GeneratedFile, outputDir string) (string, rollback.Action, error) {
	outputPath := filepath.Join(outputDir, file.Filename)

	if err := os.MkdirAll(filepath.Dir(outputPath), dirPerm); err != nil {
		return "", nil, fmt.Errorf("creating output directory: %w", err)
	}

	if err := os.WriteFile(outputPath, file.Content, filePerm); err != nil {
		return "", nil, fmt.Errorf("writing file %s: %w", file.Filename, err)
	}

	return outputPath, removeAction(outputPath), nil
}

func removeAction(path string) rollback.Action {
	return func() async.Result[struct{}] {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return async.Error[struct{}](fmt.Errorf("removing %s: %w", path, err))
		}

		return async.Ok()
	}
}
