// Package validation checks local files before tierctl reads or writes them.
package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tiervc/internal/infrastructure"
)

var (
	// ErrUnsupportedExtension rejects files the parser or exporter cannot handle
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	// ErrFileTooLarge rejects inputs above the configured upload limit
	ErrFileTooLarge = errors.New("file too large")
)

// SpreadsheetExtensions are the inputs the parser reads
var SpreadsheetExtensions = []string{".xlsx", ".csv"}

// FileValidator provides the file checks used by the command line tools
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	return &FileValidator{
		logger: infrastructure.WithComponent(logger, "validation"),
	}
}

// ValidateFile checks that path exists, is a regular file and is readable
func (v *FileValidator) ValidateFile(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist", slog.String("file", path))
		return nil, fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file", slog.String("path", path))
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return info, nil
}

// ValidateSpreadsheet checks an input spreadsheet before it is parsed.
// maxBytes <= 0 disables the size check.
func (v *FileValidator) ValidateSpreadsheet(path string, maxBytes int64) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !hasExtension(ext, SpreadsheetExtensions) {
		v.logger.Error("File is not a supported spreadsheet",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("%w: %s (use %s)", ErrUnsupportedExtension, path, strings.Join(SpreadsheetExtensions, " or "))
	}

	// Excel lock files look like workbooks but hold no sheet data
	if strings.HasPrefix(filepath.Base(path), "~$") {
		v.logger.Warn("Skipping temporary Excel file", slog.String("file", path))
		return fmt.Errorf("file %s is a temporary Excel file", path)
	}

	info, err := v.ValidateFile(path)
	if err != nil {
		return err
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		v.logger.Error("Spreadsheet exceeds size limit",
			slog.String("file", path),
			slog.Int64("size", info.Size()),
			slog.Int64("limit", maxBytes))
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, path, info.Size(), maxBytes)
	}
	return nil
}

// ValidateOutputFile checks that a results file can be written to path
func (v *FileValidator) ValidateOutputFile(path string, extensions ...string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if len(extensions) > 0 && !hasExtension(ext, extensions) {
		return fmt.Errorf("%w: %s (use %s)", ErrUnsupportedExtension, path, strings.Join(extensions, " or "))
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	return v.ValidateOutputDirectory(filepath.Dir(path))
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	testFile.Close()
	os.Remove(testFile.Name())

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

func hasExtension(ext string, allowed []string) bool {
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}
