package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "lifecyclecli/internal/errors"
)

// WorkbookExtensions are the spreadsheet formats an exported run may use.
var WorkbookExtensions = []string{".xlsx", ".xlsm"}

// FileValidator checks command-line inputs and outputs before a run starts.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateFile checks that path exists, is a regular file and can be opened.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist", slog.String("file", path))
		return apperrors.NewStorageError(fmt.Sprintf("file %s does not exist", path), err)
	}
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("stat file %s", path), err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file", slog.String("path", path))
		return apperrors.NewConfigError(fmt.Sprintf("%s is a directory, not a file", path), nil)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateWorkbookFile checks that path is a readable exported run.
func (v *FileValidator) ValidateWorkbookFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	if !IsWorkbookName(path) {
		v.logger.Error("File is not a workbook",
			slog.String("file", path),
			slog.String("extension", filepath.Ext(path)))
		return apperrors.NewConfigError(
			fmt.Sprintf("file %s is not a workbook (want one of %s)", path, strings.Join(WorkbookExtensions, ", ")), nil)
	}
	if isLockFile(path) {
		return apperrors.NewConfigError(fmt.Sprintf("file %s is a spreadsheet lock file", path), nil)
	}
	return nil
}

// ValidateOutputDirectory ensures dir exists and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("create output directory %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	tmp.Close()
	os.Remove(tmp.Name())

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// FindWorkbooks lists the workbooks directly inside dir, sorted by name.
// Lock files are skipped.
func (v *FileValidator) FindWorkbooks(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("read directory %s", dir), err)
	}

	var found []string
	for _, e := range entries {
		if e.IsDir() || !IsWorkbookName(e.Name()) || isLockFile(e.Name()) {
			continue
		}
		found = append(found, filepath.Join(dir, e.Name()))
	}
	sort.Strings(found)

	v.logger.Debug("Workbooks found",
		slog.String("directory", dir),
		slog.Int("count", len(found)))
	return found, nil
}

// IsWorkbookName reports whether name carries a workbook extension.
func IsWorkbookName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range WorkbookExtensions {
		if ext == want {
			return true
		}
	}
	return false
}

func isLockFile(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "~$")
}
