package utils

import (
	"os"
	"path/filepath"
)

// FileExist reports whether filePath exists. Errors other than "not exist"
// are treated as the file existing, so callers never clobber it.
func FileExist(filePath string) bool {
	_, err := os.Stat(filePath)
	return !os.IsNotExist(err)
}

func CreateDirIfNotExist(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return err
		}
	}

	return nil
}

// WriteFileIfNotExist creates filePath (and its parent dirs) with content,
// leaving an existing file untouched.
func WriteFileIfNotExist(filePath string, content []byte) error {
	if FileExist(filePath) {
		return nil
	}

	err := CreateDirIfNotExist(filepath.Dir(filePath))
	if err != nil {
		return err
	}

	return os.WriteFile(filePath, content, 0600)
}
