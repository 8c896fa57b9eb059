package layout

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// PersistSetupScript copies the environment script to the install root so
// consumers of the artifacts can replay it later
func (l *Layout) PersistSetupScript(script string) (string, error) {
	dst := l.SetupScript()
	if err := CopyFile(script, dst); err != nil {
		return "", fmt.Errorf("failed to persist setup script: %w", err)
	}

	return dst, nil
}

// CopyFile copies a file from src to dst, preserving its permissions
func CopyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}

	defer srcFile.Close()

	// Create parent directory if needed
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	// Copying a file onto itself would truncate it
	if same, err := sameFile(src, dst); err != nil || same {
		return err
	}

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}

	if err := dstFile.Close(); err != nil {
		return err
	}

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	return os.Chmod(dst, srcInfo.Mode())
}

func sameFile(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}

	bi, err := os.Stat(b)
	if os.IsNotExist(err) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return os.SameFile(ai, bi), nil
}
