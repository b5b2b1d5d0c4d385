package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore saves objects under a directory on local disk. It stands in for
// the FTP server in development and tests.
type LocalStore struct {
	baseDir string
}

func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

func (s *LocalStore) localPath(bucket, objectPath string) (string, error) {
	key, err := objectKey(bucket, objectPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(key)), nil
}

func (s *LocalStore) Put(_ context.Context, bucket, objectPath string, data io.Reader) error {
	localPath, err := s.localPath(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(file, data); err != nil {
		file.Close()
		os.Remove(localPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(localPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

func (s *LocalStore) Get(_ context.Context, bucket, objectPath string) (io.ReadCloser, error) {
	localPath, err := s.localPath(bucket, objectPath)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(localPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (s *LocalStore) Delete(_ context.Context, bucket, objectPath string) error {
	localPath, err := s.localPath(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(localPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
