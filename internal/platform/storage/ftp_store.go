package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/sirupsen/logrus"
)

// FTPStore keeps one directory per bucket under root on an FTP server.
// A single control connection is shared, so operations are serialized.
type FTPStore struct {
	host     string
	port     string
	user     string
	password string
	root     string

	mu   sync.Mutex
	conn *ftp.ServerConn
}

func NewFTPStore(host, port, user, password, root string) *FTPStore {
	if root == "" {
		root = "/"
	}
	return &FTPStore{host: host, port: port, user: user, password: password, root: root}
}

// connect establishes connection to the FTP server. Callers hold mu.
func (s *FTPStore) connect(ctx context.Context) error {
	if s.conn != nil {
		if err := s.conn.NoOp(); err == nil {
			return nil
		}
		s.conn.Quit()
		s.conn = nil
	}

	addr := s.host + ":" + s.port
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(10*time.Second), ftp.DialWithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to FTP: %w", err)
	}
	if err := conn.Login(s.user, s.password); err != nil {
		conn.Quit()
		return fmt.Errorf("failed to login to FTP: %w", err)
	}
	s.conn = conn
	return nil
}

func (s *FTPStore) remote(bucket, objectPath string) (string, error) {
	key, err := objectKey(bucket, objectPath)
	if err != nil {
		return "", err
	}
	return path.Join(s.root, key), nil
}

func (s *FTPStore) Put(ctx context.Context, bucket, objectPath string, data io.Reader) error {
	remotePath, err := s.remote(bucket, objectPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.connect(ctx); err != nil {
		return err
	}

	s.makeDirs(path.Dir(remotePath))
	if err := s.conn.Stor(remotePath, data); err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	logrus.WithFields(logrus.Fields{"bucket": bucket, "path": objectPath}).Debug("Stored object")
	return nil
}

// makeDirs creates each directory level; "already exists" replies are expected and ignored.
func (s *FTPStore) makeDirs(dir string) {
	current := ""
	for _, seg := range strings.Split(strings.Trim(dir, "/"), "/") {
		if seg == "" {
			continue
		}
		current += "/" + seg
		_ = s.conn.MakeDir(current)
	}
}

// Get reads the whole object before returning so the shared connection is free again.
func (s *FTPStore) Get(ctx context.Context, bucket, objectPath string) (io.ReadCloser, error) {
	remotePath, err := s.remote(bucket, objectPath)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	resp, err := s.conn.Retr(remotePath)
	if err != nil {
		if isFTPNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *FTPStore) Delete(ctx context.Context, bucket, objectPath string) error {
	remotePath, err := s.remote(bucket, objectPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.connect(ctx); err != nil {
		return err
	}

	if err := s.conn.Delete(remotePath); err != nil {
		if isFTPNotFound(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Close closes the FTP connection
func (s *FTPStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		err := s.conn.Quit()
		s.conn = nil
		return err
	}
	return nil
}

func isFTPNotFound(err error) bool {
	var protoErr *textproto.Error
	return errors.As(err, &protoErr) && protoErr.Code == ftp.StatusFileUnavailable
}
