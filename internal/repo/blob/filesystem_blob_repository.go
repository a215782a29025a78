package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mkrupp/voicechat/internal/infra/logging"
)

var (
	ErrBytesWrittenMismatch = errors.New("bytes written mismatch")
	ErrBytesReadMismatch    = errors.New("bytes read mismatch")
)

const (
	dirPrefixLength = 2 // 16^2 = 256 directories
	dirPrefixDepth  = 2 // 256^2 = 65,536 directories
)

// FileSystemBlobRepositoryConfig holds configuration for the filesystem-based blob repository.
type FileSystemBlobRepositoryConfig struct {
	// Basedir is the root directory for blob storage
	Basedir string `env:"BASEDIR" default:"var/storage/uploads"`
}

// FileSystemBlobRepositoryFactory creates a factory function that returns a new FileSystemRepository.
func FileSystemBlobRepositoryFactory(cfg FileSystemBlobRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context, subdir string) (Repository, error) {
		return NewFileSystemBlobRepository(ctx, subdir, cfg)
	}
}

// NewFileSystemBlobRepository creates a new FileSystemRepository storing
// blobs below cfg.Basedir/subdir.
func NewFileSystemBlobRepository(
	ctx context.Context,
	subdir string,
	cfg FileSystemBlobRepositoryConfig,
) (*FileSystemRepository, error) {
	log := logging.GetLogger("repo.blob.filesystem").With(
		logging.Group("repo",
			"basedir", cfg.Basedir,
			"subdir", subdir,
		),
	)

	repo := &FileSystemRepository{
		dir: filepath.Join(cfg.Basedir, subdir),
		log: log,
	}

	if err := os.MkdirAll(repo.dir, 0o755); err != nil {
		log.ErrorContext(ctx, "init storage failed", "error", err)

		return nil, fmt.Errorf("mkdir all: %w", err)
	}

	return repo, nil
}

// FileSystemRepository implements Repository using the local filesystem.
// Blobs are spread over a directory hierarchy derived from the first
// characters of their key.
type FileSystemRepository struct {
	dir string
	log logging.Logger
}

var _ Repository = (*FileSystemRepository)(nil)

// GetFilename returns the full filesystem path for the blob stored under key.
func (fsRepo *FileSystemRepository) GetFilename(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	// Split the leading characters into dirPrefixDepth chunks of
	// dirPrefixLength characters, e.g.
	//   5f/56/5f56692f-0df9-7f68-8607-abdb054943ed_note.m4a
	var prefixes []string
	for i := 0; i < dirPrefixLength*dirPrefixDepth && i+dirPrefixLength < len(key); i += dirPrefixLength {
		prefixes = append(prefixes, strings.ToLower(key[i:i+dirPrefixLength]))
	}

	return filepath.Join(append(append([]string{fsRepo.dir}, prefixes...), key)...), nil
}

// Exists implements Repository.Exists.
func (fsRepo *FileSystemRepository) Exists(_ context.Context, key string) bool {
	filename, err := fsRepo.GetFilename(key)
	if err != nil {
		return false
	}

	_, err = os.Stat(filename)

	return err == nil
}

// Store implements Repository.Store.
func (fsRepo *FileSystemRepository) Store(ctx context.Context, key string, data []byte) (err error) {
	filename, err := fsRepo.GetFilename(key)
	if err != nil {
		return err
	}

	defer func() {
		log := fsRepo.log.With(logging.Group("blob", "key", key, "filename", filename))
		if err != nil {
			log.ErrorContext(ctx, "blob store failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob stored", "size", len(data))
		}
	}()

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("mkdir all: %w", err)
	}

	release, err := fsRepo.flock(filename, syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer release()

	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	if err := file.Truncate(int64(len(data))); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	if n, err := file.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	} else if err := file.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	} else if info, err := file.Stat(); err != nil {
		return fmt.Errorf("stat: %w", err)
	} else if int64(n) != info.Size() || n != len(data) {
		return fmt.Errorf("%w: expected %d, got %d", ErrBytesWrittenMismatch, len(data), n)
	}

	return nil
}

// Fetch implements Repository.Fetch.
func (fsRepo *FileSystemRepository) Fetch(ctx context.Context, key string) (data []byte, err error) {
	filename, err := fsRepo.GetFilename(key)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil && !errors.Is(err, ErrBlobNotFound) {
			fsRepo.log.ErrorContext(ctx, "blob fetch failed", logging.Group("blob", "key", key), "error", err)
		}
	}()

	if !fsRepo.Exists(ctx, key) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}

	release, err := fsRepo.flock(filename, syscall.LOCK_SH)
	if err != nil {
		return nil, err
	}
	defer release()

	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Join(ErrBlobNotFound, err)
		}

		return nil, fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}

	data = make([]byte, info.Size())
	if n, err := io.ReadFull(file, data); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	} else if int64(n) != info.Size() {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrBytesReadMismatch, info.Size(), n)
	}

	return data, nil
}

// Delete implements Repository.Delete.
func (fsRepo *FileSystemRepository) Delete(ctx context.Context, key string) (err error) {
	filename, err := fsRepo.GetFilename(key)
	if err != nil {
		return err
	}

	defer func() {
		log := fsRepo.log.With(logging.Group("blob", "key", key, "filename", filename))
		if err != nil {
			log.WarnContext(ctx, "blob delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob deleted")
		}
	}()

	if err := os.Remove(filename); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errors.Join(ErrBlobNotFound, err)
		}

		return fmt.Errorf("remove: %w", err)
	}

	return nil
}

// flock serializes access to filename across processes through a lock file
// next to it.
func (fsRepo *FileSystemRepository) flock(filename string, mode int) (release func(), err error) {
	lockfile := filename + ".lock"

	file, err := os.OpenFile(lockfile, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), mode); err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("flock: %w", err)
	}

	return func() {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
	}, nil
}
