package localfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dermadoc/backend/internal/core/domain"
)

// MaxImageSize caps uploads at 5 MiB.
const MaxImageSize = 5 << 20

const (
	skinCheckPrefix = "skin_checks"
	processingDir   = "processing"
	processedDir    = "processed"
)

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

// Storage keeps skin check images on the local filesystem under
// <root>/skin_checks/<userID>/{processing,processed}/. All relative paths
// it returns use forward slashes regardless of host OS.
type Storage struct {
	root string
}

func New(root string) (*Storage, error) {
	if root == "" {
		root = "./data/storage"
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Storage{root: abs}, nil
}

// SaveSkinCheck validates the upload and writes it into the owner's
// processing area under a fresh random name.
func (s *Storage) SaveSkinCheck(_ context.Context, content []byte, userID, ext string) (string, error) {
	if len(content) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "save image", fmt.Errorf("empty file"))
	}
	if len(content) > MaxImageSize {
		return "", domain.WrapError(domain.ErrInvalidInput, "save image",
			fmt.Errorf("file exceeds %d bytes", MaxImageSize))
	}
	ext = strings.ToLower(ext)
	if _, ok := allowedExtensions[ext]; !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "save image",
			fmt.Errorf("unsupported file extension %q", ext))
	}
	if !sniffImage(content) {
		return "", domain.WrapError(domain.ErrInvalidInput, "save image",
			fmt.Errorf("file content is not a recognized image"))
	}
	owner, err := sanitizeOwnerID(userID)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "save image", err)
	}

	relPath := path.Join(skinCheckPrefix, owner, processingDir, uuid.NewString()+ext)
	absPath, err := s.insideRoot(relPath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("create processing dir: %w", err)
	}
	if err := os.WriteFile(absPath, content, 0o644); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}
	return relPath, nil
}

// MoveToProcessed relocates a file from the processing area to the
// processed area. A path without a processing segment, or a file that is
// already gone, is reported as moved=false with a nil error so a retried
// job does not fail on its own earlier progress.
func (s *Storage) MoveToProcessed(_ context.Context, relPath string) (string, bool, error) {
	segments := strings.Split(path.Clean(relPath), "/")
	idx := -1
	for i, seg := range segments {
		if seg == processingDir {
			idx = i
			break
		}
	}
	if idx == -1 {
		return relPath, false, nil
	}

	srcAbs, err := s.insideRoot(relPath)
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(srcAbs); errors.Is(err, fs.ErrNotExist) {
		return relPath, false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("stat source file: %w", err)
	}

	segments[idx] = processedDir
	newRelPath := path.Join(segments...)
	dstAbs, err := s.insideRoot(newRelPath)
	if err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(filepath.Dir(dstAbs), 0o755); err != nil {
		return "", false, fmt.Errorf("create processed dir: %w", err)
	}
	if err := os.Rename(srcAbs, dstAbs); err != nil {
		return "", false, fmt.Errorf("move image file: %w", err)
	}
	removeIfEmpty(filepath.Dir(srcAbs))
	return newRelPath, true, nil
}

// Delete removes the file and prunes its directory if that left it empty.
// A missing file reports deleted=false with a nil error.
func (s *Storage) Delete(_ context.Context, relPath string) (bool, error) {
	absPath, err := s.insideRoot(relPath)
	if err != nil {
		return false, err
	}
	if err := os.Remove(absPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("delete image file: %w", err)
	}
	removeIfEmpty(filepath.Dir(absPath))
	return true, nil
}

// AbsolutePath resolves relPath inside the storage root and verifies the
// file exists.
func (s *Storage) AbsolutePath(_ context.Context, relPath string) (string, error) {
	absPath, err := s.insideRoot(relPath)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(absPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.WrapError(domain.ErrNotFound, "resolve image path",
				fmt.Errorf("file %s does not exist", relPath))
		}
		return "", fmt.Errorf("stat image file: %w", err)
	}
	return absPath, nil
}

// insideRoot joins relPath onto the root and rejects anything that would
// escape it.
func (s *Storage) insideRoot(relPath string) (string, error) {
	cleaned := path.Clean("/" + relPath)
	absPath := filepath.Join(s.root, filepath.FromSlash(cleaned))
	if absPath != s.root && !strings.HasPrefix(absPath, s.root+string(filepath.Separator)) {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve image path",
			fmt.Errorf("path %q escapes storage root", relPath))
	}
	return absPath, nil
}

// sanitizeOwnerID admits only the id alphabet used for path segments.
func sanitizeOwnerID(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("empty owner id")
	}
	for _, r := range userID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
		default:
			return "", fmt.Errorf("owner id %q contains invalid characters", userID)
		}
	}
	return userID, nil
}

var imageMagics = [][]byte{
	{0xff, 0xd8, 0xff},    // JPEG
	{0x89, 'P', 'N', 'G'}, // PNG
	[]byte("GIF87a"),
	[]byte("GIF89a"),
	[]byte("RIFF"), // WEBP container, fourcc checked below
}

// sniffImage checks the leading magic bytes. WEBP needs both the RIFF
// header and the WEBP fourcc at offset 8.
func sniffImage(content []byte) bool {
	for _, magic := range imageMagics {
		if !bytes.HasPrefix(content, magic) {
			continue
		}
		if bytes.Equal(magic, []byte("RIFF")) {
			return len(content) >= 12 && bytes.Equal(content[8:12], []byte("WEBP"))
		}
		return true
	}
	return false
}

func removeIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 0 {
		return
	}
	_ = os.Remove(dir)
}
