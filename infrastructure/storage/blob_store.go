package storage

import (
	"bytes"
	"chatsphere/domain"
	"chatsphere/errors"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// BlobStore keeps uploaded media on the local disk and serves it under baseURL.
// Only images and videos are accepted; the kind is sniffed from the content,
// never taken from the client.
type BlobStore struct {
	dir     string
	baseURL string
	maxSize int64
	log     *slog.Logger
}

func NewBlobStore(dir, baseURL string, maxSize int64, log *slog.Logger) (*BlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob directory %s: %w", dir, err)
	}
	return &BlobStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
		log:     log,
	}, nil
}

func (s *BlobStore) Put(ctx context.Context, r io.Reader) (domain.Media, error) {
	if err := ctx.Err(); err != nil {
		return domain.Media{}, err
	}
	content, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return domain.Media{}, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(content)) > s.maxSize {
		return domain.Media{}, errors.ErrMediaTooLarge
	}

	mtype := mimetype.Detect(content)
	kind, ok := mediaKindOf(mtype)
	if !ok {
		s.log.Debug("Upload rejected", "mime", mtype.String())
		return domain.Media{}, fmt.Errorf("%w: got %s", errors.ErrUnsupportedMedia, mtype.String())
	}

	name := uuid.NewString() + mtype.Extension()
	if err = writeFileAtomic(filepath.Join(s.dir, name), content); err != nil {
		return domain.Media{}, err
	}
	return domain.Media{URL: s.baseURL + "/" + name, Kind: kind}, nil
}

// Open returns the blob stored under name. Names are flat: anything that
// looks like a path is refused.
func (s *BlobStore) Open(name string) (io.ReadSeekCloser, error) {
	if !validName(name) {
		return nil, errors.ErrMediaNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, errors.ErrMediaNotFound
	}
	return f, err
}

// Delete removes a blob previously returned by Put. Only references under
// this store's base URL are honoured.
func (s *BlobStore) Delete(media domain.Media) error {
	name, ok := strings.CutPrefix(media.URL, s.baseURL+"/")
	if !ok || !validName(name) {
		return errors.ErrMediaNotFound
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return errors.ErrMediaNotFound
	}
	return err
}

func validName(name string) bool {
	return name != "" && name == filepath.Base(name) &&
		!strings.HasPrefix(name, ".") && !strings.HasSuffix(name, ".part")
}

func mediaKindOf(mtype *mimetype.MIME) (domain.MediaKind, bool) {
	for m := mtype; m != nil; m = m.Parent() {
		switch {
		case strings.HasPrefix(m.String(), "image/"):
			return domain.MediaImage, true
		case strings.HasPrefix(m.String(), "video/"):
			return domain.MediaVideo, true
		}
	}
	return "", false
}

func writeFileAtomic(path string, content []byte) error {
	tmp := path + ".part"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating blob: %w", err)
	}
	if _, err = io.Copy(f, bytes.NewReader(content)); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("writing blob: %w", err)
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("closing blob: %w", err)
	}
	return os.Rename(tmp, path)
}
