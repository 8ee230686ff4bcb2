// Package media stores uploaded images and turns stored references into
// public URLs.
package media

import (
	"bytes"
	"context"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/questly/questly-api/internal/apperr"
)

// MaxUploadBytes is the largest accepted image.
const MaxUploadBytes = 5 << 20

// AssetsPrefix is the URL path local images are served under.
const AssetsPrefix = "/assets/"

// Store persists an image and returns the reference to record on the entity.
// Local references are bare file names; remote backends return absolute URLs.
type Store interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
	// Remove deletes a previously saved image. References the store did not
	// produce are ignored.
	Remove(ctx context.Context, ref string) error
	Backend() string
}

// Upload is a validated image waiting to be saved.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReadUpload reads at most MaxUploadBytes from r and checks that the content
// is an image.
func ReadUpload(r io.Reader, originalName string) (Upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return Upload{}, apperr.Wrap(err, apperr.Validation, "could not read upload")
	}
	if len(data) > MaxUploadBytes {
		return Upload{}, ErrTooLarge
	}
	if len(data) == 0 {
		return Upload{}, apperr.Validationf("uploaded file is empty")
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Upload{}, apperr.Validationf("only image uploads are allowed, got %s", mt.String())
	}
	return Upload{
		Name:        FileName(originalName, mt.Extension()),
		ContentType: mt.String(),
		Data:        data,
	}, nil
}

// ErrTooLarge is returned for uploads over MaxUploadBytes.
var ErrTooLarge = apperr.TooLargef("File size must be less than 5MB")

// Save stores u in s, returning the reference.
func Save(ctx context.Context, s Store, u Upload) (string, error) {
	return s.Save(ctx, u.Name, u.Data, u.ContentType)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName builds a unique, filesystem-safe name from the client's file name.
// ext replaces a missing extension.
func FileName(original, ext string) string {
	base := path.Base(strings.ReplaceAll(original, `\`, "/"))
	base = strings.Trim(unsafeName.ReplaceAllString(base, "-"), "-.")
	if base == "" {
		base = "image"
	}
	if path.Ext(base) == "" {
		base += ext
	}
	if len(base) > 80 {
		base = base[len(base)-80:]
	}
	return uuid.NewString() + "-" + base
}

// IsAbsolute reports whether ref already is a full URL.
func IsAbsolute(ref string) bool {
	return strings.HasPrefix(ref, "http")
}

// Resolve turns ref into an absolute URL under base (for example
// "https://host/assets/"). Empty and absolute references are returned as is.
func Resolve(base, ref string) string {
	if ref == "" || IsAbsolute(ref) {
		return ref
	}
	name := strings.TrimPrefix(ref, "/")
	name = strings.TrimPrefix(name, strings.TrimPrefix(AssetsPrefix, "/"))
	return strings.TrimRight(base, "/") + "/" + name
}

// LocalName returns the file name behind ref when it points into the local
// assets directory.
func LocalName(ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	p := ref
	if IsAbsolute(ref) {
		i := strings.Index(ref, AssetsPrefix)
		if i < 0 {
			return "", false
		}
		p = ref[i+len(AssetsPrefix):]
	}
	p = strings.TrimPrefix(strings.TrimPrefix(p, "/"), strings.TrimPrefix(AssetsPrefix, "/"))
	name := path.Base(p)
	if name == "." || name == "/" || name == ".." || name != p {
		return "", false
	}
	return name, true
}

func reader(data []byte) io.ReadSeeker {
	return bytes.NewReader(data)
}
