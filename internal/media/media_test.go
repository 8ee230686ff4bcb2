package media

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questly/questly-api/internal/apperr"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func TestReadUploadAcceptsImage(t *testing.T) {
	u, err := ReadUpload(bytes.NewReader(pngHeader), "my photo.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", u.ContentType)
	assert.True(t, strings.HasSuffix(u.Name, "-my-photo.png"), u.Name)
}

func TestReadUploadRejectsNonImage(t *testing.T) {
	_, err := ReadUpload(strings.NewReader("just some text"), "notes.txt")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestReadUploadTooLarge(t *testing.T) {
	data := append(append([]byte{}, pngHeader...), make([]byte, MaxUploadBytes)...)
	_, err := ReadUpload(bytes.NewReader(data), "big.png")
	assert.Equal(t, apperr.PayloadTooLarge, apperr.KindOf(err))
}

func TestFileName(t *testing.T) {
	name := FileName("../../etc/passwd", ".png")
	assert.True(t, strings.HasSuffix(name, "-passwd.png"), name)
	assert.NotContains(t, name, "/")

	name = FileName("", ".jpg")
	assert.True(t, strings.HasSuffix(name, "-image.jpg"), name)
}

func TestResolve(t *testing.T) {
	base := "http://localhost:3001/assets/"
	assert.Equal(t, "", Resolve(base, ""))
	assert.Equal(t, "http://localhost:3001/assets/a.png", Resolve(base, "a.png"))
	assert.Equal(t, "http://localhost:3001/assets/a.png", Resolve(base, "/assets/a.png"))
	assert.Equal(t, "https://cdn.example.com/x.png", Resolve(base, "https://cdn.example.com/x.png"))

	once := Resolve(base, "a.png")
	assert.Equal(t, once, Resolve(base, once))
}

func TestLocalName(t *testing.T) {
	name, ok := LocalName("http://h/assets/a.png")
	assert.True(t, ok)
	assert.Equal(t, "a.png", name)

	name, ok = LocalName("a.png")
	assert.True(t, ok)
	assert.Equal(t, "a.png", name)

	_, ok = LocalName("../secret")
	assert.False(t, ok)
	_, ok = LocalName("https://cdn.example.com/x.png")
	assert.False(t, ok)
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	require.NoError(t, err)

	ref, err := s.Save(context.Background(), "a.png", pngHeader, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "a.png", ref)
	_, err = os.Stat(filepath.Join(dir, "a.png"))
	require.NoError(t, err)

	require.NoError(t, s.Remove(context.Background(), "http://h/assets/a.png"))
	_, err = os.Stat(filepath.Join(dir, "a.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Remove(context.Background(), "missing.png"))
}

type fakeUploader struct {
	input *s3manager.UploadInput
}

func (f *fakeUploader) Upload(in *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	return f.UploadWithContext(context.Background(), in, opts...)
}

func (f *fakeUploader) UploadWithContext(ctx aws.Context, in *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	f.input = in
	return &s3manager.UploadOutput{
		Location: "https://" + *in.Bucket + ".s3.amazonaws.com/" + *in.Key,
	}, nil
}

type fakeS3 struct {
	s3iface.S3API
	deleted []string
}

func (f *fakeS3) DeleteObjectWithContext(ctx aws.Context, in *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	up := &fakeUploader{}
	svc := &fakeS3{}
	s := &S3Store{bucket: "questly-media", uploader: up, svc: svc}

	ref, err := s.Save(context.Background(), "a.png", pngHeader, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://questly-media.s3.amazonaws.com/assets/a.png", ref)
	assert.Equal(t, "assets/a.png", *up.input.Key)
	assert.Equal(t, "public-read", *up.input.ACL)

	require.NoError(t, s.Remove(context.Background(), ref))
	require.NoError(t, s.Remove(context.Background(), "https://elsewhere.com/assets/b.png"))
	assert.Equal(t, []string{"assets/a.png"}, svc.deleted)
}
