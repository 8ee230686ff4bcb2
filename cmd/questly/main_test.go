package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questly/questly-api/internal/config"
	"github.com/questly/questly-api/internal/media"
	"github.com/questly/questly-api/internal/service"
)

func TestOpenStoreSQLite(t *testing.T) {
	cfg := config.Config{Store: config.StoreSQLite, DBPath: filepath.Join(t.TempDir(), "questly.db")}
	st, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, st.Close())
}

func TestOpenStoreRejectsUnknownBackend(t *testing.T) {
	_, err := openStore(context.Background(), config.Config{Store: "postgres"})
	assert.ErrorContains(t, err, `unknown store "postgres"`)
}

func TestOpenImages(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "assets")
	images, err := openImages(config.Config{Media: config.Media{
		Backend:   config.MediaLocal,
		AssetsDir: dir,
		ImageURLs: config.ImageURLsRelative,
		PublicURL: "https://cdn.example.com",
	}})
	require.NoError(t, err)
	assert.Equal(t, service.RelativeURLs, images.Mode)
	assert.Equal(t, "local", images.Store.Backend())
	assert.Equal(t, dir, images.Store.(*media.LocalStore).Dir())

	_, err = openImages(config.Config{Media: config.Media{Backend: config.MediaS3}})
	assert.ErrorContains(t, err, "QUESTLY_S3_BUCKET")

	_, err = openImages(config.Config{Media: config.Media{Backend: "ftp"}})
	assert.Error(t, err)
}

func TestAssetsBase(t *testing.T) {
	assert.Equal(t, "https://api.example.com/assets/", assetsBase("https://api.example.com"))
	assert.Equal(t, "https://api.example.com/assets/", assetsBase("https://api.example.com/"))
	assert.Equal(t, "https://api.example.com/assets/", assetsBase("https://api.example.com/assets"))
}

func TestVersionCommand(t *testing.T) {
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	require.NoError(t, app.Run([]string{"questly", "version"}))
	assert.Equal(t, "questly "+version+"\n", out.String())
}
