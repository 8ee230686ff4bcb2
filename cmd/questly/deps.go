package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/questly/questly-api/internal/config"
	"github.com/questly/questly-api/internal/media"
	"github.com/questly/questly-api/internal/service"
	"github.com/questly/questly-api/internal/store"
	"github.com/questly/questly-api/internal/store/mongo"
	"github.com/questly/questly-api/internal/store/sqlite"
)

// openStore opens the configured backend and checks it answers.
func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store {
	case config.StoreSQLite:
		st, err = sqlite.Open(cfg.DBPath)
	case config.StoreMongo:
		st, err = mongo.Open(ctx, cfg.MongoURI, cfg.MongoDB)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Ping(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Store, err)
	}
	return st, nil
}

func openImages(cfg config.Config) (*service.Images, error) {
	var (
		ms  media.Store
		err error
	)
	switch cfg.Media.Backend {
	case config.MediaLocal:
		ms, err = media.NewLocalStore(cfg.Media.AssetsDir)
	case config.MediaS3:
		if cfg.Media.S3Bucket == "" {
			return nil, fmt.Errorf("QUESTLY_S3_BUCKET is required for the s3 media backend")
		}
		ms, err = media.NewS3Store(cfg.Media.S3Bucket, cfg.Media.S3Region)
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Media.Backend)
	}
	if err != nil {
		return nil, err
	}
	mode := service.AbsoluteURLs
	if cfg.Media.ImageURLs == config.ImageURLsRelative {
		mode = service.RelativeURLs
	}
	return &service.Images{Store: ms, Mode: mode, PublicURL: cfg.Media.PublicURL}, nil
}

// assetsBase turns a public origin into the prefix assets live under.
func assetsBase(origin string) string {
	origin = strings.TrimRight(origin, "/")
	if strings.HasSuffix(origin, strings.TrimRight(media.AssetsPrefix, "/")) {
		return origin + "/"
	}
	return origin + media.AssetsPrefix
}
