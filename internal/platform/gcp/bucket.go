package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/learnhub-backend/internal/platform/dbctx"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

type BucketCategory string

const BucketCategoryBadge BucketCategory = "badge"

type BucketService interface {
	UploadFile(dbc dbctx.Context, category BucketCategory, key string, file io.Reader) error
	DeleteFile(dbc dbctx.Context, category BucketCategory, key string) error
	GetPublicURL(category BucketCategory, key string) string
}

type bucketConfig struct {
	name      string
	cdnDomain string
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	storageMode   ObjectStorageMode
	emulatorHost  string
	badgeBucket   bucketConfig
}

// NewBucketService returns nil, nil when storage is disabled; callers treat a
// nil service as "no images".
func NewBucketService(ctx context.Context, log *logger.Logger) (BucketService, error) {
	storageCfg, err := ResolveObjectStorageConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	if !storageCfg.Enabled() {
		log.Info("object storage disabled; badge images will not be uploaded")
		return nil, nil
	}
	name := strings.TrimSpace(os.Getenv("BADGE_GCS_BUCKET_NAME"))
	if name == "" {
		return nil, fmt.Errorf("missing env var BADGE_GCS_BUCKET_NAME")
	}
	client, err := newStorageClientForMode(ctx, storageCfg)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	serviceLog := log.With("service", "BucketService")
	serviceLog.Info("object storage initialized", "mode", storageCfg.Mode, "badge_bucket", name)
	return newBucketService(serviceLog, client, storageCfg, bucketConfig{
		name:      name,
		cdnDomain: strings.TrimSpace(os.Getenv("BADGE_CDN_DOMAIN")),
	}), nil
}

func newBucketService(log *logger.Logger, client *storage.Client, cfg ObjectStorageConfig, badge bucketConfig) *bucketService {
	return &bucketService{
		log:           log,
		storageClient: client,
		storageMode:   cfg.Mode,
		emulatorHost:  strings.TrimRight(cfg.EmulatorHost, "/"),
		badgeBucket:   badge,
	}
}

func newStorageClientForMode(ctx context.Context, cfg ObjectStorageConfig) (*storage.Client, error) {
	if cfg.IsEmulatorMode() {
		// the storage client picks the emulator endpoint up from the env
		_ = os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimRight(cfg.EmulatorHost, "/"))
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}
	opts := append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	return storage.NewClient(ctx, opts...)
}

func (bs *bucketService) getBucketConfig(category BucketCategory) (bucketConfig, error) {
	if category == BucketCategoryBadge {
		return bs.badgeBucket, nil
	}
	return bucketConfig{}, fmt.Errorf("unknown bucket category: %s", category)
}

func (bs *bucketService) UploadFile(dbc dbctx.Context, category BucketCategory, key string, file io.Reader) error {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(dbc.Ctx, time.Minute)
	defer cancel()

	w := bs.storageClient.Bucket(cfg.name).Object(key).NewWriter(ctx)
	w.ContentType = contentTypeForKey(key)
	w.CacheControl = "public, max-age=86400"
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object writer %s: %w", key, err)
	}
	return nil
}

func (bs *bucketService) DeleteFile(dbc dbctx.Context, category BucketCategory, key string) error {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(dbc.Ctx, 30*time.Second)
	defer cancel()
	err = bs.storageClient.Bucket(cfg.name).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (bs *bucketService) GetPublicURL(category BucketCategory, key string) string {
	cfg, err := bs.getBucketConfig(category)
	if err != nil {
		return key
	}
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if cfg.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", cfg.cdnDomain, key)
	}
	if bs.storageMode == ObjectStorageModeGCSEmulator && bs.emulatorHost != "" {
		return fmt.Sprintf("%s/download/storage/v1/b/%s/o/%s?alt=media",
			bs.emulatorHost, url.PathEscape(cfg.name), url.PathEscape(key))
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.name, key)
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".svg":
		return "image/svg+xml"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
