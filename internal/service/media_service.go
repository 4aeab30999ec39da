package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/council-portal-api/internal/models"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/realtime"
	"github.com/noah-isme/council-portal-api/pkg/storage"
)

// PlaceholderObject is the marker file some stores keep in empty folders.
const PlaceholderObject = ".emptyFolderPlaceholder"

const sniffLength = 3072

var (
	uploadPrefix    = regexp.MustCompile(`^\d{10,}_([0-9a-f]{8}_)?`)
	videoExtensions = map[string]bool{".mp4": true, ".webm": true, ".mov": true}
)

type mediaStore interface {
	List(ctx context.Context, bucket, folder string, opts storage.ListOptions) ([]storage.ObjectInfo, error)
	Upload(ctx context.Context, bucket, objectPath string, r io.Reader, contentType string) error
	Remove(ctx context.Context, bucket string, paths []string) error
	PublicURL(bucket, objectPath string) string
}

type orphanRecorder interface {
	Create(ctx context.Context, orphan *models.MediaOrphan) error
}

// MediaServiceConfig tunes upload validation.
type MediaServiceConfig struct {
	Bucket       string
	MaxFileSize  int64
	AllowedMIMEs []string
}

// UploadFile is one file of a multipart upload.
type UploadFile struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// MediaService stores uploads and lists media folders. Media has no table; the
// bucket folder is the source of truth.
type MediaService struct {
	store   mediaStore
	orphans orphanRecorder
	hooks   *ContentHooks
	metrics *MetricsService
	logger  *zap.Logger
	cfg     MediaServiceConfig
	now     func() time.Time
	token   func() string
}

// MediaServiceParams groups constructor dependencies.
type MediaServiceParams struct {
	Store   mediaStore
	Orphans orphanRecorder
	Hooks   *ContentHooks
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  MediaServiceConfig
}

// NewMediaService constructs the service.
func NewMediaService(params MediaServiceParams) *MediaService {
	cfg := params.Config
	if cfg.Bucket == "" {
		cfg.Bucket = "Gallery"
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 50 << 20
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"image/jpeg", "image/png", "image/webp", "image/gif", "video/mp4", "video/webm", "video/quicktime"}
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{
		store:   params.Store,
		orphans: params.Orphans,
		hooks:   params.Hooks,
		metrics: params.Metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
		token: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		},
	}
}

// Upload stores files under the folder of kind. Event and member uploads take
// exactly one image. Files already stored stay stored when a later one fails.
func (s *MediaService) Upload(ctx context.Context, kind models.MediaKind, files []UploadFile, actor Actor) ([]models.MediaUpload, error) {
	if len(files) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no files provided")
	}
	if kind != models.MediaKindGallery && len(files) > 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event and member uploads take a single image")
	}

	uploads := make([]models.MediaUpload, 0, len(files))
	seen := make(map[string]bool, len(files))
	for _, file := range files {
		upload, err := s.uploadOne(ctx, kind, file, seen)
		if err != nil {
			s.metrics.RecordUpload(string(kind), false)
			return uploads, err
		}
		s.metrics.RecordUpload(string(kind), true)
		uploads = append(uploads, *upload)
		s.hooks.Changed(ctx, "media:"+string(kind), realtime.ActionInsert, upload.Path, actor, upload)
	}
	return uploads, nil
}

func (s *MediaService) uploadOne(ctx context.Context, kind models.MediaKind, file UploadFile, seen map[string]bool) (*models.MediaUpload, error) {
	if file.Reader == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	if file.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("%s exceeds the %d byte limit", file.Name, s.cfg.MaxFileSize))
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(file.Reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, appErrors.Validation(err, "failed to read upload")
	}
	head = head[:n]
	if n == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is empty", file.Name))
	}

	detected := mimetype.Detect(head)
	if !s.allowed(detected) {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, fmt.Sprintf("%s has unsupported type %s", file.Name, detected.String()))
	}
	if kind != models.MediaKindGallery && !strings.HasPrefix(detected.String(), "image/") {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, "event and member uploads must be images")
	}

	name := s.objectName(file.Name)
	for seen[name] {
		name = s.objectName(file.Name)
	}
	seen[name] = true
	objectPath := kind.Folder() + "/" + name

	body := io.MultiReader(bytes.NewReader(head), file.Reader)
	if err := s.store.Upload(ctx, s.cfg.Bucket, objectPath, body, detected.String()); err != nil {
		s.logger.Error("media upload failed", zap.String("path", objectPath), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, fmt.Sprintf("failed to store %s: %v", file.Name, err))
	}

	size := file.Size
	if size <= 0 {
		size = int64(n)
	}
	return &models.MediaUpload{
		Kind:        kind,
		Name:        name,
		Path:        objectPath,
		PublicURL:   s.store.PublicURL(s.cfg.Bucket, objectPath),
		ContentType: detected.String(),
		Size:        size,
	}, nil
}

func (s *MediaService) allowed(detected *mimetype.MIME) bool {
	for _, allowed := range s.cfg.AllowedMIMEs {
		if detected.Is(allowed) {
			return true
		}
	}
	return false
}

// objectName builds <unix millis>_<8 hex>_<original name without whitespace>.
func (s *MediaService) objectName(original string) string {
	base := path.Base(strings.ReplaceAll(original, "\\", "/"))
	base = strings.Join(strings.Fields(base), "")
	if base == "" || base == "." || base == "/" {
		base = "file"
	}
	return fmt.Sprintf("%d_%s_%s", s.now().UnixMilli(), s.token(), base)
}

// List returns up to limit objects of the kind's folder, newest name first.
// The placeholder object and sub folders are skipped after the limit applies.
func (s *MediaService) List(ctx context.Context, kind models.MediaKind, limit int) ([]models.MediaAsset, error) {
	if limit <= 0 {
		limit = 100
	}
	objects, err := s.store.List(ctx, s.cfg.Bucket, kind.Folder(), storage.ListOptions{Limit: limit, SortDesc: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, fmt.Sprintf("failed to list media: %v", err))
	}
	assets := make([]models.MediaAsset, 0, len(objects))
	for _, obj := range objects {
		if obj.IsDir || obj.Name == PlaceholderObject {
			continue
		}
		assets = append(assets, models.MediaAsset{
			Name:      obj.Name,
			Path:      obj.Path,
			PublicURL: s.store.PublicURL(s.cfg.Bucket, obj.Path),
			Label:     MediaLabel(obj.Name),
			IsVideo:   IsVideoName(obj.Name),
			Size:      obj.Size,
			UpdatedAt: obj.UpdatedAt,
		})
	}
	return assets, nil
}

// DeleteGallery removes one gallery object by name. Rows never reference
// gallery media, so nothing else is touched.
func (s *MediaService) DeleteGallery(ctx context.Context, name string, actor Actor) error {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || name == PlaceholderObject || strings.ContainsAny(name, "/\\") {
		return appErrors.Clone(appErrors.ErrValidation, "invalid gallery object name")
	}
	objectPath := models.FolderGallery + "/" + name
	if err := s.store.Remove(ctx, s.cfg.Bucket, []string{objectPath}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, fmt.Sprintf("failed to delete %s: %v", name, err))
	}
	s.hooks.Changed(ctx, "media:"+string(models.MediaKindGallery), realtime.ActionDelete, objectPath, actor, nil)
	return nil
}

// RemoveLinked deletes the stored file behind a row's image URL. Failures are
// logged and recorded as orphans for the sweeper; they never fail the caller.
func (s *MediaService) RemoveLinked(ctx context.Context, kind models.MediaKind, imageURL, reason string) {
	name, ok := ObjectNameFromURL(imageURL)
	if !ok {
		s.logger.Warn("linked media url not understood", zap.String("url", imageURL))
		return
	}
	objectPath := kind.Folder() + "/" + name
	err := s.store.Remove(ctx, s.cfg.Bucket, []string{objectPath})
	if err == nil {
		return
	}

	s.logger.Warn("linked media delete failed, recording orphan", zap.String("path", objectPath), zap.Error(err))
	s.metrics.RecordOrphan()
	if s.orphans == nil {
		return
	}
	message := err.Error()
	orphan := &models.MediaOrphan{
		Bucket:    s.cfg.Bucket,
		Path:      objectPath,
		Reason:    reason,
		LastError: &message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.orphans.Create(ctx, orphan); err != nil {
		s.logger.Error("failed to record media orphan", zap.String("path", objectPath), zap.Error(err))
	}
}

// Remove deletes raw object paths from the media bucket.
func (s *MediaService) Remove(ctx context.Context, bucket string, paths []string) error {
	if bucket == "" {
		bucket = s.cfg.Bucket
	}
	return s.store.Remove(ctx, bucket, paths)
}

// ObjectNameFromURL extracts the unescaped last path segment of a public URL.
func ObjectNameFromURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	escaped := u.EscapedPath()
	idx := strings.LastIndex(escaped, "/")
	segment := escaped[idx+1:]
	name, err := url.PathUnescape(segment)
	if err != nil || name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

// MediaLabel derives a caption from an object name: the upload prefix and
// extension are dropped and underscores become spaces.
func MediaLabel(name string) string {
	label := name
	if idx := strings.Index(label, "."); idx > 0 {
		label = label[:idx]
	}
	label = uploadPrefix.ReplaceAllString(label, "")
	label = strings.TrimSpace(strings.ReplaceAll(label, "_", " "))
	if label == "" {
		return name
	}
	return label
}

// IsVideoName reports whether the extension marks a video.
func IsVideoName(name string) bool {
	return videoExtensions[strings.ToLower(path.Ext(name))]
}

// IsImageName reports whether the extension is one the home page shows.
func IsImageName(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	default:
		return false
	}
}
