package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/council-portal-api/internal/dto"
	"github.com/noah-isme/council-portal-api/internal/models"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/markdown"
	"github.com/noah-isme/council-portal-api/pkg/realtime"
)

const portalCachePrefix = "portal:"

type noticeLister interface {
	List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, error)
}

type eventLister interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
}

type memberLister interface {
	List(ctx context.Context, filter models.MemberFilter) ([]models.Member, error)
}

type mediaLister interface {
	List(ctx context.Context, kind models.MediaKind, limit int) ([]models.MediaAsset, error)
}

type changeSubscriber interface {
	Subscribe(table string) (<-chan realtime.Change, func())
}

// PortalServiceConfig tunes the public pages.
type PortalServiceConfig struct {
	CacheTTL     time.Duration
	Location     *time.Location
	AdminPolicy  models.TeamAdminPolicy
	HomeImages   int
	HomeScan     int
	HomeNotices  int
	GalleryLimit int
}

// PortalService composes the public read payloads.
type PortalService struct {
	notices noticeLister
	events  eventLister
	members memberLister
	media   mediaLister
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
	cfg     PortalServiceConfig
}

// PortalServiceParams groups constructor dependencies.
type PortalServiceParams struct {
	Notices noticeLister
	Events  eventLister
	Members memberLister
	Media   mediaLister
	Cache   *CacheService
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  PortalServiceConfig
}

// NewPortalService constructs the service.
func NewPortalService(params PortalServiceParams) *PortalService {
	cfg := params.Config
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.AdminPolicy == "" {
		cfg.AdminPolicy = models.TeamAdminByCategory
	}
	if cfg.HomeImages <= 0 {
		cfg.HomeImages = 5
	}
	if cfg.HomeScan <= 0 {
		cfg.HomeScan = 15
	}
	if cfg.HomeNotices <= 0 {
		cfg.HomeNotices = 3
	}
	if cfg.GalleryLimit <= 0 {
		cfg.GalleryLimit = 100
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortalService{
		notices: params.Notices,
		events:  params.Events,
		members: params.Members,
		media:   params.Media,
		cache:   params.Cache,
		metrics: params.Metrics,
		logger:  logger,
		now:     time.Now,
		cfg:     cfg,
	}
}

// Home returns the newest gallery images and active notices. A storage
// failure leaves the image strip empty instead of failing the page.
func (s *PortalService) Home(ctx context.Context) (*dto.HomeResponse, bool, error) {
	const key = portalCachePrefix + "home"
	var cached dto.HomeResponse
	if s.tryCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	notices, err := s.notices.List(ctx, models.NoticeFilter{ActiveOnly: true, OrderBy: models.NoticeOrderUpdated, Limit: s.cfg.HomeNotices})
	s.metrics.ObserveDBQuery("notices.home", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load notices")
	}

	images := make([]models.MediaAsset, 0, s.cfg.HomeImages)
	assets, err := s.media.List(ctx, models.MediaKindGallery, s.cfg.HomeScan)
	if err != nil {
		s.logger.Warn("home gallery listing failed", zap.Error(err))
	}
	for _, asset := range assets {
		if len(images) == s.cfg.HomeImages {
			break
		}
		if IsImageName(asset.Name) {
			images = append(images, asset)
		}
	}

	resp := &dto.HomeResponse{Images: images, Notices: s.renderNotices(notices)}
	s.persistCache(ctx, key, resp)
	return resp, false, nil
}

// Notices returns the full archive ordered by last update.
func (s *PortalService) Notices(ctx context.Context) (*dto.NoticeArchiveResponse, bool, error) {
	const key = portalCachePrefix + "notices"
	var cached dto.NoticeArchiveResponse
	if s.tryCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	notices, err := s.notices.List(ctx, models.NoticeFilter{OrderBy: models.NoticeOrderUpdated})
	s.metrics.ObserveDBQuery("notices.archive", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load notices")
	}

	resp := &dto.NoticeArchiveResponse{Notices: s.renderNotices(notices)}
	s.persistCache(ctx, key, resp)
	return resp, false, nil
}

// Events returns one partition of events around today in the portal time zone.
func (s *PortalService) Events(ctx context.Context, partition models.EventPartition) (*dto.EventsResponse, bool, error) {
	if partition != models.EventPartitionPast {
		partition = models.EventPartitionUpcoming
	}
	now := s.now()
	today := midnight(now, s.cfg.Location).Format("2006-01-02")
	key := fmt.Sprintf("%sevents:%s:%s", portalCachePrefix, partition, today)
	var cached dto.EventsResponse
	if s.tryCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	events, err := s.events.List(ctx, models.EventFilter{Partition: partition})
	s.metrics.ObserveDBQuery("events."+string(partition), time.Since(start))
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load events")
	}

	parts := PartitionEvents(events, now, s.cfg.Location)
	for _, invalid := range parts.Invalid {
		s.logger.Warn("event with unreadable date skipped", zap.String("event_id", invalid.ID), zap.String("event_date", invalid.EventDate))
	}
	selected := parts.Upcoming
	if partition == models.EventPartitionPast {
		selected = parts.Past
	}

	views := make([]dto.EventView, 0, len(selected))
	for _, event := range selected {
		views = append(views, dto.EventView{Event: event, HasSummary: event.HasSummary()})
	}
	resp := &dto.EventsResponse{Filter: partition, Date: today, Events: views, Invalid: len(parts.Invalid)}
	s.persistCache(ctx, key, resp)
	return resp, false, nil
}

// Team returns the classified roster.
func (s *PortalService) Team(ctx context.Context) (*models.TeamRoster, bool, error) {
	key := portalCachePrefix + "team:" + string(s.cfg.AdminPolicy)
	var cached models.TeamRoster
	if s.tryCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	members, err := s.members.List(ctx, models.MemberFilter{})
	s.metrics.ObserveDBQuery("members.team", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load members")
	}

	roster := ClassifyTeam(members, s.cfg.AdminPolicy, s.logger)
	s.persistCache(ctx, key, roster)
	return &roster, false, nil
}

// Gallery lists gallery media, newest name first.
func (s *PortalService) Gallery(ctx context.Context) (*dto.GalleryResponse, bool, error) {
	const key = portalCachePrefix + "gallery"
	var cached dto.GalleryResponse
	if s.tryCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	items, err := s.media.List(ctx, models.MediaKindGallery, s.cfg.GalleryLimit)
	if err != nil {
		return nil, false, err
	}
	resp := &dto.GalleryResponse{Items: items}
	s.persistCache(ctx, key, resp)
	return resp, false, nil
}

// WatchChanges drops cached pages whenever a change arrives on the hub. It
// returns when ctx is done or the hub closes.
func (s *PortalService) WatchChanges(ctx context.Context, hub changeSubscriber) {
	changes, cancel := hub.Subscribe("")
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			InvalidatePortalCache(ctx, s.cache, change.Table)
		}
	}
}

func (s *PortalService) renderNotices(notices []models.Notice) []dto.NoticeView {
	views := make([]dto.NoticeView, 0, len(notices))
	for _, notice := range notices {
		html, err := markdown.ToHTML(notice.Content)
		if err != nil {
			s.logger.Warn("notice markdown render failed", zap.String("notice_id", notice.ID), zap.Error(err))
			html = ""
		}
		views = append(views, dto.NoticeView{Notice: notice, ContentHTML: html})
	}
	return views
}

func (s *PortalService) tryCache(ctx context.Context, key string, dest interface{}) bool {
	return s.cache.Lookup(ctx, key, dest)
}

func (s *PortalService) persistCache(ctx context.Context, key string, value interface{}) {
	s.cache.Store(ctx, key, value, s.cfg.CacheTTL)
}

// PortalCachePatterns lists the cache key patterns that depend on table.
func PortalCachePatterns(table string) []string {
	switch {
	case table == string(models.TableNotices):
		return []string{portalCachePrefix + "home", portalCachePrefix + "notices"}
	case table == string(models.TableEvents):
		return []string{portalCachePrefix + "events:*"}
	case table == string(models.TableMembers):
		return []string{portalCachePrefix + "team:*"}
	case strings.HasPrefix(table, "media"):
		return []string{portalCachePrefix + "home", portalCachePrefix + "gallery"}
	default:
		return []string{portalCachePrefix + "*"}
	}
}

// InvalidatePortalCache drops the cached pages that depend on table.
func InvalidatePortalCache(ctx context.Context, cache *CacheService, table string) {
	_, _ = cache.Invalidate(ctx, PortalCachePatterns(table)...)
}
