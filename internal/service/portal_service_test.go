package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/council-portal-api/internal/models"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/realtime"
)

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) Purge(_ context.Context, patterns ...string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key := range m.entries {
		for _, pattern := range patterns {
			if ok, _ := path.Match(pattern, key); ok {
				delete(m.entries, key)
				removed++
				break
			}
		}
	}
	return removed, nil
}

func (m *memoryCacheRepo) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

type stubNoticeLister struct {
	notices []models.Notice
	filters []models.NoticeFilter
	err     error
}

func (s *stubNoticeLister) List(_ context.Context, filter models.NoticeFilter) ([]models.Notice, error) {
	s.filters = append(s.filters, filter)
	return s.notices, s.err
}

type stubEventLister struct {
	events  []models.Event
	filters []models.EventFilter
}

func (s *stubEventLister) List(_ context.Context, filter models.EventFilter) ([]models.Event, error) {
	s.filters = append(s.filters, filter)
	return s.events, nil
}

type stubMediaLister struct {
	assets []models.MediaAsset
	err    error
	limits []int
}

func (s *stubMediaLister) List(_ context.Context, _ models.MediaKind, limit int) ([]models.MediaAsset, error) {
	s.limits = append(s.limits, limit)
	return s.assets, s.err
}

func asset(name string) models.MediaAsset {
	return models.MediaAsset{Name: name, Path: "EVENT PHOTOS/" + name, IsVideo: IsVideoName(name)}
}

func TestPortalHomePicksImagesAndActiveNotices(t *testing.T) {
	notices := &stubNoticeLister{notices: []models.Notice{{ID: "n1", Content: "**Vote** today"}}}
	media := &stubMediaLister{assets: []models.MediaAsset{
		asset("7.mp4"), asset("6.jpg"), asset("5.png"), asset("4.webp"), asset("3.jpeg"), asset("2.gif"), asset("1.jpg"), asset("0.jpg"),
	}}
	svc := NewPortalService(PortalServiceParams{Notices: notices, Media: media})

	home, hit, err := svc.Home(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, home.Images, 5)
	assert.Equal(t, "6.jpg", home.Images[0].Name)
	assert.Equal(t, "1.jpg", home.Images[4].Name)
	assert.Equal(t, []int{15}, media.limits)
	require.Len(t, notices.filters, 1)
	assert.Equal(t, models.NoticeFilter{ActiveOnly: true, OrderBy: models.NoticeOrderUpdated, Limit: 3}, notices.filters[0])
	require.Len(t, home.Notices, 1)
	assert.Contains(t, home.Notices[0].ContentHTML, "<strong>Vote</strong>")
}

func TestPortalHomeToleratesStorageFailure(t *testing.T) {
	svc := NewPortalService(PortalServiceParams{
		Notices: &stubNoticeLister{},
		Media:   &stubMediaLister{err: errors.New("bucket offline")},
	})

	home, _, err := svc.Home(context.Background())
	require.NoError(t, err)
	assert.Empty(t, home.Images)
}

func TestPortalHomeNoticeFailure(t *testing.T) {
	svc := NewPortalService(PortalServiceParams{
		Notices: &stubNoticeLister{err: errors.New("connection refused")},
		Media:   &stubMediaLister{},
	})

	_, _, err := svc.Home(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestPortalEventsPartitions(t *testing.T) {
	events := &stubEventLister{events: []models.Event{
		{ID: "past", EventDate: "2024-05-01", SummaryText: strPtr("It went well")},
		{ID: "today", EventDate: "2024-05-10"},
		{ID: "broken", EventDate: "soon"},
	}}
	svc := NewPortalService(PortalServiceParams{Events: events})
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }

	upcoming, _, err := svc.Events(context.Background(), models.EventPartitionUpcoming)
	require.NoError(t, err)
	require.Len(t, upcoming.Events, 1)
	assert.Equal(t, "today", upcoming.Events[0].ID)
	assert.Equal(t, 1, upcoming.Invalid)
	assert.Equal(t, "2024-05-10", upcoming.Date)

	past, _, err := svc.Events(context.Background(), models.EventPartitionPast)
	require.NoError(t, err)
	require.Len(t, past.Events, 1)
	assert.True(t, past.Events[0].HasSummary)
	assert.Equal(t, []models.EventFilter{{Partition: models.EventPartitionUpcoming}, {Partition: models.EventPartitionPast}}, events.filters)
}

func TestPortalTeamUsesConfiguredPolicy(t *testing.T) {
	members := &stubMemberRepo{members: []models.Member{
		{ID: "m1", Name: "Head", Rank: 1, Category: models.MemberCategoryStudent},
		{ID: "m2", Name: "Dean", Rank: 3, Category: models.MemberCategoryAdministration},
	}}
	svc := NewPortalService(PortalServiceParams{Members: members, Config: PortalServiceConfig{AdminPolicy: models.TeamAdminByRank}})

	roster, _, err := svc.Team(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, memberIDs(roster.Administration))
	assert.Equal(t, []string{"m2"}, memberIDs(roster.StudentCouncil.Executive))
}

func TestPortalCachesAndInvalidatesOnChange(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	notices := &stubNoticeLister{notices: []models.Notice{{ID: "n1", Content: "hello"}}}
	svc := NewPortalService(PortalServiceParams{Notices: notices, Media: &stubMediaLister{}, Cache: cache})
	ctx := context.Background()

	_, hit, err := svc.Notices(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	_, hit, err = svc.Notices(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, notices.filters, 1)

	hub := realtime.NewHub(4, nil)
	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		svc.WatchChanges(watchCtx, hub)
		close(done)
	}()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(realtime.Change{Table: "notices", Action: realtime.ActionInsert, ID: "n2"})
	require.Eventually(t, func() bool { return !repo.has("portal:notices") }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestPortalCachePatterns(t *testing.T) {
	assert.Equal(t, []string{"portal:events:*"}, PortalCachePatterns("events"))
	assert.Equal(t, []string{"portal:home", "portal:gallery"}, PortalCachePatterns("media:gallery"))
	assert.True(t, strings.HasSuffix(PortalCachePatterns("unknown")[0], "*"))
}
