package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/council-portal-api/internal/models"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/realtime"
	"github.com/noah-isme/council-portal-api/pkg/storage"
)

type recordingPublisher struct {
	changes []realtime.Change
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, change realtime.Change) error {
	p.changes = append(p.changes, change)
	return p.err
}

type recordingAudit struct {
	entries []*models.AuditLog
}

func (a *recordingAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

type stubNoticeRepo struct {
	created   []*models.Notice
	notice    *models.Notice
	createErr error
	getErr    error
	deleteErr error
	deleted   []string
}

func (r *stubNoticeRepo) List(context.Context, models.NoticeFilter) ([]models.Notice, error) {
	return nil, nil
}

func (r *stubNoticeRepo) GetByID(context.Context, string) (*models.Notice, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.notice, nil
}

func (r *stubNoticeRepo) Create(_ context.Context, notice *models.Notice) error {
	if r.createErr != nil {
		return r.createErr
	}
	notice.ID = "notice-1"
	r.created = append(r.created, notice)
	return nil
}

func (r *stubNoticeRepo) Delete(_ context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deleted = append(r.deleted, id)
	return nil
}

type stubEventRepo struct {
	event     *models.Event
	created   []*models.Event
	deleted   []string
	getErr    error
	deleteErr error
}

func (r *stubEventRepo) List(context.Context, models.EventFilter) ([]models.Event, error) {
	return nil, nil
}

func (r *stubEventRepo) GetByID(context.Context, string) (*models.Event, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.event, nil
}

func (r *stubEventRepo) Create(_ context.Context, event *models.Event) error {
	event.ID = "event-1"
	r.created = append(r.created, event)
	return nil
}

func (r *stubEventRepo) Delete(_ context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deleted = append(r.deleted, id)
	return nil
}

type stubMemberRepo struct {
	members []models.Member
	member  *models.Member
	created []*models.Member
	deleted []string
	listErr error
}

func (r *stubMemberRepo) List(context.Context, models.MemberFilter) ([]models.Member, error) {
	return r.members, r.listErr
}

func (r *stubMemberRepo) GetByID(context.Context, string) (*models.Member, error) {
	if r.member == nil {
		return nil, sql.ErrNoRows
	}
	return r.member, nil
}

func (r *stubMemberRepo) Create(_ context.Context, member *models.Member) error {
	member.ID = "member-1"
	r.created = append(r.created, member)
	return nil
}

func (r *stubMemberRepo) Delete(_ context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	return nil
}

type linkedRemoval struct {
	kind models.MediaKind
	url  string
}

type stubLinkedMedia struct {
	calls []linkedRemoval
}

func (m *stubLinkedMedia) RemoveLinked(_ context.Context, kind models.MediaKind, imageURL, _ string) {
	m.calls = append(m.calls, linkedRemoval{kind: kind, url: imageURL})
}

func strPtr(v string) *string { return &v }

func TestNoticeServiceCreateDefaultsActive(t *testing.T) {
	repo := &stubNoticeRepo{}
	publisher := &recordingPublisher{}
	audit := &recordingAudit{}
	svc := NewNoticeService(repo, nil, NewContentHooks(publisher, audit, nil, nil, nil), nil)

	notice, err := svc.Create(context.Background(), CreateNoticeRequest{Content: " Exams moved ", LinkURL: strPtr(" ")}, Actor{UserID: "admin-1"})
	require.NoError(t, err)
	assert.True(t, notice.IsActive)
	assert.Equal(t, "Exams moved", notice.Content)
	assert.Nil(t, notice.LinkURL)

	require.Len(t, publisher.changes, 1)
	assert.Equal(t, realtime.Change{Table: "notices", Action: realtime.ActionInsert, ID: "notice-1", At: publisher.changes[0].At}, publisher.changes[0])
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionContentCreate, audit.entries[0].Action)
	assert.Equal(t, "admin-1", *audit.entries[0].UserID)
}

func TestNoticeServiceCreateValidation(t *testing.T) {
	repo := &stubNoticeRepo{}
	svc := NewNoticeService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateNoticeRequest{Content: "  "}, Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), CreateNoticeRequest{Content: "ok", LinkURL: strPtr("not a url")}, Actor{})
	require.Error(t, err)
	assert.Empty(t, repo.created)
}

func TestNoticeServiceCreateSurfacesBackendMessage(t *testing.T) {
	repo := &stubNoticeRepo{createErr: errors.New(`pq: value too long for type character varying(10)`)}
	publisher := &recordingPublisher{}
	svc := NewNoticeService(repo, nil, NewContentHooks(publisher, nil, nil, nil, nil), nil)

	_, err := svc.Create(context.Background(), CreateNoticeRequest{Content: "hello"}, Actor{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "value too long")
	assert.Empty(t, publisher.changes)
}

func TestNoticeServiceDeleteNotFound(t *testing.T) {
	svc := NewNoticeService(&stubNoticeRepo{getErr: sql.ErrNoRows}, nil, nil, nil)

	err := svc.Delete(context.Background(), "missing", Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEventServiceCreate(t *testing.T) {
	repo := &stubEventRepo{}
	svc := NewEventService(repo, nil, nil, nil, nil)

	event, err := svc.Create(context.Background(), CreateEventRequest{
		Title:       "Hackathon",
		EventDate:   "2024-05-10",
		Description: "24h build",
		RegLink:     strPtr("https://forms.example.com/hack"),
		SummaryText: strPtr(""),
	}, Actor{})
	require.NoError(t, err)
	assert.Equal(t, "event-1", event.ID)
	assert.Nil(t, event.SummaryText)

	_, err = svc.Create(context.Background(), CreateEventRequest{Title: "x", EventDate: "10/05/2024", Description: "d"}, Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEventServiceCreateNeedsOnlyTitleAndDate(t *testing.T) {
	repo := &stubEventRepo{}
	svc := NewEventService(repo, nil, nil, nil, nil)

	event, err := svc.Create(context.Background(), CreateEventRequest{Title: "Orientation", EventDate: "2024-08-01"}, Actor{})
	require.NoError(t, err)
	assert.Empty(t, event.Description)

	_, err = svc.Create(context.Background(), CreateEventRequest{EventDate: "2024-08-01", Description: "no title"}, Actor{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	_, err = svc.Create(context.Background(), CreateEventRequest{Title: "No date"}, Actor{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.created, 1)
}

func TestEventServiceDeleteRemovesImageFirst(t *testing.T) {
	repo := &stubEventRepo{event: &models.Event{ID: "e1", ImageURL: strPtr("https://cdn.example.com/Gallery/EVENT/1700000000000_ab12cd34_poster.png")}}
	media := &stubLinkedMedia{}
	publisher := &recordingPublisher{}
	svc := NewEventService(repo, media, nil, NewContentHooks(publisher, nil, nil, nil, nil), nil)

	require.NoError(t, svc.Delete(context.Background(), "e1", Actor{}))
	require.Len(t, media.calls, 1)
	assert.Equal(t, models.MediaKindEvent, media.calls[0].kind)
	assert.Equal(t, []string{"e1"}, repo.deleted)
	require.Len(t, publisher.changes, 1)
	assert.Equal(t, realtime.ActionDelete, publisher.changes[0].Action)
}

func TestEventServiceDeleteWithoutImage(t *testing.T) {
	repo := &stubEventRepo{event: &models.Event{ID: "e2"}}
	media := &stubLinkedMedia{}
	svc := NewEventService(repo, media, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "e2", Actor{}))
	assert.Empty(t, media.calls)
	assert.Equal(t, []string{"e2"}, repo.deleted)
}

func TestEventServiceDeleteRowFailure(t *testing.T) {
	repo := &stubEventRepo{event: &models.Event{ID: "e3"}, deleteErr: errors.New("permission denied for table events")}
	svc := NewEventService(repo, &stubLinkedMedia{}, nil, nil, nil)

	err := svc.Delete(context.Background(), "e3", Actor{})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "permission denied")
}

func TestMemberServiceCreateDefaultsCategory(t *testing.T) {
	repo := &stubMemberRepo{}
	svc := NewMemberService(repo, nil, nil, nil, nil)

	member, err := svc.Create(context.Background(), CreateMemberRequest{Name: "Ana", Role: "Chair", Rank: 3}, Actor{})
	require.NoError(t, err)
	assert.Equal(t, models.MemberCategoryStudent, member.Category)

	_, err = svc.Create(context.Background(), CreateMemberRequest{Name: "Ana", Role: "Chair", Rank: 9}, Actor{})
	require.Error(t, err)
	_, err = svc.Create(context.Background(), CreateMemberRequest{Name: "Ana", Role: "Chair", Rank: 2, Category: "faculty"}, Actor{})
	require.Error(t, err)
	assert.Len(t, repo.created, 1)
}

func TestMemberServiceDelete(t *testing.T) {
	repo := &stubMemberRepo{member: &models.Member{ID: "m1", ImageURL: strPtr("https://cdn.example.com/Gallery/TEAM_PROFILE/face.jpg")}}
	media := &stubLinkedMedia{}
	audit := &recordingAudit{}
	svc := NewMemberService(repo, media, nil, NewContentHooks(nil, audit, nil, nil, nil), nil)

	require.NoError(t, svc.Delete(context.Background(), "m1", Actor{IPAddress: "10.0.0.1"}))
	require.Len(t, media.calls, 1)
	assert.Equal(t, models.MediaKindMember, media.calls[0].kind)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionContentDelete, audit.entries[0].Action)
	assert.NotEmpty(t, audit.entries[0].OldValues)

	repo.member = nil
	err := svc.Delete(context.Background(), "m2", Actor{})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

// deleteLog records storage removals and row deletes in the order they happen.
type deleteLog struct {
	calls []string
}

type loggingStore struct {
	log *deleteLog
}

func (s loggingStore) List(context.Context, string, string, storage.ListOptions) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func (s loggingStore) Upload(context.Context, string, string, io.Reader, string) error {
	return nil
}

func (s loggingStore) Remove(_ context.Context, _ string, paths []string) error {
	for _, p := range paths {
		s.log.calls = append(s.log.calls, "remove:"+p)
	}
	return nil
}

func (s loggingStore) PublicURL(bucket, objectPath string) string {
	return "https://cdn.example.com/" + bucket + "/" + objectPath
}

type loggingMemberRepo struct {
	*stubMemberRepo
	log *deleteLog
}

func (r loggingMemberRepo) Delete(ctx context.Context, id string) error {
	r.log.calls = append(r.log.calls, "row:"+id)
	return r.stubMemberRepo.Delete(ctx, id)
}

type loggingEventRepo struct {
	*stubEventRepo
	log *deleteLog
}

func (r loggingEventRepo) Delete(ctx context.Context, id string) error {
	r.log.calls = append(r.log.calls, "row:"+id)
	return r.stubEventRepo.Delete(ctx, id)
}

func TestMemberDeleteRemovesProfileImageBeforeRow(t *testing.T) {
	log := &deleteLog{}
	media := NewMediaService(MediaServiceParams{Store: loggingStore{log: log}})
	repo := loggingMemberRepo{
		stubMemberRepo: &stubMemberRepo{member: &models.Member{ID: "m1", ImageURL: strPtr("https://cdn.example.com/Gallery/TEAM_PROFILE/123_pic.jpg")}},
		log:            log,
	}
	svc := NewMemberService(repo, media, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "m1", Actor{}))
	assert.Equal(t, []string{"remove:TEAM_PROFILE/123_pic.jpg", "row:m1"}, log.calls)
}

func TestEventDeleteRemovesPosterBeforeRow(t *testing.T) {
	log := &deleteLog{}
	media := NewMediaService(MediaServiceParams{Store: loggingStore{log: log}})
	repo := loggingEventRepo{
		stubEventRepo: &stubEventRepo{event: &models.Event{ID: "e1", ImageURL: strPtr("https://cdn.example.com/Gallery/EVENT/1700000000000_ab12cd34_poster%20v2.png")}},
		log:           log,
	}
	svc := NewEventService(repo, media, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "e1", Actor{}))
	assert.Equal(t, []string{"remove:EVENT/1700000000000_ab12cd34_poster v2.png", "row:e1"}, log.calls)
}
