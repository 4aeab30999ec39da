package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/council-portal-api/internal/models"
)

func TestNoticeListActiveLatest(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoticeRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "content", "link_url", "is_active", "created_at", "updated_at"}).
		AddRow("n2", "Exams", nil, true, now, now).
		AddRow("n1", "Fest", "https://fest.example.org", true, now, now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, content, link_url, is_active, created_at, updated_at FROM notices WHERE is_active = TRUE ORDER BY updated_at DESC LIMIT 3")).
		WillReturnRows(rows)

	notices, err := repo.List(context.Background(), models.NoticeFilter{ActiveOnly: true, Limit: 3})
	require.NoError(t, err)
	require.Len(t, notices, 2)
	assert.Nil(t, notices[0].LinkURL)
	require.NotNil(t, notices[1].LinkURL)
	assert.Equal(t, "https://fest.example.org", *notices[1].LinkURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoticeListAdminOrder(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoticeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM notices ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "content", "link_url", "is_active", "created_at", "updated_at"}))

	notices, err := repo.List(context.Background(), models.NoticeFilter{OrderBy: models.NoticeOrderCreated})
	require.NoError(t, err)
	assert.Empty(t, notices)
	assert.NotNil(t, notices)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoticeCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoticeRepository(db)

	mock.ExpectExec("INSERT INTO notices").WillReturnResult(sqlmock.NewResult(1, 1))

	notice := &models.Notice{Content: "Hello", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), notice))
	assert.NotEmpty(t, notice.ID)
	assert.False(t, notice.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReportsMissingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoticeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notices WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventListOrdering(t *testing.T) {
	cases := []struct {
		name      string
		partition models.EventPartition
		order     string
	}{
		{"upcoming", models.EventPartitionUpcoming, "ORDER BY event_date ASC, created_at ASC"},
		{"past", models.EventPartitionPast, "ORDER BY event_date DESC, created_at DESC"},
		{"admin", "", "ORDER BY created_at DESC"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, cleanup := newMock(t)
			defer cleanup()
			repo := NewEventRepository(db)

			rows := sqlmock.NewRows([]string{"id", "title", "event_date", "description", "image_url", "location", "reg_link", "summary_text", "created_at"}).
				AddRow("e1", "Hackathon", "2024-05-01", "24h build", nil, "Main Hall", nil, nil, time.Now())
			mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, event_date::text AS event_date, description, image_url, location, reg_link, summary_text, created_at FROM events " + tc.order)).
				WillReturnRows(rows)

			events, err := repo.List(context.Background(), models.EventFilter{Partition: tc.partition})
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, "2024-05-01", events[0].EventDate)
			require.NotNil(t, events[0].Location)
			assert.Equal(t, "Main Hall", *events[0].Location)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = $1")).
		WithArgs("e404").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "e404")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec("INSERT INTO events").WillReturnResult(sqlmock.NewResult(1, 1))

	event := &models.Event{Title: "Expo", EventDate: "2024-06-01", Description: "Projects"}
	require.NoError(t, repo.Create(context.Background(), event))
	assert.NotEmpty(t, event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberListByRank(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMemberRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "role", "rank", "image_url", "category", "created_at"}).
		AddRow("m1", "Dr. Rao", "Dean", 1, nil, "administration", now).
		AddRow("m2", "Asha", "President", 3, "https://cdn/x.png", "", now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, role, rank, image_url, COALESCE(category, '') AS category, created_at FROM members ORDER BY rank ASC, created_at ASC")).
		WillReturnRows(rows)

	members, err := repo.List(context.Background(), models.MemberFilter{})
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, models.MemberCategoryAdministration, members[0].Category)
	assert.Equal(t, models.MemberCategory(""), members[1].Category)
	assert.Equal(t, 3, members[1].Rank)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberListNewestFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMemberRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM members ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "role", "rank", "image_url", "category", "created_at"}))

	_, err := repo.List(context.Background(), models.MemberFilter{NewestFirst: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberCreateStoresEmptyCategoryAsNull(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMemberRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("NULLIF($6, '')")).
		WithArgs(sqlmock.AnyArg(), "Ravi", "Member", 7, nil, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	member := &models.Member{Name: "Ravi", Role: "Member", Rank: 7}
	require.NoError(t, repo.Create(context.Background(), member))
	assert.NotEmpty(t, member.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaOrphanLifecycle(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMediaOrphanRepository(db)

	mock.ExpectExec("INSERT INTO media_orphans").WillReturnResult(sqlmock.NewResult(1, 1))
	orphan := &models.MediaOrphan{Bucket: "Gallery", Path: "EVENT/1_a.png", Reason: "event delete"}
	require.NoError(t, repo.Create(context.Background(), orphan))
	assert.NotEmpty(t, orphan.ID)

	rows := sqlmock.NewRows([]string{"id", "bucket", "path", "reason", "attempts", "last_error", "created_at", "resolved_at"}).
		AddRow(orphan.ID, "Gallery", "EVENT/1_a.png", "event delete", 0, nil, time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM media_orphans WHERE resolved_at IS NULL ORDER BY created_at ASC LIMIT 50")).WillReturnRows(rows)
	listed, err := repo.ListUnresolved(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Nil(t, listed[0].ResolvedAt)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE media_orphans SET attempts = attempts + 1, last_error = $2 WHERE id = $1")).
		WithArgs(orphan.ID, "timeout").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.RecordFailure(context.Background(), orphan.ID, "timeout"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE media_orphans SET resolved_at = $2")).
		WithArgs(orphan.ID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkResolved(context.Background(), orphan.ID, time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
