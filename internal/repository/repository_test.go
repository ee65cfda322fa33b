package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maheshrc27/liveflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var resetOn = time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)

func TestQuotaTryConsumeAllowed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO quotas").
		WithArgs(int64(7), 12, resetOn).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("UPDATE quotas SET monthly_used").
		WithArgs(int64(7), 1).
		WillReturnRows(sqlmock.NewRows([]string{"monthly_used"}).AddRow(3))
	mock.ExpectQuery("UPDATE quota_global").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"used"}).AddRow(41))
	mock.ExpectExec("UPDATE quotas SET global_monthly_used").
		WithArgs(int64(7), 41).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	allowed, deniedBy, err := NewQuotaRepository(db).TryConsume(context.Background(), 7, 1, 12, resetOn)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Empty(t, deniedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaTryConsumeOwnerDenied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO quotas").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("UPDATE quotas SET monthly_used").
		WillReturnRows(sqlmock.NewRows([]string{"monthly_used"}))
	mock.ExpectRollback()

	allowed, deniedBy, err := NewQuotaRepository(db).TryConsume(context.Background(), 7, 1, 12, resetOn)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, models.QuotaDeniedByOwner, deniedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaTryConsumeGlobalDeniedRollsBackOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO quotas").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("UPDATE quotas SET monthly_used").
		WillReturnRows(sqlmock.NewRows([]string{"monthly_used"}).AddRow(4))
	mock.ExpectQuery("UPDATE quota_global").
		WillReturnRows(sqlmock.NewRows([]string{"used"}))
	mock.ExpectRollback()

	allowed, deniedBy, err := NewQuotaRepository(db).TryConsume(context.Background(), 7, 1, 12, resetOn)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, models.QuotaDeniedByGlobal, deniedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaResetExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	today := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	next := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE quotas").WithArgs(today, next).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("UPDATE quota_global").WithArgs(today, next).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := NewQuotaRepository(db).ResetExpired(context.Background(), today, next)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDraftTransitionOnlyFromPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Now()
	repo := NewDraftRepository(db)

	mock.ExpectExec("UPDATE drafts").
		WithArgs(int64(5), int64(1), models.DraftStatusPosted, at, "user").
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.Transition(context.Background(), 1, 5, models.DraftStatusPosted, "user", at)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec("UPDATE drafts").
		WithArgs(int64(5), int64(1), models.DraftStatusSkipped, at, "timer").
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.Transition(context.Background(), 1, 5, models.DraftStatusSkipped, "timer", at)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func draftRow(id, streamID int64, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "stream_id", "owner_id", "title", "target_url", "image_url", "status",
		"timeout_action", "grace_deadline", "created_at", "resolved_at", "resolved_by"}).
		AddRow(id, streamID, int64(1), "Live", "https://www.twitch.tv/caster", nil, status,
			models.ActionPostWithTemplate, now.Add(90*time.Second), now, nil, nil)
}

func TestDraftCreateReturnsExistingOnConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO drafts").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("FROM drafts WHERE stream_id").
		WithArgs(int64(9)).
		WillReturnRows(draftRow(3, 9, models.DraftStatusPending))

	draft, created, err := NewDraftRepository(db).Create(context.Background(), &models.Draft{
		StreamID:      9,
		OwnerID:       1,
		Title:         "Live",
		TargetURL:     "https://www.twitch.tv/caster",
		TimeoutAction: models.ActionPostWithTemplate,
		GraceDeadline: time.Now().Add(90 * time.Second),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(3), draft.ID)
	assert.Nil(t, draft.ImageURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryInsertIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDeliveryRepository(db)
	d := &models.Delivery{
		OwnerID:        1,
		Channel:        models.ChannelPrimarySocial,
		Status:         models.DeliveryStatusSent,
		IdempotencyKey: "key-1",
		BodyText:       "live now",
	}

	created := time.Now()
	mock.ExpectQuery("INSERT INTO deliveries").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), created))
	isNew, err := repo.Insert(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, int64(11), d.ID)

	mock.ExpectQuery("INSERT INTO deliveries").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))
	isNew, err = repo.Insert(context.Background(), &models.Delivery{IdempotencyKey: "key-1"})
	require.NoError(t, err)
	assert.False(t, isNew)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDeliveryMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM deliveries WHERE id").
		WithArgs(int64(4), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	d, err := NewDeliveryRepository(db).GetByID(context.Background(), 1, 4)
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.NoError(t, mock.ExpectationsWereMet())
}
