//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/model"
)

func TestMailboxCheckpointRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewMailboxCheckpointRepo(testPool)

	t.Run("should report a never-watched mailbox as not found", func(t *testing.T) {
		cleanup(t)
		_, err := repo.Get(ctx, nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("should only advance the checkpoint forward", func(t *testing.T) {
		cleanup(t)
		exp := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Microsecond)
		require.NoError(t, repo.Save(ctx, nil, &model.MailboxCheckpoint{
			Enabled: true, WatchTopic: "projects/p/topics/t", LastHistoryID: "100", WatchExpiration: &exp,
		}))

		ok, err := repo.AdvanceHistoryID(ctx, nil, "150")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.AdvanceHistoryID(ctx, nil, "99")
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := repo.Get(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "150", got.LastHistoryID)
		assert.True(t, got.Enabled)
		require.NotNil(t, got.WatchExpiration)
		assert.True(t, exp.Equal(*got.WatchExpiration))
	})

	t.Run("should compare history ids numerically", func(t *testing.T) {
		cleanup(t)
		require.NoError(t, repo.Save(ctx, nil, &model.MailboxCheckpoint{LastHistoryID: "9"}))
		ok, err := repo.AdvanceHistoryID(ctx, nil, "10")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestCatalogRepos_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	cleanup(t)

	_, err := testPool.Exec(ctx, `
INSERT INTO courses (id, title, price_usd_cents, is_active) VALUES ('c1', 'Writing', 1999, TRUE), ('c2', 'Old', 500, FALSE);
INSERT INTO fx_rates (currency, rate) VALUES ('EUR', 0.9);
INSERT INTO goal_template_steps (id, goal_id, title, material_url, sort_order)
VALUES ('t2', 'g1', 'second', 'https://x.test/2', 2), ('t1', 'g1', 'first', 'https://x.test/1', 1);`)
	require.NoError(t, err)

	courses, err := NewCourseRepo(testPool).FindByIDs(ctx, nil, []string{"c1", "c2", "missing"})
	require.NoError(t, err)
	assert.Len(t, courses, 2)
	assert.False(t, courses["c2"].IsActive)

	fx := NewFXRateRepo(testPool)
	rate, err := fx.Rate(ctx, nil, "EUR")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, rate, 1e-9)
	_, err = fx.Rate(ctx, nil, "JPY")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	tpl := NewTemplateStepRepo(testPool)
	list, err := tpl.ListByGoal(ctx, nil, "g1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Title)
	_, err = tpl.ListByGoal(ctx, nil, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
