package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/pagenotes/internal/common"
	"github.com/dmitrijs2005/pagenotes/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeration_ReportHidesNote(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	seedNoteWithRaters(e, "a", "b", "c")

	for _, id := range []string{"a", "b", "c"} {
		e.expectTx()
		rp, err := e.moderation.Report(ctx, id, "n1", models.ReasonSpam)
		require.NoError(t, err)
		assert.NotEmpty(t, rp.ID)
		assert.Equal(t, models.ReasonSpam, rp.Reason)
	}

	n, _ := e.store.note("n1")
	assert.Equal(t, 3, n.ReportsCount)

	views, err := e.notes.ListForPage(ctx, "", n.PageKey)
	require.NoError(t, err)
	assert.Empty(t, views)

	list, err := e.moderation.ListReports(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].UserID)
	e.verify(t)
}

func TestModeration_ReportRejections(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	seedNoteWithRaters(e, "a")

	e.expectTx()
	_, err := e.moderation.Report(ctx, "a", "n1", models.ReasonMisleading)
	require.NoError(t, err)

	e.expectRollback()
	_, err = e.moderation.Report(ctx, "a", "n1", models.ReasonOther)
	assert.ErrorIs(t, err, common.ErrorDuplicate)

	e.expectRollback()
	_, err = e.moderation.Report(ctx, "a", "missing", models.ReasonSpam)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = e.moderation.Report(ctx, "a", "n1", models.ReportReason(9))
	assert.ErrorIs(t, err, common.ErrorValidation)

	n, _ := e.store.note("n1")
	assert.Equal(t, 1, n.ReportsCount)
	e.verify(t)
}

func TestModeration_DismissLeavesScores(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	seedNoteWithRaters(e, "r1", "r2", "r3")
	for _, id := range []string{"r1", "r2", "r3"} {
		e.rate(t, id, "n1", models.HelpfulnessYes)
	}
	e.store.notes["n1"].ReportsCount = 5
	usersBefore, _ := e.store.snapshot()

	require.NoError(t, e.moderation.Dismiss(ctx, "n1"))

	n, _ := e.store.note("n1")
	assert.Equal(t, 0, n.ReportsCount)
	assert.Equal(t, models.StatusHelpful, n.Status)
	usersAfter, _ := e.store.snapshot()
	assert.Equal(t, usersBefore, usersAfter)

	assert.ErrorIs(t, e.moderation.Dismiss(ctx, "missing"), common.ErrorNotFound)
	e.verify(t)
}

func TestModeration_RemoveIgnoresAuthorship(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	seedNoteWithRaters(e, "r1")
	e.rate(t, "r1", "n1", models.HelpfulnessYes)

	e.expectTx()
	require.NoError(t, e.moderation.Remove(ctx, "n1"))
	_, ok := e.store.note("n1")
	assert.False(t, ok)
	assert.Equal(t, 0.0, e.store.user("author").Karma)

	e.expectRollback()
	assert.ErrorIs(t, e.moderation.Remove(ctx, "n1"), common.ErrorNotFound)
	e.verify(t)
}
