package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReview_LoadDefaultIsEmpty(t *testing.T) {
	t.Parallel()

	v := NewReview(NewStore(t.TempDir()))
	rec, err := v.Load("/repo")
	require.NoError(t, err)
	require.Empty(t, rec.Reviewed)
	require.Empty(t, rec.Checkout)
}

func TestReview_ToggleTwiceRestoresMembership(t *testing.T) {
	t.Parallel()

	rec := &ReviewRecord{}

	before := time.Now().UTC()
	rec.Toggle("abc")
	require.True(t, rec.IsReviewed("abc"))
	afterFirst := rec.UpdatedAt
	require.False(t, afterFirst.Before(before))

	rec.Toggle("abc")
	require.False(t, rec.IsReviewed("abc"))
	require.Empty(t, rec.Reviewed)
	require.False(t, rec.UpdatedAt.Before(afterFirst))
}

func TestReview_SaveRoundTrip(t *testing.T) {
	t.Parallel()

	v := NewReview(NewStore(t.TempDir()))
	rec, err := v.Load("/repo")
	require.NoError(t, err)

	rec.Toggle("abc")
	rec.Toggle("def")
	rec.SetCheckout("abc")
	require.NoError(t, v.Save("/repo", rec))

	loaded, err := v.Load("/repo")
	require.NoError(t, err)
	require.True(t, loaded.IsReviewed("abc"))
	require.True(t, loaded.IsReviewed("def"))
	require.False(t, loaded.IsReviewed("zzz"))
	require.Equal(t, "abc", loaded.Checkout)

	// Clearing the checkout means "default branch tip".
	loaded.SetCheckout("")
	require.NoError(t, v.Save("/repo", loaded))
	again, err := v.Load("/repo")
	require.NoError(t, err)
	require.Empty(t, again.Checkout)
}
