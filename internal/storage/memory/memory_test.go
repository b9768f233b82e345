package memory

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/analysis"
	"github.com/pagelens/pagelens/internal/id/uuid"
)

func TestBlobStore_RoundTrip(t *testing.T) {
	t.Parallel()

	store := NewBlobStore(uuid.New())
	id, err := store.PutObject(context.Background(), "page.html", "text/html", strings.NewReader("<html></html>"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rc, name, err := store.GetObject(context.Background(), id)
	require.NoError(t, err)
	defer rc.Close()
	require.Equal(t, "page.html", name)

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "<html></html>", string(data))
}

func TestBlobStore_MissingObject(t *testing.T) {
	t.Parallel()

	store := NewBlobStore(uuid.New())
	_, _, err := store.GetObject(context.Background(), "nope")
	require.ErrorIs(t, err, analysis.ErrObjectNotFound)
}

func TestUserStore_CreateAndFind(t *testing.T) {
	t.Parallel()

	store := NewUserStore(uuid.New())
	id, err := store.Create(context.Background(), "owner@example.com")
	require.NoError(t, err)

	found, err := store.FindByEmail(context.Background(), "owner@example.com")
	require.NoError(t, err)
	require.Equal(t, id, found)

	_, err = store.Create(context.Background(), "owner@example.com")
	require.ErrorIs(t, err, analysis.ErrEmailTaken)

	_, err = store.FindByEmail(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, analysis.ErrUserNotFound)
}

func TestWebpageStore_CreateStampsIDs(t *testing.T) {
	t.Parallel()

	store := NewWebpageStore(uuid.New())
	id, err := store.CreateWebpageAndResult(context.Background(),
		analysis.Webpage{UserID: "user-1", Name: "landing"},
		analysis.WebpageAnalysisResult{PageSpeedError: true},
	)
	require.NoError(t, err)

	page, err := store.GetWebpage(context.Background(), id, "user-1")
	require.NoError(t, err)
	require.Equal(t, id, page.ID)

	result, err := store.GetAnalysisResult(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, result.WebpageID)
	require.NotEmpty(t, result.ID)
	require.True(t, result.PageSpeedError)
}

func TestWebpageStore_OwnershipScoping(t *testing.T) {
	t.Parallel()

	store := NewWebpageStore(uuid.New())
	id, err := store.CreateWebpageAndResult(context.Background(),
		analysis.Webpage{UserID: "user-1"}, analysis.WebpageAnalysisResult{})
	require.NoError(t, err)

	_, err = store.GetWebpage(context.Background(), id, "user-2")
	require.ErrorIs(t, err, analysis.ErrWebpageNotFound)
}

func TestWebpageStore_ListNewestFirst(t *testing.T) {
	t.Parallel()

	store := NewWebpageStore(uuid.New())
	older := time.Unix(1700000000, 0).UTC()
	newer := older.Add(time.Hour)

	_, err := store.CreateWebpageAndResult(context.Background(),
		analysis.Webpage{UserID: "user-1", Name: "first", UploadDate: older}, analysis.WebpageAnalysisResult{})
	require.NoError(t, err)
	_, err = store.CreateWebpageAndResult(context.Background(),
		analysis.Webpage{UserID: "user-1", Name: "second", UploadDate: newer}, analysis.WebpageAnalysisResult{})
	require.NoError(t, err)
	_, err = store.CreateWebpageAndResult(context.Background(),
		analysis.Webpage{UserID: "user-2", Name: "foreign", UploadDate: newer}, analysis.WebpageAnalysisResult{})
	require.NoError(t, err)

	summaries, err := store.ListWebpages(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, "second", summaries[0].Name)
	require.Equal(t, "first", summaries[1].Name)
}
