package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/iamfaazi/savemyexam-downloader/internal/download"
	"github.com/iamfaazi/savemyexam-downloader/internal/model"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSummary(started time.Time) *download.Summary {
	return &download.Summary{
		RunID:      ksuid.New().String(),
		Root:       "/downloads",
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Subjects: []model.SubjectState{
			{ID: "s1", Title: "Biology", Level: "A Level", ResourceURL: "https://x/bio", TotalCount: 10, DownloadedCount: 9, SavedLocation: "/downloads/Biology", Completed: true},
			{ID: "s2", Title: "Chemistry", TotalCount: 0, DownloadedCount: 0},
		},
		Failures: []model.FailedTask{{
			Leaf:      model.NewNode(model.KindLeafFile, "Osmosis", "loc", model.GroupRevisionNotes),
			DestDir:   "/downloads/Biology/Revision Notes/Cells",
			SubjectID: "s1",
			Err:       errors.New("rate limited"),
			Passes:    3,
		}},
	}
}

func TestStore_SaveAndLoadRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	started := time.UnixMilli(time.Now().UnixMilli())
	sum := testSummary(started)

	require.NoError(t, s.SaveRun(ctx, sum))

	run, err := s.Run(ctx, sum.RunID)
	require.NoError(t, err)
	require.Equal(t, sum.RunID, run.ID)
	require.Equal(t, "/downloads", run.Root)
	require.True(t, run.StartedAt.Equal(started))
	require.Equal(t, 90*time.Second, run.Duration())
	require.Equal(t, 10, run.Total)
	require.Equal(t, 9, run.Downloaded)

	require.Len(t, run.Subjects, 2)
	require.Equal(t, "Biology", run.Subjects[0].Title)
	require.True(t, run.Subjects[0].Completed)
	require.False(t, run.Subjects[1].Completed)

	require.Len(t, run.Failures, 1)
	f := run.Failures[0]
	require.Equal(t, "Osmosis", f.Title)
	require.Equal(t, filepath.Join("/downloads/Biology/Revision Notes/Cells", "Osmosis.pdf"), f.Path)
	require.Equal(t, "rate limited", f.Error)
	require.Equal(t, 3, f.Passes)
}

func TestStore_SaveRunTwiceDoesNotDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sum := testSummary(time.Now())

	require.NoError(t, s.SaveRun(ctx, sum))
	require.NoError(t, s.SaveRun(ctx, sum))

	run, err := s.Run(ctx, sum.RunID)
	require.NoError(t, err)
	require.Len(t, run.Subjects, 2)
	require.Len(t, run.Failures, 1)
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	var ids []string
	for i := 0; i < 3; i++ {
		sum := testSummary(base.Add(time.Duration(i) * time.Minute))
		ids = append(ids, sum.RunID)
		require.NoError(t, s.SaveRun(ctx, sum))
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	require.Equal(t, ids[2], runs[0].ID)
	require.Equal(t, ids[0], runs[2].ID)
	require.Empty(t, runs[0].Subjects)

	runs, err = s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
}

func TestStore_RunNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Run(context.Background(), "missing")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestStore_ReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	sum := testSummary(time.Now())
	require.NoError(t, s.SaveRun(context.Background(), sum))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, sum.RunID, runs[0].ID)
}
