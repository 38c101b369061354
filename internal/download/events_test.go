package download

import (
	"testing"
	"time"

	"github.com/iamfaazi/savemyexam-downloader/internal/model"
	"github.com/stretchr/testify/require"
)

func TestProgressLevel_String(t *testing.T) {
	tests := []struct {
		level ProgressLevel
		want  string
	}{
		{LevelInfo, "info"},
		{LevelVerbose, "verbose"},
		{LevelWarning, "warning"},
		{LevelError, "danger"},
		{LevelSuccess, "success"},
		{LevelProgress, "progress"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestObserverFuncs_NilFieldsAreSkipped(t *testing.T) {
	var obs Observer = ObserverFuncs{}
	require.NotPanics(t, func() {
		obs.OnLog(LogEvent{Message: "hi"})
		obs.OnCounts(CountEvent{TotalDelta: 1})
		obs.OnSubjectCompleted(model.SubjectState{})
	})
}

func TestMultiObserver_FansOut(t *testing.T) {
	var a, b []string
	obs := MultiObserver{
		ObserverFuncs{Log: func(ev LogEvent) { a = append(a, ev.Message) }},
		ObserverFuncs{Log: func(ev LogEvent) { b = append(b, ev.Message) }},
	}

	obs.OnLog(LogEvent{Message: "one"})
	obs.OnLog(LogEvent{Message: "two"})

	require.Equal(t, []string{"one", "two"}, a)
	require.Equal(t, a, b)
}

func TestChannelObserver_DeliversInOrder(t *testing.T) {
	obs := NewChannelObserver(4)
	obs.OnLog(LogEvent{LineID: "l1", Message: "start"})
	obs.OnCounts(CountEvent{SubjectID: "s", TotalDelta: 3})
	obs.OnSubjectCompleted(model.SubjectState{ID: "s", Completed: true})
	obs.Close()

	var got []Event
	for ev := range obs.Events() {
		got = append(got, ev)
	}
	require.Len(t, got, 3)
	require.Equal(t, "start", got[0].Log.Message)
	require.Equal(t, 3, got[1].Counts.TotalDelta)
	require.True(t, got[2].Completed.Completed)
}

func TestChannelObserver_CloseReleasesBlockedSender(t *testing.T) {
	obs := NewChannelObserver(0)

	sent := make(chan struct{})
	go func() {
		obs.OnLog(LogEvent{Message: "nobody is listening"})
		close(sent)
	}()

	// Let the sender block on the unbuffered channel.
	time.Sleep(20 * time.Millisecond)
	obs.Close()

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("sender still blocked after Close")
	}

	require.NotPanics(t, func() { obs.OnLog(LogEvent{Message: "late"}) })
}
