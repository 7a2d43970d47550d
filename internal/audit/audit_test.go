package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordAndEvents(t *testing.T) {
	l := New(time.Minute, 0)
	ctx := context.Background()

	l.Record(ctx, "s1", Event{Type: EventLoginStarted, From: "anonymous", To: "authorization_requested"})
	l.Record(ctx, "s1", Event{Type: EventTokenObtained, From: "code_received", To: "authenticated"})
	l.Record(ctx, "s2", Event{Type: EventLoginStarted})

	evs := l.Events("s1")
	require.Len(t, evs, 2)
	require.Equal(t, EventLoginStarted, evs[0].Type)
	require.Equal(t, EventTokenObtained, evs[1].Type)
	require.NotEmpty(t, evs[0].ID)
	require.NotEqual(t, evs[0].ID, evs[1].ID)
	require.False(t, evs[0].At.IsZero())

	require.Len(t, l.Events("s2"), 1)
	require.Empty(t, l.Events("unknown"))
}

func TestEventsIsACopy(t *testing.T) {
	l := New(time.Minute, 0)
	l.Record(context.Background(), "s1", Event{Type: EventLoginStarted})
	evs := l.Events("s1")
	evs[0].Type = EventLoggedOut
	require.Equal(t, EventLoginStarted, l.Events("s1")[0].Type)
}

func TestTrailIsBounded(t *testing.T) {
	l := New(time.Minute, 4)
	for i := 0; i < 10; i++ {
		l.Record(context.Background(), "s1", Event{Type: EventResourceAccessed, Detail: fmt.Sprint(i)})
	}
	evs := l.Events("s1")
	require.Len(t, evs, 4)
	require.Equal(t, "6", evs[0].Detail)
	require.Equal(t, "9", evs[3].Detail)
}
