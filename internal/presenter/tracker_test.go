package presenter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_FollowsSession(t *testing.T) {
	o := newTestOrchestrator(echoSpeaker(), time.Hour)
	defer o.Close()
	tr := NewTracker(o)
	defer tr.Close()

	st := tr.Snapshot()
	assert.Equal(t, StatusIdle, st.Status)
	assert.False(t, st.IsActive)
	assert.Empty(t, st.Transcript)

	sess, err := o.StartSession(t.Context(), "")
	require.NoError(t, err)
	require.NoError(t, o.SendText(t.Context(), sess.ID, "讲讲勾股定理"))

	st = tr.Snapshot()
	assert.Equal(t, StatusSpeaking, st.Status)
	assert.True(t, st.IsActive)
	require.NotNil(t, st.Session)
	assert.Equal(t, sess.ID, st.Session.ID)
	assert.Equal(t, []string{"answer: 讲讲勾股定理"}, st.Transcript)
	assert.Equal(t, []string{"more?"}, st.Suggestions)

	o.StopSession()

	st = tr.Snapshot()
	assert.Equal(t, StatusIdle, st.Status)
	assert.False(t, st.IsActive)
	assert.Nil(t, st.Session)
	assert.Empty(t, st.Suggestions, "stop clears suggestions")
	assert.Len(t, st.Transcript, 1, "transcript survives stop")
}

func TestTracker_ResetAndErrors(t *testing.T) {
	o := newTestOrchestrator(echoSpeaker(), time.Hour)
	defer o.Close()
	tr := NewTracker(o)
	defer tr.Close()

	_, err := o.Ask(t.Context(), "hello")
	require.NoError(t, err)
	o.bus.Publish(ErrorEvent{Message: "oops"})

	st := tr.Snapshot()
	assert.Equal(t, "oops", st.Error)
	assert.NotEmpty(t, st.Transcript)

	tr.Reset()

	st = tr.Snapshot()
	assert.Empty(t, st.Transcript)
	assert.Empty(t, st.Suggestions)
	assert.Empty(t, st.Error)
	assert.Equal(t, StatusSpeaking, st.Status)
}

func TestTracker_CloseStopsUpdates(t *testing.T) {
	o := newTestOrchestrator(echoSpeaker(), time.Hour)
	defer o.Close()
	tr := NewTracker(o)
	tr.Close()

	_, err := o.StartSession(t.Context(), "")
	require.NoError(t, err)

	assert.Equal(t, StatusIdle, tr.Snapshot().Status)
}
