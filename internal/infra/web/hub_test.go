package web_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-assistant/internal/application"
	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra/web"
)

func TestHub_Broadcast(t *testing.T) {
	hub := web.NewHub(discardLogger())

	first, unsubFirst := hub.Subscribe()
	second, unsubSecond := hub.Subscribe()
	defer unsubSecond()
	require.Equal(t, 2, hub.Subscribers())

	usage := application.UsageView{Used: 1, Limit: 3, Remaining: 2}
	hub.SessionChanged(domain.Session{ID: "s1", Status: domain.StatusListening}, usage)

	for _, ch := range []<-chan web.State{first, second} {
		state := <-ch
		assert.Equal(t, "s1", state.Session.ID)
		assert.Equal(t, usage, state.Usage)
	}

	unsubFirst()
	assert.Equal(t, 1, hub.Subscribers())
}

func TestHub_SlowSubscriberKeepsLatest(t *testing.T) {
	hub := web.NewHub(discardLogger())
	updates, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	for i := 0; i < 40; i++ {
		hub.SessionChanged(domain.Session{ID: fmt.Sprintf("s%d", i)}, application.UsageView{})
	}

	var last web.State
	for len(updates) > 0 {
		last = <-updates
	}
	assert.Equal(t, "s39", last.Session.ID)
}
