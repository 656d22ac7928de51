package application

import "voice-assistant/internal/domain"

// UsageView is the counter state shown next to the session.
type UsageView struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

type SessionObserver interface {
	SessionChanged(session domain.Session, usage UsageView)
}

type NoopObserver struct{}

func (NoopObserver) SessionChanged(_ domain.Session, _ UsageView) {}

type observers []SessionObserver

func (o observers) SessionChanged(session domain.Session, usage UsageView) {
	for _, obs := range o {
		obs.SessionChanged(session, usage)
	}
}
