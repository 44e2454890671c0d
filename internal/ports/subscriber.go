package ports

import "github.com/Anindya-Karmaker/openua-bioreactor/internal/domain"

// LiveSubscriber receives push notifications from the acquisition loop.
// Calls are made from the poll goroutine between cycles, so implementations
// must return promptly; a slow consumer should buffer or drop internally
// rather than stall the cadence.
type LiveSubscriber interface {
	OnReading(r domain.Reading)
	OnStatus(status string)
	OnReactorStarted(ts float64)
}
