package ldevents

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

// eventsOutbox is the data structure that holds not-yet-flushed analytics events and summary data.
// It is accessed only from the event dispatcher goroutine, so it does not need to be thread-safe.
type eventsOutbox struct {
	events           []anyEventOutput
	summarizer       eventSummarizer
	capacity         int
	capacityExceeded bool
	droppedEvents    int
	loggers          ldlog.Loggers
}

func newEventsOutbox(capacity int, loggers ldlog.Loggers) *eventsOutbox {
	return &eventsOutbox{
		events:     make([]anyEventOutput, 0, capacity),
		summarizer: newEventSummarizer(),
		capacity:   capacity,
		loggers:    loggers,
	}
}

func (b *eventsOutbox) addEvent(event anyEventOutput) {
	if len(b.events) >= b.capacity {
		if !b.capacityExceeded {
			b.capacityExceeded = true
			b.loggers.Warn("Exceeded event queue capacity. Increase capacity to avoid dropping events.")
		}
		b.droppedEvents++
		return
	}
	b.capacityExceeded = false
	b.events = append(b.events, event)
}

func (b *eventsOutbox) addToSummary(event EvaluationData) {
	b.summarizer.summarizeEvent(event)
}

func (b *eventsOutbox) getPayload() flushPayload {
	return flushPayload{
		events:  b.events,
		summary: b.summarizer.snapshot(),
	}
}

func (b *eventsOutbox) clear() {
	b.events = make([]anyEventOutput, 0, b.capacity)
	b.summarizer.reset()
}
