package events

// EventCollector accumulates events raised by several aggregates inside one
// unit of work so they can be written to the outbox together.
type EventCollector struct {
	events []DomainEvent
}

// Record appends events to the collector.
func (c *EventCollector) Record(events ...DomainEvent) {
	c.events = append(c.events, events...)
}

// Events returns the collected domain events without clearing them.
func (c *EventCollector) Events() []DomainEvent {
	return c.events
}

// Len reports how many events have been collected.
func (c *EventCollector) Len() int {
	return len(c.events)
}

// ClearEvents returns the collected domain events and clears the internal slice.
func (c *EventCollector) ClearEvents() []DomainEvent {
	collected := c.events
	c.events = nil
	return collected
}

// OutboxEntries converts the collected events into outbox rows.
func (c *EventCollector) OutboxEntries() ([]OutboxEntry, error) {
	entries := make([]OutboxEntry, 0, len(c.events))
	for _, evt := range c.events {
		entry, err := NewOutboxEntry(evt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
