package events

import (
	"log/slog"
)

// LogObserver logs every event at debug level.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a LogObserver. A nil logger uses slog.Default().
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnEvent(event Event) error {
	o.logger.Debug("event", "type", event.Type, "data", event.Data, "at", event.At)
	return nil
}

func (o *LogObserver) GetName() string { return "log" }

func (o *LogObserver) ShouldHandle(string) bool { return true }

// FuncObserver runs a function for a fixed set of event types. No types
// means every type.
type FuncObserver struct {
	name  string
	types map[string]bool
	fn    func(Event) error
}

// NewFuncObserver creates a FuncObserver.
func NewFuncObserver(name string, fn func(Event) error, types ...string) *FuncObserver {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return &FuncObserver{name: name, types: set, fn: fn}
}

func (o *FuncObserver) OnEvent(event Event) error { return o.fn(event) }

func (o *FuncObserver) GetName() string { return o.name }

func (o *FuncObserver) ShouldHandle(eventType string) bool {
	return len(o.types) == 0 || o.types[eventType]
}
