package service

import (
	"go.uber.org/zap"

	"github.com/omnistake/xcm-delegator/types"
)

// LogEventSink writes every event to the log.
type LogEventSink struct {
	logger *zap.Logger
}

func NewLogEventSink(logger *zap.Logger) *LogEventSink {
	return &LogEventSink{logger: logger}
}

func (s *LogEventSink) Emit(ev types.Event) {
	s.logger.Info("event", zap.String("name", ev.EventName()), zap.Any("data", ev))
}

// MultiEventSink fans events out to several sinks in order.
type MultiEventSink []EventSink

func (m MultiEventSink) Emit(ev types.Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}
