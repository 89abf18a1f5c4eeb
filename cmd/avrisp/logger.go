package main

import "go.uber.org/zap"

// zapLogger adapts a zap SugaredLogger to the Logger interfaces of the
// isp and client packages.
type zapLogger struct {
	s *zap.SugaredLogger
}

func newZapLogger(l *zap.Logger) zapLogger {
	return zapLogger{s: l.Sugar()}
}

func (l zapLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l zapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l zapLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}
