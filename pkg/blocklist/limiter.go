package blocklist

import "log/slog"

type errorLimiter struct {
	limit int
	count int
}

// log records one malformed record. A zero limit silences per-record logs and
// a negative limit logs every record.
func (l *errorLimiter) log(logger *slog.Logger, err *MalformedRecordError) {
	l.count++
	if l.limit == 0 {
		return
	}
	if l.limit > 0 && l.count > l.limit {
		return
	}
	logger.Warn("skipping malformed record", "source", err.Source, "url", err.URL, "error", err.Reason)
}

func (l *errorLimiter) summary(logger *slog.Logger, source string) {
	if l.limit <= 0 {
		return
	}
	if l.count > l.limit {
		logger.Warn("malformed record logs suppressed", "source", source, "errors", l.count, "logged", l.limit)
	}
}
