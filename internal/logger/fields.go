package logger

// Field constructors for hsmwatch's logging vocabulary. Using these
// instead of ad-hoc key strings keeps field names consistent across the
// checker, sweep, and status packages.

import "log/slog"

// File identifies a tracked file.
func File(id string) slog.Attr {
	return slog.String("file_id", id)
}

// Namespace is the status schema namespace.
func Namespace(ns string) slog.Attr {
	return slog.String("namespace", ns)
}

// Path is a filesystem path.
func Path(p string) slog.Attr {
	return slog.String("path", p)
}

// Backend is a storage backend class.
func Backend(class string) slog.Attr {
	return slog.String("backend", class)
}

// Size is a file size in bytes.
func Size(s uint64) slog.Attr {
	return slog.Uint64("size", s)
}

// Blocks is an allocated block count.
func Blocks(b uint64) slog.Attr {
	return slog.Uint64("blocks", b)
}

// Online is a classification result.
func Online(online bool) slog.Attr {
	return slog.Bool("online", online)
}

// LockKey is an advisory lock cache key.
func LockKey(key string) slog.Attr {
	return slog.String("lock_key", key)
}

// Owner is an advisory lock owner ID.
func Owner(id string) slog.Attr {
	return slog.String("owner", id)
}

// Candidates is a sweep population size.
func Candidates(n int) slog.Attr {
	return slog.Int("candidates", n)
}

// Flipped is the number of records a sweep moved offline.
func Flipped(n int) slog.Attr {
	return slog.Int("flipped", n)
}

// Skipped is the number of candidates a sweep passed over.
func Skipped(n int) slog.Attr {
	return slog.Int("skipped", n)
}

// DurationMs is an operation duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64("duration_ms", ms)
}

// Err is an error field.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}
