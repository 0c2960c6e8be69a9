package sl

import (
	"log/slog"
	"strings"
)

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Secret keeps the provider key prefix (sk-, sk-proj-) and the last four characters
// so keys can be told apart in logs without leaking them
func Secret(some string) slog.Attr {
	r := "***"
	switch {
	case some == "":
		r = "?"
	case len(some) > 12:
		prefix := some[:3]
		if strings.HasPrefix(some, "sk-proj-") {
			prefix = "sk-proj-"
		}
		r = prefix + "***" + some[len(some)-4:]
	}
	return slog.Attr{
		Key:   "api_key",
		Value: slog.StringValue(r),
	}
}

func Module(mod string) slog.Attr {
	return slog.Attr{
		Key:   "mod",
		Value: slog.StringValue(mod),
	}
}

// Kind tags a log record with the machine-readable failure kind
func Kind(kind string) slog.Attr {
	return slog.Attr{
		Key:   "kind",
		Value: slog.StringValue(kind),
	}
}
