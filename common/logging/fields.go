package logging

import "log/slog"

// Field names shared by every log line the gateway emits.
const (
	FieldService      = "service"
	FieldRequestID    = "request_id"
	FieldSubject      = "subject"
	FieldRole         = "role"
	FieldStrategy     = "strategy"
	FieldIP           = "ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatus       = "status"
	FieldDuration     = "duration_ms"
	FieldError        = "error"
	FieldUpstreamHost = "upstream_host"
	FieldAction       = "action"
	FieldSink         = "sink"
)

func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

func RequestID(id string) slog.Attr {
	return slog.String(FieldRequestID, id)
}

func Subject(subject string) slog.Attr {
	return slog.String(FieldSubject, subject)
}

func Role(role string) slog.Attr {
	return slog.String(FieldRole, role)
}

// Strategy names the authentication strategy that produced a decision.
func Strategy(name string) slog.Attr {
	return slog.String(FieldStrategy, name)
}

func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns an error attribute; a nil error logs as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

func UpstreamHost(host string) slog.Attr {
	return slog.String(FieldUpstreamHost, host)
}

func Action(action string) slog.Attr {
	return slog.String(FieldAction, action)
}

// Sink names an audit sink (durable, fallback, forwarder).
func Sink(name string) slog.Attr {
	return slog.String(FieldSink, name)
}
