package logutil

import (
    "encoding/json"
    "fmt"
    "log"
    "os"
    "strings"
    "sync/atomic"
    "time"
)

var jsonMode atomic.Bool

func init() {
    if os.Getenv("ZKSEEDS_LOG_JSON") == "1" || os.Getenv("ZKSEEDS_LOG_FORMAT") == "json" {
        jsonMode.Store(true)
    }
}

// OrDefault returns l, or the process default logger when l is nil.
func OrDefault(l *log.Logger) *log.Logger {
    if l == nil { return log.Default() }
    return l
}

func prefix(l *log.Logger, p string) *log.Logger {
    l = OrDefault(l)
    return log.New(l.Writer(), l.Prefix()+p, l.Flags())
}

func SetJSON(enabled bool) { jsonMode.Store(enabled) }

func Infof(l *log.Logger, f string, args ...any)  { logf(l, "info", "", f, args...) }
func Warnf(l *log.Logger, f string, args ...any)  { logf(l, "warn", "", f, args...) }
func Errorf(l *log.Logger, f string, args ...any) { logf(l, "error", "", f, args...) }

func logf(l *log.Logger, level, component, f string, args ...any) {
    msg := fmt.Sprintf(f, args...)
    if jsonMode.Load() {
        evt := map[string]any{
            "ts":    time.Now().UTC().Format(time.RFC3339Nano),
            "level": level,
            "msg":   msg,
        }
        if component != "" { evt["component"] = component }
        b, _ := json.Marshal(evt)
        OrDefault(l).Println(string(b))
        return
    }
    if component != "" { msg = component + ": " + msg }
    switch level {
    case "info":
        prefix(l, "INFO ").Print(msg)
    case "warn":
        prefix(l, "WARN ").Print(msg)
    default:
        prefix(l, "ERROR ").Print(msg)
    }
}

// ZKLogger adapts a *log.Logger to the Printf-style logger expected by the
// ZooKeeper client library, routing its messages through the same level
// formatting as the rest of the process.
type ZKLogger struct {
    l *log.Logger
}

// ZK returns a ZKLogger writing to l (or log.Default when nil).
func ZK(l *log.Logger) ZKLogger { return ZKLogger{l: l} }

// Printf classifies library messages: connection failures are warnings,
// everything else is informational.
func (z ZKLogger) Printf(f string, args ...any) {
    level := "info"
    lower := strings.ToLower(f)
    if strings.Contains(lower, "fail") || strings.Contains(lower, "error") {
        level = "warn"
    }
    logf(z.l, level, "zk", f, args...)
}
