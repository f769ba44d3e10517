package ember

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strconv"
	"sync"
	"text/template"
	"time"
)

// Logger is the structured-log interface the core calls into. It is
// deliberately small: the core treats logging as an external collaborator
// (the CLI, config loader, and the concrete logger implementation all live
// outside the serving core) and only needs somewhere to report what
// happened. fields are variadic key/value pairs, e.g.
// Logger.Errorf("render failed", "route", "/blog/[slug]", "error", err).
type Logger interface {
	Debugf(msg string, fields ...interface{})
	Infof(msg string, fields ...interface{})
	Warnf(msg string, fields ...interface{})
	Errorf(msg string, fields ...interface{})
}

// nopLogger discards everything. Used when no Logger is configured.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// NopLogger is the Logger used when New or NewServer is given a nil Logger.
var NopLogger Logger = nopLogger{}

// loggerLevel is the level of a StdLogger record.
type loggerLevel uint8

const (
	lvlDebug loggerLevel = iota
	lvlInfo
	lvlWarn
	lvlError
)

func (l loggerLevel) String() string {
	switch l {
	case lvlDebug:
		return "DEBUG"
	case lvlInfo:
		return "INFO"
	case lvlWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// StdLogger is the default Logger implementation, used by adapters that do
// not bring their own. It formats each record through a text/template line
// format, pools its scratch buffers, and serializes concurrent writers
// with a mutex.
type StdLogger struct {
	Output io.Writer
	Format string
	Level  loggerLevel

	once       sync.Once
	template   *template.Template
	bufferPool *sync.Pool
	mutex      sync.Mutex
}

// defaultLoggerFormat is a text/template producing the head of a JSON
// object; log() splices the message and fields in before the closing
// brace.
const defaultLoggerFormat = `{"time":"{{.time_rfc3339}}","level":"{{.level}}",` +
	`"file":"{{.short_file}}","line":"{{.line}}"`

// NewStdLogger returns a *StdLogger writing to w at the given minimum level.
func NewStdLogger(w io.Writer, level string) *StdLogger {
	if w == nil {
		w = os.Stdout
	}

	l := &StdLogger{
		Output: w,
		Format: defaultLoggerFormat,
		Level:  parseLevel(level),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 256))
			},
		},
	}

	return l
}

func parseLevel(s string) loggerLevel {
	switch s {
	case "debug":
		return lvlDebug
	case "warn":
		return lvlWarn
	case "error":
		return lvlError
	default:
		return lvlInfo
	}
}

func (l *StdLogger) Debugf(msg string, fields ...interface{}) { l.log(lvlDebug, msg, fields...) }
func (l *StdLogger) Infof(msg string, fields ...interface{})  { l.log(lvlInfo, msg, fields...) }
func (l *StdLogger) Warnf(msg string, fields ...interface{})  { l.log(lvlWarn, msg, fields...) }
func (l *StdLogger) Errorf(msg string, fields ...interface{}) { l.log(lvlError, msg, fields...) }

func (l *StdLogger) log(lvl loggerLevel, msg string, fields ...interface{}) {
	if lvl < l.Level {
		return
	}

	l.once.Do(func() {
		l.template = template.Must(template.New("logger").Parse(l.Format))
	})

	l.mutex.Lock()
	defer l.mutex.Unlock()

	buf := l.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		l.bufferPool.Put(buf)
	}()

	_, file, line, _ := runtime.Caller(2)
	data := map[string]string{
		"time_rfc3339": time.Now().Format(time.RFC3339),
		"level":        lvl.String(),
		"short_file":   path.Base(file),
		"line":         strconv.Itoa(line),
	}

	if err := l.template.Execute(buf, data); err != nil {
		return
	}

	buf.WriteString(`,"message":`)
	messageJSON, _ := json.Marshal(msg)
	buf.Write(messageJSON)

	if len(fields) > 0 {
		buf.WriteString(`,"fields":`)
		fieldsJSON, err := json.Marshal(fieldsToMap(fields))
		if err != nil {
			fieldsJSON = []byte(fmt.Sprintf("%q", fmt.Sprint(fields...)))
		}
		buf.Write(fieldsJSON)
	}

	buf.WriteString("}\n")

	l.Output.Write(buf.Bytes())
}

// fieldsToMap turns a flat key/value variadic list into a map, tolerating an
// odd trailing element by stringifying it under "extra".
func fieldsToMap(fields []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(fields)/2+1)
	i := 0
	for ; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprint(fields[i])
		}
		m[key] = fields[i+1]
	}
	if i < len(fields) {
		m["extra"] = fields[i]
	}
	return m
}
