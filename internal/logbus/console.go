package logbus

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// ConsoleOptions controls how RunConsole renders bus messages.
type ConsoleOptions struct {
	MinLevel string // debug, info, warn, error; empty means info
	NoColor  bool
}

// RunConsole 把 ch 中的日志写到 w，直到通道关闭（bus.Close）。
// 调用方先 Subscribe 再启动，这样启动日志不会丢；state/run 消息不输出。
func RunConsole(ch <-chan Message, w io.Writer, opts ConsoleOptions) {
	min, err := zerolog.ParseLevel(opts.MinLevel)
	if err != nil || opts.MinLevel == "" {
		min = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    opts.NoColor,
		TimeFormat: time.DateTime,
	}).Level(min)

	for msg := range ch {
		writeMessage(logger, msg)
	}
}

func writeMessage(logger zerolog.Logger, msg Message) {
	data, ok := msg.Data.(LogData)
	if !ok {
		return
	}
	lvl, err := zerolog.ParseLevel(data.Level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	ev := logger.WithLevel(lvl).Time(zerolog.TimestampFieldName, time.UnixMilli(msg.Time))
	if ev == nil {
		return
	}
	if len(data.Fields) > 0 {
		ev = ev.Fields(data.Fields)
	}
	ev.Msg(data.Msg)
}
