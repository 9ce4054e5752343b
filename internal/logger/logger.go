// Package logger はJSON構造化ログの設定を提供する。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options はログ出力の設定。
type Options struct {
	// Level はdebug、info、warn、errorのいずれか。不明な値はinfoとして扱う。
	Level string
	// File が空でない場合、標準出力に加えてローテーションするファイルにも出力する。
	File string
	// RetentionDays はローテーション済みファイルの保持日数。
	RetentionDays int
}

// ParseLevel はログレベル文字列をslog.Levelに変換する。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// writerが指定された場合はそのwriterに出力する。
func Setup(w io.Writer) *slog.Logger {
	return SetupWithLevel(w, slog.LevelInfo)
}

// SetupWithLevel は指定レベル以上を出力するJSON構造化ログのslog.Loggerを生成する。
func SetupWithLevel(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// writerが指定された場合はそのwriterに出力する。
// 本番ではos.Stdoutを渡すことを想定している。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	logger := Setup(w)
	slog.SetDefault(logger)
}

// NewWriter はログの出力先を生成する。
// opts.Fileが指定された場合はstdoutとlumberjackによるローテーションファイルの両方に書き込む。
// 返り値のio.Closerはファイルを閉じるために使用する（ファイル出力なしの場合はnil）。
func NewWriter(stdout io.Writer, opts Options) (io.Writer, io.Closer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if opts.File == "" {
		return stdout, nil
	}

	retention := opts.RetentionDays
	if retention <= 0 {
		retention = 14
	}
	file := &lumberjack.Logger{
		Filename:  opts.File,
		MaxSize:   100, // MB
		MaxAge:    retention,
		LocalTime: false,
		Compress:  true,
	}
	return io.MultiWriter(stdout, file), file
}

// Init はoptsに従ってロガーを構成し、グローバルロガーとして設定する。
// 終了時には返り値のio.Closer（nilの場合あり）を閉じること。
func Init(stdout io.Writer, opts Options) (*slog.Logger, io.Closer) {
	w, closer := NewWriter(stdout, opts)
	logger := SetupWithLevel(w, ParseLevel(opts.Level))
	slog.SetDefault(logger)
	return logger, closer
}
