package gorm_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"

	adapter "github.com/GoUserAdmin/GoUserAdmin/internal/logger/adapter/gorm"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer

	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()

	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	return &buf
}

func sqlFunc() (string, int64) {
	return "SELECT * FROM users", 3
}

func TestTrace(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		debug   bool
		level   gormlogger.LogLevel
		begin   time.Time
		err     error
		want    string
		wantLog bool
	}{
		{name: "fast query not logged", begin: time.Now(), level: gormlogger.Warn},
		{name: "fast query logged in debug", debug: true, begin: time.Now(), level: gormlogger.Warn, want: `"level":"debug"`, wantLog: true},
		{name: "slow query warns", begin: time.Now().Add(-time.Second), level: gormlogger.Warn, want: `"slow":true`, wantLog: true},
		{name: "error logged", begin: time.Now(), level: gormlogger.Warn, err: errors.New("boom"), want: `"error":"boom"`, wantLog: true},
		{name: "record not found ignored", begin: time.Now(), level: gormlogger.Warn, err: gormlogger.ErrRecordNotFound},
		{name: "silent", debug: true, begin: time.Now().Add(-time.Second), level: gormlogger.Silent, err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)

			l := adapter.New(tt.debug).LogMode(tt.level)
			l.Trace(ctx, tt.begin, sqlFunc, tt.err)

			if !tt.wantLog {
				assert.Empty(t, buf.String())

				return
			}

			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "SELECT * FROM users")
		})
	}
}

func TestMessages(t *testing.T) {
	buf := captureLog(t)
	ctx := context.Background()

	l := adapter.New(false).LogMode(gormlogger.Error)
	l.Info(ctx, "info %d", 1)
	l.Warn(ctx, "warn %d", 2)
	assert.Empty(t, buf.String())

	l.Error(ctx, "error %d", 3)
	assert.Contains(t, buf.String(), "error 3")
}
