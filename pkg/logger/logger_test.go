package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	var testcases = map[string]struct {
		format  string
		level   string
		wantErr bool
	}{
		`json_info`:     {format: "json", level: "info"},
		`text_debug`:    {format: "text", level: "debug"},
		`level_none`:    {format: "json", level: "none"},
		`unknown_level`: {format: "json", level: "verbose", wantErr: true},
	}

	for name, tc := range testcases {
		t.Run(name, func(t *testing.T) {
			l, err := NewLogger(tc.format, tc.level)
			if tc.wantErr {
				require.Error(t, err)
				require.Nil(t, l)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, l)
		})
	}
}

func TestMustNewLoggerPanicsOnBadLevel(t *testing.T) {
	require.Panics(t, func() {
		MustNewLogger("json", "verbose")
	})
}

func TestObserverLoggerCapturesFields(t *testing.T) {
	l, logs := NewObserverLogger("debug")

	l.Info("published", zap.String("action", "increment"))

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "published", entries[0].Message)
	require.Equal(t, "increment", entries[0].ContextMap()["action"])
}
