package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"trace":   TRACE,
		"DEBUG":   DEBUG,
		"":        INFO,
		" info ":  INFO,
		"warning": WARN,
		"Error":   ERROR,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, "уровень %q", in)
		assert.Equal(t, want, got, "уровень %q", in)
	}

	lvl, err := ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, INFO, lvl)
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newConsoleLogger("export", &buf, WARN)

	l.Info("скрыто %d", 1)
	l.Warn("видно %d", 2)
	l.Error("тоже видно")

	out := buf.String()
	assert.NotContains(t, out, "скрыто")
	assert.Contains(t, out, "[WARN] [export] видно 2")
	assert.Contains(t, out, "[ERROR] [export] тоже видно")
	assert.False(t, l.Enabled(DEBUG))
	assert.True(t, l.Enabled(ERROR))

	l.SetLevels(TRACE, TRACE)
	l.Trace("теперь видно")
	assert.Contains(t, buf.String(), "теперь видно")
}

func TestInitDefaultLogger_WritesFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	SetConsoleOutput(&buf)
	t.Cleanup(func() {
		SetConsoleOutput(os.Stdout)
		require.NoError(t, InitDefaultLogger("", INFO))
	})

	require.NoError(t, InitDefaultLogger(dir, WARN))
	Debug("в файл")
	Info("тоже в файл")
	Error("везде")
	CloseDefaultLogger()

	files, err := filepath.Glob(filepath.Join(dir, "export_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "в файл")
	assert.Contains(t, string(data), "везде")

	assert.NotContains(t, buf.String(), "тоже в файл", "консоль пропускает INFO при уровне WARN")
	assert.Contains(t, buf.String(), "везде")
}

func TestLoggerManager_ReusesLoggers(t *testing.T) {
	lm := &LoggerManager{loggers: make(map[string]*Logger)}

	a, err := lm.GetLogger("storage")
	require.NoError(t, err)
	b, err := lm.GetLogger("storage")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = lm.GetLogger("export")
	require.NoError(t, err)
	assert.Len(t, lm.loggers, 2)

	require.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.loggers)

	c, err := lm.GetLogger("storage")
	require.NoError(t, err)
	assert.NotSame(t, a, c, "после CloseAll логгер создаётся заново")
}
