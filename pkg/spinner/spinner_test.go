package spinner

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewSpinner(&buf)

	s.Progress("prepare", 0, 2)
	s.Progress("prepare", 1, 2)
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "\033[?25l"), "cursor is hidden on first update")
	assert.Contains(t, out, "\r⣀⣀ prepare  0/2")
	assert.Contains(t, out, "\r⣄⣀ prepare  1/2")

	s.Cleanup()
	assert.True(t, strings.HasSuffix(buf.String(), "\033[?25h"), "cursor is restored")
}

func TestUpdatePadsShorterLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewSpinner(&buf)

	s.Update("a long label")
	buf.Reset()
	s.Update("short")

	line := strings.TrimPrefix(buf.String(), "\r")
	assert.Equal(t, len("⣀⣀ a long label"), len(line))
}

func TestFramesWrap(t *testing.T) {
	t.Parallel()

	s := NewSpinner(&bytes.Buffer{})
	for range len(s.frames) {
		s.Update("x")
	}
	assert.Zero(t, s.index)
}
