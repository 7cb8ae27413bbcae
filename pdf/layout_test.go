package pdf

import (
	"strings"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripTags(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"<p>Deposit for <b>wedding</b> shoot</p>", "Deposit for wedding shoot"},
		{"line one<br/>line two", "line one line two"},
		{"Fish &amp; chips", "Fish & chips"},
		{"<div>\n  spread\n  out\n</div>", "spread out"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, stripTags(c.in), "input %q", c.in)
	}
}

func TestWrapLatin(t *testing.T) {
	w := newPageWriter("")

	// GIVEN a long sentence and a narrow column
	lines := w.wrap("Deposit for the wedding shoot on the coast", 30)

	// THEN it breaks on spaces and every line fits
	require.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.LessOrEqual(t, w.textWidth(l), 30.0, "line %q", l)
		assert.False(t, strings.HasPrefix(l, " "))
		assert.False(t, strings.HasSuffix(l, " "))
	}
	assert.Equal(t, "Deposit for the wedding shoot on the coast",
		strings.Join(lines, " "))
}

func TestWrapCJK(t *testing.T) {
	w := newPageWriter("")

	// CJK runs have no spaces; the wrapper must still break them, and
	// must weight each rune as double width.
	text := "結婚式の写真撮影の前金お支払いありがとうございます"
	lines := w.wrap(text, 40)

	require.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.LessOrEqual(t, w.textWidth(l), 40.0, "line %q", l)
	}
	assert.Equal(t, text, strings.Join(lines, ""))
}

func TestWrapMixed(t *testing.T) {
	w := newPageWriter("")

	lines := w.wrap("Deposit 結婚式 final payment", 25)
	for _, l := range lines {
		assert.LessOrEqual(t, w.textWidth(l), 25.0, "line %q", l)
	}
}

func TestWrapEmpty(t *testing.T) {
	w := newPageWriter("")
	assert.Equal(t, []string{""}, w.wrap("", 30))
}

func TestCheckSizePolicy(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	log := logger.WithField("test", t.Name())

	const mb = 1 << 20

	// Under 15MB always passes.
	assert.NoError(t, checkSize(14*mb, Request{}, log))

	// Over 15MB is rejected by default.
	assert.Error(t, checkSize(16*mb, Request{}, log))

	// AllowLargeFiles raises the ceiling to 50MB.
	assert.NoError(t, checkSize(16*mb, Request{AllowLargeFiles: true}, log))
	assert.NoError(t, checkSize(49*mb, Request{AllowLargeFiles: true}, log))

	// Over 50MB is rejected no matter what.
	assert.Error(t, checkSize(51*mb, Request{AllowLargeFiles: true}, log))
	assert.Error(t, checkSize(51*mb, Request{SkipSizeValidation: true}, log))

	// SkipSizeValidation downgrades the 15MB rejection to a warning.
	hook.Reset()
	assert.NoError(t, checkSize(16*mb, Request{SkipSizeValidation: true}, log))
	require.Len(t, hook.Entries, 1)
	assert.Contains(t, hook.LastEntry().Message, "skipped")
}
