package shared

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugIdempotent(t *testing.T) {
	inputs := []string{"Align Step!", "a__b--c", "already-slug_1"}
	for _, in := range inputs {
		once := Slug(in)
		twice := Slug(once)
		assert.Equal(t, once, twice, "slug should be idempotent for %q", in)
	}
}

func TestSlugCollapsesDisallowedChars(t *testing.T) {
	assert.Equal(t, "align-step", Slug("Align Step"))
	assert.Equal(t, "a-b-c", Slug("A.B,C"))
}

func TestJobNameExactly64CharsUnchanged(t *testing.T) {
	// gf-0- + step(55 chars) + - + output(3 chars) = 64 total
	step := strings.Repeat("s", 55)
	name := JobName(0, step, "out")
	assert.Len(t, name, 64)
	assert.False(t, strings.HasSuffix(name, ".."))
}

func TestJobName65CharsTruncatesWithEllipsis(t *testing.T) {
	step := strings.Repeat("s", 56)
	name := JobName(0, step, "out")
	assert.Len(t, name, 64)
	assert.True(t, strings.HasSuffix(name, ".."))
}

func TestOutputSlugFallback(t *testing.T) {
	assert.Equal(t, "sample1", OutputSlug("align", 0, "sample1.fq"))
	assert.Equal(t, "align-2", OutputSlug("align", 2, "...---"))
}
