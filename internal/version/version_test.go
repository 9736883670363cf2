package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	origTag, origCommit := Tag, Commit
	defer func() { Tag, Commit = origTag, origCommit }()

	Tag, Commit = "", ""
	assert.Equal(t, "dev", String())

	Tag, Commit = "v1.2.0", "0123456789abcdef"
	assert.Equal(t, "v1.2.0+0123456", String())
}
