package cert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusDraft.Valid())
	assert.True(t, StatusSubmitted.Valid())
	assert.False(t, Status("approved").Valid())
	assert.False(t, Status("").Valid())
}

func TestImageTagValid(t *testing.T) {
	for _, tag := range []ImageTag{TagFront, TagBack, TagSide1, TagSide2} {
		assert.True(t, tag.Valid(), string(tag))
	}
	assert.False(t, ImageTag("top").Valid())
}

func TestNewCertificateNo(t *testing.T) {
	no := NewCertificateNo()
	assert.True(t, strings.HasPrefix(no, "CERT"))
	assert.Len(t, no, 12)
	assert.Equal(t, strings.ToUpper(no), no)

	// unique per call
	assert.NotEqual(t, no, NewCertificateNo())
}
