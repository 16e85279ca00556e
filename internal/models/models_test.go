package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketNameDeterministic(t *testing.T) {
	assert.Equal(t, "fac001-bucket", BucketName("FAC001"))
	assert.Equal(t, BucketName("fac001"), BucketName("fac001"))
}

func TestParseVerb(t *testing.T) {
	for _, s := range []string{"put", "get", "ls", "rm"} {
		v, ok := ParseVerb(s)
		assert.True(t, ok)
		assert.Equal(t, Verb(s), v)
	}

	_, ok := ParseVerb("delete")
	assert.False(t, ok)
	_, ok = ParseVerb("")
	assert.False(t, ok)
}
