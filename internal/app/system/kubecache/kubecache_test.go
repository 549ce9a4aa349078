package kubecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetOrCreate_Stable(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	first := c.GetOrCreate("u1")
	assert.NotEmpty(t, first)
	assert.Equal(t, first, c.GetOrCreate("u1"))
	assert.NotEqual(t, first, c.GetOrCreate("u2"))
	assert.Equal(t, 2, c.Len())
}

func TestRemoveUser(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	first := c.GetOrCreate("u1")
	c.RemoveUser("u1")
	assert.False(t, c.Has("u1"))
	assert.NotEqual(t, first, c.GetOrCreate("u1"))

	// removing an absent user is a no-op
	c.RemoveUser("nobody")
}

func TestExpiry(t *testing.T) {
	c := New(30 * time.Millisecond)
	defer c.Stop()

	c.GetOrCreate("u1")
	assert.Eventually(t, func() bool { return !c.Has("u1") }, time.Second, 10*time.Millisecond)
}
