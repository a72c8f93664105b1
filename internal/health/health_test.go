package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestCheckBasic(t *testing.T) {
	h := NewHealthChecker(fakePinger{}, nil)
	s := h.CheckBasic()
	assert.Equal(t, "healthy", s.Status)
	assert.Equal(t, "disabled", s.Redis.Status)

	h = NewHealthChecker(fakePinger{err: errors.New("down")}, func() bool { return true })
	s = h.CheckBasic()
	assert.Equal(t, "unhealthy", s.Status)
	assert.Equal(t, "unhealthy", s.Database.Status)
	assert.Equal(t, "healthy", s.Redis.Status)
}

func TestRedisDownDoesNotFailHealth(t *testing.T) {
	h := NewHealthChecker(fakePinger{}, func() bool { return false })
	s := h.CheckBasic()
	assert.Equal(t, "healthy", s.Status)
	assert.Equal(t, "degraded", s.Redis.Status)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512.0 MB", formatBytes(512*1024*1024))
	assert.Equal(t, "2.0 GB", formatBytes(2*1024*1024*1024))
}
