package fetcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestNewLimiter(t *testing.T) {
	assert.Equal(t, rate.Inf, newLimiter(0).Limit())
	assert.Equal(t, rate.Every(250*time.Millisecond), newLimiter(250*time.Millisecond).Limit())
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, 15*time.Second, orDefault(0, 15*time.Second))
	assert.Equal(t, time.Second, orDefault(time.Second, 15*time.Second))
}
