package remote

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProberAlive(t *testing.T) {
	transport := &fakeTransport{probeFn: func(host string) bool { return host == "dc01" }}
	prober := NewProber(transport, 0, nil)

	assert.True(t, prober.Alive(context.Background(), "dc01"))
	assert.False(t, prober.Alive(context.Background(), "srv-down"))
}

func TestProberNeverOpensSessions(t *testing.T) {
	transport := &fakeTransport{probeFn: func(string) bool { return false }}
	prober := NewProber(transport, 2, nil)

	prober.Alive(context.Background(), "srv-down")

	assert.Equal(t, int32(0), atomic.LoadInt32(&transport.opened),
		"a probe must not acquire session resources")
	assert.Equal(t, int32(1), atomic.LoadInt32(&transport.probes))
}
