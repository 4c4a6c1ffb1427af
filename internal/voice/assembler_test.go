package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raikerian/go-discord-usrp/internal/bridge"
)

func frame(v int16) []int16 {
	return []int16{v, v}
}

func TestTickAssemblerOneFramePerTick(t *testing.T) {
	a := NewTickAssembler(3)

	a.Push(1, frame(10))
	a.Push(1, frame(11))
	a.Push(2, frame(20))

	assert.Equal(t, bridge.Tick{1: frame(10), 2: frame(20)}, a.Next())
	assert.Equal(t, bridge.Tick{1: frame(11)}, a.Next())
	assert.Empty(t, a.Next())
}

func TestTickAssemblerUndecodableFrame(t *testing.T) {
	a := NewTickAssembler(3)
	a.Push(7, nil)

	tick := a.Next()
	f, ok := tick[7]
	require.True(t, ok, "speaking SSRC appears in the tick")
	assert.Nil(t, f)
	assert.Empty(t, a.Next())
}

func TestTickAssemblerDropsOldest(t *testing.T) {
	a := NewTickAssembler(2)

	assert.False(t, a.Push(1, frame(1)))
	assert.False(t, a.Push(1, frame(2)))
	assert.True(t, a.Push(1, frame(3)))

	assert.Equal(t, frame(2), a.Next()[1])
	assert.Equal(t, frame(3), a.Next()[1])
}

func TestTickAssemblerForget(t *testing.T) {
	a := NewTickAssembler(0)
	a.Push(1, frame(1))
	a.Push(2, frame(2))
	a.Forget(1)

	assert.Equal(t, bridge.Tick{2: frame(2)}, a.Next())
}
