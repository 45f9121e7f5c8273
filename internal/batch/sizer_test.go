package batch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdaptiveSizer_GrowsOnSuccess(t *testing.T) {
	s := NewAdaptiveSizer(50)
	assert.Equal(t, 15, s.Current())

	for i := 0; i < 5; i++ {
		s.Record(true)
	}
	assert.Equal(t, 20, s.Current())
}

func TestAdaptiveSizer_ShrinksOnFailure(t *testing.T) {
	s := NewAdaptiveSizer(50)
	for i := 0; i < 5; i++ {
		s.Record(true)
	}

	// 20 - max(2, 20/4) = 15
	assert.Equal(t, 15, s.Record(false))
	// 15 - max(2, 15/4=3) = 12
	assert.Equal(t, 12, s.Record(false))
	// 12 - 3 = 9, 9 - 2 = 7, 7 - 2 = 5, then floored
	assert.Equal(t, 9, s.Record(false))
	assert.Equal(t, 7, s.Record(false))
	assert.Equal(t, 5, s.Record(false))
	assert.Equal(t, 5, s.Record(false))
}

func TestAdaptiveSizer_RespectsCeiling(t *testing.T) {
	s := NewAdaptiveSizer(17)
	for i := 0; i < 10; i++ {
		s.Record(true)
	}
	assert.Equal(t, 17, s.Current())
	assert.Equal(t, 17, s.Max())
}

func TestAdaptiveSizer_SmallCeiling(t *testing.T) {
	s := NewAdaptiveSizer(3)
	assert.Equal(t, 3, s.Current())

	s.Record(false)
	assert.Equal(t, 3, s.Current())
	assert.LessOrEqual(t, s.Current(), s.Max())
	assert.Greater(t, s.Current(), 0)
}

func TestAdaptiveSizer_ConcurrentUpdatesStayInBounds(t *testing.T) {
	s := NewAdaptiveSizer(40)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s.Record((i+g)%3 != 0)
			}
		}(g)
	}
	wg.Wait()

	assert.GreaterOrEqual(t, s.Current(), MinAdaptiveBatchSize)
	assert.LessOrEqual(t, s.Current(), 40)
}
