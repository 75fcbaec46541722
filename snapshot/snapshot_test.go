package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TFMV/versegraph/models"
)

func snap(iter int, final bool) Snapshot {
	return Snapshot{
		RunID:     "run",
		Iteration: iter,
		Final:     final,
		Positions: map[string]models.Position{"a": {X: float64(iter)}},
	}
}

func TestOffer_PublishesEveryKthTickAndFinal(t *testing.T) {
	p := NewPublisher(3)
	var got []int
	p.Subscribe(func(s Snapshot) { got = append(got, s.Iteration) })

	for i := 1; i <= 10; i++ {
		p.Offer(snap(i, i == 10))
	}

	assert.Equal(t, []int{3, 6, 9, 10}, got)
	assert.Equal(t, 4, p.Published())
	assert.Equal(t, 10, p.Latest().Iteration)
}

func TestPublish_ForcesDelivery(t *testing.T) {
	p := NewPublisher(0)
	assert.Equal(t, DefaultEvery, p.Every())

	var got []int
	p.Subscribe(func(s Snapshot) { got = append(got, s.Iteration) })
	p.Publish(snap(1, false))

	assert.Equal(t, []int{1}, got)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	p := NewPublisher(1)
	var a, b int
	unsubA := p.Subscribe(func(Snapshot) { a++ })
	p.Subscribe(func(Snapshot) { b++ })

	p.Publish(snap(1, false))
	unsubA()
	unsubA()
	p.Publish(snap(2, false))

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestSubscriber_MayUnsubscribeDuringDelivery(t *testing.T) {
	p := NewPublisher(1)
	calls := 0
	var unsub func()
	unsub = p.Subscribe(func(Snapshot) {
		calls++
		unsub()
	})

	p.Publish(snap(1, false))
	p.Publish(snap(2, false))

	assert.Equal(t, 1, calls)
}

func TestLatest_EmptyBeforePublish(t *testing.T) {
	p := NewPublisher(3)
	assert.True(t, p.Latest().Empty())
}
