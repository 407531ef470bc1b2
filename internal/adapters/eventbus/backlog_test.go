package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seqsOf(events []testEvent) []int {
	out := make([]int, 0, len(events))
	for _, e := range events {
		out = append(out, e.seq)
	}
	return out
}

func TestBacklog_RetainsMostRecent(t *testing.T) {
	testCases := []struct {
		name   string
		pushes int
		want   []int
	}{
		{name: "single", pushes: 1, want: []int{1}},
		{name: "exactly capacity", pushes: 10, want: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{name: "one over capacity", pushes: 11, want: []int{2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
		{name: "far over capacity", pushes: 25, want: []int{16, 17, 18, 19, 20, 21, 22, 23, 24, 25}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := newBacklog[testType, testEvent](BacklogCapacity, 4)
			for i := 1; i <= tc.pushes; i++ {
				b.push(typeOne, ev(typeOne, i))
			}

			assert.Equal(t, len(tc.want), b.len(typeOne))
			assert.Equal(t, tc.want, seqsOf(b.drain(typeOne)))
			assert.Zero(t, b.len(typeOne))
			assert.Empty(t, b.drain(typeOne))
		})
	}
}

func TestBacklog_TypesAreIndependent(t *testing.T) {
	b := newBacklog[testType, testEvent](BacklogCapacity, 4)
	for i := 1; i <= 12; i++ {
		b.push(typeOne, ev(typeOne, i))
	}
	b.push(typeTwo, ev(typeTwo, 100))

	assert.Equal(t, []int{100}, seqsOf(b.drain(typeTwo)))
	assert.Equal(t, 10, b.len(typeOne))
}

func TestBacklog_ReusableAfterDrain(t *testing.T) {
	b := newBacklog[testType, testEvent](BacklogCapacity, 4)
	b.push(typeOne, ev(typeOne, 1))
	b.drain(typeOne)
	b.push(typeOne, ev(typeOne, 2))

	assert.Equal(t, []int{2}, seqsOf(b.drain(typeOne)))
}
