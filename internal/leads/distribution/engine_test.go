package distribution

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeDrafts(n int) []Draft {
	drafts := make([]Draft, n)
	for i := range drafts {
		drafts[i] = Draft{Name: "lead", Phone: "123", Country: "India"}
	}
	return drafts
}

func makeRoster(n int) []uuid.UUID {
	roster := make([]uuid.UUID, n)
	for i := range roster {
		roster[i] = uuid.New()
	}
	return roster
}

func TestDistributeIsFair(t *testing.T) {
	for k := 0; k <= 23; k++ {
		for n := 1; n <= 7; n++ {
			roster := makeRoster(n)
			out := Distribute(makeDrafts(k), roster)
			require.Len(t, out, k)

			owners := make([]*uuid.UUID, len(out))
			for i, a := range out {
				owners[i] = a.Owner
			}
			counts := Tally(owners)

			floor, ceil := k/n, (k+n-1)/n
			for _, id := range roster {
				c := counts[id]
				if c != floor && c != ceil {
					t.Fatalf("k=%d n=%d: salesperson got %d, want %d or %d", k, n, c, floor, ceil)
				}
			}
		}
	}
}

func TestDistributeFollowsInputOrder(t *testing.T) {
	roster := makeRoster(3)
	out := Distribute(makeDrafts(7), roster)

	for i, a := range out {
		require.NotNil(t, a.Owner)
		assert.Equal(t, roster[i%3], *a.Owner, "position %d", i)
	}
}

func TestDistributeIsDeterministic(t *testing.T) {
	roster := makeRoster(4)
	drafts := makeDrafts(10)

	first := Distribute(drafts, roster)
	second := Distribute(drafts, roster)
	for i := range first {
		assert.Equal(t, *first[i].Owner, *second[i].Owner)
	}
}

func TestDistributeWithEmptyRosterLeavesLeadsUnassigned(t *testing.T) {
	out := Distribute(makeDrafts(5), nil)
	require.Len(t, out, 5)
	for _, a := range out {
		assert.Nil(t, a.Owner)
	}
}
