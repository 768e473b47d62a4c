package inmemdb

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core/substitution"
)

func TestSubstitutionRepository_QuerySubstitutions_order(t *testing.T) {
	ctx := context.Background()
	repo := NewSubstitutionRepository(Open())
	at := time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC)

	early, err := repo.CreateSubstitution(ctx, substitution.Substitution{LessonID: "L0", ReportedBy: "t1", CreatedAt: at.Add(-time.Hour)})
	require.NoError(t, err)
	same := make([]string, 0, 4)
	for _, lesson := range []string{"L1", "L2", "L3", "L4"} {
		sub, err := repo.CreateSubstitution(ctx, substitution.Substitution{LessonID: lesson, ReportedBy: "t1", CreatedAt: at})
		require.NoError(t, err)
		same = append(same, sub.ID)
	}
	sort.Strings(same)
	want := append([]string{early.ID}, same...)

	// map iteration varies between runs, the order must not
	for i := 0; i < 5; i++ {
		subs, err := repo.QuerySubstitutions(ctx, substitution.QueryFilter{ReportedBy: "t1"})
		require.NoError(t, err)
		got := make([]string, len(subs))
		for j, sub := range subs {
			got[j] = sub.ID
		}
		assert.Equal(t, want, got)
	}
}
