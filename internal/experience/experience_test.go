package experience

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"deepreason/internal/domain"
)

func TestMemoryStoreCountsOnlyFailures(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Append(Record{TaskID: "1", Strategy: domain.StrategyTOT, Success: false, Timestamp: time.Now()}))
	require.NoError(t, s.Append(Record{TaskID: "2", Strategy: domain.StrategyTOT, Success: true, Timestamp: time.Now()}))
	require.Equal(t, 1, s.SimilarFailuresCount(domain.StrategyTOT))
}

func TestSQLStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experience.db")
	store, err := NewSQLStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(Record{TaskID: "1", Strategy: domain.StrategyBeam, Success: false, Timestamp: time.Now()}))
	require.Equal(t, 1, store.SimilarFailuresCount(domain.StrategyBeam))
}
