package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordMutation(t *testing.T) {
	before := testutil.ToFloat64(StoreMutationsTotal.WithLabelValues("groups", "create", "rejected"))
	RecordMutation("groups", "create", errors.New("limit"))
	after := testutil.ToFloat64(StoreMutationsTotal.WithLabelValues("groups", "create", "rejected"))
	assert.Equal(t, before+1, after)

	before = testutil.ToFloat64(StoreMutationsTotal.WithLabelValues("ownership", "set", "ok"))
	RecordMutation("ownership", "set", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(StoreMutationsTotal.WithLabelValues("ownership", "set", "ok")))
}

func TestRecordFilterPass(t *testing.T) {
	RecordFilterPass(42, 2*time.Millisecond)
	assert.Equal(t, float64(42), testutil.ToFloat64(VisibleCards))

	RecordCatalogSize(1200)
	assert.Equal(t, float64(1200), testutil.ToFloat64(CatalogCards))
}

func TestRecordPersistenceFailure(t *testing.T) {
	before := testutil.ToFloat64(PersistenceFailuresTotal.WithLabelValues("ownership", "read"))
	RecordPersistenceFailure("ownership", "read")
	assert.Equal(t, before+1, testutil.ToFloat64(PersistenceFailuresTotal.WithLabelValues("ownership", "read")))
}
