package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordPush(t *testing.T) {
	before := testutil.ToFloat64(PushMessages.WithLabelValues("account_partition", OutcomeDropped))
	RecordPush("account_partition", OutcomeDropped)
	after := testutil.ToFloat64(PushMessages.WithLabelValues("account_partition", OutcomeDropped))
	assert.Equal(t, before+1, after)
}
