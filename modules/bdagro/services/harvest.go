package services

import (
	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/schema"
	"github.com/agrotomo/bdagro-sync/pkg/dataset"
)

// WithHarvestEstimate adds tc_est_colheita: tc_est where tc_real is positive,
// 0 otherwise (a null tc_real counts as not positive).
func WithHarvestEstimate(t *dataset.Table) (*dataset.Table, error) {
	actual, err := t.Column(schema.TCRealColumn)
	if err != nil {
		return nil, err
	}
	est, err := t.Column(schema.TCEstColumn)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(actual))
	for i := range actual {
		values[i] = 0.0
		if r, ok := schema.Decimal.Coerce(actual[i]).(float64); ok && r > 0 {
			values[i] = schema.Decimal.Coerce(est[i])
		}
	}
	return t.WithColumn(schema.HarvestEstimateName, values)
}
