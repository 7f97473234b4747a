package simulation

import "math"

// Evaluator scores a forecast against actual sales over the dates the
// two series share.
type Evaluator struct{}

// NewEvaluator creates an evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate inner-joins actual and predicted on their dates and computes
// MAE and RMSE over the joined pairs. Pairs missing from either side are
// dropped, not counted as zero error. An empty join returns a zero
// result rather than an error: mismatched date ranges are a valid input
// shape, and callers need to tell "no overlap" apart from a failure.
func (e *Evaluator) Evaluate(actual []SalesRecord, predicted []ForecastRecord) EvaluationResult {
	byDate := make(map[DateKey]ForecastRecord, len(predicted))
	for _, p := range predicted {
		byDate[p.Date] = p
	}

	var absSum, sqSum float64
	matched := 0
	for _, a := range actual {
		p, ok := byDate[a.Date]
		if !ok {
			continue
		}
		diff := float64(a.ActualSales - p.PredictedSales)
		absSum += math.Abs(diff)
		sqSum += diff * diff
		matched++
	}

	if matched == 0 {
		return EvaluationResult{}
	}
	return EvaluationResult{
		MeanAbsoluteError:    absSum / float64(matched),
		RootMeanSquaredError: math.Sqrt(sqSum / float64(matched)),
	}
}
