package balancer

import "testing"

func TestUpdateParamsApplyLinear(t *testing.T) {
	p := UpdateParams{Rule: RuleLinear, Capacity: 10}
	if got := p.Apply(5); got != 0.5 {
		t.Errorf("Apply(5) = %v, want 0.5", got)
	}
}

func TestUpdateParamsApplyPower(t *testing.T) {
	p := UpdateParams{Rule: RulePower, Capacity: 10, Exponent: 2}
	if got := p.Apply(20); got != 4 {
		t.Errorf("Apply(20) = %v, want 4", got)
	}
}

func TestUpdateParamsApplyLogisticBounded(t *testing.T) {
	p := UpdateParams{Rule: RuleLogistic, Capacity: 10, Midpoint: 1, Steepness: 1}
	for _, counter := range []float64{0, 10, 1000, 1e9} {
		got := p.Apply(counter)
		if got < 0 || got > 1 {
			t.Errorf("Apply(%v) = %v, want in [0,1]", counter, got)
		}
	}
}

func TestUpdateParamsApplyZeroCapacityFallsBackToOne(t *testing.T) {
	p := UpdateParams{Rule: RuleLinear, Capacity: 0}
	if got := p.Apply(3); got != 3 {
		t.Errorf("Apply(3) with zero capacity = %v, want 3", got)
	}
}
