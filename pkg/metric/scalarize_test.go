package metric

import "testing"

func TestMeanNormalizers(t *testing.T) {
	norm := MeanNormalizers([][]float64{
		{10, 20, 30},
		{},
		{0, 0, 0},
	})
	if norm[0] != 20 {
		t.Errorf("norm[0] = %v, want 20", norm[0])
	}
	if norm[1] != 1 {
		t.Errorf("norm[1] (empty column) = %v, want 1", norm[1])
	}
	if norm[2] != 1 {
		t.Errorf("norm[2] (zero mean) = %v, want 1", norm[2])
	}
}

func TestAlphasValidate(t *testing.T) {
	tests := []struct {
		name    string
		alphas  Alphas
		wantErr bool
	}{
		{"ok", Alphas{0, 1, 2.5}, false},
		{"negative", Alphas{1, -1}, true},
		{"nan", Alphas{1, nan()}, true},
		{"inf", Alphas{1, inf()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.alphas.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScalarize(t *testing.T) {
	v := Vector{100, 50}
	alphas := Alphas{1, 2}
	norm := Normalizers{10, 5}
	// cost = 1*100/10 + 2*50/5 = 10 + 20 = 30
	got := Scalarize(v, alphas, norm)
	if got != 30 {
		t.Errorf("Scalarize() = %v, want 30", got)
	}
}

func TestDotCost(t *testing.T) {
	got := DotCost([]float64{10, 10}, Alphas{1, 0}, Normalizers{1, 1})
	if got != 10 {
		t.Errorf("DotCost() = %v, want 10", got)
	}
}
