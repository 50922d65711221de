package metric

import "testing"

func TestNewSchemaRejectsDuplicateID(t *testing.T) {
	_, err := NewSchema([]Column{
		{ID: "distance", Kind: KindParsed, Combine: CombineSum},
		{ID: "distance", Kind: KindParsed, Combine: CombineSum},
	})
	if err == nil {
		t.Fatal("expected error for duplicate metric id")
	}
}

func TestNewSchemaRejectsGeneratedWithoutProducer(t *testing.T) {
	_, err := NewSchema([]Column{
		{ID: "distance", Kind: KindGenerated, Combine: CombineSum},
	})
	if err == nil {
		t.Fatal("expected error for generated metric with nil producer")
	}
}

func TestSchemaIndexOf(t *testing.T) {
	s, err := NewSchema([]Column{
		{ID: "distance", Kind: KindParsed, Combine: CombineSum},
		{ID: "time", Kind: KindParsed, Combine: CombineSum},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	if s.Dim() != 2 {
		t.Fatalf("Dim() = %d, want 2", s.Dim())
	}
	idx, err := s.IndexOf("time")
	if err != nil {
		t.Fatalf("IndexOf: %v", err)
	}
	if idx != 1 {
		t.Errorf("IndexOf(time) = %d, want 1", idx)
	}
	if _, err := s.IndexOf("bogus"); err == nil {
		t.Error("expected error for unknown metric id")
	}
}

func TestSchemaCombine(t *testing.T) {
	s, err := NewSchema([]Column{
		{ID: "distance", Kind: KindParsed, Combine: CombineSum},
		{ID: "max_grade", Kind: KindParsed, Combine: CombineMax},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	if got := s.Combine(0, 3, 4); got != 7 {
		t.Errorf("Combine(sum) = %v, want 7", got)
	}
	if got := s.Combine(1, 3, 4); got != 4 {
		t.Errorf("Combine(max) = %v, want 4", got)
	}
}

func TestVectorValid(t *testing.T) {
	tests := []struct {
		name string
		v    Vector
		want bool
	}{
		{"ok", Vector{1, 2, 3}, true},
		{"negative", Vector{1, -2}, false},
		{"nan", Vector{1, nan()}, false},
		{"inf", Vector{1, inf()}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAdd(t *testing.T) {
	a := Vector{1, 2, 3}
	b := Vector{10, 20, 30}
	got := Add(a, b)
	want := Vector{11, 22, 33}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Add()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCalcProducer(t *testing.T) {
	tests := []struct {
		op   CalcOp
		want float64
	}{
		{CalcAdd, 7},
		{CalcSub, 3},
		{CalcMul, 10},
		{CalcDiv, 2.5},
	}
	edge := []float64{5, 2}
	for _, tt := range tests {
		p := CalcProducer{Op: tt.op, AIdx: 0, BIdx: 1}
		if got := p.Produce(edge, 0, 0, 0, 0); got != tt.want {
			t.Errorf("CalcProducer(%v) = %v, want %v", tt.op, got, tt.want)
		}
	}
}

func TestCalcProducerDivByZero(t *testing.T) {
	p := CalcProducer{Op: CalcDiv, AIdx: 0, BIdx: 1}
	if got := p.Produce([]float64{5, 0}, 0, 0, 0, 0); got != 0 {
		t.Errorf("CalcProducer div-by-zero = %v, want 0", got)
	}
}

func TestHaversineProducer(t *testing.T) {
	p := HaversineProducer{}
	d := p.Produce(nil, 1.0, 103.0, 1.1, 103.0)
	if d <= 0 {
		t.Errorf("Haversine distance = %v, want > 0", d)
	}
}

func TestConvertProducer(t *testing.T) {
	p := ConvertProducer{FromIdx: 0, Factor: 0.001}
	got := p.Produce([]float64{1500}, 0, 0, 0, 0)
	if got != 1.5 {
		t.Errorf("ConvertProducer = %v, want 1.5", got)
	}
}

func nan() float64 { var x float64; return x / x }
func inf() float64 { return 1 / zero() }
func zero() float64 { var x float64; return x }
