package combin

import (
	"testing"

	"github.com/latticelab/subcell/pkg/errors"
)

func TestNewSpaceValidation(t *testing.T) {
	tests := []struct {
		name string
		n    int
		k    []int
		code errors.Code
	}{
		{"TooFewSpecies", 4, []int{4}, errors.ErrCodeInvalidInput},
		{"ZeroCount", 4, []int{0, 4}, errors.ErrCodeInvalidInput},
		{"BadSum", 4, []int{2, 3}, errors.ErrCodeInvalidInput},
		{"NonPositiveSites", 0, []int{1, 1}, errors.ErrCodeInvalidInput},
		{"Overflow", 80, []int{40, 40}, errors.ErrCodeOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSpace(tt.n, tt.k)
			if err == nil {
				t.Fatal("NewSpace succeeded, want error")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("error code = %q, want %q (%v)", errors.GetCode(err), tt.code, err)
			}
		})
	}
}

func TestSpaceTotals(t *testing.T) {
	tests := []struct {
		n     int
		k     []int
		total uint64
	}{
		{4, []int{2, 2}, 6},
		{6, []int{2, 2, 2}, 90},
		{6, []int{1, 2, 3}, 60},
		{10, []int{5, 5}, 252},
		{12, []int{4, 4, 4}, 34650},
	}
	for _, tt := range tests {
		sp, err := NewSpace(tt.n, tt.k)
		if err != nil {
			t.Fatalf("NewSpace(%d,%v): %v", tt.n, tt.k, err)
		}
		if sp.Total() != tt.total {
			t.Errorf("Total(%d,%v) = %d, want %d", tt.n, tt.k, sp.Total(), tt.total)
		}
	}
}

func TestCodecBijection(t *testing.T) {
	tests := []struct {
		n int
		k []int
	}{
		{4, []int{2, 2}},
		{5, []int{2, 3}},
		{6, []int{2, 2, 2}},
		{6, []int{1, 2, 3}},
		{7, []int{1, 1, 2, 3}},
	}
	for _, tt := range tests {
		sp, err := NewSpace(tt.n, tt.k)
		if err != nil {
			t.Fatalf("NewSpace(%d,%v): %v", tt.n, tt.k, err)
		}

		a := make([]uint8, tt.n)
		counts := make([]int, len(tt.k))
		for r := uint64(0); r < sp.Total(); r++ {
			if err := sp.Decode(r, a); err != nil {
				t.Fatalf("Decode(%d): %v", r, err)
			}

			for i := range counts {
				counts[i] = 0
			}
			for _, v := range a {
				counts[v]++
			}
			for j := range counts {
				if counts[j] != tt.k[j] {
					t.Fatalf("Decode(%d) = %v: species %d count %d, want %d", r, a, j, counts[j], tt.k[j])
				}
			}

			back, err := sp.Encode(a)
			if err != nil {
				t.Fatalf("Encode(Decode(%d)): %v", r, err)
			}
			if back != r {
				t.Fatalf("Encode(Decode(%d)) = %d", r, back)
			}
		}
	}
}

func TestFirstDigitMatchesSpeciesZeroSubset(t *testing.T) {
	sp, err := NewSpace(6, []int{2, 2, 2})
	if err != nil {
		t.Fatal(err)
	}
	a := make([]uint8, 6)
	for r := uint64(0); r < sp.Total(); r++ {
		if err := sp.Decode(r, a); err != nil {
			t.Fatal(err)
		}
		var sub []int
		for i, v := range a {
			if v == 0 {
				sub = append(sub, i)
			}
		}
		if got, want := sp.FirstDigit(r), sp.Columns().Rank(sub); got != want {
			t.Fatalf("FirstDigit(%d) = %d, want %d (subset %v)", r, got, want, sub)
		}
	}
}

func TestEncodeRefusesBadAssignments(t *testing.T) {
	sp, err := NewSpace(4, []int{2, 2})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		a    []uint8
	}{
		{"WrongLength", []uint8{0, 1, 0}},
		{"WrongMultiplicity", []uint8{0, 0, 0, 1}},
		{"LabelOutOfRange", []uint8{0, 1, 2, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sp.Encode(tt.a); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Encode(%v) error = %v, want INVALID_INPUT", tt.a, err)
			}
		})
	}
}

func TestDecodeRefusesOutOfRangeRank(t *testing.T) {
	sp, err := NewSpace(4, []int{2, 2})
	if err != nil {
		t.Fatal(err)
	}
	a := make([]uint8, 4)
	if err := sp.Decode(6, a); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Decode(6) error = %v, want INVALID_INPUT", err)
	}
}

func TestVerify(t *testing.T) {
	sp, err := NewSpace(6, []int{2, 2, 2})
	if err != nil {
		t.Fatal(err)
	}
	if err := sp.Verify([]uint64{0, 1, 44, 88, 89, 1000}); err != nil {
		t.Errorf("Verify: %v", err)
	}
}
