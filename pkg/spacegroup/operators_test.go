package spacegroup

import (
	"strings"
	"testing"

	"github.com/latticelab/subcell/pkg/errors"
	"github.com/latticelab/subcell/pkg/structure"
)

const twoOperators = `# identity
1 0 0  0.0
0 1 0  0.0
0 0 1  0.0

# quarter translation along a
1 0 0  0.25
0 1 0  0.0
0 0 1  0.0
`

func TestParseOperators(t *testing.T) {
	ops, err := ParseOperators(strings.NewReader(twoOperators))
	if err != nil {
		t.Fatalf("ParseOperators: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("got %d operators, want 2", len(ops))
	}
	if ops[1].Trans[0] != 0.25 {
		t.Errorf("Trans[0] = %v, want 0.25", ops[1].Trans[0])
	}
	if ops[0].Rot[2][2] != 1 {
		t.Errorf("Rot[2][2] = %v, want 1", ops[0].Rot[2][2])
	}
}

func TestParseOperatorsErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"Empty", ""},
		{"ShortRow", "1 0 0\n"},
		{"NotANumber", "1 0 0 x\n1 0 0 0\n1 0 0 0\n"},
		{"DanglingRows", "1 0 0 0\n0 1 0 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseOperators(strings.NewReader(tt.in)); err == nil {
				t.Error("ParseOperators succeeded, want error")
			}
		})
	}
}

func chainCell() *structure.Cell {
	return &structure.Cell{
		Comment: "chain",
		Scale:   1,
		Lattice: [3][3]float64{{4, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		Symbols: []string{"Li", "O"},
		Counts:  []int{4, 1},
		Coords: [][3]float64{
			{0.00, 0, 0},
			{0.25, 0, 0},
			{0.50, 0, 0},
			{0.75, 0, 0},
			{0.10, 0.5, 0.5},
		},
	}
}

func TestMapSitesTranslationChain(t *testing.T) {
	ops, err := ParseOperators(strings.NewReader(twoOperators))
	if err != nil {
		t.Fatal(err)
	}
	m, err := MapSites(chainCell(), 0, 1e-5, ops)
	if err != nil {
		t.Fatalf("MapSites: %v", err)
	}
	if m.Sites() != 4 || m.Ops() != 2 {
		t.Fatalf("SiteMap = %d sites, %d ops", m.Sites(), m.Ops())
	}
	// The quarter translation advances each site by one, wrapping at the
	// cell boundary.
	for i := 0; i < 4; i++ {
		if got := m.Image(i, 1); got != (i+1)%4 {
			t.Errorf("Image(%d, 1) = %d, want %d", i, got, (i+1)%4)
		}
	}
}

func TestMapSitesRejectsForeignOperator(t *testing.T) {
	ops := []Operator{
		{Rot: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}},
		{Rot: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, Trans: [3]float64{0.11, 0, 0}},
	}
	if _, err := MapSites(chainCell(), 0, 1e-5, ops); !errors.Is(err, errors.ErrCodeSymmetryIntegrity) {
		t.Errorf("error = %v, want SYMMETRY_INTEGRITY", err)
	}
}

func TestMapSitesValidatesSiteIndex(t *testing.T) {
	ops := []Operator{{Rot: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}}
	if _, err := MapSites(chainCell(), 5, 1e-5, ops); !errors.Is(err, errors.ErrCodeInvalidStructure) {
		t.Errorf("error = %v, want INVALID_STRUCTURE", err)
	}
}
