// Package spacegroup turns space-group operators into the equivalent-site
// table the enumerator consumes. Discovery of the operators themselves is
// out of scope: they arrive as a file of affine operations in fractional
// coordinates, and this package only applies them to the substitution
// sublattice and records which site each one lands on.
package spacegroup

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/latticelab/subcell/pkg/errors"
	"github.com/latticelab/subcell/pkg/structure"
	"github.com/latticelab/subcell/pkg/symmetry"
)

// Operator is an affine space-group operation in fractional coordinates:
// x ↦ Rot·x + Trans.
type Operator struct {
	Rot   [3][3]float64
	Trans [3]float64
}

// Apply maps a fractional coordinate through the operator.
func (op Operator) Apply(x [3]float64) [3]float64 {
	var y [3]float64
	for i := 0; i < 3; i++ {
		y[i] = op.Trans[i]
		for j := 0; j < 3; j++ {
			y[i] += op.Rot[i][j] * x[j]
		}
	}
	return y
}

// ReadOperators reads an operator file. Each operator is three rows of four
// numbers: a rotation row followed by that row's translation component.
// Blank lines and lines starting with '#' are skipped.
func ReadOperators(path string) ([]Operator, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "operator file %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "opening %s", path)
	}
	defer f.Close()
	ops, err := ParseOperators(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parsing %s", path)
	}
	return ops, nil
}

// ParseOperators parses operators from r.
func ParseOperators(r io.Reader) ([]Operator, error) {
	sc := bufio.NewScanner(r)
	var rows [][4]float64
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f := strings.Fields(line)
		if len(f) != 4 {
			return nil, fmt.Errorf("line %d: want 4 numbers, got %d", lineNo, len(f))
		}
		var row [4]float64
		for j, s := range f {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows)%3 != 0 {
		return nil, fmt.Errorf("%d operator rows, want a positive multiple of 3", len(rows))
	}

	ops := make([]Operator, len(rows)/3)
	for q := range ops {
		for i := 0; i < 3; i++ {
			row := rows[3*q+i]
			ops[q].Rot[i] = [3]float64{row[0], row[1], row[2]}
			ops[q].Trans[i] = row[3]
		}
	}
	return ops, nil
}

// MapSites applies every operator to the coordinates of atom type site and
// resolves, within tolerance prec, which site each image coincides with
// modulo lattice translations. The result is the equivalent-site table,
// already validated as a permutation action containing the identity.
//
// An image that matches no site means the operator list does not belong to
// this structure; that is a SYMMETRY_INTEGRITY failure.
func MapSites(cell *structure.Cell, site int, prec float64, ops []Operator) (*symmetry.SiteMap, error) {
	if site < 0 || site >= len(cell.Counts) {
		return nil, errors.New(errors.ErrCodeInvalidStructure, "site type %d outside the structure's %d types", site+1, len(cell.Counts))
	}
	lo, hi := cell.TypeRange(site)
	n := hi - lo
	if n == 0 {
		return nil, errors.New(errors.ErrCodeInvalidStructure, "site type %d has no atoms", site+1)
	}
	coords := cell.Coords[lo:hi]

	table := make([][]int, len(ops))
	for q, op := range ops {
		table[q] = make([]int, n)
		for i, x := range coords {
			y := op.Apply(x)
			j, ok := match(coords, y, prec)
			if !ok {
				return nil, errors.New(errors.ErrCodeSymmetryIntegrity,
					"operation %d sends site %d to (%.6f, %.6f, %.6f), which is no site of type %d",
					q+1, i+1, y[0], y[1], y[2], site+1)
			}
			table[q][i] = j
		}
	}
	return symmetry.New(table)
}

// match finds the site whose fractional coordinate equals y modulo 1
// within prec in every component.
func match(coords [][3]float64, y [3]float64, prec float64) (int, bool) {
	for j, x := range coords {
		ok := true
		for c := 0; c < 3; c++ {
			d := math.Abs(math.Mod(y[c]-x[c], 1))
			if d > 0.5 {
				d = 1 - d
			}
			if d > prec {
				ok = false
				break
			}
		}
		if ok {
			return j, true
		}
	}
	return 0, false
}
