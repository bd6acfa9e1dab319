// Package artifact writes the persisted outputs of an enumeration run:
// the equivalent-site table (EQAMAT), the operator list (SPGMAT), the
// configuration list and degeneracies (CONFGL, CONFGD), one structure file
// per orbit, and an optional orbit diagram.
//
// Site and species labels are 1-based on disk, matching the conventions of
// the upstream tooling the files are exchanged with.
package artifact

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/latticelab/subcell/pkg/enumerate"
	"github.com/latticelab/subcell/pkg/errors"
	"github.com/latticelab/subcell/pkg/spacegroup"
	"github.com/latticelab/subcell/pkg/structure"
	"github.com/latticelab/subcell/pkg/symmetry"
)

// Conventional artifact file names.
const (
	EquivalentMatrixFile = "EQAMAT"
	OperatorMatrixFile   = "SPGMAT"
	ConfigurationsFile   = "CONFGL"
	DegeneraciesFile     = "CONFGD"
)

// WriteEquivalentMatrix writes the site table: a header of "n o" followed
// by one row per site listing its image under every operation, 1-based.
// The table written is the one the enumerator used, i.e. post-reordering.
func WriteEquivalentMatrix(w io.Writer, m *symmetry.SiteMap) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", m.Sites(), m.Ops())
	for i := 0; i < m.Sites(); i++ {
		for q := 0; q < m.Ops(); q++ {
			if q > 0 {
				fmt.Fprint(bw, " ")
			}
			fmt.Fprintf(bw, "%d", m.Image(i, q)+1)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// WriteOperators echoes the operator list in the same row format the
// operator file uses: three rows per operator, rotation row then
// translation component.
func WriteOperators(w io.Writer, ops []spacegroup.Operator) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %d operators\n", len(ops))
	for _, op := range ops {
		for i := 0; i < 3; i++ {
			fmt.Fprintf(bw, "% .6f % .6f % .6f  % .6f\n",
				op.Rot[i][0], op.Rot[i][1], op.Rot[i][2], op.Trans[i])
		}
	}
	return bw.Flush()
}

// WriteConfigurations writes one line per orbit: the representative
// assignment as 1-based species indices, site by site.
func WriteConfigurations(w io.Writer, orbits []enumerate.Orbit) error {
	bw := bufio.NewWriter(w)
	for _, o := range orbits {
		for i, v := range o.Assign {
			if i > 0 {
				fmt.Fprint(bw, " ")
			}
			fmt.Fprintf(bw, "%d", v+1)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// WriteDegeneracies writes one line per orbit: its degeneracy.
func WriteDegeneracies(w io.Writer, orbits []enumerate.Orbit) error {
	bw := bufio.NewWriter(w)
	for _, o := range orbits {
		fmt.Fprintf(bw, "%d\n", o.Degeneracy)
	}
	return bw.Flush()
}

// OrbitCell builds the structure of one configuration: the substituted
// type's block is split into one type per substituting species, coordinates
// regrouped by species in the order the symbols list them. Other types are
// untouched. The cell's substituted block must already be in the canonical
// (post-partition) site order the assignment refers to.
func OrbitCell(cell *structure.Cell, site int, symbols []string, assign []uint8) *structure.Cell {
	lo, hi := cell.TypeRange(site)
	n := hi - lo

	out := &structure.Cell{
		Comment: cell.Comment,
		Scale:   cell.Scale,
		Lattice: cell.Lattice,
	}

	counts := make([]int, len(symbols))
	for _, v := range assign {
		counts[v]++
	}

	for t := range cell.Counts {
		if t == site {
			out.Symbols = append(out.Symbols, symbols...)
			out.Counts = append(out.Counts, counts...)
			for sp := range symbols {
				for i := 0; i < n; i++ {
					if assign[i] == uint8(sp) {
						out.Coords = append(out.Coords, cell.Coords[lo+i])
					}
				}
			}
			continue
		}
		tlo, thi := cell.TypeRange(t)
		out.Symbols = append(out.Symbols, cell.Symbols[t])
		out.Counts = append(out.Counts, cell.Counts[t])
		out.Coords = append(out.Coords, cell.Coords[tlo:thi]...)
	}
	return out
}

// WriteStructures writes one POSCAR per orbit into dir, named c00001.vasp
// onward, in emission (ascending rank) order.
func WriteStructures(dir string, cell *structure.Cell, site int, symbols []string, orbits []enumerate.Orbit) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "creating %s", dir)
	}
	for i, o := range orbits {
		oc := OrbitCell(cell, site, symbols, o.Assign)
		oc.Comment = fmt.Sprintf("%s | configuration %d, rank %d, degeneracy %d", cell.Comment, i+1, o.Rank, o.Degeneracy)
		path := filepath.Join(dir, fmt.Sprintf("c%05d.vasp", i+1))
		if err := oc.WriteFile(path); err != nil {
			return err
		}
	}
	return nil
}
