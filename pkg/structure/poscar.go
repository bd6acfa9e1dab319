// Package structure reads and writes VASP-format structure files (POSCAR /
// SPOSCAR). Only the pieces the substitution pipeline needs are modeled: a
// comment, the lattice, per-type symbols and counts, and fractional
// coordinates.
package structure

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/latticelab/subcell/pkg/errors"
)

// Cell is a periodic structure with atoms grouped by type, coordinates in
// fractional (direct) form.
type Cell struct {
	Comment string
	Scale   float64
	Lattice [3][3]float64
	Symbols []string
	Counts  []int
	Coords  [][3]float64
}

// Atoms returns the total atom count.
func (c *Cell) Atoms() int {
	total := 0
	for _, n := range c.Counts {
		total += n
	}
	return total
}

// TypeRange returns the half-open coordinate index range of atom type t.
func (c *Cell) TypeRange(t int) (lo, hi int) {
	for i := 0; i < t; i++ {
		lo += c.Counts[i]
	}
	return lo, lo + c.Counts[t]
}

// PermuteType reorders the coordinates of atom type t so that new position
// i holds what was at position perm[i] within the type's block. This is the
// structural side of the orbit partitioner's site relabeling.
func (c *Cell) PermuteType(t int, perm []int) {
	lo, _ := c.TypeRange(t)
	fresh := make([][3]float64, len(perm))
	for i, p := range perm {
		fresh[i] = c.Coords[lo+p]
	}
	copy(c.Coords[lo:lo+len(perm)], fresh)
}

// ReadFile reads a POSCAR-format file.
func ReadFile(path string) (*Cell, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "structure file %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidStructure, err, "opening %s", path)
	}
	defer f.Close()
	c, err := Read(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidStructure, err, "parsing %s", path)
	}
	return c, nil
}

// Read parses a VASP 5 structure: comment, scale, three lattice vectors,
// symbol line, count line, a "Direct" marker, and one fractional coordinate
// row per atom. Cartesian coordinates are not supported.
func Read(r io.Reader) (*Cell, error) {
	sc := bufio.NewScanner(r)
	next := func() (string, error) {
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line != "" {
				return line, nil
			}
		}
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}

	c := &Cell{}

	// Comment line may legitimately be blank, so it bypasses next().
	if !sc.Scan() {
		return nil, io.ErrUnexpectedEOF
	}
	c.Comment = strings.TrimSpace(sc.Text())

	line, err := next()
	if err != nil {
		return nil, err
	}
	if c.Scale, err = strconv.ParseFloat(line, 64); err != nil {
		return nil, fmt.Errorf("scale line %q: %w", line, err)
	}

	for i := 0; i < 3; i++ {
		line, err := next()
		if err != nil {
			return nil, err
		}
		f := strings.Fields(line)
		if len(f) != 3 {
			return nil, fmt.Errorf("lattice vector %d: %q", i+1, line)
		}
		for j := 0; j < 3; j++ {
			if c.Lattice[i][j], err = strconv.ParseFloat(f[j], 64); err != nil {
				return nil, fmt.Errorf("lattice vector %d: %w", i+1, err)
			}
		}
	}

	line, err = next()
	if err != nil {
		return nil, err
	}
	c.Symbols = strings.Fields(line)
	if len(c.Symbols) == 0 {
		return nil, fmt.Errorf("empty symbol line")
	}

	line, err = next()
	if err != nil {
		return nil, err
	}
	counts := strings.Fields(line)
	if len(counts) != len(c.Symbols) {
		return nil, fmt.Errorf("%d counts for %d symbols", len(counts), len(c.Symbols))
	}
	for _, cs := range counts {
		n, err := strconv.Atoi(cs)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("atom count %q", cs)
		}
		c.Counts = append(c.Counts, n)
	}

	line, err = next()
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(line[:1]) {
	case "d":
	case "c", "k":
		return nil, fmt.Errorf("cartesian coordinates are not supported")
	default:
		return nil, fmt.Errorf("coordinate mode %q", line)
	}

	total := c.Atoms()
	c.Coords = make([][3]float64, total)
	for i := 0; i < total; i++ {
		line, err := next()
		if err != nil {
			return nil, fmt.Errorf("coordinate row %d of %d: %w", i+1, total, err)
		}
		f := strings.Fields(line)
		if len(f) < 3 {
			return nil, fmt.Errorf("coordinate row %d: %q", i+1, line)
		}
		for j := 0; j < 3; j++ {
			if c.Coords[i][j], err = strconv.ParseFloat(f[j], 64); err != nil {
				return nil, fmt.Errorf("coordinate row %d: %w", i+1, err)
			}
		}
	}
	return c, nil
}

// WriteFile writes the cell in POSCAR format.
func (c *Cell) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "creating %s", path)
	}
	if err := c.Write(f); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "writing %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "closing %s", path)
	}
	return nil
}

// Write emits the cell: comment, a uniform "1.0" scale, lattice rows in
// scientific notation, symbols, counts, the "Direct" marker, and the
// fractional coordinates. Lattice vectors are pre-multiplied by the cell's
// scale so the written scale can stay 1.0.
func (c *Cell) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	scale := c.Scale
	if scale == 0 {
		scale = 1.0
	}
	fmt.Fprintf(bw, "%s\n", c.Comment)
	fmt.Fprintf(bw, "1.0\n")
	for i := 0; i < 3; i++ {
		fmt.Fprintf(bw, " % .14E % .14E % .14E\n",
			c.Lattice[i][0]*scale, c.Lattice[i][1]*scale, c.Lattice[i][2]*scale)
	}
	fmt.Fprintf(bw, "%s\n", strings.Join(c.Symbols, " "))
	counts := make([]string, len(c.Counts))
	for i, n := range c.Counts {
		counts[i] = strconv.Itoa(n)
	}
	fmt.Fprintf(bw, "%s\n", strings.Join(counts, " "))
	fmt.Fprintf(bw, "Direct\n")
	for _, x := range c.Coords {
		fmt.Fprintf(bw, " % .12f % .12f % .12f\n", x[0], x[1], x[2])
	}
	return bw.Flush()
}
