// Package config reads the INDSOD job record: which sublattice to
// substitute, with how many atoms of which species, and which artifacts to
// write. The record is keyed TOML; absent keys keep their defaults.
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/latticelab/subcell/pkg/errors"
	"github.com/latticelab/subcell/pkg/structure"
)

// DefaultFilename is the job record's conventional name.
const DefaultFilename = "INDSOD"

// Limits on the job record.
const (
	MinSpecies = 2
	MaxSpecies = 5
	MaxPrec    = 1e-2
)

// Job describes one substitution run.
type Job struct {
	// NSub is the number of substituting species, between 2 and 5.
	NSub int `toml:"nsub"`

	// Subs holds the species multiplicities; the first NSub entries are
	// used and must sum to the atom count of the substituted type.
	Subs []int `toml:"subs"`

	// Symb holds the chemical symbols of the substituting species, one or
	// two characters each, exactly NSub of them.
	Symb []string `toml:"symb"`

	// Prec is the coordinate matching tolerance for site mapping.
	Prec float64 `toml:"prec"`

	// Site selects the substituted atom type, 1-based as in the structure
	// file's symbol line.
	Site int `toml:"site"`

	// Artifact switches.
	WriteEquivalentMatrix bool `toml:"leqa"` // EQAMAT: the site table the enumerator used
	WriteOperatorMatrix   bool `toml:"lspg"` // SPGMAT: the operators, echoed
	WriteConfigurations   bool `toml:"lcfg"` // CONFGL + CONFGD
	WriteStructures       bool `toml:"lpos"` // one POSCAR per orbit
	ShowProgress          bool `toml:"lpro"` // progress bar during the walk
}

// Default returns a Job with every field at its documented default.
func Default() Job {
	return Job{
		NSub:                2,
		Prec:                1e-5,
		Site:                1,
		WriteConfigurations: true,
	}
}

// Load reads the record at path on top of the defaults.
func Load(path string) (*Job, error) {
	job := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "job record %s", path)
	}
	if _, err := toml.DecodeFile(path, &job); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parsing %s", path)
	}
	return &job, nil
}

// Composition returns the active species multiplicities.
func (j *Job) Composition() []int {
	return append([]int(nil), j.Subs[:j.NSub]...)
}

// Validate checks the record against its own limits and against the
// structure it will run on.
func (j *Job) Validate(cell *structure.Cell) error {
	if j.NSub < MinSpecies || j.NSub > MaxSpecies {
		return errors.New(errors.ErrCodeInvalidConfig, "nsub must be in [%d,%d], got %d", MinSpecies, MaxSpecies, j.NSub)
	}
	if len(j.Subs) < j.NSub {
		return errors.New(errors.ErrCodeInvalidConfig, "subs has %d entries, need %d", len(j.Subs), j.NSub)
	}
	if len(j.Symb) != j.NSub {
		return errors.New(errors.ErrCodeInvalidConfig, "symb has %d entries, nsub is %d", len(j.Symb), j.NSub)
	}
	for i, s := range j.Symb {
		if len(s) < 1 || len(s) > 2 {
			return errors.New(errors.ErrCodeInvalidConfig, "symbol %d (%q) must be one or two characters", i+1, s)
		}
	}
	sum := 0
	for i, k := range j.Subs[:j.NSub] {
		if k <= 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "subs[%d] must be positive, got %d", i+1, k)
		}
		sum += k
	}
	if j.Prec <= 0 || j.Prec > MaxPrec {
		return errors.New(errors.ErrCodeInvalidConfig, "prec must be in (0, %g], got %g", MaxPrec, j.Prec)
	}
	if j.Site < 1 || j.Site > len(cell.Counts) {
		return errors.New(errors.ErrCodeInvalidConfig, "site %d outside the structure's %d types", j.Site, len(cell.Counts))
	}
	if have := cell.Counts[j.Site-1]; sum != have {
		return errors.New(errors.ErrCodeInvalidConfig,
			"subs sum to %d but type %d (%s) has %d atoms", sum, j.Site, cell.Symbols[j.Site-1], have)
	}
	return nil
}
