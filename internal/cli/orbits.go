package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/latticelab/subcell/pkg/artifact"
	"github.com/latticelab/subcell/pkg/pipeline"
)

// orbitsCommand creates the orbits inspection command.
func (c *CLI) orbitsCommand() *cobra.Command {
	var (
		dir         string
		noCache     bool
		interactive bool
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "orbits",
		Short: "Enumerate and inspect the orbits without writing artifacts",
		Long: `Orbits runs the pipeline in memory and lists every irreducible
configuration with its rank and degeneracy. With --interactive the orbits
open in a browsable list; selecting one writes its structure file into the
working directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := c.newRunner(cmd.Context(), noCache)
			if err != nil {
				return err
			}
			defer runner.Cache.Close()

			result, err := runner.Execute(cmd.Context(), pipeline.Options{
				Dir:           dir,
				SkipArtifacts: true,
				Logger:        c.Logger,
			})
			if err != nil {
				return err
			}

			if interactive {
				return browseOrbits(result, dir)
			}

			printKeyValue("sites", fmt.Sprintf("%d", result.Stats.Sites))
			printKeyValue("operations", fmt.Sprintf("%d", result.Stats.Ops))
			printKeyValue("site orbits", fmt.Sprintf("%d", result.Stats.SiteOrbits))
			printKeyValue("configurations", fmt.Sprintf("%d", result.Stats.Total))
			printKeyValue("irreducible", fmt.Sprintf("%d", result.Stats.OrbitCount))
			fmt.Println()

			shown := len(result.Enum.Orbits)
			if limit > 0 && shown > limit {
				shown = limit
			}
			for i, o := range result.Enum.Orbits[:shown] {
				fmt.Printf("%5d  rank %-10d deg %-6d %s\n",
					i+1, o.Rank, o.Degeneracy, assignString(o.Assign, result.Job.Symb))
			}
			if shown < len(result.Enum.Orbits) {
				printDetail("… %d more (raise --limit)", len(result.Enum.Orbits)-shown)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "working directory with INDSOD, SPOSCAR and SGO")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the enumeration cache")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse the orbits interactively")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum orbits to list (0 = all)")

	return cmd
}

// assignString renders an assignment as species symbols, site by site.
func assignString(assign []uint8, symbols []string) string {
	var b strings.Builder
	for i, v := range assign {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(symbols[v])
	}
	return b.String()
}

// browseOrbits opens the interactive orbit list. When the user selects an
// orbit, its structure file is written next to the inputs, in dir.
func browseOrbits(result *pipeline.Result, dir string) error {
	model := NewOrbitListModel(result)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return err
	}

	m, ok := final.(OrbitListModel)
	if !ok || m.Selected < 0 {
		return nil
	}

	o := result.Enum.Orbits[m.Selected]
	cell := artifact.OrbitCell(result.Cell, result.Job.Site-1, result.Job.Symb, o.Assign)
	cell.Comment = fmt.Sprintf("%s | configuration %d, rank %d, degeneracy %d",
		result.Cell.Comment, m.Selected+1, o.Rank, o.Degeneracy)
	path := filepath.Join(dir, fmt.Sprintf("c%05d.vasp", m.Selected+1))
	if err := cell.WriteFile(path); err != nil {
		return err
	}
	printSuccess("Wrote %s", path)
	return nil
}
