package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/latticelab/subcell/pkg/pipeline"
	"github.com/latticelab/subcell/pkg/progress"
)

// runCommand creates the run command executing the full pipeline.
func (c *CLI) runCommand() *cobra.Command {
	var (
		dir          string
		out          string
		diagram      bool
		refresh      bool
		noCache      bool
		showProgress bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Enumerate the irreducible configurations and write artifacts",
		Long: `Run reads the INDSOD job record, the SPOSCAR structure, and the SGO
operator file from the working directory, enumerates the
symmetry-irreducible configurations of the substituted sublattice, and
writes the artifacts the job record asks for (CONFGL, CONFGD, EQAMAT,
SPGMAT, per-orbit structures).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := c.newRunner(cmd.Context(), noCache)
			if err != nil {
				return err
			}
			defer runner.Cache.Close()

			opts := pipeline.Options{
				Dir:     dir,
				OutDir:  out,
				Diagram: diagram,
				Refresh: refresh,
				Logger:  c.Logger,
			}
			if showProgress {
				opts.Progress = progress.NewBar(os.Stderr)
			}

			result, err := runner.Execute(cmd.Context(), opts)
			if err != nil {
				return err
			}

			printSuccess("Enumerated %d irreducible configurations", result.Stats.OrbitCount)
			printDetail("%d sites · %d operations · %d site orbits · N = %d",
				result.Stats.Sites, result.Stats.Ops, result.Stats.SiteOrbits, result.Stats.Total)
			if result.CacheInfo.EnumHit {
				printDetail("enumeration served from cache")
			}
			for _, path := range result.Artifacts {
				printFile(path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "working directory with INDSOD, SPOSCAR and SGO")
	cmd.Flags().StringVarP(&out, "out", "o", "", "artifact output directory (default: the working directory)")
	cmd.Flags().BoolVar(&diagram, "diagram", false, "also write the orbit diagram (DOT and SVG)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute even if the enumeration is cached")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the enumeration cache")
	cmd.Flags().BoolVarP(&showProgress, "progress", "p", false, "show a progress bar during the walk")

	return cmd
}
