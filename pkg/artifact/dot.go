package artifact

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/latticelab/subcell/pkg/symmetry"
)

// OrbitDOT returns a Graphviz DOT representation of the site action:
// sites as nodes grouped into one cluster per orbit, with an edge from
// each site to its image under every non-identity operation. Parallel
// edges between the same pair are collapsed.
//
// The output can be rendered with Graphviz tools or with RenderSVG.
func OrbitDOT(m *symmetry.SiteMap, orbs *symmetry.Orbits) string {
	var buf bytes.Buffer
	buf.WriteString("digraph orbits {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontsize=12];\n")
	buf.WriteString("  edge [arrowsize=0.5];\n\n")

	for b := 0; b < orbs.Count(); b++ {
		fmt.Fprintf(&buf, "  subgraph cluster_%d {\n", b)
		fmt.Fprintf(&buf, "    label=\"orbit %d\";\n", b+1)
		for i := orbs.Bounds[b]; i < orbs.Bounds[b+1]; i++ {
			fmt.Fprintf(&buf, "    s%d [label=\"%d\"];\n", i, i+1)
		}
		buf.WriteString("  }\n")
	}
	buf.WriteString("\n")

	type edge struct{ from, to int }
	drawn := make(map[edge]bool)
	for q := 0; q < m.Ops(); q++ {
		for i := 0; i < m.Sites(); i++ {
			img := m.Image(i, q)
			if img == i {
				continue
			}
			e := edge{i, img}
			if drawn[e] {
				continue
			}
			drawn[e] = true
			fmt.Fprintf(&buf, "  s%d -> s%d;\n", i, img)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT string to SVG bytes.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
