package runner

import (
	"fmt"
	"io"
	"strings"

	"github.com/YuminosukeSato/tabprep/preprocessing"
)

// Describe writes a human-readable summary of a fitted state.
func Describe(w io.Writer, state *preprocessing.FittedState) error {
	roles := state.Roles()
	var b strings.Builder

	fmt.Fprintf(&b, "samples:       %d\n", state.NSamples())
	fmt.Fprintf(&b, "output width:  %d\n", state.Width())

	b.WriteString("\nnumeric:\n")
	for _, p := range state.NumericParams() {
		fmt.Fprintf(&b, "  %-24s mean=%-14g std=%g\n", p.Column, p.Mean, p.Std)
	}
	b.WriteString("\ncategorical:\n")
	for _, p := range state.CategoricalParams() {
		fmt.Fprintf(&b, "  %-24s %d categories: %s\n", p.Column, len(p.Categories), strings.Join(p.Categories, ", "))
	}
	b.WriteString("\npassthrough:\n")
	for _, c := range roles.Passthrough {
		fmt.Fprintf(&b, "  %s\n", c)
	}
	b.WriteString("\noutput columns:\n")
	for i, c := range state.FeatureNamesOut() {
		fmt.Fprintf(&b, "  %3d  %s\n", i, c)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
