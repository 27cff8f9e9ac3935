package repository

import (
	"bufio"
	"io"
	"slices"
	"strings"

	"github.com/gnoswap-labs/mofc/internal/cim"
)

// Entities returns everything the namespace holds in the order it must be
// compiled back: qualifier declarations sorted by name, classes in compile
// order, then instances in the order they were added.
func (ns *Namespace) Entities() []cim.Entity {
	quals := ns.EnumerateQualifiers()
	slices.SortFunc(quals, func(a, b *cim.QualifierDeclaration) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	classes := ns.EnumerateClasses()
	insts := ns.EnumerateInstances()

	out := make([]cim.Entity, 0, len(quals)+len(classes)+len(insts))
	for _, q := range quals {
		out = append(out, q)
	}
	for _, c := range classes {
		out = append(out, c)
	}
	for _, inst := range insts {
		out = append(out, inst)
	}
	return out
}

// WriteMOF writes the namespace as compilable MOF, one blank line after
// each entity.
func (ns *Namespace) WriteMOF(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, e := range ns.Entities() {
		bw.WriteString(cim.ToMOF(e))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// MOF returns the namespace rendered by WriteMOF.
func (ns *Namespace) MOF() string {
	var b strings.Builder
	_ = ns.WriteMOF(&b)
	return b.String()
}
