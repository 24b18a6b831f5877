package reporting

import (
	"fmt"
	"strings"

	"charm-reso-lab/internal/domain"
)

// RenderPairCSV renders pair candidates as a CSV string, in the order given.
func RenderPairCSV(pairs []*domain.PairCandidate) string {
	var sb strings.Builder

	// Header
	sb.WriteString("collision_ref,channel,inv_mass,pt,inv_mass_d,pt_d,")
	sb.WriteString("inv_mass_v0,pt_v0,v0_cos_pa,v0_dca_to_pv,v0_radius\n")

	// Rows
	for _, p := range pairs {
		sb.WriteString(fmt.Sprintf("%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f\n",
			p.CollisionRef,
			p.Channel,
			p.InvMass,
			p.Pt,
			p.InvMassD,
			p.PtD,
			p.InvMassV0,
			p.PtV0,
			p.V0CosPA,
			p.V0DCAToPV,
			p.V0Radius,
		))
	}

	return sb.String()
}
