package domain

// Nominal particle masses in GeV/c^2 (PDG values).
const (
	MassK0Short = 0.497611
	MassLambda  = 1.115683
	MassDPlus   = 1.86966
	MassDStar   = 2.01026
)
