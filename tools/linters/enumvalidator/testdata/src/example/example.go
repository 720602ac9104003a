package example

type Domain string

const (
	DomainElectronics Domain = "electronics"
	DomainChemistry   Domain = "chemistry"
)

type Tier string

const (
	TierConstraint Tier = "constraint"
	TierHeuristic  Tier = "heuristic"
)

type ValidationMode string

const (
	ValidationStrict ValidationMode = "strict"
)

type Scene struct {
	Domain Domain
	Tier   Tier
}

type Request struct {
	Mode ValidationMode
}

func bad() {
	s := &Scene{}
	s.Domain = "mechanics" // want "enum field Domain assigned string literal"
	s.Tier = "symbolic"    // want "enum field Tier assigned string literal"

	r := &Request{}
	r.Mode = "warn" // want "enum field Mode assigned string literal"

	var d Domain = "optics" // want "enum variable d assigned string literal"
	_ = d
}

func good() {
	s := &Scene{}
	s.Domain = DomainElectronics // OK: using constant
	s.Tier = TierHeuristic       // OK: using constant

	r := &Request{}
	r.Mode = ValidationStrict // OK: using constant
}

func alsoGood() {
	// OK: variable, not literal
	domain := DomainChemistry
	s := &Scene{Domain: domain}
	_ = s
}
