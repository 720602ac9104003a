package canonical

import "errors"

var (
	errEmptyConstraint  = errors.New("canonical: constraint has no object ids")
	errBetweenArity     = errors.New("canonical: between constraint requires exactly 3 object ids")
	errPairArity        = errors.New("canonical: constraint requires exactly 2 object ids")
	errContainmentArity = errors.New("canonical: containment constraint requires an inner object and at least one outer")
)
