package model

import (
	"fmt"
	"strings"
)

// Kind identifies the concrete allocation variant.
type Kind uint8

const (
	// KindUnknown marks allocations that were not produced by an optimizer.
	KindUnknown Kind = iota
	// KindACV marks approximate control variate allocations.
	KindACV
	// KindMLMC marks multilevel Monte Carlo allocations.
	KindMLMC
)

// String returns the stable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindACV:
		return "acv"
	case KindMLMC:
		return "mlmc"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "acv":
		return KindACV, nil
	case "mlmc":
		return KindMLMC, nil
	case "", "unknown":
		return KindUnknown, nil
	default:
		return KindUnknown, fmt.Errorf("%w: unknown allocation kind %q", ErrInvalidInput, s)
	}
}

// Method tags written into allocations by the built-in optimizers.
const (
	MethodACVIS = "ACVIS"
	MethodACVMF = "ACVMF"
	MethodMLMC  = "MLMC"
)

// KindForMethod returns the allocation kind produced by a method tag.
func KindForMethod(method string) Kind {
	switch strings.ToUpper(method) {
	case MethodACVIS, MethodACVMF:
		return KindACV
	case MethodMLMC:
		return KindMLMC
	default:
		return KindUnknown
	}
}
