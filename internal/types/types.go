package types

// Oid identifies a catalog object in the host database.
type Oid uint32

const InvalidOid Oid = 0

// Ref is a reference to a host type. The checker never interprets type
// semantics itself; it only matches names/oids and forwards them to the
// bridge when building parameter environments.
type Ref struct {
	Oid  Oid
	Name string
}

func (r Ref) Valid() bool {
	return r.Oid != InvalidOid || r.Name != ""
}

func (r Ref) String() string {
	if r.Name != "" {
		return r.Name
	}
	return "unknown"
}

// Same reports whether two refs name the same type. Oids win when both
// sides carry one; otherwise names are compared.
func Same(a, b Ref) bool {
	if a.Oid != InvalidOid && b.Oid != InvalidOid {
		return a.Oid == b.Oid
	}
	return a.Name == b.Name
}

// Polymorphic pseudo-types that must be substituted before a run.
var polymorphic = map[string]bool{
	"anyelement":         true,
	"anyarray":           true,
	"anynonarray":        true,
	"anyenum":            true,
	"anyrange":           true,
	"anycompatible":      true,
	"anycompatiblearray": true,
	"anycompatiblerange": true,
}

// IsPolymorphic reports whether the type name is one of the host's
// polymorphic pseudo-types.
func IsPolymorphic(name string) bool {
	return polymorphic[name]
}

// Volatility classification of a function, as declared in the catalog.
type Volatility byte

const (
	VolatilityImmutable Volatility = 'i'
	VolatilityStable    Volatility = 's'
	VolatilityVolatile  Volatility = 'v'
)

func (v Volatility) String() string {
	switch v {
	case VolatilityImmutable:
		return "IMMUTABLE"
	case VolatilityStable:
		return "STABLE"
	case VolatilityVolatile:
		return "VOLATILE"
	}
	return "UNKNOWN"
}

// Stricter reports whether a is a stricter promise than b
// (IMMUTABLE > STABLE > VOLATILE).
func Stricter(a, b Volatility) bool {
	rank := func(v Volatility) int {
		switch v {
		case VolatilityImmutable:
			return 2
		case VolatilityStable:
			return 1
		default:
			return 0
		}
	}
	return rank(a) > rank(b)
}
