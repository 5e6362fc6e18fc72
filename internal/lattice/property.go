package lattice

// Property identifies an inferred fact about a type, method, field, parameter or variable.
type Property uint8

const (
	// Final is TRUE when a field is never assigned outside construction.
	Final Property = iota
	// ModifiedOutsideMethod is TRUE when a field's content changes outside construction.
	ModifiedOutsideMethod
	// ModifiedMethod is TRUE when a method modifies its receiver.
	ModifiedMethod
	// ModifiedVariable is TRUE when the content of a parameter is modified.
	ModifiedVariable
	// ContextModified is the statement-level modification of a variable.
	ContextModified
	// NotNull grades the nullability of a field, parameter or return value.
	NotNull
	// ContextNotNull is the not-null requirement imposed by a statement.
	ContextNotNull
	// Size grades the emptiness of a parameter.
	Size
	// Immutable grades the multi-level immutability of a type or field.
	Immutable
	// Independent grades how much of a method's or parameter's content is shared with fields.
	Independent
	// Identity is TRUE when a method returns its first parameter unchanged.
	Identity
	// Fluent is TRUE when a method returns its receiver.
	Fluent

	numProperties
)

type propertyInfo struct {
	name        string
	worst, best int
}

var propertyInfos = [numProperties]propertyInfo{
	Final:                 {"final", 0, 1},
	ModifiedOutsideMethod: {"modified_outside_method", 1, 0},
	ModifiedMethod:        {"modified_method", 1, 0},
	ModifiedVariable:      {"modified_variable", 1, 0},
	ContextModified:       {"context_modified", 1, 0},
	NotNull:               {"not_null", Nullable, Content2NotNull},
	ContextNotNull:        {"context_not_null", Nullable, Content2NotNull},
	Size:                  {"size", AnySize, NotEmpty},
	Immutable:             {"immutable", Mutable, RecursivelyImmutable},
	Independent:           {"independent", Dependent, FullyIndependent},
	Identity:              {"identity", 0, 1},
	Fluent:                {"fluent", 0, 1},
}

// AllProperties returns every known property in declaration order.
func AllProperties() []Property {
	ps := make([]Property, numProperties)
	for i := range ps {
		ps[i] = Property(i)
	}
	return ps
}

func (p Property) String() string {
	if p < numProperties {
		return propertyInfos[p].name
	}
	return "unknown"
}

// Worst returns the least precise concrete value of the property.
func (p Property) Worst() int { return propertyInfos[p].worst }

// Best returns the most precise concrete value of the property.
func (p Property) Best() int { return propertyInfos[p].best }

// Inverted reports whether the property's best value is numerically lower than its worst.
// The modification properties are inverted: FALSE (not modified) is the desirable outcome.
func (p Property) Inverted() bool { return propertyInfos[p].best < propertyInfos[p].worst }

// WorstDV returns the worst value as a done [DV].
func (p Property) WorstDV() DV { return Of(p.Worst()) }

// BestDV returns the best value as a done [DV].
func (p Property) BestDV() DV { return Of(p.Best()) }
