package lattice

// Not-null grades.
const (
	Nullable = iota
	EffectivelyNotNull
	ContentNotNull
	Content2NotNull
)

// Size grades.
const (
	AnySize = iota
	NotEmpty
)

// Multi-level immutability grades.
//
// Each level comes in an eventual and an effective flavour:
//
//	level 1: fields are (eventually) final
//	level 2: content cannot be modified through the type's API
//	level 3: recursively immutable, all reachable content is level 3
const (
	Mutable = iota
	EventuallyFinalFields
	FinalFields
	EventuallyImmutable
	EffectivelyImmutable
	EventuallyRecursivelyImmutable
	RecursivelyImmutable
)

// MaxImmutableLevel is the level of [RecursivelyImmutable].
const MaxImmutableLevel = 3

// Independence grades.
const (
	Dependent = iota
	Independent1
	Independent2
	FullyIndependent
)

// ImmutableGrade composes an immutability grade from a level and its eventual flag.
// Level 0 is always [Mutable].
func ImmutableGrade(level int, eventual bool) int {
	if level <= 0 {
		return Mutable
	}
	level = min(level, MaxImmutableLevel)
	if eventual {
		return 2*level - 1
	}
	return 2 * level
}

// ImmutableLevel returns the level of an immutability grade.
func ImmutableLevel(grade int) int { return (grade + 1) / 2 }

// IsEventual reports whether an immutability grade needs a precondition.
func IsEventual(grade int) bool { return grade%2 == 1 }

// IndependenceFromImmutableLevel translates the immutability level of hidden content
// into the independence grade of whatever links to it.
//
//	level 0          -> Dependent
//	level 1          -> Independent1
//	level 2          -> level - 1
//	MaxImmutableLevel -> FullyIndependent
func IndependenceFromImmutableLevel(level int) int {
	switch {
	case level <= 0:
		return Dependent
	case level == 1:
		return Independent1
	case level >= MaxImmutableLevel:
		return FullyIndependent
	default:
		return level - 1
	}
}

// IndependenceFromImmutable lifts [IndependenceFromImmutableLevel] to [DV] values.
func IndependenceFromImmutable(immutable DV) DV {
	if immutable.IsDelayed() {
		return immutable
	}
	return Of(IndependenceFromImmutableLevel(ImmutableLevel(immutable.Value())))
}

var immutableNames = [...]string{
	Mutable:                        "mutable",
	EventuallyFinalFields:          "eventually_final_fields",
	FinalFields:                    "final_fields",
	EventuallyImmutable:            "eventually_immutable",
	EffectivelyImmutable:           "immutable",
	EventuallyRecursivelyImmutable: "eventually_recursively_immutable",
	RecursivelyImmutable:           "recursively_immutable",
}

// ImmutableName returns a readable name for an immutability grade.
func ImmutableName(grade int) string {
	if grade >= 0 && grade < len(immutableNames) {
		return immutableNames[grade]
	}
	return "?"
}
