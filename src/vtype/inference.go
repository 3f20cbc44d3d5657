package vtype

// TypeGuesser accumulates evidence from a stream of raw field values and
// produces a best-fit DType; cmd/vectra uses it to build a schema from a CSV
// sample instead of being given one (an extension of spec.md §4.15,
// grounded in the teacher's column.TypeGuesser). Int and float evidence
// widens to float; any other mix of kinds falls back to string. Nullability
// is tracked independently of the winning kind.
type TypeGuesser struct {
	nullable bool
	counts   [kindMax]int
	nrows    int
}

// NewTypeGuesser creates an empty guesser.
func NewTypeGuesser() *TypeGuesser {
	return &TypeGuesser{}
}

// AddValue feeds one more raw field value into the guesser.
func (tg *TypeGuesser) AddValue(s string) {
	tg.nrows++
	if isNull(s) {
		tg.nullable = true
		return
	}
	// once a string has been observed, no narrower kind can reclaim this column
	if tg.counts[KindString] > 0 {
		return
	}
	tg.counts[guessType(s)]++
}

// InferredType resolves the accumulated evidence into a single DType.
func (tg *TypeGuesser) InferredType() DType {
	if tg.nrows == 0 {
		return DType{Kind: KindInvalid, Nullable: true}
	}
	seen := make(map[Kind]int)
	for k := Kind(1); k < kindMax; k++ {
		if tg.counts[k] > 0 {
			seen[k] = tg.counts[k]
		}
	}
	if len(seen) == 0 {
		// every value was null
		return DType{Kind: KindString, Nullable: true}
	}
	if len(seen) == 1 {
		for k := range seen {
			return DType{Kind: k, Nullable: tg.nullable}
		}
	}
	// multiple kinds seen: they can only be safely reconciled if all are numeric
	for k := range seen {
		if k != KindInt64 && k != KindFloat64 {
			return DType{Kind: KindString, Nullable: tg.nullable}
		}
	}
	return DType{Kind: KindFloat64, Nullable: tg.nullable}
}
