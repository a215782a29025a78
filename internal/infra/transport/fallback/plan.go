package fallback

// Variant is one candidate endpoint of a Plan.
type Variant struct {
	Method string
	Path   string
}

// Plan describes an operation whose accepted HTTP method is uncertain.
// Variants are tried in order until one is accepted.
type Plan struct {
	// Op is the human readable operation name, used as failure message prefix.
	Op string
	// Variants are the candidate endpoints in priority order.
	Variants []Variant
	// ExpectBody rejects 2xx responses with an empty body.
	ExpectBody bool
}

// Single returns a Plan with exactly one candidate endpoint.
func Single(op, method, path string, expectBody bool) Plan {
	return Plan{
		Op:         op,
		Variants:   []Variant{{Method: method, Path: path}},
		ExpectBody: expectBody,
	}
}

// Then returns a copy of the plan with another candidate appended.
func (p Plan) Then(method, path string) Plan {
	variants := make([]Variant, 0, len(p.Variants)+1)
	variants = append(variants, p.Variants...)
	p.Variants = append(variants, Variant{Method: method, Path: path})

	return p
}
