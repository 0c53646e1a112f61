package utils

// Label is a first-class explanation record: every stage that touches a
// candidate can say why. Value and Source semantics are owned by the
// stage; this package only standardizes how same-key labels combine.
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rerank / engine ...
}

// Merge folds an incoming same-key label into l, keeping history: values
// accumulate with '|', sources with ','. An empty side never leaves a
// dangling separator.
func (l Label) Merge(incoming Label) Label {
	if l.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return l
	}
	return Label{
		Value:  l.Value + "|" + incoming.Value,
		Source: join(l.Source, incoming.Source),
	}
}

func join(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "," + b
	}
}
