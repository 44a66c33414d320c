package entity

type ElementType string

const (
	ElementLink   ElementType = "link"
	ElementButton ElementType = "button"
	ElementInput  ElementType = "input"
	ElementForm   ElementType = "form"
)

// RemovalCandidate is an element whose text suggests a removal or opt-out
// action. Candidates are rebuilt from every snapshot and never persisted.
type RemovalCandidate struct {
	Text        string
	ElementType ElementType
	Selector    string
}
