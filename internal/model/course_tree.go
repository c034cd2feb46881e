package model

// CourseTree is the read-only catalog view the progress engine aggregates over.
type CourseTree struct {
	CourseID uint
	Modules  []ModuleNode
}

type ModuleNode struct {
	ModuleID uint
	Title    string
	Order    int
	Items    []ItemRef
}

// ItemRef points at a content item or evaluation inside a module. Deleted is
// set when the referenced record has been removed from the catalog.
type ItemRef struct {
	Type    ProgressItemType
	ID      uint
	Deleted bool
}

// UserFacts are the raw completion facts for one user within one course.
type UserFacts struct {
	CompletedContents map[uint]bool
	PassedEvaluations map[uint]bool
}

func NewUserFacts() *UserFacts {
	return &UserFacts{
		CompletedContents: make(map[uint]bool),
		PassedEvaluations: make(map[uint]bool),
	}
}
