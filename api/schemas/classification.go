package schemas

// ContentKind is the kind of a generated file as derived from its text.
type ContentKind string

const (
	KindValidationSchema ContentKind = "validation-schema-module"
	KindPersistentModel  ContentKind = "persistent-model-module"
	KindRoute            ContentKind = "route-module"
	KindDatabase         ContentKind = "database-module"
	KindEntry            ContentKind = "entry-module"
	KindUnknown          ContentKind = "unknown"
)

// SymbolTag distinguishes validation-only classes from persistence-backed ones.
type SymbolTag string

const (
	TagSchemaClass SymbolTag = "schema-class"
	TagModelClass  SymbolTag = "model-class"
	TagPlain       SymbolTag = "plain"
)

// Symbol is a class declared in a generated file.
type Symbol struct {
	Name    string    `json:"name"`
	Tag     SymbolTag `json:"tag"`
	Parents []string  `json:"parents,omitempty"`
}

// ImportStatement is a single import statement. Module is the dotted source
// path; Names is empty for plain "import x" statements. Line holds the exact
// source text, spanning EndLineNo-LineNo+1 lines for parenthesized imports.
type ImportStatement struct {
	Module    string   `json:"module"`
	Names     []string `json:"names,omitempty"`
	Line      string   `json:"line"`
	LineNo    int      `json:"line_no"`
	EndLineNo int      `json:"end_line_no"`
}

// TopLevel reports whether the statement starts at column zero.
func (i ImportStatement) TopLevel() bool {
	return i.Line != "" && i.Line[0] != ' ' && i.Line[0] != '\t'
}

// ClassificationResult is the Content Classifier's view of one file.
type ClassificationResult struct {
	Path      string            `json:"path"`
	Kind      ContentKind       `json:"kind"`
	Symbols   []Symbol          `json:"symbols,omitempty"`
	Imports   []ImportStatement `json:"imports,omitempty"`
	Functions []string          `json:"functions,omitempty"`
	// Variables are module-level assignment targets, such as Base = declarative_base().
	Variables []string `json:"variables,omitempty"`
}

// SymbolsWithTag returns the names of symbols carrying tag.
func (c ClassificationResult) SymbolsWithTag(tag SymbolTag) []string {
	var out []string
	for _, s := range c.Symbols {
		if s.Tag == tag {
			out = append(out, s.Name)
		}
	}
	return out
}

// FixAction is the kind of edit an Auto-Fixer performs.
type FixAction string

const (
	FixReplaceImport FixAction = "replace-import"
	FixAddImport     FixAction = "add-import"
)

// FixSuggestion describes one import edit. For replace-import, Original is the
// exact line to substitute and Payload its replacement. For add-import, Payload
// is the line to insert.
type FixSuggestion struct {
	Action   FixAction `json:"action"`
	Payload  string    `json:"payload"`
	Original string    `json:"original,omitempty"`
	Reason   string    `json:"reason"`
}
