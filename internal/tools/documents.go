package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
	"github.com/xkilldash9x/codesmith-cli/internal/llmutil"
)

// ErrInvalidDocument is returned for design or spec documents missing the
// parts the engine reads.
var ErrInvalidDocument = errors.New("invalid document")

// DecodeDesign converts a raw design payload and checks that it names a root
// directory and a folder structure.
func DecodeDesign(raw map[string]any) (*schemas.DesignDocument, error) {
	var doc schemas.DesignDocument
	if err := remarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.FolderStructure.RootName == "" {
		return nil, fmt.Errorf("%w: folder_Structure.root_Project_Directory_Name is missing", ErrInvalidDocument)
	}
	if len(doc.FolderStructure.Structure) == 0 {
		return nil, fmt.Errorf("%w: folder_Structure.structure is empty", ErrInvalidDocument)
	}
	doc.Raw = raw
	return &doc, nil
}

// DecodeSpec converts a raw spec payload. A nil payload yields a nil document.
func DecodeSpec(raw map[string]any) (*schemas.SpecDocument, error) {
	if raw == nil {
		return nil, nil
	}
	var doc schemas.SpecDocument
	if err := remarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	doc.Raw = raw
	return &doc, nil
}

func remarshal(in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// LoadDocument reads a JSON document from fs. Markdown fences and
// surrounding prose, as left by a model, are tolerated.
func LoadDocument(fs afero.Fs, path string) (map[string]any, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	doc, err := llmutil.ParseJSONResponse[map[string]any](string(b))
	if err != nil {
		return nil, err
	}
	return *doc, nil
}

// readDocumentTool reads the design or the spec document and returns it as
// compact JSON, which the loop stores in its state.
type readDocumentTool struct {
	env  Env
	id   ToolID
	kind string
}

func (t *readDocumentTool) Spec() Spec {
	return Spec{
		ID:          t.id,
		Description: fmt.Sprintf("Reads the %s JSON file and returns its content.", t.kind),
		Params:      []Param{{Name: "file_path", Description: fmt.Sprintf("path to the .%s.json file", t.kind), Required: true}},
	}
}

func (t *readDocumentTool) Call(_ context.Context, in Input) (string, error) {
	raw, err := LoadDocument(t.env.Fs, in.String("file_path"))
	if err == nil && t.id == ReadDesign {
		_, err = DecodeDesign(raw)
	}
	if err != nil {
		return fmt.Sprintf("Error reading %s file: %v", t.kind, err), nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprintf("Error reading %s file: %v", t.kind, err), nil
	}
	return string(b), nil
}
