package contract

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"

	"github.com/tracegate/tracegate/internal/ctxval"
)

//go:embed schema.cue
var schemaCUE string

// Loader error codes (E001-E009)
const (
	ErrCodeNotFound    = "E001" // contract file not found or unreadable
	ErrCodeBadDocument = "E002" // document does not match the schema
	ErrCodeBadValue    = "E003" // document value could not be converted
	ErrCodeInvalid     = "E004" // contract failed authoring validation
)

// LoadError represents an error that occurred while loading a contract
// document. Schema violations carry CUE's file:line positions in the
// message.
type LoadError struct {
	Code    string
	Message string

	// Violations is populated for ErrCodeInvalid loads.
	Violations []ValidationError
}

func (e *LoadError) Error() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("%s: %s (%d authoring errors)", e.Code, e.Message, len(e.Violations))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Document mirror of the YAML contract format. CUE decodes through
// json tags.
type contractDoc struct {
	PipelineID    string     `json:"pipeline_id"`
	SchemaVersion string     `json:"schema_version"`
	Phases        []phaseDoc `json:"phases"`
	Chains        []chainDoc `json:"chains"`
}

type phaseDoc struct {
	Name  string   `json:"name"`
	Entry entryDoc `json:"entry"`
	Exit  exitDoc  `json:"exit"`
}

type entryDoc struct {
	Required   []fieldDoc `json:"required"`
	Enrichment []fieldDoc `json:"enrichment"`
}

type exitDoc struct {
	Required []fieldDoc `json:"required"`
	Optional []fieldDoc `json:"optional"`
}

type fieldDoc struct {
	Name     string `json:"name"`
	Severity string `json:"severity"`
	Default  any    `json:"default"`
}

type chainDoc struct {
	ChainID      string      `json:"chain_id"`
	Source       endpointDoc `json:"source"`
	Destination  endpointDoc `json:"destination"`
	Verification string      `json:"verification"`
}

type endpointDoc struct {
	Phase string `json:"phase"`
	Field string `json:"field"`
}

// LoadFile reads and loads a contract document from disk.
func LoadFile(path string) (*ContextContract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("read contract: %v", err)}
	}
	return Load(data, path)
}

// Load parses a YAML contract document, vets it against the embedded
// closed CUE schema (unknown keys and bad enums are load errors), and
// runs authoring validation on the result. The filename is used only
// in error positions.
func Load(data []byte, filename string) (*ContextContract, error) {
	cuectx := cuecontext.New()

	schema := cuectx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		// Embedded schema is part of the binary; failing here is a bug.
		return nil, &LoadError{Code: ErrCodeBadDocument, Message: fmt.Sprintf("internal schema error: %v", err)}
	}
	schema = schema.LookupPath(cue.ParsePath("#Contract"))

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBadDocument, Message: fmt.Sprintf("parse yaml: %v", err)}
	}
	doc := cuectx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBadDocument, Message: cueErrorDetails(err)}
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(); err != nil {
		return nil, &LoadError{Code: ErrCodeBadDocument, Message: cueErrorDetails(err)}
	}

	var raw contractDoc
	if err := unified.Decode(&raw); err != nil {
		return nil, &LoadError{Code: ErrCodeBadDocument, Message: cueErrorDetails(err)}
	}

	c, err := fromDoc(&raw)
	if err != nil {
		return nil, err
	}

	if violations := Validate(c); len(violations) > 0 {
		return nil, &LoadError{
			Code:       ErrCodeInvalid,
			Message:    fmt.Sprintf("contract %q failed authoring validation", c.PipelineID),
			Violations: violations,
		}
	}
	return c, nil
}

// fromDoc converts the decoded document into the immutable model.
// Field paths are NFC-normalized here so every later comparison sees
// one spelling.
func fromDoc(doc *contractDoc) (*ContextContract, error) {
	phases := make([]PhaseContract, len(doc.Phases))
	for i, p := range doc.Phases {
		entry := PhaseEntryContract{}
		exit := PhaseExitContract{}
		var err error
		if entry.Required, err = fromFieldDocs(p.Entry.Required); err != nil {
			return nil, fieldConvError(p.Name, "entry.required", err)
		}
		if entry.Enrichment, err = fromFieldDocs(p.Entry.Enrichment); err != nil {
			return nil, fieldConvError(p.Name, "entry.enrichment", err)
		}
		if exit.Required, err = fromFieldDocs(p.Exit.Required); err != nil {
			return nil, fieldConvError(p.Name, "exit.required", err)
		}
		if exit.Optional, err = fromFieldDocs(p.Exit.Optional); err != nil {
			return nil, fieldConvError(p.Name, "exit.optional", err)
		}
		phases[i] = PhaseContract{Name: p.Name, Entry: entry, Exit: exit}
	}

	chains := make([]PropagationChainSpec, len(doc.Chains))
	for i, ch := range doc.Chains {
		chains[i] = PropagationChainSpec{
			ChainID: ch.ChainID,
			Source: ChainEndpoint{
				Phase: ch.Source.Phase,
				Field: ctxval.NormalizePath(ch.Source.Field),
			},
			Destination: ChainEndpoint{
				Phase: ch.Destination.Phase,
				Field: ctxval.NormalizePath(ch.Destination.Field),
			},
			Verification: ch.Verification,
		}
	}

	return New(doc.PipelineID, doc.SchemaVersion, phases, chains), nil
}

func fromFieldDocs(docs []fieldDoc) ([]FieldSpec, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	specs := make([]FieldSpec, len(docs))
	for i, d := range docs {
		spec := FieldSpec{
			Name:     ctxval.NormalizePath(d.Name),
			Severity: Severity(d.Severity),
		}
		if d.Default != nil {
			v, err := ctxval.FromAny(d.Default)
			if err != nil {
				return nil, fmt.Errorf("field %q default: %w", d.Name, err)
			}
			spec.Default = v
		}
		specs[i] = spec
	}
	return specs, nil
}

func fieldConvError(phase, list string, err error) *LoadError {
	return &LoadError{
		Code:    ErrCodeBadValue,
		Message: fmt.Sprintf("phase %q %s: %v", phase, list, err),
	}
}

func cueErrorDetails(err error) string {
	return cueerrors.Details(err, nil)
}
