package plan

import (
	"fmt"
	"os"

	"gihan9a/docrepair/internal/patch"
	"gihan9a/docrepair/internal/utils"

	"gopkg.in/yaml.v3"
)

// FileOperation is one entry of the plan file. Exactly one of RemoveRecord,
// RemoveText and Delete must be set.
type FileOperation struct {
	Path    string `yaml:"path"`
	Message string `yaml:"message"`

	RemoveRecord *struct {
		Field string `yaml:"field"`
		Value string `yaml:"value"`
	} `yaml:"remove_record,omitempty"`

	RemoveText *struct {
		Patterns []string `yaml:"patterns"`
	} `yaml:"remove_text,omitempty"`

	Delete bool `yaml:"delete,omitempty"`
}

// File represents the structure of the plan file
type File struct {
	Operations []FileOperation `yaml:"operations"`
}

// Load reads and compiles a plan file
func Load(filePath string) ([]patch.Operation, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading plan file: %w", err)
	}
	return Parse(data)
}

// Parse compiles plan YAML into operations. Nothing is returned unless every
// entry is valid.
func Parse(data []byte) ([]patch.Operation, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing plan file: %w", err)
	}
	if len(file.Operations) == 0 {
		return nil, fmt.Errorf("plan has no operations")
	}

	ops := make([]patch.Operation, 0, len(file.Operations))
	for i, fo := range file.Operations {
		op, err := fo.compile()
		if err != nil {
			return nil, fmt.Errorf("operation %d (%s): %w", i+1, fo.Path, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (fo FileOperation) compile() (patch.Operation, error) {
	path, err := utils.CleanDocumentPath(fo.Path)
	if err != nil {
		return patch.Operation{}, err
	}

	var transforms []patch.Transform
	if fo.RemoveRecord != nil {
		if fo.RemoveRecord.Field == "" {
			return patch.Operation{}, fmt.Errorf("remove_record needs a field")
		}
		transforms = append(transforms, &patch.RecordRemoval{
			Field: fo.RemoveRecord.Field,
			Value: fo.RemoveRecord.Value,
		})
	}
	if fo.RemoveText != nil {
		t, err := patch.NewTextRemoval(fo.RemoveText.Patterns...)
		if err != nil {
			return patch.Operation{}, fmt.Errorf("remove_text: %w", err)
		}
		transforms = append(transforms, t)
	}
	if fo.Delete {
		transforms = append(transforms, patch.Deletion{})
	}
	if len(transforms) != 1 {
		return patch.Operation{}, fmt.Errorf("exactly one of remove_record, remove_text or delete must be set, got %d", len(transforms))
	}

	message := fo.Message
	if message == "" {
		message = fmt.Sprintf("Apply %s to %s", transforms[0].Kind(), path)
	}

	return patch.Operation{
		Path:      path,
		Transform: transforms[0],
		Message:   message,
	}, nil
}
