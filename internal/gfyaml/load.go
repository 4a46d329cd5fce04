// Package gfyaml implements GeneFlow's definition loading: unmarshaling
// workflow/app/job YAML documents directly into the engine's data model
// with goccy/go-yaml. There is no schema-validation layer: a malformed
// document surfaces as a plain unmarshal error, which the runtime
// treats as a fatal definition error.
package gfyaml

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/geneflow-org/geneflow/internal/model"
)

// workflowDocument mirrors a workflow.yaml file's top-level keys.
// gfVersion/class/git are accepted when parsing but are not copied
// into the returned model.Workflow.
type workflowDocument struct {
	GFVersion   string                    `yaml:"gfVersion"`
	Class       string                    `yaml:"class"`
	Name        string                    `yaml:"name"`
	Description string                    `yaml:"description"`
	Version     string                    `yaml:"version"`
	Git         string                    `yaml:"git"`
	Inputs      map[string]model.IOParam  `yaml:"inputs"`
	Parameters  map[string]model.IOParam  `yaml:"parameters"`
	Apps        map[string]model.AppRef   `yaml:"apps"`
	Steps       map[string]stepDocument   `yaml:"steps"`
	FinalOutput []string                  `yaml:"final_output"`
}

// stepDocument mirrors a workflow file's step entry, whose app reference
// is keyed "app" on disk while the engine's Step struct calls it
// app_name.
type stepDocument struct {
	App        string            `yaml:"app"`
	Depend     []string          `yaml:"depend"`
	Template   map[string]string `yaml:"template"`
	Map        *model.MapSpec    `yaml:"map"`
	Checkpoint model.Checkpoint  `yaml:"checkpoint"`
}

// LoadWorkflow reads and parses a workflow definition file.
func LoadWorkflow(path string) (*model.Workflow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gfyaml: read workflow %s: %w", path, err)
	}
	var doc workflowDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("gfyaml: parse workflow %s: %w", path, err)
	}
	// Step.Name isn't itself a YAML field (steps are keyed by name in
	// the mapping); fill it in from the map key.
	steps := make(map[string]model.Step, len(doc.Steps))
	for name, s := range doc.Steps {
		steps[name] = model.Step{
			Name:       name,
			AppName:    s.App,
			Depend:     s.Depend,
			Template:   s.Template,
			Map:        s.Map,
			Checkpoint: s.Checkpoint,
		}
	}
	return &model.Workflow{
		Name:        doc.Name,
		Version:     doc.Version,
		Description: doc.Description,
		Inputs:      doc.Inputs,
		Parameters:  doc.Parameters,
		Steps:       steps,
		FinalOutput: doc.FinalOutput,
		Apps:        doc.Apps,
	}, nil
}

// appDocument mirrors an app.yaml file's top-level keys.
type appDocument struct {
	Class          string                               `yaml:"class"`
	Name           string                               `yaml:"name"`
	Version        string                               `yaml:"version"`
	Description    string                               `yaml:"description"`
	Inputs         map[string]model.IOParam              `yaml:"inputs"`
	Parameters     map[string]model.IOParam              `yaml:"parameters"`
	Implementation map[string]appImplDocument            `yaml:"implementation"`
	PreExec        []string                              `yaml:"pre_exec"`
	PostExec       []string                              `yaml:"post_exec"`
}

// appImplDocument mirrors one backend entry under an app file's
// implementation key: local holds a script, agave an app id.
type appImplDocument struct {
	Script     string `yaml:"script"`
	AgaveAppID string `yaml:"agave_app_id"`
}

// LoadApp reads and parses an app definition file.
func LoadApp(path string) (*model.App, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gfyaml: read app %s: %w", path, err)
	}
	var doc appDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("gfyaml: parse app %s: %w", path, err)
	}
	impl := make(map[string]model.AppImplementation, len(doc.Implementation))
	for backend, d := range doc.Implementation {
		var entry model.AppImplementation
		if d.Script != "" {
			entry.Local = &model.AppImplLocal{Script: d.Script}
		}
		if d.AgaveAppID != "" {
			entry.Agave = &model.AppImplAgave{AgaveAppID: d.AgaveAppID}
		}
		impl[backend] = entry
	}
	return &model.App{
		Name:           doc.Name,
		Version:        doc.Version,
		Description:    doc.Description,
		Inputs:         doc.Inputs,
		Parameters:     doc.Parameters,
		Implementation: impl,
		PreExec:        doc.PreExec,
		PostExec:       doc.PostExec,
	}, nil
}

// LoadJob reads and parses a job definition file.
func LoadJob(path string) (*model.Job, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gfyaml: read job %s: %w", path, err)
	}
	var job model.Job
	if err := yaml.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("gfyaml: parse job %s: %w", path, err)
	}
	return &job, nil
}
