package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bankcrew/pkg/errors"
)

// AgentSpec is one entry of the agent document: role, goal, and backstory
// prompt templates bound to a named agent.
type AgentSpec struct {
	Name      string `yaml:"-"`
	Role      string `yaml:"role"`
	Goal      string `yaml:"goal"`
	Backstory string `yaml:"backstory"`
}

// TaskSpec is one entry of the task document: prompt templates and the agent
// the task is assigned to. OutputFile, when set, receives the task result.
type TaskSpec struct {
	Name           string `yaml:"-"`
	Description    string `yaml:"description"`
	ExpectedOutput string `yaml:"expected_output"`
	Agent          string `yaml:"agent"`
	OutputFile     string `yaml:"output_file"`
}

// LoadAgentSpecs parses the agent document, preserving declaration order.
func LoadAgentSpecs(path string) ([]AgentSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeConfig, "reading agent document", err).
			WithContext("path", path)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.New(errors.CodeConfig, "parsing agent document", err).
			WithContext("path", path)
	}
	mapping, err := documentMapping(&root, path)
	if err != nil {
		return nil, err
	}

	specs := make([]AgentSpec, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		name := mapping.Content[i].Value
		var spec AgentSpec
		if err := mapping.Content[i+1].Decode(&spec); err != nil {
			return nil, errors.New(errors.CodeConfig, fmt.Sprintf("decoding agent %q", name), err)
		}
		spec.Name = name
		specs = append(specs, spec)
	}
	return specs, nil
}

// LoadTaskSpecs parses the task document, preserving declaration order.
// Declaration order is execution order for a sequential crew.
func LoadTaskSpecs(path string) ([]TaskSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeConfig, "reading task document", err).
			WithContext("path", path)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.New(errors.CodeConfig, "parsing task document", err).
			WithContext("path", path)
	}
	mapping, err := documentMapping(&root, path)
	if err != nil {
		return nil, err
	}

	specs := make([]TaskSpec, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		name := mapping.Content[i].Value
		var spec TaskSpec
		if err := mapping.Content[i+1].Decode(&spec); err != nil {
			return nil, errors.New(errors.CodeConfig, fmt.Sprintf("decoding task %q", name), err)
		}
		spec.Name = name
		specs = append(specs, spec)
	}
	return specs, nil
}

// ValidateSpecs enforces the structural properties of the bundle: every task
// has a non-empty description and expected output, and names an agent that
// exists in the agent document.
func ValidateSpecs(tasks []TaskSpec, agents []AgentSpec) error {
	known := make(map[string]bool, len(agents))
	for _, a := range agents {
		if a.Role == "" {
			return errors.New(errors.CodeConfig,
				fmt.Sprintf("agent %q has an empty role", a.Name), nil)
		}
		known[a.Name] = true
	}
	if len(tasks) == 0 {
		return errors.New(errors.CodeConfig, "task document defines no tasks", nil)
	}
	for _, task := range tasks {
		switch {
		case task.Description == "":
			return errors.New(errors.CodeConfig,
				fmt.Sprintf("task %q has an empty description", task.Name), nil)
		case task.ExpectedOutput == "":
			return errors.New(errors.CodeConfig,
				fmt.Sprintf("task %q has an empty expected_output", task.Name), nil)
		case task.Agent == "":
			return errors.New(errors.CodeConfig,
				fmt.Sprintf("task %q names no agent", task.Name), nil)
		case !known[task.Agent]:
			return errors.New(errors.CodeConfig,
				fmt.Sprintf("task %q names unknown agent %q", task.Name, task.Agent), nil)
		}
	}
	return nil
}

// AgentByName returns the agent spec with the given name.
func AgentByName(agents []AgentSpec, name string) (AgentSpec, bool) {
	for _, a := range agents {
		if a.Name == name {
			return a, true
		}
	}
	return AgentSpec{}, false
}

func documentMapping(root *yaml.Node, path string) (*yaml.Node, error) {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errors.New(errors.CodeConfig, "empty document", nil).
			WithContext("path", path)
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, errors.New(errors.CodeConfig, "document root must be a mapping", nil).
			WithContext("path", path)
	}
	return mapping, nil
}
