package ci

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// GitHub Actions workflow file, limited to the keys written here.
type workflowFile struct {
	Name        string            `yaml:"name"`
	On          trigger           `yaml:"on"`
	Permissions map[string]string `yaml:"permissions"`
	Concurrency concurrency       `yaml:"concurrency"`
	Jobs        map[string]job    `yaml:"jobs"`
}

type trigger struct {
	Push push `yaml:"push"`
}

type push struct {
	Branches []string `yaml:"branches"`
}

type concurrency struct {
	Group            string `yaml:"group"`
	CancelInProgress bool   `yaml:"cancel-in-progress"`
}

type job struct {
	RunsOn string `yaml:"runs-on"`
	Steps  []step `yaml:"steps"`
}

type step struct {
	Name string            `yaml:"name"`
	Uses string            `yaml:"uses,omitempty"`
	With map[string]string `yaml:"with,omitempty"`
	Run  string            `yaml:"run,omitempty"`
	Env  map[string]string `yaml:"env,omitempty"`
}

func deployWorkflow(branch string) workflowFile {
	return workflowFile{
		Name: "Deploy",
		On:   trigger{Push: push{Branches: []string{branch}}},
		Permissions: map[string]string{
			"contents": "write",
		},
		Concurrency: concurrency{Group: "deploy"},
		Jobs: map[string]job{
			"deploy": {
				RunsOn: "ubuntu-latest",
				Steps: []step{
					{Name: "Checkout", Uses: "actions/checkout@v4"},
					{
						Name: "Set up Go",
						Uses: "actions/setup-go@v5",
						With: map[string]string{"go-version-file": "go.mod"},
					},
					{
						Name: "Build and publish",
						Run:  "go run . deploy --yes",
						Env:  map[string]string{"GITHUB_TOKEN": "${{ secrets.GITHUB_TOKEN }}"},
					},
				},
			},
		},
	}
}

func renderWorkflow(branch string) ([]byte, error) {
	data, err := yaml.Marshal(deployWorkflow(branch))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow: %w", err)
	}
	return append([]byte("# Generated by bigcalc ci init\n"), data...), nil
}
