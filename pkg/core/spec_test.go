package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testAgentsDoc = `
financial_advisor:
  role: >
    Senior Financial Advisor for {topic}
  goal: >
    Provide accurate advice about {topic}
  backstory: >
    You are a seasoned advisor with access to a banking knowledge base.

customer_service:
  role: >
    Customer Service Representative
  goal: >
    Resolve customer questions about {topic}
  backstory: >
    You handle front-line banking questions.

banking_analyst:
  role: >
    Banking Analyst
  goal: >
    Produce clear analyses of {topic}
  backstory: >
    You turn findings into structured reports.
`

const testTasksDoc = `
financial_advisory_task:
  description: >
    Give advice about {topic} considering it is {current_year}.
  expected_output: >
    Actionable advice grounded in the knowledge base.
  agent: financial_advisor

customer_service_task:
  description: >
    Answer a customer question about {topic}.
  expected_output: >
    A clear, friendly answer.
  agent: customer_service

analysis_task:
  description: >
    Analyze the advisory findings about {topic}.
  expected_output: >
    A markdown report.
  agent: banking_analyst
  output_file: banking_report.md
`

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadTaskSpecsPreservesOrder(t *testing.T) {
	path := writeDoc(t, "tasks.yaml", testTasksDoc)
	tasks, err := LoadTaskSpecs(path)
	if err != nil {
		t.Fatalf("LoadTaskSpecs failed: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	wantOrder := []string{"financial_advisory_task", "customer_service_task", "analysis_task"}
	for i, want := range wantOrder {
		if tasks[i].Name != want {
			t.Errorf("task %d: expected %s, got %s", i, want, tasks[i].Name)
		}
	}
	if tasks[2].OutputFile != "banking_report.md" {
		t.Errorf("expected output_file on analysis_task, got %q", tasks[2].OutputFile)
	}
	if tasks[0].Agent != "financial_advisor" {
		t.Errorf("expected agent binding, got %q", tasks[0].Agent)
	}
}

func TestLoadAgentSpecs(t *testing.T) {
	path := writeDoc(t, "agents.yaml", testAgentsDoc)
	agents, err := LoadAgentSpecs(path)
	if err != nil {
		t.Fatalf("LoadAgentSpecs failed: %v", err)
	}
	if len(agents) != 3 {
		t.Fatalf("expected 3 agents, got %d", len(agents))
	}
	advisor, ok := AgentByName(agents, "financial_advisor")
	if !ok {
		t.Fatal("expected financial_advisor to be present")
	}
	if !strings.Contains(advisor.Role, "Senior Financial Advisor") {
		t.Errorf("unexpected role %q", advisor.Role)
	}
}

func TestValidateSpecs(t *testing.T) {
	agentsPath := writeDoc(t, "agents.yaml", testAgentsDoc)
	tasksPath := writeDoc(t, "tasks.yaml", testTasksDoc)
	agents, err := LoadAgentSpecs(agentsPath)
	if err != nil {
		t.Fatalf("LoadAgentSpecs failed: %v", err)
	}
	tasks, err := LoadTaskSpecs(tasksPath)
	if err != nil {
		t.Fatalf("LoadTaskSpecs failed: %v", err)
	}
	if err := ValidateSpecs(tasks, agents); err != nil {
		t.Fatalf("expected valid specs, got %v", err)
	}
}

func TestValidateSpecsRejectsUnknownAgent(t *testing.T) {
	agents := []AgentSpec{{Name: "financial_advisor", Role: "Advisor"}}
	tasks := []TaskSpec{{
		Name:           "stray_task",
		Description:    "desc",
		ExpectedOutput: "out",
		Agent:          "loan_officer",
	}}
	err := ValidateSpecs(tasks, agents)
	if err == nil {
		t.Fatal("expected error for unknown agent")
	}
	if !strings.Contains(err.Error(), "loan_officer") {
		t.Errorf("expected error to name the agent, got %v", err)
	}
}

func TestValidateSpecsRejectsEmptyFields(t *testing.T) {
	agents := []AgentSpec{{Name: "financial_advisor", Role: "Advisor"}}
	cases := []TaskSpec{
		{Name: "t", ExpectedOutput: "out", Agent: "financial_advisor"},
		{Name: "t", Description: "desc", Agent: "financial_advisor"},
		{Name: "t", Description: "desc", ExpectedOutput: "out"},
	}
	for i, task := range cases {
		if err := ValidateSpecs([]TaskSpec{task}, agents); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
