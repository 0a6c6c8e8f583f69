package graph_test

import (
	"strings"
	"testing"

	"github.com/ashwinibhardwaj/sqlassist/internal/presentation/graph"
	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

var pipeline = []domain.Transition{
	{From: domain.StepCreateDatabase, On: domain.OutcomeProceed, To: domain.StepGenerateSQL},
	{From: domain.StepGenerateSQL, On: domain.OutcomeProceed, To: domain.StepExecuteSQL},
	{From: domain.StepExecuteSQL, On: domain.OutcomeRetry, To: domain.StepFixSQL},
	{From: domain.StepFixSQL, On: domain.OutcomeProceed, To: domain.StepExecuteSQL},
	{From: domain.StepFixSQL, On: domain.OutcomeFail, To: domain.StepFailed},
	{From: domain.StepExecuteSQL, On: domain.OutcomeProceed, To: domain.StepReason},
	{From: domain.StepReason, On: domain.OutcomeProceed, To: domain.StepDone},
}

func TestGenerateMermaid(t *testing.T) {
	got := graph.GenerateMermaid(pipeline, nil)

	for _, want := range []string{
		"graph TD\n",
		`create_database(("create_database"))`,
		`fix_sql[["fix_sql"]]`,
		`done(["done"])`,
		`failed(["failed"])`,
		`reason["reason"]`,
		"create_database --> generate_sql",
		"execute_sql -. retry .-> fix_sql",
		"fix_sql -. fail .-> failed",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected output to contain %q\ngot:\n%s", want, got)
		}
	}

	if n := strings.Count(got, `execute_sql["execute_sql"]`); n != 1 {
		t.Errorf("expected execute_sql to be declared once, got %d", n)
	}
	if strings.Contains(got, "classDef") {
		t.Error("no overlay styles expected without an overlay")
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	state := domain.WorkflowState{
		Status: domain.StatusDone,
		History: []domain.Step{
			domain.StepCreateDatabase, domain.StepGenerateSQL, domain.StepExecuteSQL,
			domain.StepFixSQL, domain.StepExecuteSQL, domain.StepReason,
		},
	}
	got := graph.GenerateMermaid(pipeline, graph.OverlayFromState(state))

	if n := strings.Count(got, "class execute_sql visited;"); n != 1 {
		t.Errorf("visited steps should be styled once, got %d", n)
	}
	if !strings.Contains(got, "class done current;") {
		t.Errorf("expected done to be current:\n%s", got)
	}
}

func TestOverlayFromState(t *testing.T) {
	failed := graph.OverlayFromState(domain.WorkflowState{Status: domain.StatusFailed, History: []domain.Step{domain.StepFixSQL}})
	if failed.Current != domain.StepFailed || !failed.Failed {
		t.Errorf("unexpected overlay for failed session: %+v", failed)
	}

	active := graph.OverlayFromState(domain.WorkflowState{Status: domain.StatusActive, History: []domain.Step{domain.StepCreateDatabase, domain.StepGenerateSQL}})
	if active.Current != domain.StepGenerateSQL {
		t.Errorf("expected last visited step to be current, got %q", active.Current)
	}

	got := graph.GenerateMermaid(pipeline, failed)
	if !strings.Contains(got, "class failed failed;") {
		t.Errorf("expected failed sink styling:\n%s", got)
	}
}
