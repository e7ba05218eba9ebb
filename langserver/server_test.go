package langserver

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestCheckCleanGrammar(t *testing.T) {
	diagnostics := Check(`greeting: "hi".`)
	if diagnostics == nil {
		t.Fatalf("expected non-nil diagnostics slice")
	}
	if len(diagnostics) != 0 {
		t.Errorf("expected no diagnostics, got %v", diagnostics)
	}
}

func TestCheckSyntaxError(t *testing.T) {
	diagnostics := Check(`greeting: "hi"`)
	if len(diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diagnostics))
	}
	d := diagnostics[0]
	if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("expected error severity, got %v", d.Severity)
	}
	if d.Source == nil || *d.Source != "ixml" {
		t.Errorf("expected source %q, got %v", "ixml", d.Source)
	}
}

func TestCheckAmbiguity(t *testing.T) {
	diagnostics := Check("a: \"x\" | \"x\".")
	if len(diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diagnostics))
	}
	d := diagnostics[0]
	if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityWarning {
		t.Errorf("expected warning severity, got %v", d.Severity)
	}
	if !strings.Contains(d.Message, "ambiguous") {
		t.Errorf("unexpected message %q", d.Message)
	}
	if d.Range.Start.Line != 0 || d.Range.Start.Character != 0 {
		t.Errorf("expected range at rule declaration, got %v", d.Range)
	}
	if d.Range.End.Character != 1 {
		t.Errorf("expected range to span the rule name, got %v", d.Range)
	}
}

func TestCheckLeftRecursion(t *testing.T) {
	diagnostics := Check("expr: expr, \"+\", \"a\" | \"a\".")
	if len(diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diagnostics))
	}
	d := diagnostics[0]
	if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityInformation {
		t.Errorf("expected information severity, got %v", d.Severity)
	}
	if !strings.Contains(d.Message, "left-recursive") {
		t.Errorf("unexpected message %q", d.Message)
	}
}

func TestRuleRangeSecondLine(t *testing.T) {
	text := "doc: item*.\nitem: item, \"x\" | \"x\".\n"
	diagnostics := Check(text)
	if len(diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diagnostics))
	}
	r := diagnostics[0].Range
	if r.Start.Line != 1 {
		t.Errorf("expected line 1, got %d", r.Start.Line)
	}
	if r.Start.Character != 0 || r.End.Character != 4 {
		t.Errorf("expected range over rule name, got %v", r)
	}
}

func TestErrorRangeFromMessage(t *testing.T) {
	diagnostics := Check("a: @.")
	if len(diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diagnostics))
	}
	r := diagnostics[0].Range
	if r.Start.Line != 0 {
		t.Errorf("expected line 0, got %d", r.Start.Line)
	}
}
