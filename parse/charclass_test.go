package parse

import "testing"

func compile(t *testing.T, spec string, negated bool) *RangeSet {
	t.Helper()
	set, err := compileClass(spec, negated)
	if err != nil {
		t.Fatalf("compileClass(%q): %v", spec, err)
	}
	return set
}

func TestClassQuotedRange(t *testing.T) {
	set := compile(t, `"a"-"z"`, false)

	for ch := 'a'; ch <= 'z'; ch++ {
		if !set.Contains(ch) {
			t.Errorf("expected %q in set", ch)
		}
	}
	for _, ch := range "AZ09 " {
		if set.Contains(ch) {
			t.Errorf("did not expect %q in set", ch)
		}
	}
}

func TestClassHex(t *testing.T) {
	set := compile(t, `#30-#39; #41`, false)

	for ch := '0'; ch <= '9'; ch++ {
		if !set.Contains(ch) {
			t.Errorf("expected %q in set", ch)
		}
	}
	if !set.Contains('A') {
		t.Error("expected 'A' in set")
	}
	if set.Contains('B') {
		t.Error("did not expect 'B' in set")
	}
}

func TestClassMixedRange(t *testing.T) {
	// Hex start, quoted end.
	set := compile(t, `#61-"f"`, false)
	if !set.Contains('a') || !set.Contains('f') || set.Contains('g') {
		t.Errorf("mixed-endpoint range misbehaves: a=%v f=%v g=%v",
			set.Contains('a'), set.Contains('f'), set.Contains('g'))
	}
}

func TestClassQuotedCharacters(t *testing.T) {
	// A bare quoted string contributes each of its characters.
	set := compile(t, `"+-*"`, false)
	for _, ch := range "+-*" {
		if !set.Contains(ch) {
			t.Errorf("expected %q in set", ch)
		}
	}
	if set.Contains('/') {
		t.Error("did not expect '/' in set")
	}
}

func TestClassUnion(t *testing.T) {
	for _, spec := range []string{`"0"-"9"; "a"`, `"0"-"9", "a"`, `"0"-"9" | "a"`} {
		set := compile(t, spec, false)
		if !set.Contains('5') || !set.Contains('a') || set.Contains('b') {
			t.Errorf("spec %q: 5=%v a=%v b=%v", spec,
				set.Contains('5'), set.Contains('a'), set.Contains('b'))
		}
	}
}

func TestClassUnicodeCategories(t *testing.T) {
	tests := []struct {
		spec    string
		in, out []rune
	}{
		{"Lu", []rune{'A', 'Ä', 'Ω'}, []rune{'a', '0'}},
		{"Nd", []rune{'0', '9', '٣'}, []rune{'x', ' '}},
		{"L", []rune{'a', 'A', 'ß', '中'}, []rune{'0', '!'}},
		{"LC", []rune{'a', 'A', 'ǅ'}, []rune{'中', '0'}},
		{"Zs", []rune{' ', ' '}, []rune{'\n', 'a'}},
	}
	for _, tt := range tests {
		set := compile(t, tt.spec, false)
		for _, ch := range tt.in {
			if !set.Contains(ch) {
				t.Errorf("[%s] should contain %q", tt.spec, ch)
			}
		}
		for _, ch := range tt.out {
			if set.Contains(ch) {
				t.Errorf("[%s] should not contain %q", tt.spec, ch)
			}
		}
	}
}

func TestClassCategoryMixedWithLiterals(t *testing.T) {
	set := compile(t, `Nd; "_"; "a"-"f"`, false)
	for _, ch := range "07_af" {
		if !set.Contains(ch) {
			t.Errorf("expected %q in set", ch)
		}
	}
	if set.Contains('g') {
		t.Error("did not expect 'g' in set")
	}
}

func TestClassNegation(t *testing.T) {
	set := compile(t, `"0"-"9"`, true)
	if set.Contains('5') {
		t.Error("negated set should exclude '5'")
	}
	if !set.Contains('x') {
		t.Error("negated set should include 'x'")
	}
}

func TestClassErrors(t *testing.T) {
	tests := []string{
		"Xx",       // unknown category
		`"z"-"a"`,  // inverted range
		`#ZZ`,      // bad hex
	}
	for _, spec := range tests {
		if _, err := compileClass(spec, false); err == nil {
			t.Errorf("expected error for spec %q", spec)
		}
	}
}

func TestClassMerging(t *testing.T) {
	set := compile(t, `"a"-"m"; "k"-"z"; "c"`, false)
	if len(set.ranges) != 1 {
		t.Fatalf("overlapping ranges not merged: %v", set.ranges)
	}
	if set.ranges[0].lo != 'a' || set.ranges[0].hi != 'z' {
		t.Errorf("merged range = %q-%q, want a-z", set.ranges[0].lo, set.ranges[0].hi)
	}
}
