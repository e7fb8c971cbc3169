package types

import "testing"

func TestMod97_10LEI(t *testing.T) {
	// Known-good LEI.
	const valid = "529900T8BM49AURSDO55"
	if !Mod97_10(valid) {
		t.Fatalf("LEI %q should pass MOD 97-10", valid)
	}

	// Any single-character change must break the check digits.
	for i := 0; i < len(valid); i++ {
		mutated := []byte(valid)
		if mutated[i] == '0' {
			mutated[i] = '1'
		} else {
			mutated[i] = '0'
		}
		if Mod97_10(string(mutated)) {
			t.Errorf("mutation at position %d (%s) should fail MOD 97-10", i, mutated)
		}
	}

	if Mod97_10("SHORT") {
		t.Error("wrong-length input should fail")
	}
	if Mod97_10("529900T8BM49AURSDO5!") {
		t.Error("non-alphanumeric input should fail")
	}
}

func TestGS1Mod10(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"4006381333931", true},  // valid EAN-13 style number
		{"4006381333932", false}, // off-by-one check digit
		{"0000000000000", true},  // all zeros: sum 0, check digit 0
		{"123456789012X", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := GS1Mod10(tt.value); got != tt.want {
			t.Errorf("GS1Mod10(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestIsDigits(t *testing.T) {
	if !IsDigits("123456789") {
		t.Error("digits should pass")
	}
	if IsDigits("12345678a") || IsDigits("") {
		t.Error("non-digits should fail")
	}
}
