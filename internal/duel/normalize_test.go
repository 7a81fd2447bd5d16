package duel

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "É MITO!", want: "e mito"},
		{in: "e mito", want: "e mito"},
		{in: "  É   Mito  ", want: "e mito"},
		{in: "coleta-seletiva", want: "coleta seletiva"},
		{in: "Água", want: "agua"},
		{in: "SOLAR!!!", want: "solar"},
		{in: "", want: ""},
		{in: "!!!", want: ""},
		{in: "3 R's", want: "3 r s"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeVariantsCompareEqual(t *testing.T) {
	variants := []string{"É MITO!", "e mito", "  É   Mito  "}
	first := Normalize(variants[0])
	for _, v := range variants[1:] {
		if Normalize(v) != first {
			t.Fatalf("%q normalized to %q, want %q", v, Normalize(v), first)
		}
	}
}
