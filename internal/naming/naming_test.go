package naming

import (
	"strconv"
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Alice", "alice"},
		{"van der Berg", "van-der-berg"},
		{"José Núñez", "jose-nunez"},
		{"Åse Ødegård", "ase-odegard"},
		{"  spaced   out  ", "spaced-out"},
		{"O'Brien", "o-brien"},
		{"", ""},
		{"!!!", ""},
		{"Groß", "gross"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		input   string
		given   string
		surname string
	}{
		{"Alice Johnson", "Alice", "Johnson"},
		{"Johnson, Alice", "Alice", "Johnson"},
		{"Piet de Jong", "Piet", "de Jong"},
		{"Anna van der Berg", "Anna", "van der Berg"},
		{"von Neumann, John", "John", "von Neumann"},
		{"Cher", "", "Cher"},
		{"", "", ""},
		{"Mary Jane Watson", "Mary Jane", "Watson"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseName(tt.input)
			if got.Given != tt.given || got.Surname != tt.surname {
				t.Errorf("ParseName(%q) = {%q, %q}, want {%q, %q}",
					tt.input, got.Given, got.Surname, tt.given, tt.surname)
			}
		})
	}
}

func TestGenerateGroupName(t *testing.T) {
	mk := func(names ...string) []MemberName {
		out := make([]MemberName, len(names))
		for i, n := range names {
			out[i] = MemberName{ID: "id-" + n, Name: n}
		}
		return out
	}

	tests := []struct {
		name    string
		members []MemberName
		want    string
	}{
		{"empty", nil, "empty-group"},
		{"single", mk("Alice Johnson"), "alice_johnson"},
		{"single particle", mk("Piet de Jong"), "piet_de-jong"},
		{"single sortable", []MemberName{{ID: "x", Name: "Johnson, Alice"}}, "alice_johnson"},
		{"mononym", mk("Cher"), "cher"},
		{"pair", mk("Alice Johnson", "Bob Smith"), "johnson-smith"},
		{"five", mk("A One", "B Two", "C Three", "D Four", "E Five"), "one-two-three-four-five"},
		{"six", mk("A One", "B Two", "C Three", "D Four", "E Five", "F Six"), "one-two-three-four-five-+1"},
		{"eight", mk("A One", "B Two", "C Three", "D Four", "E Five", "F Six", "G Seven", "H Eight"), "one-two-three-four-five-+3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateGroupName(tt.members); got != tt.want {
				t.Errorf("GenerateGroupName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateGroupNameFiveSurnames(t *testing.T) {
	members := []MemberName{
		{ID: "1", Name: "A Alpha"}, {ID: "2", Name: "B Beta"},
		{ID: "3", Name: "C Gamma"}, {ID: "4", Name: "D Delta"},
		{ID: "5", Name: "E Epsilon"},
	}
	got := GenerateGroupName(members)
	if parts := strings.Split(got, "-"); len(parts) != 5 {
		t.Errorf("expected exactly 5 surname slugs, got %q", got)
	}
}

func TestGenerateGroupNameEmptyParse(t *testing.T) {
	got := GenerateGroupName([]MemberName{{ID: "abcd", Name: "???"}})
	if len(got) != 4 {
		t.Errorf("expected 4-hex fallback, got %q", got)
	}
}

func TestResolveCollision(t *testing.T) {
	t.Run("no collision", func(t *testing.T) {
		got := ResolveCollision("alice_johnson", "gid", false, map[string]bool{})
		if got != "alice_johnson" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("single member hex suffix", func(t *testing.T) {
		taken := map[string]bool{"alice_johnson": true}
		got := ResolveCollision("alice_johnson", "gid-1", false, taken)
		if !strings.HasPrefix(got, "alice_johnson_") || len(got) != len("alice_johnson_")+4 {
			t.Errorf("got %q, want hex4 suffix", got)
		}
	})

	t.Run("multi member counts up", func(t *testing.T) {
		taken := map[string]bool{"johnson-smith": true, "johnson-smith-2": true}
		got := ResolveCollision("johnson-smith", "gid", true, taken)
		if got != "johnson-smith-3" {
			t.Errorf("got %q, want johnson-smith-3", got)
		}
	})

	t.Run("cap falls back to random", func(t *testing.T) {
		taken := map[string]bool{"g": true}
		for n := 2; n <= 1000; n++ {
			taken["g-"+strconv.Itoa(n)] = true
		}
		got := ResolveCollision("g", "gid", true, taken)
		if taken[got] {
			t.Errorf("random fallback collided: %q", got)
		}
		if !strings.HasPrefix(got, "g-") || len(got) != len("g-")+8 {
			t.Errorf("got %q, want 8-char random suffix", got)
		}
	})
}
