package scenario

import "testing"

func TestCatalog(t *testing.T) {
	all := All()
	if len(all) != 6 {
		t.Fatalf("got %d scenarios, want 6", len(all))
	}
	if all[0].ID != "sc1" || all[5].Title != "Asking for Help" {
		t.Fatalf("unexpected order: %+v", all)
	}
	counts := map[Difficulty]int{}
	for _, s := range all {
		counts[s.Difficulty]++
	}
	if counts[Easy] != 2 || counts[Medium] != 3 || counts[Hard] != 1 {
		t.Fatalf("difficulty counts = %v", counts)
	}
	if got := ByDifficulty(Hard); len(got) != 1 || got[0].ID != "sc5" {
		t.Fatalf("hard = %+v", got)
	}
}

func TestFind(t *testing.T) {
	if s, ok := Find("sc3"); !ok || s.Title != "Job Interview" {
		t.Fatalf("Find(sc3) = %+v, %v", s, ok)
	}
	if s, ok := Find("job interview"); !ok || s.ID != "sc3" {
		t.Fatalf("Find by title = %+v, %v", s, ok)
	}
	if _, ok := Find("sc9"); ok {
		t.Fatal("found unknown scenario")
	}
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"duplicate":  "- {id: a, title: A, difficulty: easy}\n- {id: a, title: B, difficulty: hard}\n",
		"difficulty": "- {id: a, title: A, difficulty: extreme}\n",
		"no title":   "- {id: a, difficulty: easy}\n",
		"bad yaml":   "- id: [",
	}
	for name, in := range cases {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
