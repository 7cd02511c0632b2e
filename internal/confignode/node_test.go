package confignode

import (
	"errors"
	"testing"
)

const sample = `
SCALETYPE:
  - name: stack
    freeScale: false
    scaleFactors: [0.625, 1.25, 2.5]
    ATTACHNODES:
      top: "stack:1.25"
      bottom: "2.5"
  - name: surface
    scaleNames: " small , large "
`

func TestParseSequenceOfMappings(t *testing.T) {
	root, err := Parse("file", []byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	recs := root.GetNodes("SCALETYPE")
	if len(recs) != 2 {
		t.Fatalf("want 2 records, got %d", len(recs))
	}
	if v, _ := recs[0].GetValue("scaleFactors"); v != "0.625, 1.25, 2.5" {
		t.Fatalf("scaleFactors joined wrong: %q", v)
	}
	an := recs[0].GetNode("ATTACHNODES")
	if an == nil || len(an.Values) != 2 || an.Values[0].Name != "top" || an.Values[0].Value != "stack:1.25" {
		t.Fatalf("attach nodes not decoded in order: %+v", an)
	}
	names, ok := recs[1].StringList("scaleNames")
	if !ok || len(names) != 2 || names[0] != " small " {
		t.Fatalf("scaleNames split wrong: %q", names)
	}
}

func TestTypedReaders(t *testing.T) {
	n := (&Node{}).AddValue("f", "1.5").AddValue("bad", "x1").AddValue("b", "true").AddValue("ints", "1, 2")

	if f, ok, err := n.Float("f"); !ok || err != nil || f != 1.5 {
		t.Fatalf("Float: %v %v %v", f, ok, err)
	}
	if _, ok, err := n.Float("bad"); !ok || err == nil {
		t.Fatalf("malformed float must report error")
	}
	if _, ok, _ := n.Float("missing"); ok {
		t.Fatalf("missing key must report ok=false")
	}
	if b, ok, err := n.Bool("b"); !ok || err != nil || !b {
		t.Fatalf("Bool: %v %v %v", b, ok, err)
	}
	if v, ok, err := n.IntList("ints"); !ok || err != nil || len(v) != 2 || v[1] != 2 {
		t.Fatalf("IntList: %v %v %v", v, ok, err)
	}
	if l := SplitList("  "); len(l) != 0 {
		t.Fatalf("blank list must be empty, got %q", l)
	}
}

func TestParseRejectsScalarDocument(t *testing.T) {
	_, err := Parse("file", []byte("just a string"))
	if !errors.Is(err, ErrNotMapping) {
		t.Fatalf("want ErrNotMapping, got %v", err)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	root, err := Parse("file", nil)
	if err != nil || root == nil || len(root.Nodes) != 0 {
		t.Fatalf("empty doc: %+v %v", root, err)
	}
}

func TestSequenceItemsKeepCommas(t *testing.T) {
	root, err := Parse("file", []byte(`
scaleNames: ["Small, narrow", "Big"]
empty: []
`))
	if err != nil {
		t.Fatal(err)
	}
	names, ok := root.StringList("scaleNames")
	if !ok || len(names) != 2 || names[0] != "Small, narrow" || names[1] != "Big" {
		t.Fatalf("scaleNames=%q", names)
	}
	names[0] = "changed"
	if again, _ := root.StringList("scaleNames"); again[0] != "Small, narrow" {
		t.Fatal("StringList must return a copy")
	}
	if l, ok := root.StringList("empty"); !ok || len(l) != 0 {
		t.Fatalf("empty=%q ok=%v", l, ok)
	}
}
