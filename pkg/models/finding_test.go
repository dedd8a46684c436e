package models

import "testing"

func TestParseFindingID(t *testing.T) {
	cases := []struct {
		id       string
		wantCat  FindingCategory
		wantSeq  int
		wantOK   bool
	}{
		{"AG-01", FindingMinorDeviation, 1, true},
		{"AS-12", FindingMajorDeviation, 12, true},
		{"E-07", FindingRecommendation, 7, true},
		{"bogus", "", 0, false},
	}
	for _, c := range cases {
		cat, seq, ok := ParseFindingID(c.id)
		if ok != c.wantOK || cat != c.wantCat || seq != c.wantSeq {
			t.Errorf("ParseFindingID(%q) = %v, %v, %v; want %v, %v, %v",
				c.id, cat, seq, ok, c.wantCat, c.wantSeq, c.wantOK)
		}
	}
}

func TestFormatFindingID(t *testing.T) {
	if got := FormatFindingID(FindingMinorDeviation, 3); got != "AG-03" {
		t.Errorf("FormatFindingID = %q, want AG-03", got)
	}
}

func TestDuplicateKeyNormalizesWhitespaceAndCase(t *testing.T) {
	a := Finding{Category: FindingMinorDeviation, Description: "  Missing   Backup Policy "}
	b := Finding{Category: FindingMinorDeviation, Description: "missing backup policy"}
	if a.DuplicateKey() != b.DuplicateKey() {
		t.Errorf("expected equal duplicate keys, got %q vs %q", a.DuplicateKey(), b.DuplicateKey())
	}
}

func TestMoreSevere(t *testing.T) {
	if !MoreSevere(StatusNein, StatusTeilweise) {
		t.Error("Nein should be more severe than Teilweise")
	}
	if !MoreSevere(StatusTeilweise, StatusJa) {
		t.Error("Teilweise should be more severe than Ja")
	}
	if !MoreSevere(StatusJa, StatusEntbehrlich) {
		t.Error("Ja should be more severe than Entbehrlich")
	}
	if MoreSevere(StatusEntbehrlich, StatusNein) {
		t.Error("Entbehrlich should not be more severe than Nein")
	}
}

func TestHasInformationsverbundPrefix(t *testing.T) {
	for _, id := range []string{"ISMS.1", "ORP.2", "CON.1", "OPS.1.1", "DER.2.1"} {
		if !HasInformationsverbundPrefix(id) {
			t.Errorf("%s should map to Informationsverbund", id)
		}
	}
	for _, id := range []string{"SYS.1.1", "APP.1.1", "NET.1.1"} {
		if HasInformationsverbundPrefix(id) {
			t.Errorf("%s should not map to Informationsverbund", id)
		}
	}
}
