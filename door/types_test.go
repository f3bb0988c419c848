package door

import "testing"

func TestParseRoundTrip(t *testing.T) {
	for s := StateClosed; s <= StateClosing; s++ {
		if got, err := ParseState(s.String()); err != nil || got != s {
			t.Fatalf("ParseState(%q) = %v, %v", s.String(), got, err)
		}
	}
	if d, err := ParseDirection("inward"); err != nil || d != DirectionInward {
		t.Fatalf("ParseDirection(inward) = %v, %v", d, err)
	}
	for a := AccessBidirectional; a <= AccessBehind; a++ {
		if got, err := ParseAccess(a.String()); err != nil || got != a {
			t.Fatalf("ParseAccess(%q) = %v, %v", a.String(), got, err)
		}
	}
	for o := OpenBidirectional; o <= OpenLocked; o++ {
		if got, err := ParseOpenDirection(o.String()); err != nil || got != o {
			t.Fatalf("ParseOpenDirection(%q) = %v, %v", o.String(), got, err)
		}
	}
	for c := ChangeDisabled; c <= ChangeImmediate; c++ {
		if got, err := ParseChangeType(c.String()); err != nil || got != c {
			t.Fatalf("ParseChangeType(%q) = %v, %v", c.String(), got, err)
		}
	}
	if m, err := ParseMotion("PULL"); err != nil || m != MotionPull {
		t.Fatalf("ParseMotion should be case insensitive")
	}
	if _, err := ParseAccess("sideways"); err == nil {
		t.Fatalf("expected an error for an unknown access")
	}
}

func TestFailTags(t *testing.T) {
	seen := make(map[string]FailReason)
	for f := FailNotValid; f <= FailClientSide; f++ {
		tag := f.Tag()
		if tag == "" {
			t.Fatalf("reason %d has no tag", f)
		}
		if other, ok := seen[tag]; ok {
			t.Fatalf("reasons %d and %d share tag %s", f, other, tag)
		}
		seen[tag] = f
	}
	if FailReason(200).Tag() != "door.fail.unknown" {
		t.Fatalf("unknown reasons should have a fallback tag")
	}
}

func TestStateStrings(t *testing.T) {
	if got := StateDirectionString(StateOpening, DirectionInward); got != "Opening (Inward)" {
		t.Fatalf("unexpected string %q", got)
	}
	if got := StateSideString(StateClosed, SideBack); got != "Closed (Back)" {
		t.Fatalf("unexpected string %q", got)
	}
	if got := Pack(StateOpen, DirectionOutward, SideBack).String(); got != "Open/Outward/Back" {
		t.Fatalf("unexpected string %q", got)
	}
	if Packed(99).String() != "Corrupt" {
		t.Fatalf("corrupt code should say so")
	}
}
