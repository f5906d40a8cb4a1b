package extract

import (
	"strings"
	"testing"
)

const sampleExport = `[9:24 pm, 8/7/2025] Jinesh Hacker House: OFFICE FOR RENT Opp St.John School, CHARAI THANE (w) - 400601 Carpet Area: 1600 Sq.ft Rent: 1,76,000 Previous Tenant: Metropolis Healthcare Lab Condition: Warmshell Possession: August DATTA 8655793033

[9:24 pm, 8/7/2025] Jinesh Hacker House: CHARAI NEAR GANESH CINEMA THANE 400601 (All PAKEJ DIL) 1 BHK 460 C ₹ 85 lac 1 BHK 522 C ₹ 95 lac 2 BHK 700 C ₹ 1.30 cr Pakej with Parking OFFICE 1st Floor 522 C ₹ 1.05 cr Parking extra charge DATTA 8655793033

[9:25 pm, 8/7/2025] Jinesh Hacker House: Available Converted 2.5 Bhk Flat on Rent At pachpakhadi Thane 400602 Area flat is at 5th floor out of 8 Area in Carpet is 767 Sq Ft Rera Carpet Along with kitchen Trolley pipe Gas And one Car Parking asking Rent 53000 Nego please Call Me on my Cell no 9920244733 9619398561 Shailesh Mainkar

[9:26 pm, 8/7/2025] Jinesh Hacker House: 3 bhk ~ Park Woods. Project - PARK WOODS. Behind D'mart. Gb Rd. Thane west 400604. Available Fully Furnished 3 bhk in Higher Floor with Beautiful Interior & 2 Parkings. Rent - 85 k Deposit - 6 Months.

[9:28 pm, 8/7/2025] Jinesh Hacker House: 3 bhk ~ Makhmali Talao. Location - MAKHMALI TALAO. Thane west 400603. Available Spacious & Semi Furnished 3 bhk with 4 Large Balconies, 4 Washrooms, Beautiful Condition & Parking. Rent - 75000 Contact: 9876543210

[9:30 pm, 8/7/2025] Jinesh Hacker House: 2 BHK SALE Ghodbunder Road Thane 400615 Carpet: 950 sq ft Price: ₹ 1.45 Cr Ready Possession Amenities: Gym, Pool, Garden Contact: 8877665544`

func TestSegmentSampleExport(t *testing.T) {
	msgs := Segment(sampleExport)
	if len(msgs) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(msgs))
	}

	first := msgs[0]
	if first.Timestamp != "9:24 pm, 8/7/2025" {
		t.Errorf("unexpected timestamp %q", first.Timestamp)
	}
	if first.Sender != "Jinesh Hacker House" {
		t.Errorf("unexpected sender %q", first.Sender)
	}
	if !strings.HasPrefix(first.Body, "OFFICE FOR RENT") {
		t.Errorf("unexpected body start %q", first.Body)
	}
	if strings.Contains(first.Body, "[9:24") {
		t.Errorf("body leaked into next entry: %q", first.Body)
	}

	last := msgs[5]
	if !strings.HasSuffix(last.Body, "Contact: 8877665544") {
		t.Errorf("unexpected last body end %q", last.Body)
	}
}

func TestSegmentOrderPreserved(t *testing.T) {
	blob := "[1:00 pm, 1/1/2025] A: first\n[2:00 pm, 1/1/2025] B: second\n[3:00 pm, 1/1/2025] C: third"
	msgs := Segment(blob)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if msgs[i].Body != want {
			t.Errorf("msgs[%d].Body = %q; want %q", i, msgs[i].Body, want)
		}
	}
}

func TestSegmentDropsEmptyBodies(t *testing.T) {
	blob := "[1:00 pm, 1/1/2025] A: hello\n[2:00 pm, 1/1/2025] B:   \n[3:00 pm, 1/1/2025] C: bye"
	msgs := Segment(blob)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages after dropping empty body, got %d", len(msgs))
	}
	if msgs[0].Body != "hello" || msgs[1].Body != "bye" {
		t.Errorf("unexpected bodies: %q, %q", msgs[0].Body, msgs[1].Body)
	}
}

func TestSegmentMultilineBodyPreserved(t *testing.T) {
	blob := "[1:00 pm, 1/1/2025] A: line one\nline two\nline three\n[2:00 pm, 1/1/2025] B: next"
	msgs := Segment(blob)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Body != "line one\nline two\nline three" {
		t.Errorf("multiline body not preserved: %q", msgs[0].Body)
	}
}

func TestSegmentNoMatch(t *testing.T) {
	for _, blob := range []string{"", "no brackets here", "just some text: with a colon"} {
		if msgs := Segment(blob); len(msgs) != 0 {
			t.Errorf("Segment(%q) = %d messages; want 0", blob, len(msgs))
		}
	}
}
