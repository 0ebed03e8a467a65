package trace

import "testing"

func TestEmitNilSinkIsNoop(t *testing.T) {
	// must not panic
	Emit(nil, Event{Kind: EventPattern, CodeName: "f", BlockID: 1, Pattern: "if"})
	Emit(Nop, Event{Kind: EventStackIn, CodeName: "f", BlockID: 2})
}

func TestSinkFuncReceivesEvents(t *testing.T) {
	var got []Event
	sink := SinkFunc(func(e Event) { got = append(got, e) })
	Emit(sink, Event{Kind: EventPattern, CodeName: "f", BlockID: 3, Pattern: "while"})
	Emit(sink, Event{Kind: EventRewritePass, CodeName: "f", BlockID: -1, PassName: "groupImports"})
	if len(got) != 2 {
		t.Fatalf("want 2 events, got %d", len(got))
	}
	if got[0].Pattern != "while" || got[1].PassName != "groupImports" {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestEventString(t *testing.T) {
	e := Event{Kind: EventPattern, CodeName: "f", BlockID: 7, Pattern: "try"}
	if want := "f block 7: pattern=try"; e.String() != want {
		t.Fatalf("String() = %q, want %q", e.String(), want)
	}
}
