package state

import (
	"encoding/json"
	"testing"
	"time"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func TestAvailableCodesInternalFirstDeduped(t *testing.T) {
	t.Parallel()

	conv := NewConversation("s1", testNow)
	conv.Internal[2] = []Candidate{{Code: "R-1003", SupplierType: SupplierInternal}}
	conv.Internal[1] = []Candidate{{Code: "R-1001", SupplierType: SupplierInternal}}
	conv.External[1] = []Candidate{
		{Code: "R-2001", SupplierType: SupplierExternal},
		{Code: "R-1001", SupplierType: SupplierExternal}, // dup of internal
	}

	got := conv.AvailableCodes()
	want := []string{"R-1001", "R-1003", "R-2001"}
	if len(got) != len(want) {
		t.Fatalf("codes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("codes = %v, want %v", got, want)
		}
	}
}

func TestFindCandidateInternalWins(t *testing.T) {
	t.Parallel()

	conv := NewConversation("s1", testNow)
	conv.Internal[1] = []Candidate{{Code: "R-1001", SupplierType: SupplierInternal, UnitCost: 10}}
	conv.External[1] = []Candidate{{Code: "R-1001", SupplierType: SupplierExternal, UnitCost: 99}}

	cand, ok := conv.FindCandidate("R-1001")
	if !ok {
		t.Fatal("candidate not found")
	}
	if cand.SupplierType != SupplierInternal {
		t.Fatalf("supplier type = %s, want internal copy", cand.SupplierType)
	}
}

func TestHasAnyStock(t *testing.T) {
	t.Parallel()

	conv := NewConversation("s1", testNow)
	conv.Internal[1] = []Candidate{{Code: "A", AvailableStock: 0}}
	if conv.HasAnyStock() {
		t.Fatal("HasAnyStock = true with zero stock")
	}

	conv.External[1] = []Candidate{{Code: "B", AvailableStock: 1}}
	if !conv.HasAnyStock() {
		t.Fatal("HasAnyStock = false with positive external stock")
	}
}

func TestResetSearchKeepsTranscript(t *testing.T) {
	t.Parallel()

	conv := NewConversation("s1", testNow)
	conv.AppendUser("hola")
	conv.AppendAgent("¿qué necesitas?")
	conv.Requests = []ProductRequest{{Name: "x", Quantity: 1}}
	conv.Internal[1] = []Candidate{{Code: "R-1001"}}
	conv.Ranking = "algo"
	conv.Phase = PhaseAwaitingRestockChoice

	conv.ResetSearch(testNow.Add(time.Minute))

	if len(conv.Messages) != 2 {
		t.Fatal("transcript lost on search reset")
	}
	if len(conv.Requests) != 0 || len(conv.Internal) != 0 || conv.Ranking != "" {
		t.Fatal("search state not cleared")
	}
	if !conv.RestartSearch {
		t.Fatal("RestartSearch flag not set")
	}
	if conv.Phase != PhaseAwaitingRequest {
		t.Fatalf("phase = %s, want awaiting_request", conv.Phase)
	}
}

func TestConcludeDropsEverything(t *testing.T) {
	t.Parallel()

	conv := NewConversation("s1", testNow)
	conv.AppendUser("hola")
	conv.Selections = []Selection{{Code: "R-1001", Quantity: 1}}

	conv.Conclude(testNow.Add(time.Minute))

	if len(conv.Messages) != 0 || len(conv.Selections) != 0 {
		t.Fatal("conclude kept stale state")
	}
	if conv.SessionID != "s1" {
		t.Fatal("session id lost")
	}
	if conv.Internal == nil || conv.External == nil {
		t.Fatal("indices not reinitialized")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	conv := NewConversation("s1", testNow)
	if err := conv.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	conv.Phase = Phase("weird")
	if err := conv.Validate(); err == nil {
		t.Fatal("Validate() accepted an unknown phase")
	}

	conv.Phase = PhaseAwaitingRequest
	conv.Requests = []ProductRequest{{Name: "x", Quantity: 0}}
	if err := conv.Validate(); err == nil {
		t.Fatal("Validate() accepted a zero quantity")
	}
}

func TestConversationJSONRoundTrip(t *testing.T) {
	t.Parallel()

	conv := NewConversation("s1", testNow)
	conv.AppendUser("necesito 2 rodamientos SKF 6205")
	conv.Phase = PhaseAwaitingSelection
	conv.Requests = []ProductRequest{{Name: "rodamiento SKF 6205", Quantity: 2}}
	conv.Internal[1] = []Candidate{{Code: "R-1001", SupplierType: SupplierInternal, AvailableStock: 4, Score: 0.91}}

	payload, err := json.Marshal(conv)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var loaded Conversation
	if err := json.Unmarshal(payload, &loaded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	loaded.EnsureIndices()

	if loaded.Phase != PhaseAwaitingSelection {
		t.Fatalf("phase = %s", loaded.Phase)
	}
	if len(loaded.Internal[1]) != 1 || loaded.Internal[1][0].Code != "R-1001" {
		t.Fatalf("internal index lost: %+v", loaded.Internal)
	}
	if loaded.External == nil {
		t.Fatal("EnsureIndices left External nil")
	}
}
