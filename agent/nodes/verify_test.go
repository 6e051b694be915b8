package nodes

import (
	"context"
	"strings"
	"testing"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
	statex "github.com/partsdesk/partsdesk/agent/state"
)

func TestVerifyRequestsAllComplete(t *testing.T) {
	t.Parallel()

	convo := newTestConversation()
	convo.Requests = []statex.ProductRequest{
		{Name: "rodamiento SKF 6205", Quantity: 2, InfoNeeded: true},
	}

	caps := &fakeCaps{verdicts: map[string]contractx.Verification{
		"rodamiento SKF 6205": {Complete: true, Reason: "suficiente"},
	}}

	msg := VerifyRequests(context.Background(), convo, caps)

	if msg != "" {
		t.Fatalf("message = %q, want empty", msg)
	}
	if !convo.InfoComplete {
		t.Fatal("InfoComplete = false, want true")
	}
	if convo.Requests[0].InfoNeeded {
		t.Fatal("request still marked incomplete")
	}
}

func TestVerifyRequestsAnyIncompleteBlocksAll(t *testing.T) {
	t.Parallel()

	convo := newTestConversation()
	convo.Requests = []statex.ProductRequest{
		{Name: "rodamiento SKF 6205", Quantity: 2, InfoNeeded: true},
		{Name: "filtro", Quantity: 1, InfoNeeded: true},
	}

	caps := &fakeCaps{verdicts: map[string]contractx.Verification{
		"rodamiento SKF 6205": {Complete: true},
		"filtro":              {Complete: false, MissingFields: []string{"marca", "modelo"}},
	}}

	msg := VerifyRequests(context.Background(), convo, caps)

	if convo.InfoComplete {
		t.Fatal("InfoComplete = true, want false while any item is incomplete")
	}
	if !strings.Contains(msg, "filtro") || !strings.Contains(msg, "marca") {
		t.Fatalf("message does not name the gap: %q", msg)
	}
	// The complete item stays visible so the user knows it was understood.
	if !strings.Contains(msg, "rodamiento SKF 6205") {
		t.Fatalf("message omits the already-complete item: %q", msg)
	}
	if convo.Requests[0].InfoNeeded {
		t.Fatal("complete item lost its verified status")
	}
}

func TestVerifyRequestsNoRequests(t *testing.T) {
	t.Parallel()

	convo := newTestConversation()

	msg := VerifyRequests(context.Background(), convo, &fakeCaps{})

	if convo.InfoComplete {
		t.Fatal("InfoComplete = true with zero requests")
	}
	if msg == "" {
		t.Fatal("expected a clarification message")
	}
}

func TestVerifyRequestsFailureAsksForDetails(t *testing.T) {
	t.Parallel()

	convo := newTestConversation()
	convo.Requests = []statex.ProductRequest{
		{Name: "algo raro", Quantity: 1, InfoNeeded: true},
	}

	msg := VerifyRequests(context.Background(), convo, &fakeCaps{verifyErr: errBoom})

	if convo.InfoComplete {
		t.Fatal("verification failure must not mark info complete")
	}
	if msg == "" {
		t.Fatal("expected a details request on failure")
	}
	if got := convo.Requests[0].MissingInfo; len(got) != 1 || got[0] != "detalles" {
		t.Fatalf("MissingInfo = %v, want [detalles]", got)
	}
}
