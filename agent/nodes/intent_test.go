package nodes

import (
	"context"
	"testing"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
)

func TestClassifyIntentPartsRequest(t *testing.T) {
	t.Parallel()

	convo := newTestConversation()
	convo.AppendUser("necesito rodamientos")

	ok, redirect := ClassifyIntent(context.Background(), convo, &fakeCaps{intent: contractx.IntentResult{IsPartsRequest: true}})
	if !ok || redirect != "" {
		t.Fatalf("ok=%v redirect=%q, want ok with no redirect", ok, redirect)
	}
}

func TestClassifyIntentOffTopic(t *testing.T) {
	t.Parallel()

	convo := newTestConversation()
	convo.AppendUser("cuéntame un chiste")

	ok, redirect := ClassifyIntent(context.Background(), convo, &fakeCaps{intent: contractx.IntentResult{IsPartsRequest: false, Message: "Solo repuestos."}})
	if ok {
		t.Fatal("ok = true for off-topic input")
	}
	if redirect != "Solo repuestos." {
		t.Fatalf("redirect = %q", redirect)
	}
}

func TestClassifyIntentFailureProceeds(t *testing.T) {
	t.Parallel()

	convo := newTestConversation()
	convo.AppendUser("necesito rodamientos")

	ok, _ := ClassifyIntent(context.Background(), convo, &fakeCaps{intentErr: errBoom})
	if !ok {
		t.Fatal("classifier failure must not block the turn")
	}
}
