package nodes

import (
	"context"
	"strings"
	"testing"
	"time"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
	statex "github.com/partsdesk/partsdesk/agent/state"
)

type capturingPublisher struct {
	artifacts []contractx.OrderArtifact
	err       error
}

func (p *capturingPublisher) PublishOrder(ctx context.Context, artifact contractx.OrderArtifact) error {
	p.artifacts = append(p.artifacts, artifact)
	return p.err
}

type capturingMailer struct {
	emails []contractx.SupplierEmail
	err    error
}

func (m *capturingMailer) SendQuotation(ctx context.Context, email contractx.SupplierEmail) error {
	m.emails = append(m.emails, email)
	return m.err
}

func orderConversation() *statex.Conversation {
	convo := newTestConversation()
	convo.Selections = []statex.Selection{
		{Code: "R-1001", Quantity: 2, SupplierType: statex.SupplierInternal, Description: "rodamiento 6205", UnitCost: 12.5, LeadTimeDays: 1, StockLocation: "Bodega A"},
		{Code: "R-1002", Quantity: 1, SupplierType: statex.SupplierInternal, Description: "sello radial", UnitCost: 4.0, LeadTimeDays: 1, StockLocation: "Bodega B"},
		{Code: "R-2001", Quantity: 4, SupplierType: statex.SupplierExternal, Description: "correa A42", SupplierName: "Correas SpA", UnitCost: 14.0, LeadTimeDays: 7},
		{Code: "R-2002", Quantity: 1, SupplierType: statex.SupplierExternal, Description: "polea 80mm", SupplierName: "Poleas Ltda", UnitCost: 22.0, LeadTimeDays: 12},
	}
	return convo
}

func TestComposeOrderBoth(t *testing.T) {
	t.Parallel()

	convo := orderConversation()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	publisher := &capturingPublisher{}
	mailer := &capturingMailer{}

	artifact, summary := ComposeOrder(context.Background(), convo, contractx.OrderBoth, now, publisher, mailer)

	if artifact.OrderID == "" {
		t.Fatal("empty order id")
	}
	wantTotal := 2*12.5 + 4.0 + 4*14.0 + 22.0
	if artifact.TotalCost != wantTotal {
		t.Fatalf("TotalCost = %.2f, want %.2f", artifact.TotalCost, wantTotal)
	}
	if artifact.MaxLeadDays != 12 {
		t.Fatalf("MaxLeadDays = %d, want the slowest line (12)", artifact.MaxLeadDays)
	}
	if artifact.EstimatedDate != "2026-08-13" {
		t.Fatalf("EstimatedDate = %s, want 2026-08-13", artifact.EstimatedDate)
	}

	if !strings.Contains(artifact.PickupOrder, "Bodega A") || !strings.Contains(artifact.PickupOrder, "Bodega B") {
		t.Fatalf("pickup order missing a warehouse section:\n%s", artifact.PickupOrder)
	}

	if len(artifact.Emails) != 2 {
		t.Fatalf("Emails len = %d, want one per supplier", len(artifact.Emails))
	}
	for _, email := range artifact.Emails {
		if email.Subject != "Solicitud de Cotización - Repuestos Industriales" {
			t.Fatalf("subject = %q", email.Subject)
		}
	}
	if artifact.Emails[0].Supplier != "Correas SpA" || artifact.Emails[1].Supplier != "Poleas Ltda" {
		t.Fatalf("suppliers = %s, %s; want sorted order", artifact.Emails[0].Supplier, artifact.Emails[1].Supplier)
	}

	if len(publisher.artifacts) != 1 {
		t.Fatalf("published %d artifacts, want 1", len(publisher.artifacts))
	}
	if len(mailer.emails) != 2 {
		t.Fatalf("sent %d emails, want 2", len(mailer.emails))
	}

	if !strings.Contains(summary, artifact.OrderID) || !strings.Contains(summary, "2026-08-13") {
		t.Fatalf("summary missing order id or date:\n%s", summary)
	}
}

func TestComposeOrderInternalOnlySkipsEmails(t *testing.T) {
	t.Parallel()

	convo := newTestConversation()
	convo.Selections = []statex.Selection{
		{Code: "R-1001", Quantity: 2, SupplierType: statex.SupplierInternal, Description: "rodamiento 6205", UnitCost: 12.5, LeadTimeDays: 1},
	}

	artifact, _ := ComposeOrder(context.Background(), convo, contractx.OrderInternalOnly, time.Now(), nil, nil)

	if artifact.PickupOrder == "" {
		t.Fatal("expected a pickup order")
	}
	if len(artifact.Emails) != 0 {
		t.Fatalf("Emails = %+v, want none", artifact.Emails)
	}
}

func TestComposeOrderPublishFailureDoesNotBreakSummary(t *testing.T) {
	t.Parallel()

	convo := orderConversation()
	publisher := &capturingPublisher{err: errBoom}
	mailer := &capturingMailer{err: errBoom}

	_, summary := ComposeOrder(context.Background(), convo, contractx.OrderBoth, time.Now(), publisher, mailer)

	if summary == "" {
		t.Fatal("summary lost on downstream failure")
	}
}
