package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/partsdesk/partsdesk/agent/agents/partsfinder"
	"github.com/partsdesk/partsdesk/agent/catalog"
	contractx "github.com/partsdesk/partsdesk/agent/contract"
	"github.com/partsdesk/partsdesk/agent/embedding"
	"github.com/partsdesk/partsdesk/agent/llm"
	promptx "github.com/partsdesk/partsdesk/agent/prompt"
	statex "github.com/partsdesk/partsdesk/agent/state"
	configx "github.com/partsdesk/partsdesk/pkg/config"
	_ "github.com/partsdesk/partsdesk/pkg/logger/autoload"
	mailerx "github.com/partsdesk/partsdesk/pkg/mailer"
	openrouterx "github.com/partsdesk/partsdesk/pkg/openrouter"
	qstashx "github.com/partsdesk/partsdesk/pkg/qstash"
)

func main() {
	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	client := openrouterx.NewClient(*openRouterCfg)
	if client == nil {
		panic("failed to initialize openrouter client")
	}

	llmCfg := configx.MustNew[llm.Config]("LLM")
	caps, err := llm.NewCapabilities(client, *llmCfg, promptx.LoadPromptSet())
	if err != nil {
		panic(err)
	}

	embedCfg := configx.MustNew[embedding.Config]("EMBEDDING")
	embedder, err := embedding.NewOpenAIEmbedder(client, *embedCfg)
	if err != nil {
		panic(err)
	}

	catalogCfg := configx.MustNew[catalog.Config]("CATALOG")
	db, err := catalog.NewDB(*catalogCfg)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	gateway, err := catalog.NewGateway(db)
	if err != nil {
		panic(err)
	}

	redisCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	store, err := statex.NewUpstashRedisStore(*redisCfg)
	if err != nil {
		panic(err)
	}

	opts := []partsfinder.Option{}

	if qstashCfg, err := configx.New[qstashx.Config]("QSTASH"); err == nil {
		if publisher, err := qstashx.NewClient(*qstashCfg); err == nil {
			opts = append(opts, partsfinder.WithPublisher(orderPublisher{publisher}))
		}
	} else {
		log.Info().Msg("qstash not configured, orders stay local")
	}

	if mailerCfg, err := configx.New[mailerx.Config]("SMTP"); err == nil {
		if m := mailerx.New(*mailerCfg); m.Enabled() {
			opts = append(opts, partsfinder.WithMailer(quotationMailer{m}))
		}
	}

	agent, err := partsfinder.New(store, caps, embedder, gateway, opts...)
	if err != nil {
		panic(err)
	}

	runREPL(agent)
}

// orderPublisher adapts the QStash client to the order publishing contract.
type orderPublisher struct {
	client *qstashx.Client
}

func (p orderPublisher) PublishOrder(ctx context.Context, artifact contractx.OrderArtifact) error {
	return p.client.Publish(ctx, artifact)
}

// quotationMailer adapts the SMTP mailer to the supplier quotation contract.
// Supplier contact records carry no email column yet, so the inbox is
// derived from the supplier name.
type quotationMailer struct {
	mailer *mailerx.SMTPMailer
}

func (q quotationMailer) SendQuotation(ctx context.Context, email contractx.SupplierEmail) error {
	return q.mailer.Send(ctx, supplierAddress(email.Supplier), email.Subject, email.Body)
}

func supplierAddress(supplier string) string {
	slug := make([]rune, 0, len(supplier))
	for _, r := range strings.ToLower(supplier) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			slug = append(slug, r)
		case r == ' ' || r == '-' || r == '_' || r == '.':
			slug = append(slug, '-')
		}
	}
	if len(slug) == 0 {
		return "cotizaciones@partsdesk.local"
	}
	return fmt.Sprintf("cotizaciones+%s@partsdesk.local", string(slug))
}

func runREPL(agent *partsfinder.Agent) {
	sessionID := uuid.NewString()
	ctx := context.Background()

	fmt.Println("Asistente de repuestos industriales. Escribe 'salir' para terminar.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		reply, err := agent.HandleMessage(ctx, sessionID, text)
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			fmt.Println("Ocurrió un error procesando tu mensaje, intenta de nuevo.")
			continue
		}

		fmt.Println(reply.Message)
		fmt.Println()

		if reply.Concluded {
			// A fresh session id gives the next conversation a clean thread.
			sessionID = uuid.NewString()
		}
	}
}
