// Package agent answers natural-language questions about store data. The
// language model never touches storage; it only selects from a fixed set of
// read-only report functions and composes prose from their results.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"modastore/backend/internal/service"
)

const (
	defaultModel   = "gemini-2.0-flash-001"
	maxToolRounds  = 4
	requestTimeout = 30 * time.Second
)

type Agent struct {
	svc    *service.Service
	apiKey string
	model  string
}

func New(svc *service.Service, apiKey string) *Agent {
	return &Agent{svc: svc, apiKey: apiKey, model: defaultModel}
}

func (a *Agent) Enabled() bool {
	return a.apiKey != ""
}

// Answer runs one question through the model with a single timeout and no
// retries; failures surface to the caller.
func (a *Agent) Answer(ctx context.Context, question string) (string, error) {
	if !a.Enabled() {
		return "", fmt.Errorf("report agent is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(a.model)
	model.Tools = []*genai.Tool{{FunctionDeclarations: a.declarations()}}

	prompt := fmt.Sprintf(`SYSTEM: Today is %s. You are a reporting assistant for a small clothing store.
Answer questions about sales, stock, cash sessions, accessories and accounts payable.
Always fetch data through the provided functions before answering; never invent numbers.
Dates passed to functions use YYYY-MM-DD. Amounts are in the store currency.
Answer concisely in the language the question was asked in.

USER: %s`, time.Now().UTC().Format("2006-01-02"), question)

	session := model.StartChat()
	resp, err := session.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	for round := 0; round < maxToolRounds; round++ {
		call, ok := firstFunctionCall(resp)
		if !ok {
			break
		}

		result, err := a.execute(ctx, call)
		if err != nil {
			log.Printf("[agent] WARN: tool %s failed: %v", call.Name, err)
			result = map[string]interface{}{"error": err.Error()}
		}

		resp, err = session.SendMessage(ctx, genai.FunctionResponse{
			Name:     call.Name,
			Response: result,
		})
		if err != nil {
			return "", fmt.Errorf("send tool response: %w", err)
		}
	}

	return extractText(resp), nil
}

func (a *Agent) declarations() []*genai.FunctionDeclaration {
	dateRange := map[string]*genai.Schema{
		"from": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
		"to":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
	}

	return []*genai.FunctionDeclaration{
		{
			Name:        "period_sales_summary",
			Description: "Total amount, profit, pieces, sale count, margin percent and average ticket for a date range. Voided sales are excluded.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: dateRange,
				Required:   []string{"from", "to"},
			},
		},
		{
			Name:        "top_products",
			Description: "Best-selling products by quantity in a date range.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"from":  dateRange["from"],
					"to":    dateRange["to"],
					"limit": {Type: genai.TypeInteger, Description: "How many products to return (default 5)"},
				},
				Required: []string{"from", "to"},
			},
		},
		{
			Name:        "stock_valuation",
			Description: "Current stock valuation at cost and at retail price. A snapshot, not bound to a date range.",
		},
		{
			Name:        "sessions_in_range",
			Description: "Cash sessions opened in a date range, each with its sales total.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: dateRange,
				Required:   []string{"from", "to"},
			},
		},
		{
			Name:        "payables_due",
			Description: "Accounts payable due in a date range with their paid/overdue/open status.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: dateRange,
				Required:   []string{"from", "to"},
			},
		},
		{
			Name:        "stock_entries",
			Description: "Stock-in entries recorded in a date range.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: dateRange,
				Required:   []string{"from", "to"},
			},
		},
		{
			Name:        "accessory_sales",
			Description: "Accessory sales in a date range with the 50% supplier profit share and pending remittance.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: dateRange,
				Required:   []string{"from", "to"},
			},
		},
	}
}

func (a *Agent) execute(ctx context.Context, call genai.FunctionCall) (map[string]interface{}, error) {
	from := stringArg(call.Args, "from")
	to := stringArg(call.Args, "to")

	switch call.Name {
	case "period_sales_summary":
		summary, err := a.svc.PeriodSummary(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return asPayload(summary)
	case "top_products":
		limit := intArg(call.Args, "limit")
		products, err := a.svc.TopProducts(ctx, from, to, limit)
		if err != nil {
			return nil, err
		}
		return asPayload(products)
	case "stock_valuation":
		valuation, err := a.svc.StockValuation(ctx)
		if err != nil {
			return nil, err
		}
		return asPayload(valuation)
	case "sessions_in_range":
		sessions, err := a.svc.SessionsInRange(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return asPayload(sessions)
	case "payables_due":
		payables, err := a.svc.ListPayables(ctx, from, to, "")
		if err != nil {
			return nil, err
		}
		return asPayload(payables)
	case "stock_entries":
		entries, err := a.svc.StockEntriesInPeriod(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return asPayload(entries)
	case "accessory_sales":
		summary, err := a.svc.AccessorySalesInPeriod(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return asPayload(summary)
	default:
		return nil, fmt.Errorf("unknown tool %q", call.Name)
	}
}

func asPayload(value interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return map[string]interface{}{"data": string(raw)}, nil
}

func firstFunctionCall(resp *genai.GenerateContentResponse) (genai.FunctionCall, bool) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return genai.FunctionCall{}, false
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if call, ok := part.(genai.FunctionCall); ok {
			return call, true
		}
	}
	return genai.FunctionCall{}, false
}

func extractText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return ""
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]interface{}, key string) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return 0
}
