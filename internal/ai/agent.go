// Package ai runs the shop assistant: a Gemini chat session that answers
// questions about stock, sales and debts through read-only tools.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-pos-ledger/internal/catalog"
	"go-pos-ledger/internal/config"
	"go-pos-ledger/internal/customer"
	"go-pos-ledger/internal/profit"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const (
	modelName = "gemini-2.0-flash-001"

	// maxToolRounds bounds the call/response ping-pong for one question.
	maxToolRounds = 4
)

var errUnknownTool = errors.New("unknown tool")

type Agent struct {
	apiKey     string
	catalog    *catalog.Service
	customers  *customer.Service
	reconciler *profit.Reconciler
	log        *logrus.Logger
}

func NewAgent(apiKey string, cat *catalog.Service, customers *customer.Service, rec *profit.Reconciler, log *logrus.Logger) *Agent {
	return &Agent{apiKey: apiKey, catalog: cat, customers: customers, reconciler: rec, log: log}
}

var tools = []*genai.Tool{
	{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "check_inventory",
				Description: "List products with ID, name, category, stock and USD selling price. Use this to find ANY product detail.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"search":    {Type: genai.TypeString, Description: "Optional part of a product name"},
						"low_stock": {Type: genai.TypeBoolean, Description: "Only products at or under their low stock threshold"},
					},
				},
			},
			{
				Name:        "get_sales_report",
				Description: "Revenue, cash collected and profit in ETB for a date range, with a per-currency breakdown.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
						"end_date":   {Type: genai.TypeString, Description: "End date inclusive (YYYY-MM-DD)"},
					},
					Required: []string{"start_date", "end_date"},
				},
			},
			{
				Name:        "get_customer_debts",
				Description: "Outstanding USD, SOS and ETB balances. Without a name, lists every customer who owes money.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name": {Type: genai.TypeString, Description: "Optional part of a customer name or phone"},
					},
				},
			},
		},
	},
}

func systemPrompt(today string) string {
	return fmt.Sprintf(`SYSTEM: Today is %s. You are the assistant of a shop that sells in USD, SOS and ETB.

RULES:
1. PRODUCTS: For PRICE, COST, STOCK or DETAILS of a product, call 'check_inventory' and read the result. Do NOT ask the user for IDs.
2. SALES: For sales, revenue or profit, call 'get_sales_report'. Profit figures are in ETB.
3. DEBTS: For who owes money or how much, call 'get_customer_debts'. Never add balances of different currencies together.
4. You cannot change data. If asked to, explain which screen to use.`, today)
}

// Ask answers one question, running tool calls until the model replies
// with text or the round limit is hit.
func (a *Agent) Ask(ctx context.Context, message string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel(modelName)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt(time.Now().Format(time.DateOnly))))
	model.Tools = tools

	session := model.StartChat()
	resp, err := session.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", err
	}

	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			return textOf(resp), nil
		}

		replies := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			result, err := a.dispatch(ctx, call.Name, call.Args)
			if err != nil {
				config.LogError(a.log, "ai", "Ask", call.Name, call.Args, err)
				result = map[string]any{"error": err.Error()}
			}
			replies = append(replies, genai.FunctionResponse{Name: call.Name, Response: result})
		}

		resp, err = session.SendMessage(ctx, replies...)
		if err != nil {
			return "", err
		}
	}
	return textOf(resp), nil
}

func (a *Agent) dispatch(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	switch name {
	case "check_inventory":
		return a.checkInventory(ctx, args)
	case "get_sales_report":
		return a.salesReport(ctx, args)
	case "get_customer_debts":
		return a.customerDebts(ctx, args)
	}
	return nil, fmt.Errorf("%w: %s", errUnknownTool, name)
}

func (a *Agent) checkInventory(ctx context.Context, args map[string]any) (map[string]any, error) {
	lowOnly, _ := args["low_stock"].(bool)
	products, err := a.catalog.List(ctx, catalog.ListFilter{
		Search:       stringArg(args, "search"),
		LowStockOnly: lowOnly,
	})
	if err != nil {
		return nil, err
	}

	type item struct {
		ID        uint   `json:"id"`
		Name      string `json:"name"`
		Category  string `json:"category"`
		Stock     string `json:"stock"`
		PriceUSD  string `json:"selling_price_usd"`
		LowStock  bool   `json:"low_stock"`
		Active    bool   `json:"active"`
	}
	list := make([]item, 0, len(products))
	for _, p := range products {
		list = append(list, item{
			ID:        p.ID,
			Name:      p.Name,
			Category:  p.Category,
			Stock:     p.CurrentStock.String(),
			PriceUSD:  p.SellingPrice.StringFixed(2),
			LowStock:  p.IsLowStock(),
			Active:    p.IsActive,
		})
	}
	return map[string]any{"inventory": list}, nil
}

func (a *Agent) salesReport(ctx context.Context, args map[string]any) (map[string]any, error) {
	start, err := time.ParseInLocation(time.DateOnly, stringArg(args, "start_date"), time.Local)
	if err != nil {
		return nil, errors.New("dates must be in YYYY-MM-DD format")
	}
	end, err := time.ParseInLocation(time.DateOnly, stringArg(args, "end_date"), time.Local)
	if err != nil {
		return nil, errors.New("dates must be in YYYY-MM-DD format")
	}

	rec, err := a.reconciler.Reconcile(ctx, profit.Window{From: start, To: end.AddDate(0, 0, 1)})
	if err != nil {
		return nil, err
	}

	byCurrency := make(map[string]any, len(rec.ByCurrency))
	for _, s := range rec.ByCurrency {
		byCurrency[s.Currency.String()] = map[string]any{
			"sales":     s.SaleCount,
			"revenue":   s.Revenue.StringFixed(2),
			"collected": s.Collected.StringFixed(2),
		}
	}
	return map[string]any{
		"sales_count":           rec.SaleCount,
		"revenue_etb":           rec.SalesRevenueETB.StringFixed(2),
		"cash_collected_etb":    rec.CashCollectedETB.StringFixed(2),
		"collection_rate_pct":   rec.CollectionRate.StringFixed(2),
		"expected_profit_etb":   rec.ExpectedProfitETB.StringFixed(2),
		"actual_profit_etb":     rec.ActualProfitETB.StringFixed(2),
		"overpayment_bonus_etb": rec.BonusProfitETB.StringFixed(2),
		"by_currency":           byCurrency,
	}, nil
}

func (a *Agent) customerDebts(ctx context.Context, args map[string]any) (map[string]any, error) {
	search := stringArg(args, "name")
	customers, err := a.customers.List(ctx, customer.ListFilter{Search: search, WithDebt: search == ""})
	if err != nil {
		return nil, err
	}

	list := make([]map[string]any, 0, len(customers))
	for i := range customers {
		c := &customers[i]
		list = append(list, map[string]any{
			"id":    c.ID,
			"name":  c.Name,
			"phone": c.Phone,
			"owes":  c.HasDebt(),
			"debts": customer.DebtTotals(c),
		})
	}
	return map[string]any{"customers": list}, nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var calls []genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if call, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

func textOf(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "I could not come up with an answer."
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return "I could not come up with an answer."
}
