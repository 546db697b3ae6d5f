package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

const maxToolRounds = 4

// Agent answers back-office questions with Gemini, letting the model call
// tools that read stock and sales and update prices.
type Agent struct {
	db     *gorm.DB
	apiKey string
	model  string
	logger *zap.Logger
	now    func() time.Time
}

func NewAgent(db *gorm.DB, apiKey, model string, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{db: db, apiKey: apiKey, model: model, logger: logger, now: time.Now}
}

func (a *Agent) systemPrompt(userMessage string) string {
	today := a.now().UTC().Format("2006-01-02")
	return fmt.Sprintf(`SYSTEM: Today is %s. You are the back-office assistant of a multi-branch store.

	RULES:
	1. STOCK: For stock, price or cost questions call 'check_inventory' (optionally with branch_id)
	   and read the JSON. Do NOT say you cannot see prices.
	2. LOW STOCK: For reorder or "what is running out" questions call 'list_low_stock'.
	3. SALES: For revenue or order counts call 'get_sales_report' with dates as YYYY-MM-DD.
	4. PRICES: To change a price by product NAME, first call 'check_inventory' to find the product_id,
	   then call 'update_product_price'. Never ask the user for the ID.

	USER: %s`, today, userMessage)
}

func tools() []*genai.Tool {
	branchParam := map[string]*genai.Schema{
		"branch_id": {Type: genai.TypeInteger, Description: "Branch ID, omit for all branches"},
	}
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        toolCheckInventory,
				Description: "List stock per product and branch with price, cost and quantity.",
				Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: branchParam},
			},
			{
				Name:        toolLowStock,
				Description: "List products whose stock is at or below the branch minimum.",
				Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: branchParam},
			},
			{
				Name:        toolSalesReport,
				Description: "Revenue and order count of completed sales in a date range.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
						"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
						"branch_id":  {Type: genai.TypeInteger, Description: "Branch ID, omit for all branches"},
					},
					Required: []string{"start_date", "end_date"},
				},
			},
			{
				Name:        toolUpdatePrice,
				Description: "Update the unit price of a product by its ID.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"product_id": {Type: genai.TypeInteger, Description: "ID of the product"},
						"new_price":  {Type: genai.TypeNumber, Description: "New unit price"},
					},
					Required: []string{"product_id", "new_price"},
				},
			},
		},
	}}
}

// Ask runs one conversation turn, executing tool calls until the model answers in text.
func (a *Agent) Ask(ctx context.Context, userMessage string) (string, error) {
	if a.apiKey == "" {
		return "", errors.New("assistant is not configured")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel(a.model)
	model.Tools = tools()
	session := model.StartChat()

	resp, err := session.SendMessage(ctx, genai.Text(a.systemPrompt(userMessage)))
	if err != nil {
		return "", err
	}

	for round := 0; round < maxToolRounds; round++ {
		call := functionCall(resp)
		if call == nil {
			break
		}
		a.logger.Info("assistant tool call", zap.String("tool", call.Name), zap.Any("args", call.Args))

		resp, err = session.SendMessage(ctx, genai.FunctionResponse{
			Name:     call.Name,
			Response: a.ExecuteTool(ctx, call.Name, call.Args),
		})
		if err != nil {
			return "", err
		}
	}

	return textOf(resp), nil
}

func functionCall(resp *genai.GenerateContentResponse) *genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if fc, ok := part.(genai.FunctionCall); ok {
			return &fc
		}
	}
	return nil
}

func textOf(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "I could not produce an answer."
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return "I completed the action."
}
