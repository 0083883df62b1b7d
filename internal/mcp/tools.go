package mcp

// ToolDefinition describes an MCP tool and its JSON input schema.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema"`
}

var submissionStates = []string{"idle", "validating", "submitting", "awaiting_confirmation", "confirmed", "failed"}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		// Companies
		{
			Name:        "list_companies",
			Description: "List companies raising on the cap table with sector, stage and formatted figures",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "refresh_companies",
			Description: "Re-read companies and investments from the contract, then list companies",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "get_company",
			Description: "Get one company's full record and listing",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "integer",
						"description": "Company ID",
					},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "create_company",
			Description: "Register a new company on the contract. Returns a transaction handle",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{
						"type":        "string",
						"description": "Company name",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "Company description",
					},
					"total_shares": map[string]any{
						"type":        "integer",
						"description": "Total share count",
					},
					"initial_valuation": map[string]any{
						"type":        "string",
						"description": "Initial valuation as a whole decimal number",
					},
				},
				"required": []string{"name", "description", "total_shares", "initial_valuation"},
			},
		},

		// Pricing
		{
			Name:        "quote_investment",
			Description: "Price an investment: give an amount to get shares, or shares to get the amount",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"company_id": map[string]any{
						"type":        "integer",
						"description": "Company ID",
					},
					"amount": map[string]any{
						"type":        "string",
						"description": "Investment amount",
					},
					"shares": map[string]any{
						"type":        "string",
						"description": "Share count",
					},
				},
				"required": []string{"company_id"},
			},
		},

		// Submissions
		{
			Name:        "start_investment",
			Description: "Open an investment form for a company. Closed listings are refused",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"company_id": map[string]any{
						"type":        "integer",
						"description": "Company ID",
					},
				},
				"required": []string{"company_id"},
			},
		},
		{
			Name:        "edit_investment",
			Description: "Edit the amount or the shares of an open investment; the other field is recomputed",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"submission_id": map[string]any{
						"type":        "string",
						"description": "Submission ID from start_investment",
					},
					"amount": map[string]any{
						"type":        "string",
						"description": "New amount text",
					},
					"shares": map[string]any{
						"type":        "string",
						"description": "New shares text",
					},
				},
				"required": []string{"submission_id"},
			},
		},
		{
			Name:        "submit_investment",
			Description: "Encrypt, prove and dispatch the investment. Confirmation is tracked in the background unless wait is set",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"submission_id": map[string]any{
						"type":        "string",
						"description": "Submission ID",
					},
					"wait": map[string]any{
						"type":        "boolean",
						"description": "Block until the submission is confirmed or failed",
					},
				},
				"required": []string{"submission_id"},
			},
		},
		{
			Name:        "investment_status",
			Description: "Get the state of an open or past submission",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"submission_id": map[string]any{
						"type":        "string",
						"description": "Submission ID",
					},
				},
				"required": []string{"submission_id"},
			},
		},
		{
			Name:        "cancel_investment",
			Description: "Close an investment form. Refused while a submission is running",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"submission_id": map[string]any{
						"type":        "string",
						"description": "Submission ID",
					},
				},
				"required": []string{"submission_id"},
			},
		},
		{
			Name:        "list_submissions",
			Description: "List your submissions, most recently updated first",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"company_id": map[string]any{
						"type":        "integer",
						"description": "Filter by company",
					},
					"states": map[string]any{
						"type":        "array",
						"description": "Filter by submission states",
						"items": map[string]any{
							"type": "string",
							"enum": submissionStates,
						},
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results",
					},
					"offset": map[string]any{
						"type":        "integer",
						"description": "Offset for pagination",
					},
				},
			},
		},

		// Chain
		{
			Name:        "transaction_status",
			Description: "Check confirmations of a dispatched transaction",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"handle": map[string]any{
						"type":        "string",
						"description": "Transaction handle",
					},
				},
				"required": []string{"handle"},
			},
		},
		{
			Name:        "investor_reputation",
			Description: "Get an investor's reputation (defaults to you)",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"address": map[string]any{
						"type":        "string",
						"description": "Investor address",
					},
				},
			},
		},
		{
			Name:        "investor_portfolio",
			Description: "Get an investor's investment ids (defaults to you)",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"address": map[string]any{
						"type":        "string",
						"description": "Investor address",
					},
				},
			},
		},

		// History
		{
			Name:        "recent_activity",
			Description: "Get your recent activity, newest first",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"submission_id": map[string]any{
						"type":        "string",
						"description": "Filter by submission",
					},
					"company_id": map[string]any{
						"type":        "integer",
						"description": "Filter by company",
					},
					"type": map[string]any{
						"type":        "string",
						"description": "Filter by activity type",
						"enum": []string{
							"submission_started", "state_transition", "submission_failed",
							"submission_confirmed", "company_created",
						},
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of entries",
					},
					"offset": map[string]any{
						"type":        "integer",
						"description": "Offset for pagination",
					},
				},
			},
		},
	}
}
