package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `capvault is a confidential cap-table client: companies raise on a smart contract and investors buy shares with encrypted amounts.

Core concepts:
- Company: a fundraising entity with total shares and a current valuation. Share price = valuation / total shares.
- Listing: a company plus its sector and stage (open, closing, closed). Closed listings cannot be invested in.
- Submission: one investment form. It moves idle -> validating -> submitting -> awaiting_confirmation -> confirmed | failed.
- Transaction handle: the id of a dispatched contract write.

Default workflow:
1) list_companies (refresh_companies if the data looks stale).
2) quote_investment to price an amount or a share count.
3) start_investment(company_id) -> submission_id.
4) edit_investment with amount or shares; the other field is recomputed.
5) submit_investment. Use wait=true to block until confirmed, or poll investment_status.
6) On failure the form keeps its values: fix and submit again, or cancel_investment.

Docs:
- capvault://docs/index
- capvault://docs/pricing
- capvault://docs/submissions
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "capvault://docs/index",
		Name:        "docs_index",
		Title:       "capvault docs index",
		Description: "What the tools do and which doc to read next.",
		Content: `# capvault docs

## Tools by task

| Task | Tools |
|---|---|
| Browse | list_companies, refresh_companies, get_company |
| Price | quote_investment |
| Invest | start_investment, edit_investment, submit_investment, investment_status, cancel_investment, list_submissions |
| Raise | create_company, transaction_status |
| Investors | investor_reputation, investor_portfolio |
| History | recent_activity |

## Read next

- capvault://docs/pricing for how amounts and shares are reconciled.
- capvault://docs/submissions for the submission lifecycle and its errors.

## Known limitations

- Encryption and proofs are placeholders: 32 zero bytes per value and a 64 byte zero proof.
- Sector and stage are assigned by listing position, not read from the contract.
`,
	},
	{
		URI:         "capvault://docs/pricing",
		Name:        "docs_pricing",
		Title:       "Pricing",
		Description: "Amount to shares and back.",
		Content: `# Pricing

shares = floor(amount * total_shares / valuation)
amount = shares * valuation / total_shares

- Multiplication happens before division, so no precision is lost to an intermediate share price.
- Shares are always whole. Editing shares drops any fractional part.
- A zero or negative amount, a zero valuation or zero total shares quote to 0 shares.
- Converting amount -> shares -> amount loses at most the value of one share.
- Ownership is shares / total_shares as a percentage with two decimals.

The amount sent with an investment must be a whole, non-negative number.
`,
	},
	{
		URI:         "capvault://docs/submissions",
		Name:        "docs_submissions",
		Title:       "Submissions",
		Description: "Lifecycle of an investment submission.",
		Content: `# Submissions

idle -> validating -> submitting -> awaiting_confirmation -> confirmed
                 \-> failed      \-> failed             \-> failed

- Submitting with an empty amount or shares returns MISSING_INPUT and makes no contract call.
- Only one submission per form may run: a second submit returns IN_FLIGHT.
- A form cannot be edited or cancelled while a submission runs.
- A failure keeps the entered values and stores the reason shown to the user.
- A failed submission can be edited and submitted again, or cancelled.
- Confirmation clears the form and closes the submission. Call start_investment for another investment; investment_status still reports the closed submission.
- A dispatched transaction is watched until it settles, whether or not the call waits. It is never abandoned when the calling request is cancelled.
- A transaction that does not settle within the confirmation timeout fails the submission with "confirmation timed out".
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
