package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rpggio/capvault/internal/domain/activity"
	"github.com/rpggio/capvault/internal/domain/captable"
	"github.com/rpggio/capvault/internal/domain/quote"
	"github.com/rpggio/capvault/internal/domain/submission"
	"github.com/rpggio/capvault/internal/format"
)

// CompanyStore defines the company snapshot operations needed by MCP.
type CompanyStore interface {
	State() captable.State
	Snapshot() captable.Snapshot
	Refresh(ctx context.Context) error
}

// CapTableService defines the tracked contract writes needed by MCP.
type CapTableService interface {
	CreateCompany(ctx context.Context, req captable.CreateCompanyRequest) (captable.TxHandle, error)
	TransactionStatus(ctx context.Context, handle captable.TxHandle) (captable.TxStatus, error)
}

// SubmissionService defines submission flow operations needed by MCP.
type SubmissionService interface {
	Start(ctx context.Context, investor string, listing captable.Listing) (*submission.Flow, error)
	Flow(id string) (*submission.Flow, error)
	Cancel(id string) error
	Record(ctx context.Context, id string) (*submission.Record, error)
	List(ctx context.Context, opts submission.ListOptions) ([]submission.Record, error)
}

// InvestorService defines investor reads needed by MCP.
type InvestorService interface {
	Reputation(ctx context.Context, address string) (*captable.Reputation, error)
	Portfolio(ctx context.Context, address string) ([]uint64, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, investor string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
	Record(ctx context.Context, investor string, typ activity.ActivityType, submissionID string, companyID uint64, summary string, details any)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Companies   CompanyStore
	CapTable    CapTableService
	Submissions SubmissionService
	Investors   InvestorService
	Activity    ActivityService
}

// Handler dispatches MCP tool calls to domain services.
type Handler struct {
	svc    Services
	logger *slog.Logger
}

// NewHandler creates a new MCP handler.
func NewHandler(svc Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{svc: svc, logger: logger}
}

// Handle dispatches a tool call made on behalf of investor. Domain
// errors are returned as *APIError.
func (h *Handler) Handle(ctx context.Context, investor, method string, params json.RawMessage) (any, error) {
	result, err := h.dispatch(ctx, investor, method, params)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (h *Handler) dispatch(ctx context.Context, investor, method string, params json.RawMessage) (any, error) {
	switch method {
	case "list_companies":
		return h.listCompanies(h.svc.Companies.State()), nil
	case "refresh_companies":
		if err := h.svc.Companies.Refresh(ctx); err != nil {
			h.logger.Warn("refresh failed", "error", err)
		}
		return h.listCompanies(h.svc.Companies.State()), nil
	case "get_company":
		var req GetCompanyParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		listing, err := captable.ListingFor(h.svc.Companies.Snapshot(), req.ID)
		if err != nil {
			return nil, mapError(err)
		}
		return CompanyResponse{Listing: toListing(listing), Company: listing.Company}, nil
	case "quote_investment":
		var req QuoteInvestmentParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.quote(req)
	case "start_investment":
		var req StartInvestmentParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		listing, err := captable.ListingFor(h.svc.Companies.Snapshot(), req.CompanyID)
		if err != nil {
			return nil, mapError(err)
		}
		f, err := h.svc.Submissions.Start(ctx, investor, listing)
		if err != nil {
			return nil, mapError(err)
		}
		return f.View(), nil
	case "edit_investment":
		var req EditInvestmentParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if (req.Amount == nil) == (req.Shares == nil) {
			return nil, fmt.Errorf("%w: set exactly one of amount or shares", ErrInvalidParams)
		}
		f, err := h.flow(investor, req.SubmissionID)
		if err != nil {
			return nil, err
		}
		if req.Amount != nil {
			err = f.EditAmount(*req.Amount)
		} else {
			err = f.EditShares(*req.Shares)
		}
		if err != nil {
			return nil, mapError(err)
		}
		return f.View(), nil
	case "submit_investment":
		var req SubmitInvestmentParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		f, err := h.flow(investor, req.SubmissionID)
		if err != nil {
			return nil, err
		}
		return h.submit(ctx, f, req.Wait)
	case "investment_status":
		var req SubmissionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if f, err := h.flow(investor, req.SubmissionID); err == nil {
			view := f.View()
			return StatusResponse{Open: true, Submission: &view}, nil
		}
		rec, err := h.svc.Submissions.Record(ctx, req.SubmissionID)
		if err != nil {
			return nil, mapError(err)
		}
		if !strings.EqualFold(rec.Investor, investor) {
			return nil, mapError(submission.ErrFlowNotFound)
		}
		return StatusResponse{Record: rec}, nil
	case "cancel_investment":
		var req SubmissionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if _, err := h.flow(investor, req.SubmissionID); err != nil {
			return nil, err
		}
		if err := h.svc.Submissions.Cancel(req.SubmissionID); err != nil {
			return nil, mapError(err)
		}
		return map[string]string{"status": "cancelled"}, nil
	case "list_submissions":
		var req ListSubmissionsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		recs, err := h.svc.Submissions.List(ctx, submission.ListOptions{
			Investor:  investor,
			CompanyID: req.CompanyID,
			States:    req.States,
			Limit:     req.Limit,
			Offset:    req.Offset,
		})
		if err != nil {
			return nil, mapError(err)
		}
		return recs, nil
	case "create_company":
		var req CreateCompanyParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		valuation, err := decimal.NewFromString(strings.TrimSpace(req.InitialValuation))
		if err != nil {
			return nil, fmt.Errorf("%w: initial_valuation %q is not a number", ErrInvalidParams, req.InitialValuation)
		}
		handle, err := h.svc.CapTable.CreateCompany(ctx, captable.CreateCompanyRequest{
			Name:             req.Name,
			Description:      req.Description,
			TotalShares:      req.TotalShares,
			InitialValuation: valuation,
		})
		if err != nil {
			return nil, mapError(err)
		}
		h.svc.Activity.Record(ctx, investor, activity.TypeCompanyCreated, "", 0,
			fmt.Sprintf("company %s submitted", req.Name),
			map[string]string{"handle": string(handle), "valuation": valuation.String()})
		return CreateCompanyResponse{Handle: handle}, nil
	case "transaction_status":
		var req TransactionStatusParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		status, err := h.svc.CapTable.TransactionStatus(ctx, captable.TxHandle(req.Handle))
		if err != nil {
			return nil, mapError(err)
		}
		return status, nil
	case "investor_reputation":
		var req InvestorParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		address := addressOrCaller(req.Address, investor)
		rep, err := h.svc.Investors.Reputation(ctx, address)
		if err != nil {
			return nil, mapError(err)
		}
		return ReputationResponse{Address: address, Reputation: *rep}, nil
	case "investor_portfolio":
		var req InvestorParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		address := addressOrCaller(req.Address, investor)
		ids, err := h.svc.Investors.Portfolio(ctx, address)
		if err != nil {
			return nil, mapError(err)
		}
		return PortfolioResponse{Address: address, InvestmentIDs: ids}, nil
	case "recent_activity":
		var req RecentActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		entries, err := h.svc.Activity.GetRecentActivity(ctx, investor, activity.ListActivityOptions{
			SubmissionID: req.SubmissionID,
			CompanyID:    req.CompanyID,
			ActivityType: req.Type,
			Limit:        req.Limit,
			Offset:       req.Offset,
		})
		if err != nil {
			return nil, mapError(err)
		}
		return entries, nil
	default:
		return nil, &APIError{Code: "UNKNOWN_TOOL", Message: fmt.Sprintf("unknown tool: %s", method)}
	}
}

func (h *Handler) listCompanies(state captable.State) ListCompaniesResponse {
	listings := captable.Listings(state.Snapshot)
	resp := ListCompaniesResponse{
		Companies: make([]CompanyListing, 0, len(listings)),
		FetchedAt: state.Snapshot.FetchedAt,
		Loading:   state.Loading,
		Error:     state.Err,
	}
	for _, l := range listings {
		resp.Companies = append(resp.Companies, toListing(l))
	}
	return resp
}

func (h *Handler) quote(req QuoteInvestmentParams) (QuoteResponse, error) {
	if (req.Amount == "") == (req.Shares == "") {
		return QuoteResponse{}, fmt.Errorf("%w: set exactly one of amount or shares", ErrInvalidParams)
	}
	company, err := findCompany(h.svc.Companies.Snapshot(), req.CompanyID)
	if err != nil {
		return QuoteResponse{}, mapError(err)
	}
	q := quote.Quoter{TotalShares: company.TotalShares, CurrentValuation: company.CurrentValuation}
	form := quote.NewForm(q)
	if req.Amount != "" {
		form.EditAmount(req.Amount)
	} else {
		form.EditShares(req.Shares)
	}
	summary := form.Summary()
	return QuoteResponse{
		CompanyID:  company.ID,
		Amount:     form.Amount(),
		Shares:     form.Shares(),
		Ownership:  format.Percentage(summary.Ownership),
		ShareValue: format.AmountDefault(q.ShareValue()),
		Display: fmt.Sprintf("%s buys %s shares (%s) of %s",
			format.AmountDefault(summary.Amount), format.Shares(summary.Shares),
			format.Percentage(summary.Ownership), company.Name),
	}, nil
}

func (h *Handler) submit(ctx context.Context, f *submission.Flow, wait bool) (SubmitResponse, error) {
	handle, err := f.Submit(ctx)
	if err != nil {
		return SubmitResponse{}, mapError(err)
	}
	resp := SubmitResponse{Handle: handle}
	if wait {
		// the flow keeps watching the transaction if the call ends first
		if _, err := f.AwaitConfirmation(ctx); err != nil {
			resp.Error = err.Error()
		}
	}
	resp.Submission = f.View()
	return resp, nil
}

// flow returns the open flow id if it belongs to investor.
func (h *Handler) flow(investor, id string) (*submission.Flow, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: submission_id is required", ErrInvalidParams)
	}
	f, err := h.svc.Submissions.Flow(id)
	if err != nil {
		return nil, mapError(err)
	}
	if !strings.EqualFold(f.View().Investor, investor) {
		return nil, mapError(submission.ErrFlowNotFound)
	}
	return f, nil
}

func toListing(l captable.Listing) CompanyListing {
	c := l.Company
	q := quote.Quoter{TotalShares: c.TotalShares, CurrentValuation: c.CurrentValuation}
	return CompanyListing{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		Sector:        l.Sector,
		Status:        l.Status,
		Valuation:     format.Millions(c.CurrentValuation),
		Raised:        format.Millions(c.TotalRaised),
		TotalShares:   format.Shares(c.TotalShares),
		ShareValue:    format.AmountDefault(q.ShareValue()),
		InvestorCount: c.InvestorCount,
		Verified:      c.IsVerified,
		Active:        c.IsActive,
		Owner:         format.Address(c.Owner),
		Founded:       format.Timestamp(c.CreatedAt.Unix()),
	}
}

func findCompany(snap captable.Snapshot, id uint64) (captable.Company, error) {
	for _, c := range snap.Companies {
		if c.ID == id {
			return c, nil
		}
	}
	return captable.Company{}, captable.ErrCompanyNotFound
}

func addressOrCaller(address, investor string) string {
	if strings.TrimSpace(address) != "" {
		return address
	}
	return investor
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
