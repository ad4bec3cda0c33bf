package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	orchestrator "pollterra/contexts/poll-platform/orchestrator"
	orchestratorerrors "pollterra/contexts/poll-platform/orchestrator/domain/errors"
	orchestratorhttp "pollterra/contexts/poll-platform/orchestrator/transport/http"
	settlement "pollterra/contexts/poll-platform/settlement"
	settlementerrors "pollterra/contexts/poll-platform/settlement/domain/errors"
	settlementhttp "pollterra/contexts/poll-platform/settlement/transport/http"
	treasury "pollterra/contexts/poll-platform/treasury"
	treasuryerrors "pollterra/contexts/poll-platform/treasury/domain/errors"
	treasuryhttp "pollterra/contexts/poll-platform/treasury/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "pollterra/internal/platform/httpserver/docs"
)

type Server struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	addr         string
	orchestrator orchestrator.Module
	settlement   settlement.Module
	treasury     treasury.Module
}

func New(
	orchestratorModule orchestrator.Module,
	settlementModule settlement.Module,
	treasuryModule treasury.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:          http.NewServeMux(),
		logger:       logger,
		addr:         addr,
		orchestrator: orchestratorModule,
		settlement:   settlementModule,
		treasury:     treasuryModule,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/orchestrator/v1/creations", s.handleFundedCreation)
	s.mux.HandleFunc("POST /api/orchestrator/v1/instantiations/ack", s.handleAcknowledgement)
	s.mux.HandleFunc("POST /api/orchestrator/v1/token-contract", s.handleRegisterToken)
	s.mux.HandleFunc("PATCH /api/orchestrator/v1/config", s.handleUpdateConfig)
	s.mux.HandleFunc("GET /api/orchestrator/v1/config", s.handleOrchestratorConfig)
	s.mux.HandleFunc("GET /api/orchestrator/v1/polls", s.handlePollList)
	s.mux.HandleFunc("POST /api/orchestrator/v1/polls/{address}/finish", s.handleFinishPoll)
	s.mux.HandleFunc("POST /api/orchestrator/v1/transfers", s.handleOrchestratorTransfer)

	s.mux.HandleFunc("POST /api/polls/v1/{poll_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("POST /api/polls/v1/{poll_id}/close", s.handleClosePoll)
	s.mux.HandleFunc("POST /api/polls/v1/{poll_id}/reclaim", s.handleReclaimDeposit)
	s.mux.HandleFunc("POST /api/polls/v1/{poll_id}/owner", s.handleTransferOwner)
	s.mux.HandleFunc("GET /api/polls/v1/{poll_id}", s.handleGetPoll)
	s.mux.HandleFunc("GET /api/polls/v1/{poll_id}/tally", s.handleGetTally)
	s.mux.HandleFunc("GET /api/polls/v1/{poll_id}/voters/{address}", s.handleGetVoter)
	s.mux.HandleFunc("GET /api/polls/v1/{poll_id}/voters", s.handleListVoters)

	s.mux.HandleFunc("GET /api/treasury/v1/config", s.handleTreasuryConfig)
	s.mux.HandleFunc("GET /api/treasury/v1/balance", s.handleTreasuryBalance)
	s.mux.HandleFunc("GET /api/treasury/v1/allowances/{address}", s.handleGetAllowance)
	s.mux.HandleFunc("GET /api/treasury/v1/allowances", s.handleListAllowances)
	s.mux.HandleFunc("POST /api/treasury/v1/allowances/{address}/increase", s.handleIncreaseAllowance)
	s.mux.HandleFunc("POST /api/treasury/v1/allowances/{address}/decrease", s.handleDecreaseAllowance)
	s.mux.HandleFunc("POST /api/treasury/v1/spend", s.handleSpend)
	s.mux.HandleFunc("POST /api/treasury/v1/admins", s.handleUpdateAdmins)
	s.mux.HandleFunc("GET /api/treasury/v1/distributions", s.handleListDistributions)
	s.mux.HandleFunc("POST /api/treasury/v1/distributions", s.handleRegisterDistribution)
	s.mux.HandleFunc("PATCH /api/treasury/v1/distributions/{id}", s.handleUpdateDistribution)
	s.mux.HandleFunc("DELETE /api/treasury/v1/distributions/{id}/message", s.handleRemoveDistributionMessage)
	s.mux.HandleFunc("POST /api/treasury/v1/distributions/distribute", s.handleDistribute)
	s.mux.HandleFunc("POST /api/treasury/v1/transfers", s.handleTreasuryTransfer)
}

func (s *Server) handleFundedCreation(w http.ResponseWriter, r *http.Request) {
	var req orchestratorhttp.FundedCreationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOrchestratorError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.orchestrator.Handler.FundedCreationHandler(r.Context(), req); err != nil {
		writeOrchestratorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, orchestratorhttp.AcceptedResponse{Accepted: true})
}

func (s *Server) handleAcknowledgement(w http.ResponseWriter, r *http.Request) {
	var req orchestratorhttp.AcknowledgementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOrchestratorError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.orchestrator.Handler.AcknowledgementHandler(r.Context(), req); err != nil {
		writeOrchestratorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orchestratorhttp.AcceptedResponse{Accepted: true})
}

func (s *Server) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var req orchestratorhttp.RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOrchestratorError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.orchestrator.Handler.RegisterTokenHandler(r.Context(), req); err != nil {
		writeOrchestratorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orchestratorhttp.AcceptedResponse{Accepted: true})
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req orchestratorhttp.UpdateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOrchestratorError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.orchestrator.Handler.UpdateConfigHandler(r.Context(), req); err != nil {
		writeOrchestratorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orchestratorhttp.AcceptedResponse{Accepted: true})
}

func (s *Server) handleOrchestratorConfig(w http.ResponseWriter, r *http.Request) {
	resp, err := s.orchestrator.Handler.ConfigHandler(r.Context())
	if err != nil {
		writeOrchestratorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePollList(w http.ResponseWriter, r *http.Request) {
	resp, err := s.orchestrator.Handler.PollListHandler(r.Context())
	if err != nil {
		writeOrchestratorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFinishPoll(w http.ResponseWriter, r *http.Request) {
	var req orchestratorhttp.FinishPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOrchestratorError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.orchestrator.Handler.FinishPollHandler(r.Context(), r.PathValue("address"), req); err != nil {
		writeOrchestratorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, orchestratorhttp.AcceptedResponse{Accepted: true})
}

func (s *Server) handleOrchestratorTransfer(w http.ResponseWriter, r *http.Request) {
	var req orchestratorhttp.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOrchestratorError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.orchestrator.Handler.TransferHandler(r.Context(), req); err != nil {
		writeOrchestratorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, orchestratorhttp.AcceptedResponse{Accepted: true})
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req settlementhttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSettlementError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.settlement.Handler.CastVoteHandler(r.Context(), r.PathValue("poll_id"), req); err != nil {
		writeSettlementDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlementhttp.AcceptedResponse{Accepted: true})
}

func (s *Server) handleClosePoll(w http.ResponseWriter, r *http.Request) {
	var req settlementhttp.ClosePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSettlementError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.settlement.Handler.ClosePollHandler(r.Context(), r.PathValue("poll_id"), req); err != nil {
		writeSettlementDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlementhttp.AcceptedResponse{Accepted: true})
}

func (s *Server) handleReclaimDeposit(w http.ResponseWriter, r *http.Request) {
	var req settlementhttp.ReclaimDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSettlementError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.settlement.Handler.ReclaimDepositHandler(r.Context(), r.PathValue("poll_id"), req); err != nil {
		writeSettlementDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlementhttp.AcceptedResponse{Accepted: true})
}

func (s *Server) handleTransferOwner(w http.ResponseWriter, r *http.Request) {
	var req settlementhttp.TransferOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSettlementError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.settlement.Handler.TransferOwnerHandler(r.Context(), r.PathValue("poll_id"), req); err != nil {
		writeSettlementDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlementhttp.AcceptedResponse{Accepted: true})
}

func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	resp, err := s.settlement.Handler.PollHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		writeSettlementDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTally(w http.ResponseWriter, r *http.Request) {
	resp, err := s.settlement.Handler.TallyHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		writeSettlementDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetVoter(w http.ResponseWriter, r *http.Request) {
	resp, err := s.settlement.Handler.VoterHandler(r.Context(), r.PathValue("poll_id"), r.PathValue("address"))
	if err != nil {
		writeSettlementDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListVoters(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, ok := parseLimit(query.Get("limit"))
	if !ok {
		writeSettlementError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
		return
	}
	resp, err := s.settlement.Handler.VoterListHandler(
		r.Context(),
		r.PathValue("poll_id"),
		query.Get("start_after"),
		limit,
		query.Get("order") == "desc",
	)
	if err != nil {
		writeSettlementDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTreasuryConfig(w http.ResponseWriter, r *http.Request) {
	resp, err := s.treasury.Handler.ConfigHandler(r.Context())
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTreasuryBalance(w http.ResponseWriter, r *http.Request) {
	resp, err := s.treasury.Handler.BalanceHandler(r.Context())
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetAllowance(w http.ResponseWriter, r *http.Request) {
	resp, err := s.treasury.Handler.AllowanceHandler(r.Context(), r.PathValue("address"))
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAllowances(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, ok := parseLimit(query.Get("limit"))
	if !ok {
		writeTreasuryError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
		return
	}
	resp, err := s.treasury.Handler.AllowanceListHandler(
		r.Context(),
		query.Get("start_after"),
		limit,
		query.Get("order") == "desc",
	)
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIncreaseAllowance(w http.ResponseWriter, r *http.Request) {
	var req treasuryhttp.ChangeAllowanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTreasuryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.treasury.Handler.IncreaseAllowanceHandler(r.Context(), r.PathValue("address"), req); err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, treasuryhttp.AcceptedResponse{Accepted: true})
}

func (s *Server) handleDecreaseAllowance(w http.ResponseWriter, r *http.Request) {
	var req treasuryhttp.ChangeAllowanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTreasuryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.treasury.Handler.DecreaseAllowanceHandler(r.Context(), r.PathValue("address"), req); err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, treasuryhttp.AcceptedResponse{Accepted: true})
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	var req treasuryhttp.SpendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTreasuryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.treasury.Handler.SpendHandler(r.Context(), req); err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, treasuryhttp.AcceptedResponse{Accepted: true})
}

func (s *Server) handleUpdateAdmins(w http.ResponseWriter, r *http.Request) {
	var req treasuryhttp.UpdateAdminsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTreasuryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.treasury.Handler.UpdateAdminsHandler(r.Context(), req); err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, treasuryhttp.AcceptedResponse{Accepted: true})
}

func (s *Server) handleListDistributions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.treasury.Handler.DistributionListHandler(r.Context())
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegisterDistribution(w http.ResponseWriter, r *http.Request) {
	var req treasuryhttp.RegisterDistributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTreasuryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.treasury.Handler.RegisterDistributionHandler(r.Context(), req)
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleUpdateDistribution(w http.ResponseWriter, r *http.Request) {
	var req treasuryhttp.UpdateDistributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTreasuryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.treasury.Handler.UpdateDistributionHandler(r.Context(), r.PathValue("id"), req); err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, treasuryhttp.AcceptedResponse{Accepted: true})
}

func (s *Server) handleRemoveDistributionMessage(w http.ResponseWriter, r *http.Request) {
	var req treasuryhttp.RemoveDistributionMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTreasuryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.treasury.Handler.RemoveDistributionMessageHandler(r.Context(), r.PathValue("id"), req); err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, treasuryhttp.AcceptedResponse{Accepted: true})
}

func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request) {
	var req treasuryhttp.DistributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTreasuryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.treasury.Handler.DistributeHandler(r.Context(), req); err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, treasuryhttp.AcceptedResponse{Accepted: true})
}

func (s *Server) handleTreasuryTransfer(w http.ResponseWriter, r *http.Request) {
	var req treasuryhttp.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTreasuryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.treasury.Handler.TransferHandler(r.Context(), req); err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, treasuryhttp.AcceptedResponse{Accepted: true})
}

func writeOrchestratorDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestratorerrors.ErrUnauthorized):
		writeOrchestratorError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, orchestratorerrors.ErrIncorrectTokenContract):
		writeOrchestratorError(w, http.StatusForbidden, "incorrect_token_contract", err.Error())
	case errors.Is(err, orchestratorerrors.ErrInsufficientTokenDeposit),
		errors.Is(err, orchestratorerrors.ErrInvalidTokenDeposit),
		errors.Is(err, orchestratorerrors.ErrInvalidCreationPayload),
		errors.Is(err, orchestratorerrors.ErrInvalidPollKind),
		errors.Is(err, orchestratorerrors.ErrResolutionTimeRequired),
		errors.Is(err, orchestratorerrors.ErrEndAfterResolution),
		errors.Is(err, orchestratorerrors.ErrUnexpectedResolutionTime),
		errors.Is(err, orchestratorerrors.ErrEmptyWinner),
		errors.Is(err, orchestratorerrors.ErrInvalidZeroAmount),
		errors.Is(err, orchestratorerrors.ErrInvalidAddress):
		writeOrchestratorError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, orchestratorerrors.ErrCreationInFlight),
		errors.Is(err, orchestratorerrors.ErrTokenAlreadyRegistered),
		errors.Is(err, orchestratorerrors.ErrTokenNotRegistered),
		errors.Is(err, orchestratorerrors.ErrInsufficientBalance):
		writeOrchestratorError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, orchestratorerrors.ErrUnknownCorrelationToken),
		errors.Is(err, orchestratorerrors.ErrPollNotRegistered):
		writeOrchestratorError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		writeOrchestratorError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeSettlementDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settlementerrors.ErrPollNotFound),
		errors.Is(err, settlementerrors.ErrVoterNotFound):
		writeSettlementError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, settlementerrors.ErrUnauthorized):
		writeSettlementError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, settlementerrors.ErrUnexpectedFunds),
		errors.Is(err, settlementerrors.ErrInvalidAddress):
		writeSettlementError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, settlementerrors.ErrPollExists),
		errors.Is(err, settlementerrors.ErrVotingClosed),
		errors.Is(err, settlementerrors.ErrAlreadyVoted),
		errors.Is(err, settlementerrors.ErrAlreadyFinished),
		errors.Is(err, settlementerrors.ErrPollNotEnded),
		errors.Is(err, settlementerrors.ErrAlreadyReclaimed),
		errors.Is(err, settlementerrors.ErrThresholdNotMet):
		writeSettlementError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeSettlementError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeTreasuryDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, treasuryerrors.ErrUnauthorized):
		writeTreasuryError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, treasuryerrors.ErrInvalidZeroAmount),
		errors.Is(err, treasuryerrors.ErrInvalidAddress),
		errors.Is(err, treasuryerrors.ErrInvalidDistributionWindow):
		writeTreasuryError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, treasuryerrors.ErrAllowanceNotFound),
		errors.Is(err, treasuryerrors.ErrDistributionNotFound):
		writeTreasuryError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, treasuryerrors.ErrInsufficientRemainAllowance),
		errors.Is(err, treasuryerrors.ErrInsufficientBalance):
		writeTreasuryError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeTreasuryError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeOrchestratorError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, orchestratorhttp.ErrorResponse{Code: code, Message: message})
}

func writeSettlementError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, settlementhttp.ErrorResponse{Code: code, Message: message})
}

func writeTreasuryError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, treasuryhttp.ErrorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func parseLimit(raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return limit, true
}
