package httptransport

type UpdateAdminsRequest struct {
	Caller string   `json:"caller"`
	Admins []string `json:"admins"`
}

type ChangeAllowanceRequest struct {
	Caller string `json:"caller"`
	Amount uint64 `json:"amount"`
}

type SpendRequest struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

type RegisterDistributionRequest struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Message   string `json:"message,omitempty"`
}

type UpdateDistributionRequest struct {
	Caller    string  `json:"caller"`
	Recipient *string `json:"recipient,omitempty"`
	Amount    *uint64 `json:"amount,omitempty"`
	StartTime *int64  `json:"start_time,omitempty"`
	EndTime   *int64  `json:"end_time,omitempty"`
	Message   *string `json:"message,omitempty"`
}

type RemoveDistributionMessageRequest struct {
	Caller string `json:"caller"`
}

type DistributeRequest struct {
	Caller string `json:"caller"`
}

type TransferRequest struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

type ConfigResponse struct {
	Admins        []string `json:"admins"`
	ManagingToken string   `json:"managing_token"`
}

type BalanceResponse struct {
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount"`
}

type AllowanceResponse struct {
	Address       string `json:"address"`
	AllowedAmount uint64 `json:"allowed_amount"`
	RemainAmount  uint64 `json:"remain_amount"`
}

type AllowanceListResponse struct {
	Items []AllowanceResponse `json:"items"`
}

type DistributionResponse struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Released  uint64 `json:"released"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Message   string `json:"message,omitempty"`
}

type RegisteredResponse struct {
	ID string `json:"id"`
}

type AcceptedResponse struct {
	Accepted bool `json:"accepted"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
