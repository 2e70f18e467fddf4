package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"stakevault/core"
	"stakevault/crypto"
	"stakevault/native/staking"
)

type stakeDepositParams struct {
	Caller string `json:"caller"`
	Period uint64 `json:"period"`
	Value  string `json:"value"`
}

type stakeExtendParams struct {
	Caller string `json:"caller"`
	Period uint64 `json:"period"`
}

type stakeCallerParams struct {
	Caller string `json:"caller"`
}

type stakeAccountParams struct {
	Account string `json:"account"`
}

type stakeTopUpParams struct {
	Caller string `json:"caller"`
	Value  string `json:"value"`
}

func decodeAccount(encoded string) ([20]byte, error) {
	var addr [20]byte
	decoded, err := crypto.DecodeAddress(encoded)
	if err != nil {
		return addr, err
	}
	copy(addr[:], decoded.Bytes())
	return addr, nil
}

func singleParam(req *RPCRequest, target interface{}) error {
	if len(req.Params) != 1 {
		return errors.New("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], target)
}

// writeStakingError maps engine errors onto the JSON-RPC error surface.
// Recoverable conditions come back as invalid-params failures; fatal
// invariant violations and declined transfers surface as server errors.
func writeStakingError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case staking.IsFatal(err):
		writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
	case errors.Is(err, staking.ErrTransferFailed):
		writeError(w, http.StatusBadGateway, id, codeServerError, err.Error(), nil)
	case errors.Is(err, staking.ErrNoStake),
		errors.Is(err, staking.ErrInvalidPeriod),
		errors.Is(err, staking.ErrStillActive),
		errors.Is(err, staking.ErrNoClaimRecord),
		errors.Is(err, core.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
	}
}

func (s *Server) handleStakeDeposit(w http.ResponseWriter, req *RPCRequest) {
	var params stakeDepositParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAccount(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	value, err := parseAmount(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.StakeDeposit(caller, params.Period, value); err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	info, err := s.node.StakeInfo(caller)
	if err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, stakeInfoResult(info))
}

func (s *Server) handleStakeExtend(w http.ResponseWriter, req *RPCRequest) {
	var params stakeExtendParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAccount(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.node.StakeExtend(caller, params.Period); err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	info, err := s.node.StakeInfo(caller)
	if err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, stakeInfoResult(info))
}

func (s *Server) handleStakeWithdraw(w http.ResponseWriter, req *RPCRequest) {
	var params stakeCallerParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAccount(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.node.StakeWithdraw(caller); err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	account, err := s.node.Account(caller)
	if err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"balanceSVT": account.BalanceSVT.String()})
}

func (s *Server) handleStakeEmergencyWithdraw(w http.ResponseWriter, req *RPCRequest) {
	var params stakeCallerParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAccount(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.node.StakeEmergencyWithdraw(caller); err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	account, err := s.node.Account(caller)
	if err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"balanceSVT": account.BalanceSVT.String()})
}

func (s *Server) handleStakeClaim(w http.ResponseWriter, req *RPCRequest) {
	var params stakeCallerParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAccount(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.node.StakeClaim(caller); err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	balance, err := s.node.RewardBalance(caller)
	if err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"rewardBalance": balance.String()})
}

func (s *Server) handleStakePoolTopUp(w http.ResponseWriter, req *RPCRequest) {
	var params stakeTopUpParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAccount(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	value, err := parseAmount(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.StakePoolTopUp(caller, value); err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	pool, err := s.node.StakingPool()
	if err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, stakePoolResult(pool))
}

func (s *Server) handleStakeInfo(w http.ResponseWriter, req *RPCRequest) {
	var params stakeAccountParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	account, err := decodeAccount(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	info, err := s.node.StakeInfo(account)
	if err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, stakeInfoResult(info))
}

func (s *Server) handleStakeAvailableRewards(w http.ResponseWriter, req *RPCRequest) {
	var params stakeAccountParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	account, err := decodeAccount(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	rewards, err := s.node.StakeAvailableRewards(account)
	if err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"rewards": rewards.String()})
}

func (s *Server) handleStakePassedPeriods(w http.ResponseWriter, req *RPCRequest) {
	var params stakeAccountParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	account, err := decodeAccount(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	periods, err := s.node.StakePassedPeriods(account)
	if err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"periods": periods})
}

func (s *Server) handleStakeNextRewardDate(w http.ResponseWriter, req *RPCRequest) {
	var params stakeAccountParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	account, err := decodeAccount(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	next, err := s.node.StakeNextRewardDate(account)
	if err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"nextRewardAt": next})
}

func (s *Server) handleStakingPeriod(w http.ResponseWriter, req *RPCRequest) {
	var params stakeAccountParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	account, err := decodeAccount(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	period, err := s.node.StakingPeriod(account)
	if err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"periods": period})
}

func (s *Server) handleStakePool(w http.ResponseWriter, req *RPCRequest) {
	pool, err := s.node.StakingPool()
	if err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, stakePoolResult(pool))
}

func (s *Server) handleStakeEvents(w http.ResponseWriter, req *RPCRequest) {
	writeResult(w, req.ID, s.node.Events())
}

func (s *Server) handleGetBalance(w http.ResponseWriter, req *RPCRequest) {
	var params stakeAccountParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	account, err := decodeAccount(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account address", err.Error())
		return
	}
	stored, err := s.node.Account(account)
	if err != nil {
		writeStakingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"balanceSVT": stored.BalanceSVT.String()})
}
