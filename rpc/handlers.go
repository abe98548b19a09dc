package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"outboxd/core"
)

type handlerFunc func(s *Server, params []json.RawMessage) (interface{}, *rpcError)

var methodTable = map[string]handlerFunc{
	"outbox_initialize":          (*Server).handleInitialize,
	"outbox_dispatch":            (*Server).handleDispatch,
	"outbox_checkpoint":          (*Server).handleCheckpoint,
	"outbox_fail":                (*Server).handleFail,
	"outbox_setValidatorManager": (*Server).handleSetValidatorManager,
	"outbox_transferOwnership":   (*Server).handleTransferOwnership,
	"outbox_renounceOwnership":   (*Server).handleRenounceOwnership,
	"outbox_root":                (*Server).handleRoot,
	"outbox_count":               (*Server).handleCount,
	"outbox_checkpointedRoot":    (*Server).handleCheckpointedRoot,
	"outbox_checkpoints":         (*Server).handleCheckpoints,
	"outbox_latestCheckpoint":    (*Server).handleLatestCheckpoint,
	"outbox_nonces":              (*Server).handleNonces,
	"outbox_localDomain":         (*Server).handleLocalDomain,
	"outbox_owner":               (*Server).handleOwner,
	"outbox_validatorManager":    (*Server).handleValidatorManager,
	"outbox_state":               (*Server).handleState,
	"outbox_maxMessageBodyBytes": (*Server).handleMaxMessageBodyBytes,
}

var mutatingMethods = map[string]bool{
	"outbox_initialize":          true,
	"outbox_dispatch":            true,
	"outbox_checkpoint":          true,
	"outbox_fail":                true,
	"outbox_setValidatorManager": true,
	"outbox_transferOwnership":   true,
	"outbox_renounceOwnership":   true,
}

func decodeParams(params []json.RawMessage, dst interface{}) *rpcError {
	if len(params) != 1 {
		return invalidParams("expected a single params object")
	}
	if err := json.Unmarshal(params[0], dst); err != nil {
		return invalidParams(fmt.Sprintf("malformed params: %v", err))
	}
	return nil
}

func parseAddress(value, field string) (common.Address, *rpcError) {
	if !common.IsHexAddress(value) {
		return common.Address{}, invalidParams(fmt.Sprintf("%s must be a 0x-prefixed 20-byte address", field))
	}
	return common.HexToAddress(value), nil
}

// parseIdentifier accepts either a full 32-byte identifier or a 20-byte
// address, which is widened the way dispatch widens its caller.
func parseIdentifier(value, field string) ([32]byte, *rpcError) {
	if common.IsHexAddress(value) {
		return core.AddressIdentifier(common.HexToAddress(value)), nil
	}
	raw, err := hexutil.Decode(value)
	if err != nil || len(raw) != 32 {
		return [32]byte{}, invalidParams(fmt.Sprintf("%s must be a 0x-prefixed 32-byte identifier or 20-byte address", field))
	}
	var id [32]byte
	copy(id[:], raw)
	return id, nil
}

func parseHash(value, field string) (common.Hash, *rpcError) {
	raw, err := hexutil.Decode(value)
	if err != nil || len(raw) != 32 {
		return common.Hash{}, invalidParams(fmt.Sprintf("%s must be a 0x-prefixed 32-byte hash", field))
	}
	return common.BytesToHash(raw), nil
}

type initializeParams struct {
	From             string `json:"from"`
	ValidatorManager string `json:"validatorManager"`
}

func (s *Server) handleInitialize(params []json.RawMessage) (interface{}, *rpcError) {
	var p initializeParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress(p.From, "from")
	if rpcErr != nil {
		return nil, rpcErr
	}
	manager, rpcErr := parseAddress(p.ValidatorManager, "validatorManager")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.outbox.Initialize(caller, manager); err != nil {
		return nil, coreError(err)
	}
	return map[string]string{"state": s.outbox.State().String()}, nil
}

type dispatchParams struct {
	From        string `json:"from"`
	Destination uint32 `json:"destination"`
	Recipient   string `json:"recipient"`
	Body        string `json:"body"`
}

func (s *Server) handleDispatch(params []json.RawMessage) (interface{}, *rpcError) {
	var p dispatchParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	sender, rpcErr := parseIdentifier(p.From, "from")
	if rpcErr != nil {
		return nil, rpcErr
	}
	recipient, rpcErr := parseIdentifier(p.Recipient, "recipient")
	if rpcErr != nil {
		return nil, rpcErr
	}
	var body []byte
	if p.Body != "" {
		decoded, err := hexutil.Decode(p.Body)
		if err != nil {
			return nil, invalidParams("body must be 0x-prefixed hex")
		}
		body = decoded
	}
	leafIndex, err := s.outbox.Dispatch(sender, p.Destination, recipient, body)
	if err != nil {
		return nil, coreError(err)
	}
	return map[string]interface{}{"leafIndex": leafIndex}, nil
}

func (s *Server) handleCheckpoint(params []json.RawMessage) (interface{}, *rpcError) {
	root, index, err := s.outbox.Checkpoint()
	if err != nil {
		return nil, coreError(err)
	}
	return map[string]interface{}{"root": root.Hex(), "index": index}, nil
}

type fromParams struct {
	From string `json:"from"`
}

func (s *Server) handleFail(params []json.RawMessage) (interface{}, *rpcError) {
	var p fromParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress(p.From, "from")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.outbox.Fail(caller); err != nil {
		return nil, coreError(err)
	}
	recordHalt()
	return map[string]string{"state": s.outbox.State().String()}, nil
}

type setValidatorManagerParams struct {
	From             string `json:"from"`
	ValidatorManager string `json:"validatorManager"`
}

func (s *Server) handleSetValidatorManager(params []json.RawMessage) (interface{}, *rpcError) {
	var p setValidatorManagerParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress(p.From, "from")
	if rpcErr != nil {
		return nil, rpcErr
	}
	manager, rpcErr := parseAddress(p.ValidatorManager, "validatorManager")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.outbox.SetValidatorManager(caller, manager); err != nil {
		return nil, coreError(err)
	}
	return map[string]string{"validatorManager": manager.Hex()}, nil
}

type transferOwnershipParams struct {
	From     string `json:"from"`
	NewOwner string `json:"newOwner"`
}

func (s *Server) handleTransferOwnership(params []json.RawMessage) (interface{}, *rpcError) {
	var p transferOwnershipParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress(p.From, "from")
	if rpcErr != nil {
		return nil, rpcErr
	}
	newOwner, rpcErr := parseAddress(p.NewOwner, "newOwner")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.outbox.TransferOwnership(caller, newOwner); err != nil {
		return nil, coreError(err)
	}
	return map[string]string{"owner": newOwner.Hex()}, nil
}

func (s *Server) handleRenounceOwnership(params []json.RawMessage) (interface{}, *rpcError) {
	var p fromParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress(p.From, "from")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.outbox.RenounceOwnership(caller); err != nil {
		return nil, coreError(err)
	}
	return map[string]string{"owner": s.outbox.Owner().Hex()}, nil
}

func (s *Server) handleRoot(params []json.RawMessage) (interface{}, *rpcError) {
	return map[string]string{"root": s.outbox.Root().Hex()}, nil
}

func (s *Server) handleCount(params []json.RawMessage) (interface{}, *rpcError) {
	return map[string]interface{}{"count": s.outbox.Count()}, nil
}

func (s *Server) handleCheckpointedRoot(params []json.RawMessage) (interface{}, *rpcError) {
	return map[string]string{"root": s.outbox.CheckpointedRoot().Hex()}, nil
}

type checkpointsParams struct {
	Root string `json:"root"`
}

func (s *Server) handleCheckpoints(params []json.RawMessage) (interface{}, *rpcError) {
	var p checkpointsParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	root, rpcErr := parseHash(p.Root, "root")
	if rpcErr != nil {
		return nil, rpcErr
	}
	index, ok := s.outbox.Checkpoints(root)
	return map[string]interface{}{"index": index, "known": ok}, nil
}

func (s *Server) handleLatestCheckpoint(params []json.RawMessage) (interface{}, *rpcError) {
	root, index := s.outbox.LatestCheckpoint()
	return map[string]interface{}{"root": root.Hex(), "index": index}, nil
}

type noncesParams struct {
	Domain uint32 `json:"domain"`
}

func (s *Server) handleNonces(params []json.RawMessage) (interface{}, *rpcError) {
	var p noncesParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	return map[string]interface{}{"nextNonce": s.outbox.Nonces(p.Domain)}, nil
}

func (s *Server) handleLocalDomain(params []json.RawMessage) (interface{}, *rpcError) {
	return map[string]interface{}{"localDomain": s.outbox.LocalDomain()}, nil
}

func (s *Server) handleOwner(params []json.RawMessage) (interface{}, *rpcError) {
	return map[string]string{"owner": s.outbox.Owner().Hex()}, nil
}

func (s *Server) handleValidatorManager(params []json.RawMessage) (interface{}, *rpcError) {
	return map[string]string{"validatorManager": s.outbox.ValidatorManager().Hex()}, nil
}

func (s *Server) handleState(params []json.RawMessage) (interface{}, *rpcError) {
	return map[string]string{"state": s.outbox.State().String()}, nil
}

func (s *Server) handleMaxMessageBodyBytes(params []json.RawMessage) (interface{}, *rpcError) {
	return map[string]interface{}{"maxMessageBodyBytes": core.MaxMessageBodyBytes}, nil
}
