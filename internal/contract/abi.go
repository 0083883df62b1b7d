package contract

import (
	_ "embed"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/rpggio/capvault/internal/domain/captable"
)

//go:embed abi.json
var abiJSON string

var parsedABI = mustParseABI()

func mustParseABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(fmt.Sprintf("parsing contract abi: %v", err))
	}
	return parsed
}

// ABI returns the parsed contract ABI.
func ABI() abi.ABI {
	return parsedABI
}

// DecodeEvent turns a log emitted by the contract into an Event. ok is
// false for logs that are not CompanyCreated or InvestmentMade.
func DecodeEvent(lg types.Log) (ev captable.Event, ok bool, err error) {
	if len(lg.Topics) == 0 {
		return captable.Event{}, false, nil
	}
	def, err := parsedABI.EventByID(lg.Topics[0])
	if err != nil {
		return captable.Event{}, false, nil
	}

	values := map[string]any{}
	if len(lg.Data) > 0 {
		if err := parsedABI.UnpackIntoMap(values, def.Name, lg.Data); err != nil {
			return captable.Event{}, false, fmt.Errorf("unpacking %s data: %w", def.Name, err)
		}
	}
	var indexed abi.Arguments
	for _, arg := range def.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopicsIntoMap(values, indexed, lg.Topics[1:]); err != nil {
		return captable.Event{}, false, fmt.Errorf("parsing %s topics: %w", def.Name, err)
	}

	if lg.TxHash != (common.Hash{}) {
		ev.Handle = captable.TxHandle(lg.TxHash.Hex())
	}
	switch def.Name {
	case string(captable.EventCompanyCreated):
		ev.Kind = captable.EventCompanyCreated
		ev.CompanyID = bigUint(values["companyId"])
		ev.Account = addressHex(values["owner"])
		ev.Name, _ = values["name"].(string)
	case string(captable.EventInvestmentMade):
		ev.Kind = captable.EventInvestmentMade
		ev.InvestmentID = bigUint(values["investmentId"])
		ev.CompanyID = bigUint(values["companyId"])
		ev.Account = addressHex(values["investor"])
		if amount, isU32 := values["amount"].(uint32); isU32 {
			ev.Amount = uint64(amount)
		}
	default:
		return captable.Event{}, false, nil
	}
	return ev, true, nil
}

// EncodeEvent builds the log a contract would emit for ev. It is the
// inverse of DecodeEvent and is used by the simulated contract.
func EncodeEvent(ev captable.Event) (types.Log, error) {
	def, found := parsedABI.Events[string(ev.Kind)]
	if !found {
		return types.Log{}, fmt.Errorf("unknown event %q", ev.Kind)
	}

	var topics []common.Hash
	var data []byte
	var err error
	switch ev.Kind {
	case captable.EventCompanyCreated:
		topics = []common.Hash{
			def.ID,
			common.BigToHash(new(big.Int).SetUint64(ev.CompanyID)),
			common.BytesToHash(common.HexToAddress(ev.Account).Bytes()),
		}
		data, err = def.Inputs.NonIndexed().Pack(ev.Name)
	case captable.EventInvestmentMade:
		topics = []common.Hash{
			def.ID,
			common.BigToHash(new(big.Int).SetUint64(ev.InvestmentID)),
			common.BigToHash(new(big.Int).SetUint64(ev.CompanyID)),
			common.BytesToHash(common.HexToAddress(ev.Account).Bytes()),
		}
		data, err = def.Inputs.NonIndexed().Pack(uint32(ev.Amount))
	}
	if err != nil {
		return types.Log{}, fmt.Errorf("packing %s: %w", ev.Kind, err)
	}
	return types.Log{Topics: topics, Data: data, TxHash: common.HexToHash(string(ev.Handle))}, nil
}

func bigUint(v any) uint64 {
	n, ok := v.(*big.Int)
	if !ok || n == nil || !n.IsUint64() {
		return 0
	}
	return n.Uint64()
}

func addressHex(v any) string {
	addr, ok := v.(common.Address)
	if !ok {
		return ""
	}
	return addr.Hex()
}
