// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/accounts/abi/bind"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/whisper"
)

const (
	methodListIDs           = "getAllBusinessIds"
	methodGetRecord         = "getBusinessData"
	methodGetEncryptedValue = "getEncryptedValue"
	methodCreate            = "createBusinessData"
	methodVerifyDecryption  = "verifyDecryption"
	methodIsAvailable       = "isAvailable"
)

// MessageBoardABI is the ABI of the message board contract.
const MessageBoardABI = `[
  {"type":"function","name":"getAllBusinessIds","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"string[]"}]},
  {"type":"function","name":"getBusinessData","stateMutability":"view",
   "inputs":[{"name":"businessId","type":"string"}],
   "outputs":[
     {"name":"name","type":"string"},
     {"name":"publicValue1","type":"uint256"},
     {"name":"publicValue2","type":"uint256"},
     {"name":"description","type":"string"},
     {"name":"creator","type":"address"},
     {"name":"timestamp","type":"uint256"},
     {"name":"isVerified","type":"bool"},
     {"name":"decryptedValue","type":"uint32"}]},
  {"type":"function","name":"getEncryptedValue","stateMutability":"view",
   "inputs":[{"name":"businessId","type":"string"}],
   "outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"createBusinessData","stateMutability":"nonpayable",
   "inputs":[
     {"name":"businessId","type":"string"},
     {"name":"name","type":"string"},
     {"name":"encryptedValue","type":"bytes32"},
     {"name":"inputProof","type":"bytes"},
     {"name":"publicValue1","type":"uint256"},
     {"name":"publicValue2","type":"uint256"},
     {"name":"description","type":"string"}],
   "outputs":[]},
  {"type":"function","name":"verifyDecryption","stateMutability":"nonpayable",
   "inputs":[
     {"name":"businessId","type":"string"},
     {"name":"abiEncodedClearValues","type":"bytes"},
     {"name":"decryptionProof","type":"bytes"}],
   "outputs":[]},
  {"type":"function","name":"isAvailable","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"bool"}]}
]`

var parsedABI = sync.OnceValues(func() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(MessageBoardABI))
})

// ParsedABI returns the parsed message board ABI.
func ParsedABI() (abi.ABI, error) {
	return parsedABI()
}

// BoundContract is the subset of *bind.BoundContract the gateway uses.
type BoundContract interface {
	Call(opts *bind.CallOpts, results *[]interface{}, method string, params ...interface{}) error
	Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error)
}

// NewBoundContract binds the message board ABI at address to backend.
func NewBoundContract(address common.Address, backend bind.ContractBackend) (*bind.BoundContract, error) {
	parsed, err := ParsedABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse message board abi: %w", err)
	}
	return bind.NewBoundContract(address, parsed, backend, backend, backend), nil
}

// Record is a raw getBusinessData result.
type Record struct {
	ID             string
	Name           string
	PublicValue1   *big.Int
	PublicValue2   *big.Int
	Description    string
	Creator        common.Address
	Timestamp      *big.Int
	IsVerified     bool
	DecryptedValue uint32
}

// MessageRecord maps the raw record into the client view. The decrypted
// value is only carried when the record is verified.
func (r *Record) MessageRecord() *whisper.MessageRecord {
	rec := &whisper.MessageRecord{
		ID:             r.ID,
		Content:        r.Description,
		Timestamp:      bigUint64(r.Timestamp),
		Sender:         r.Creator,
		EncryptedValue: bigUint64(r.PublicValue1),
	}
	if r.IsVerified {
		rec.Decryption = whisper.Verified(uint64(r.DecryptedValue))
	}
	return rec
}

func unpackRecord(id string, out []interface{}) (*Record, error) {
	if len(out) != 8 {
		return nil, fmt.Errorf("%w: %s returned %d values", errUnexpectedOutput, methodGetRecord, len(out))
	}
	return &Record{
		ID:             id,
		Name:           *abi.ConvertType(out[0], new(string)).(*string),
		PublicValue1:   *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		PublicValue2:   *abi.ConvertType(out[2], new(*big.Int)).(**big.Int),
		Description:    *abi.ConvertType(out[3], new(string)).(*string),
		Creator:        *abi.ConvertType(out[4], new(common.Address)).(*common.Address),
		Timestamp:      *abi.ConvertType(out[5], new(*big.Int)).(**big.Int),
		IsVerified:     *abi.ConvertType(out[6], new(bool)).(*bool),
		DecryptedValue: *abi.ConvertType(out[7], new(uint32)).(*uint32),
	}, nil
}

func bigUint64(v *big.Int) uint64 {
	if v == nil || !v.IsUint64() {
		return 0
	}
	return v.Uint64()
}
