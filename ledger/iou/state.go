package iou

import (
	"encoding/binary"
	"fmt"

	"github.com/lunfardo314/easyiou/lazyslice"
	"github.com/lunfardo314/easyiou/ledger"
)

// StateType is the first element of every serialized state and selects its decoder
type StateType byte

const (
	StateTypeUnknown    = StateType(0)
	StateTypeObligation = StateType(1)
)

// ContractState is any state a transaction can consume or produce
type ContractState interface {
	// Participants are the parties which must be informed of the transaction
	Participants() []*ledger.Party
	Bytes() []byte
}

// ObligationState is an IOU: Borrower owes Amount to Lender.
// The type is plain data. Nothing is checked on construction, validity is decided by Verify
type ObligationState struct {
	Amount   int64
	Lender   *ledger.Party
	Borrower *ledger.Party
}

// UnknownState is a state of a type this contract does not know. It is carried opaquely
type UnknownState struct {
	Data []byte
}

func NewObligationState(amount int64, lender, borrower *ledger.Party) *ObligationState {
	return &ObligationState{
		Amount:   amount,
		Lender:   lender,
		Borrower: borrower,
	}
}

func (o *ObligationState) Participants() []*ledger.Party {
	return []*ledger.Party{o.Lender, o.Borrower}
}

func (o *ObligationState) String() string {
	return fmt.Sprintf("IOU(%d: %s -> %s)", o.Amount, o.Borrower, o.Lender)
}

// Bytes serializes state as array: type, amount (8 bytes big-endian), lender, borrower.
// Nil party is serialized as empty element
func (o *ObligationState) Bytes() []byte {
	var amountBin [8]byte
	binary.BigEndian.PutUint64(amountBin[:], uint64(o.Amount))
	return lazyslice.MakeArray(
		byte(StateTypeObligation),
		amountBin[:],
		partyBytes(o.Lender),
		partyBytes(o.Borrower),
	).Bytes()
}

func partyBytes(p *ledger.Party) []byte {
	if p == nil {
		return nil
	}
	return p.Bytes()
}

func partyFromBytes(data []byte) (*ledger.Party, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return ledger.PartyFromBytes(data)
}

func ObligationStateFromBytes(data []byte) (*ObligationState, error) {
	s, err := StateFromBytes(data)
	if err != nil {
		return nil, err
	}
	ret, ok := s.(*ObligationState)
	if !ok {
		return nil, fmt.Errorf("not an obligation state")
	}
	return ret, nil
}

// StateFromBytes decodes state of any type. States of unknown types are returned as *UnknownState
func StateFromBytes(data []byte) (ContractState, error) {
	arr, err := lazyslice.ParseArray(data)
	if err != nil {
		return nil, fmt.Errorf("StateFromBytes: %v", err)
	}
	if arr.NumElements() == 0 || len(arr.At(0)) != 1 {
		return nil, fmt.Errorf("StateFromBytes: state type expected")
	}
	if StateType(arr.At(0)[0]) != StateTypeObligation {
		return &UnknownState{Data: data}, nil
	}
	if arr.NumElements() != 4 {
		return nil, fmt.Errorf("StateFromBytes: wrong number of elements in obligation state: %d", arr.NumElements())
	}
	if len(arr.At(1)) != 8 {
		return nil, fmt.Errorf("StateFromBytes: wrong amount length %d", len(arr.At(1)))
	}
	ret := &ObligationState{
		Amount: int64(binary.BigEndian.Uint64(arr.At(1))),
	}
	if ret.Lender, err = partyFromBytes(arr.At(2)); err != nil {
		return nil, fmt.Errorf("StateFromBytes: lender: %v", err)
	}
	if ret.Borrower, err = partyFromBytes(arr.At(3)); err != nil {
		return nil, fmt.Errorf("StateFromBytes: borrower: %v", err)
	}
	return ret, nil
}

func (u *UnknownState) Participants() []*ledger.Party {
	return nil
}

func (u *UnknownState) Bytes() []byte {
	return u.Data
}

func (u *UnknownState) StateType() StateType {
	if arr, err := lazyslice.ParseArray(u.Data); err == nil && arr.NumElements() > 0 && len(arr.At(0)) == 1 {
		return StateType(arr.At(0)[0])
	}
	return StateTypeUnknown
}
