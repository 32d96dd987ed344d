package txbuilder

import (
	"bytes"
	"fmt"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easyiou/lazyslice"
	"github.com/lunfardo314/easyiou/ledger"
	"github.com/lunfardo314/easyiou/ledger/iou"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"
)

// Transaction is a parsed transferable transaction. All signatures are verified on parsing.
// The transaction ID is the hash of the essence, so it does not depend on signatures
type Transaction struct {
	bytes    []byte
	txid     ledger.TransactionID
	inputIDs []ledger.OutputID
	outputs  []iou.ContractState
	commands []*iou.Command
	signedBy map[string]struct{}
}

// TransactionFromBytes parses transaction and validates what is possible without ledger context
func TransactionFromBytes(txBytes []byte) (*Transaction, error) {
	var ret *Transaction
	err := easyfl.CatchPanicOrError(func() error {
		var err1 error
		ret, err1 = parseTransaction(txBytes)
		return err1
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func parseTransaction(txBytes []byte) (*Transaction, error) {
	arr, err := parseCanonical(txBytes, int(TxTreeIndexMax))
	if err != nil {
		return nil, fmt.Errorf("wrong transaction format: %v", err)
	}
	if arr.NumElements() != int(TxTreeIndexMax) {
		return nil, fmt.Errorf("wrong number of transaction elements: %d", arr.NumElements())
	}
	essence := essenceBytes(arr)
	ret := &Transaction{
		bytes:    txBytes,
		txid:     blake2b.Sum256(essence),
		signedBy: make(map[string]struct{}),
	}
	if err = ret.parseInputIDs(arr.At(int(TxInputIDs))); err != nil {
		return nil, err
	}
	if err = ret.parseOutputs(arr.At(int(TxOutputs))); err != nil {
		return nil, err
	}
	if err = ret.parseCommands(arr.At(int(TxCommands))); err != nil {
		return nil, err
	}
	if err = ret.checkSignatures(arr.At(int(TxSignatures)), essence); err != nil {
		return nil, err
	}
	if err = ret.checkSigners(); err != nil {
		return nil, err
	}
	return ret, nil
}

// parseCanonical parses the array and rejects any encoding of it other than the one the builder makes
func parseCanonical(data []byte, maxNumElements int) (*lazyslice.Array, error) {
	arr, err := lazyslice.ParseArray(data, maxNumElements)
	if err != nil {
		return nil, err
	}
	elems := make([]interface{}, arr.NumElements())
	for i := range elems {
		elems[i] = arr.At(i)
	}
	if !bytes.Equal(lazyslice.MakeArray(elems...).Bytes(), data) {
		return nil, fmt.Errorf("non-canonical encoding")
	}
	return arr, nil
}

func (tx *Transaction) parseInputIDs(data []byte) error {
	arr, err := parseCanonical(data, MaxInputs)
	if err != nil {
		return fmt.Errorf("input IDs: %v", err)
	}
	tx.inputIDs = make([]ledger.OutputID, arr.NumElements())
	already := make(map[ledger.OutputID]struct{})
	for i := range tx.inputIDs {
		if tx.inputIDs[i], err = ledger.OutputIDFromBytes(arr.At(i)); err != nil {
			return fmt.Errorf("input @ %d: %v", i, err)
		}
		if _, repeating := already[tx.inputIDs[i]]; repeating {
			return fmt.Errorf("repeating input @ %d", i)
		}
		already[tx.inputIDs[i]] = struct{}{}
	}
	return nil
}

func (tx *Transaction) parseOutputs(data []byte) error {
	arr, err := parseCanonical(data, MaxOutputs)
	if err != nil {
		return fmt.Errorf("outputs: %v", err)
	}
	tx.outputs = make([]iou.ContractState, arr.NumElements())
	for i := range tx.outputs {
		if tx.outputs[i], err = iou.StateFromBytes(arr.At(i)); err != nil {
			return fmt.Errorf("output @ %d: %v", i, err)
		}
	}
	return nil
}

func (tx *Transaction) parseCommands(data []byte) error {
	arr, err := parseCanonical(data, MaxCommands)
	if err != nil {
		return fmt.Errorf("commands: %v", err)
	}
	tx.commands = make([]*iou.Command, arr.NumElements())
	for i := range tx.commands {
		if tx.commands[i], err = iou.CommandFromBytes(arr.At(i)); err != nil {
			return fmt.Errorf("command @ %d: %v", i, err)
		}
	}
	return nil
}

// checkSignatures verifies each signature (64 bytes signature followed by 32 bytes public key)
// against the essence
func (tx *Transaction) checkSignatures(data, essence []byte) error {
	arr, err := parseCanonical(data, MaxSignatures)
	if err != nil {
		return fmt.Errorf("signatures: %v", err)
	}
	arr.ForEach(func(i int, sigData []byte) bool {
		if len(sigData) != SignatureBytes {
			err = fmt.Errorf("wrong signature length @ %d", i)
			return false
		}
		pubKey := ed25519.PublicKey(sigData[ed25519.SignatureSize:])
		if !ed25519.Verify(pubKey, essence, sigData[:ed25519.SignatureSize]) {
			err = fmt.Errorf("invalid signature @ %d", i)
			return false
		}
		tx.signedBy[string(pubKey)] = struct{}{}
		return true
	})
	return err
}

// checkSigners checks that every key asserted as a command signer has signed the transaction
func (tx *Transaction) checkSigners() error {
	for i, cmd := range tx.commands {
		for _, pk := range cmd.Signers {
			if !tx.SignedBy(pk) {
				return fmt.Errorf("signature missing for signer %s of command @ %d", easyfl.Fmt(pk), i)
			}
		}
	}
	return nil
}

func (tx *Transaction) ID() ledger.TransactionID {
	return tx.txid
}

func (tx *Transaction) Bytes() []byte {
	return tx.bytes
}

func (tx *Transaction) NumInputs() int {
	return len(tx.inputIDs)
}

func (tx *Transaction) NumOutputs() int {
	return len(tx.outputs)
}

func (tx *Transaction) InputIDs() []ledger.OutputID {
	return tx.inputIDs
}

func (tx *Transaction) Outputs() []iou.ContractState {
	return tx.outputs
}

func (tx *Transaction) Commands() []*iou.Command {
	return tx.commands
}

func (tx *Transaction) SignedBy(pubKey ed25519.PublicKey) bool {
	_, ok := tx.signedBy[string(pubKey)]
	return ok
}

func (tx *Transaction) ForEachProducedOutput(fun func(oid ledger.OutputID, o iou.ContractState) bool) {
	for i, o := range tx.outputs {
		if !fun(ledger.NewOutputID(tx.txid, byte(i)), o) {
			return
		}
	}
}

// Proposed is the view of the transaction the contract verifies, with consumed states resolved by the caller
func (tx *Transaction) Proposed(consumed []iou.ContractState) *iou.ProposedTransaction {
	return &iou.ProposedTransaction{
		Inputs:   consumed,
		Outputs:  tx.outputs,
		Commands: tx.commands,
	}
}

// ProposedUnresolved is the view of the transaction without ledger context.
// Consumed states are represented by their output IDs
func (tx *Transaction) ProposedUnresolved() *iou.ProposedTransaction {
	consumed := make([]iou.ContractState, len(tx.inputIDs))
	for i := range tx.inputIDs {
		consumed[i] = &iou.UnknownState{Data: tx.inputIDs[i].Bytes()}
	}
	return tx.Proposed(consumed)
}
