package txbuilder

import (
	"fmt"
	"github.com/lunfardo314/unitrie/common"

	"github.com/lunfardo314/easyiou/lazyslice"
	"github.com/lunfardo314/easyiou/ledger"
	"github.com/lunfardo314/easyiou/ledger/iou"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"
)

// indices of the transaction elements in the serialized form
const (
	TxInputIDs = byte(iota)
	TxOutputs
	TxCommands
	TxSignatures
	TxTreeIndexMax
)

const (
	MaxInputs      = 256
	MaxOutputs     = 256
	MaxCommands    = 256
	MaxSignatures  = 256
	SignatureBytes = ed25519.SignatureSize + ed25519.PublicKeySize
)

type (
	TransactionBuilder struct {
		InputIDs   []ledger.OutputID
		Outputs    []iou.ContractState
		Commands   []*iou.Command
		Signatures [][]byte
	}

	// CreateParams are parameters of the transaction which creates one obligation
	CreateParams struct {
		Amount     int64
		Lender     *ledger.Party
		Borrower   *ledger.Party
		SignerKeys []ed25519.PrivateKey
	}
)

func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{
		InputIDs:   make([]ledger.OutputID, 0),
		Outputs:    make([]iou.ContractState, 0),
		Commands:   make([]*iou.Command, 0),
		Signatures: make([][]byte, 0),
	}
}

func (b *TransactionBuilder) NumInputs() int {
	return len(b.InputIDs)
}

func (b *TransactionBuilder) NumOutputs() int {
	return len(b.Outputs)
}

func (b *TransactionBuilder) ConsumeOutput(oid ledger.OutputID) (byte, error) {
	if b.NumInputs() >= MaxInputs {
		return 0, fmt.Errorf("too many consumed outputs")
	}
	b.InputIDs = append(b.InputIDs, oid)
	return byte(len(b.InputIDs) - 1), nil
}

func (b *TransactionBuilder) ProduceOutput(out iou.ContractState) (byte, error) {
	if b.NumOutputs() >= MaxOutputs {
		return 0, fmt.Errorf("too many produced outputs")
	}
	b.Outputs = append(b.Outputs, out)
	return byte(len(b.Outputs) - 1), nil
}

func (b *TransactionBuilder) AddCommand(kind iou.CommandKind, signers ...ed25519.PublicKey) (byte, error) {
	if len(b.Commands) >= MaxCommands {
		return 0, fmt.Errorf("too many commands")
	}
	b.Commands = append(b.Commands, iou.NewCommand(kind, signers...))
	return byte(len(b.Commands) - 1), nil
}

// Sign signs the essence with each of the keys. The essence must not change after signing
func (b *TransactionBuilder) Sign(keys ...ed25519.PrivateKey) error {
	if len(b.Signatures)+len(keys) > MaxSignatures {
		return fmt.Errorf("too many signatures")
	}
	essence := b.EssenceBytes()
	for _, key := range keys {
		sig := ed25519.Sign(key, essence)
		b.Signatures = append(b.Signatures, common.Concat(sig, []byte(key.Public().(ed25519.PublicKey))))
	}
	return nil
}

func (b *TransactionBuilder) ToArray() *lazyslice.Array {
	inputIDs := lazyslice.EmptyArray(MaxInputs)
	outputs := lazyslice.EmptyArray(MaxOutputs)
	commands := lazyslice.EmptyArray(MaxCommands)
	signatures := lazyslice.EmptyArray(MaxSignatures)

	for _, oid := range b.InputIDs {
		inputIDs.Push(oid.Bytes())
	}
	for _, o := range b.Outputs {
		outputs.Push(o.Bytes())
	}
	for _, cmd := range b.Commands {
		commands.Push(cmd.Bytes())
	}
	for _, sig := range b.Signatures {
		signatures.Push(sig)
	}
	elems := make([]interface{}, TxTreeIndexMax)
	elems[TxInputIDs] = inputIDs
	elems[TxOutputs] = outputs
	elems[TxCommands] = commands
	elems[TxSignatures] = signatures
	return lazyslice.MakeArray(elems...)
}

func (b *TransactionBuilder) Bytes() []byte {
	return b.ToArray().Bytes()
}

// EssenceBytes is what signatures sign: everything except signatures
func (b *TransactionBuilder) EssenceBytes() []byte {
	return essenceBytes(b.ToArray())
}

// TransactionID is the ID the transaction will have in the ledger
func (b *TransactionBuilder) TransactionID() ledger.TransactionID {
	return blake2b.Sum256(b.EssenceBytes())
}

func essenceBytes(arr *lazyslice.Array) []byte {
	return common.Concat(
		arr.At(int(TxInputIDs)),
		arr.At(int(TxOutputs)),
		arr.At(int(TxCommands)),
	)
}

func NewCreateParams(amount int64, lender, borrower *ledger.Party) *CreateParams {
	return &CreateParams{
		Amount:     amount,
		Lender:     lender,
		Borrower:   borrower,
		SignerKeys: make([]ed25519.PrivateKey, 0),
	}
}

func (p *CreateParams) WithSignerKeys(keys ...ed25519.PrivateKey) *CreateParams {
	p.SignerKeys = append(p.SignerKeys, keys...)
	return p
}

// MakeCreateTransaction makes transaction with one Create command signed by lender and borrower keys
// and one obligation output. The transaction is not verified, it is up to the ledger
func MakeCreateTransaction(par *CreateParams) ([]byte, error) {
	if par.Lender == nil || par.Borrower == nil {
		return nil, fmt.Errorf("MakeCreateTransaction: lender and borrower must be specified")
	}
	b := NewTransactionBuilder()
	if _, err := b.ProduceOutput(iou.NewObligationState(par.Amount, par.Lender, par.Borrower)); err != nil {
		return nil, err
	}
	if _, err := b.AddCommand(iou.CommandCreate, par.Lender.PublicKey, par.Borrower.PublicKey); err != nil {
		return nil, err
	}
	if err := b.Sign(par.SignerKeys...); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
