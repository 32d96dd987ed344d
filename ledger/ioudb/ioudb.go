package ioudb

import (
	"encoding/binary"
	"fmt"
	"github.com/lunfardo314/unitrie/common"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easyiou/ledger"
	"github.com/lunfardo314/easyiou/ledger/indexer"
	"github.com/lunfardo314/easyiou/ledger/iou"
	"github.com/lunfardo314/easyiou/ledger/state"
	"github.com/lunfardo314/easyiou/ledger/txbuilder"
	"github.com/lunfardo314/easyiou/util/testutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"
)

// IOUDB is an in-memory obligation ledger with the party index. Intended for testing and tooling
type IOUDB struct {
	state   *state.Updatable
	indexer *indexer.Indexer
	log     *zap.SugaredLogger
	trace   bool
}

// Account is a party together with its private key
type Account struct {
	*ledger.Party
	PrivateKey ed25519.PrivateKey
}

// ObligationWithID is an unspent obligation and the ID of the output which holds it
type ObligationWithID struct {
	ID    ledger.OutputID
	State *iou.ObligationState
}

const (
	// for determinism
	deterministicSeed = "1234567890987654321"
	ledgerIdentity    = "easyiou test ledger"
)

func NewIOUDB(trace ...bool) *IOUDB {
	ret := &IOUDB{
		state:   state.NewInMemory([]byte(ledgerIdentity)),
		indexer: indexer.NewInMemory(),
		log:     testutil.NewNopLogger(),
		trace:   len(trace) > 0 && trace[0],
	}
	if ret.trace {
		ret.log = testutil.NewSimpleLogger(true).Named("ioudb")
	}
	return ret
}

// WithLogger replaces the trace logger
func (u *IOUDB) WithLogger(log *zap.SugaredLogger) *IOUDB {
	u.log = log
	return u
}

func (u *IOUDB) StateAccess() ledger.StateReadAccess {
	return u.state
}

func (u *IOUDB) IndexerAccess() *indexer.Indexer {
	return u.indexer
}

// GenerateAccount deterministically derives the key pair of the n-th account
func GenerateAccount(n uint16, name string) *Account {
	var u16 [2]byte
	binary.BigEndian.PutUint16(u16[:], n)
	seed := blake2b.Sum256(common.Concat([]byte(deterministicSeed), u16[:]))
	priv := ed25519.NewKeyFromSeed(seed[:])
	return &Account{
		Party:      ledger.NewParty(name, priv.Public().(ed25519.PublicKey)),
		PrivateKey: priv,
	}
}

// AddTransaction validates transaction and updates ledger state and indexer
// Ledger state and indexer are on different transactions, so ledger state can
// succeed while indexer fails. In that case indexer can be updated from ledger state
func (u *IOUDB) AddTransaction(txBytes []byte) error {
	indexerUpdate, err := u.state.AddTransaction(txBytes)
	if err != nil {
		if u.trace {
			u.log.Infof("transaction rejected: %v", err)
		}
		return err
	}
	if u.trace {
		if tx, err1 := txbuilder.TransactionFromBytes(txBytes); err1 == nil {
			u.log.Infof("transaction accepted:\n%s", txbuilder.TransactionToString(tx))
		}
	}
	if err = u.indexer.Update(indexerUpdate); err != nil {
		return fmt.Errorf("ledger state was updated but indexer update failed with '%v'", err)
	}
	return nil
}

// CreateObligation makes the transaction creating obligation of borrower to lender, signed by both,
// and adds it to the ledger. Returns ID of the new transaction
func (u *IOUDB) CreateObligation(lender, borrower *Account, amount int64) (ledger.TransactionID, error) {
	if lender == nil || borrower == nil {
		return ledger.TransactionID{}, fmt.Errorf("CreateObligation: lender and borrower must be specified")
	}
	txBytes, err := txbuilder.MakeCreateTransaction(txbuilder.NewCreateParams(amount, lender.Party, borrower.Party).
		WithSignerKeys(lender.PrivateKey, borrower.PrivateKey))
	if err != nil {
		return ledger.TransactionID{}, err
	}
	tx, err := txbuilder.TransactionFromBytes(txBytes)
	if err != nil {
		return ledger.TransactionID{}, err
	}
	return tx.ID(), u.AddTransaction(txBytes)
}

func (u *IOUDB) obligations(partition indexer.Partition, p *ledger.Party) ([]*ObligationWithID, error) {
	id := p.ID()
	outs, err := u.indexer.GetUTXOs(partition, id[:], u.state)
	if err != nil {
		return nil, err
	}
	ret := make([]*ObligationWithID, 0, len(outs))
	for _, o := range outs {
		s, err := iou.ObligationStateFromBytes(o.OutputData)
		if err != nil {
			return nil, err
		}
		ret = append(ret, &ObligationWithID{ID: o.ID, State: s})
	}
	return ret, nil
}

// ObligationsAsLender returns unspent obligations where the party is the lender
func (u *IOUDB) ObligationsAsLender(p *ledger.Party) ([]*ObligationWithID, error) {
	return u.obligations(indexer.PartitionLender, p)
}

// ObligationsAsBorrower returns unspent obligations where the party is the borrower
func (u *IOUDB) ObligationsAsBorrower(p *ledger.Party) ([]*ObligationWithID, error) {
	return u.obligations(indexer.PartitionBorrower, p)
}

func total(lst []*ObligationWithID) int64 {
	ret := int64(0)
	for _, o := range lst {
		ret += o.State.Amount
	}
	return ret
}

func (u *IOUDB) TotalLent(p *ledger.Party) int64 {
	lst, err := u.ObligationsAsLender(p)
	easyfl.AssertNoError(err)
	return total(lst)
}

func (u *IOUDB) TotalBorrowed(p *ledger.Party) int64 {
	lst, err := u.ObligationsAsBorrower(p)
	easyfl.AssertNoError(err)
	return total(lst)
}
