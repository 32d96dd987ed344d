package state

import (
	"sync"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easyiou/ledger"
	"github.com/lunfardo314/easyiou/ledger/indexer"
	"github.com/lunfardo314/easyiou/ledger/txbuilder"
	"github.com/lunfardo314/unitrie/common"
	"github.com/lunfardo314/unitrie/immutable"
	"github.com/lunfardo314/unitrie/models/trie_blake2b"
)

type (
	// Updatable is an updatable ledger state, with the particular root.
	// Suitable for chained updates
	Updatable struct {
		mutex sync.RWMutex
		store ledger.StateStore
		root  common.VCommitment
	}

	// Readable is a read-only ledger state, with the particular root
	Readable struct {
		trie *immutable.TrieReader
	}
)

// commitment model singleton

var commitmentModel = trie_blake2b.New(common.PathArity16, trie_blake2b.HashSize256)

// partitions of the trie key space
const (
	partitionUTXO = byte(iota)
	partitionCommitted
)

var committedMark = []byte{0xff}

func utxoKey(oid ledger.OutputID) []byte {
	return common.Concat(partitionUTXO, oid[:])
}

func committedKey(txid ledger.TransactionID) []byte {
	return common.Concat(partitionCommitted, txid[:])
}

// MustInitLedgerState initializes empty ledger state in the empty store and returns its root
func MustInitLedgerState(store common.KVWriter, identity []byte) common.VCommitment {
	storeTmp := common.NewInMemoryKVStore()
	emptyRoot := immutable.MustInitRoot(storeTmp, commitmentModel, identity)
	common.CopyAll(store, storeTmp)
	return emptyRoot
}

// NewReadable creates read-only ledger state with the given root
func NewReadable(store common.KVReader, root common.VCommitment) (*Readable, error) {
	trie, err := immutable.NewTrieReader(commitmentModel, store, root)
	if err != nil {
		return nil, err
	}
	return &Readable{trie}, nil
}

// NewUpdatable creates updatable state with the given root. After updated, the root changes
func NewUpdatable(store ledger.StateStore, root common.VCommitment) (*Updatable, error) {
	_, err := immutable.NewTrieReader(commitmentModel, store, root)
	if err != nil {
		return nil, err
	}
	return &Updatable{
		root:  root.Clone(),
		store: store,
	}, nil
}

// NewInMemory creates empty ledger state in memory
func NewInMemory(identity []byte) *Updatable {
	store := common.NewInMemoryKVStore()
	root := MustInitLedgerState(store, identity)
	ret, err := NewUpdatable(store, root)
	easyfl.AssertNoError(err)
	return ret
}

func (u *Updatable) Readable() *Readable {
	u.mutex.RLock()
	defer u.mutex.RUnlock()

	return u.readable()
}

func (u *Updatable) readable() *Readable {
	ret, err := NewReadable(u.store, u.root)
	easyfl.AssertNoError(err)
	return ret
}

// Root return the current root
func (u *Updatable) Root() common.VCommitment {
	u.mutex.RLock()
	defer u.mutex.RUnlock()

	return u.root.Clone()
}

func (u *Updatable) GetUTXO(oid *ledger.OutputID) ([]byte, bool) {
	return u.Readable().GetUTXO(oid)
}

func (u *Updatable) HasTransaction(txid *ledger.TransactionID) bool {
	return u.Readable().HasTransaction(txid)
}

func (r *Readable) GetUTXO(oid *ledger.OutputID) ([]byte, bool) {
	ret := r.trie.Get(utxoKey(*oid))
	if len(ret) == 0 {
		return nil, false
	}
	return ret, true
}

// HasTransaction returns true if the transaction was ever committed to the ledger,
// even if all its outputs are already consumed
func (r *Readable) HasTransaction(txid *ledger.TransactionID) bool {
	return len(r.trie.Get(committedKey(*txid))) > 0
}

// AddTransaction validates the transaction against the ledger state and the contract and,
// if valid, updates the state. Returns updates for the indexer.
// A rejected transaction leaves the state unchanged
func (u *Updatable) AddTransaction(txBytes []byte) ([]*indexer.Command, error) {
	tx, err := txbuilder.TransactionFromBytes(txBytes)
	if err != nil {
		return nil, err
	}

	u.mutex.Lock()
	defer u.mutex.Unlock()

	ctx, err := newTransactionContext(tx, u.readable())
	if err != nil {
		return nil, err
	}
	if err = ctx.Validate(); err != nil {
		return nil, err
	}
	trie, err := immutable.NewTrieUpdatable(commitmentModel, u.store, u.root)
	if err != nil {
		return nil, err
	}
	indexerUpdate := updateTrie(trie, ctx)
	batch := u.store.BatchedWriter()
	u.root = trie.Commit(batch)
	return indexerUpdate, batch.Commit()
}
