package indexer

import (
	"fmt"
	"sync"

	"github.com/lunfardo314/easyiou/ledger"
	"github.com/lunfardo314/easyiou/ledger/iou"
	"github.com/lunfardo314/unitrie/common"
)

// Partition is the role of the party in the indexed obligation
type Partition byte

const (
	PartitionLender = Partition(iota + 1)
	PartitionBorrower
)

func (p Partition) String() string {
	switch p {
	case PartitionLender:
		return "lender"
	case PartitionBorrower:
		return "borrower"
	default:
		return fmt.Sprintf("partition(%d)", byte(p))
	}
}

type (
	// Indexer maps parties to the unspent obligation outputs they take part in
	Indexer struct {
		mutex *sync.RWMutex
		store ledger.IndexerStore
	}

	// Command is one update of the index
	Command struct {
		Partition Partition
		ID        []byte
		OutputID  ledger.OutputID
		Delete    bool
	}
)

func NewIndexer(store ledger.IndexerStore) *Indexer {
	return &Indexer{
		mutex: &sync.RWMutex{},
		store: store,
	}
}

// NewInMemory mostly for testing
func NewInMemory() *Indexer {
	return NewIndexer(common.NewInMemoryKVStore())
}

// CommandsForOutput returns index commands for the output: one per party of the obligation.
// States of other types are not indexed
func CommandsForOutput(oid ledger.OutputID, s iou.ContractState, del bool) []*Command {
	o, ok := s.(*iou.ObligationState)
	if !ok || o == nil {
		return nil
	}
	ret := make([]*Command, 0, 2)
	if o.Lender != nil {
		id := o.Lender.ID()
		ret = append(ret, &Command{Partition: PartitionLender, ID: id[:], OutputID: oid, Delete: del})
	}
	if o.Borrower != nil {
		id := o.Borrower.ID()
		ret = append(ret, &Command{Partition: PartitionBorrower, ID: id[:], OutputID: oid, Delete: del})
	}
	return ret
}

func (c *Command) key() []byte {
	return common.Concat(byte(c.Partition), c.ID, c.OutputID[:])
}

// GetUTXOs returns outputs indexed under the party ID in the partition, which are still in the ledger state
func (inr *Indexer) GetUTXOs(partition Partition, id []byte, state ledger.StateReadAccess) ([]*ledger.OutputDataWithID, error) {
	inr.mutex.RLock()
	defer inr.mutex.RUnlock()

	prefix := common.Concat(byte(partition), id)
	ret := make([]*ledger.OutputDataWithID, 0)
	var err error
	var found bool
	inr.store.Iterator(prefix).Iterate(func(k, v []byte) bool {
		o := &ledger.OutputDataWithID{}
		o.ID, err = ledger.OutputIDFromBytes(k[len(prefix):])
		if err != nil {
			return false
		}
		o.OutputData, found = state.GetUTXO(&o.ID)
		if !found {
			// stale entry, skip
			return true
		}
		ret = append(ret, o)
		return true
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (inr *Indexer) Update(cmds []*Command) error {
	inr.mutex.Lock()
	defer inr.mutex.Unlock()

	w := inr.store.BatchedWriter()
	for _, c := range cmds {
		if c.Delete {
			w.Set(c.key(), nil)
		} else {
			w.Set(c.key(), []byte{0xff})
		}
	}
	return w.Commit()
}
