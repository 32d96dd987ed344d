package ledger

import (
	"errors"
	"fmt"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/unitrie/common"
)

const (
	TransactionIDLength = 32
	OutputIDLength      = TransactionIDLength + 1
)

type (
	TransactionID [TransactionIDLength]byte
	OutputID      [OutputIDLength]byte

	OutputDataWithID struct {
		ID         OutputID
		OutputData []byte
	}

	// StateReadAccess is read access to the unspent outputs of the ledger
	StateReadAccess interface {
		GetUTXO(id *OutputID) ([]byte, bool)
		HasTransaction(txid *TransactionID) bool
	}

	StateStore interface {
		common.KVReader
		common.BatchedUpdatable
	}

	IndexerStore interface {
		common.BatchedUpdatable
		common.Traversable
		common.KVReader
	}
)

func TransactionIDFromBytes(data []byte) (ret TransactionID, err error) {
	if len(data) != TransactionIDLength {
		err = errors.New("TransactionIDFromBytes: wrong data length")
		return
	}
	copy(ret[:], data)
	return
}

func (txid TransactionID) Bytes() []byte {
	return txid[:]
}

func (txid TransactionID) String() string {
	return easyfl.Fmt(txid[:])
}

// Short is the first 6 bytes of the ID in hex, for logging
func (txid TransactionID) Short() string {
	return easyfl.Fmt(txid[:6]) + ".."
}

func NewOutputID(id TransactionID, idx byte) (ret OutputID) {
	copy(ret[:TransactionIDLength], id[:])
	ret[TransactionIDLength] = idx
	return
}

func OutputIDFromBytes(data []byte) (ret OutputID, err error) {
	if len(data) != OutputIDLength {
		err = fmt.Errorf("OutputIDFromBytes: wrong data length %d", len(data))
		return
	}
	copy(ret[:], data)
	return
}

func (oid OutputID) String() string {
	return fmt.Sprintf("[%d]%s", oid.Index(), oid.TransactionID().String())
}

func (oid OutputID) TransactionID() (ret TransactionID) {
	copy(ret[:], oid[:TransactionIDLength])
	return
}

func (oid OutputID) Index() byte {
	return oid[TransactionIDLength]
}

func (oid OutputID) Bytes() []byte {
	return oid[:]
}
