package state

import (
	"github.com/lunfardo314/easyiou/ledger"
	"github.com/lunfardo314/easyiou/ledger/indexer"
	"github.com/lunfardo314/easyiou/ledger/iou"
	"github.com/lunfardo314/easyiou/ledger/txbuilder"
	"github.com/lunfardo314/unitrie/immutable"
	"github.com/pkg/errors"
)

// transactionContext is a parsed transaction with consumed states resolved from the ledger
type transactionContext struct {
	tx       *txbuilder.Transaction
	consumed []iou.ContractState
}

func newTransactionContext(tx *txbuilder.Transaction, state ledger.StateReadAccess) (*transactionContext, error) {
	txid := tx.ID()
	if state.HasTransaction(&txid) {
		return nil, errors.Errorf("transaction %s is already in the ledger", txid.String())
	}
	ret := &transactionContext{
		tx:       tx,
		consumed: make([]iou.ContractState, tx.NumInputs()),
	}
	for i, oid := range tx.InputIDs() {
		oid := oid
		data, ok := state.GetUTXO(&oid)
		if !ok {
			// missing or already spent
			return nil, errors.Errorf("input not found: %s", oid.String())
		}
		s, err := iou.StateFromBytes(data)
		if err != nil {
			return nil, errors.Wrapf(err, "consumed output @ %d", i)
		}
		ret.consumed[i] = s
	}
	return ret, nil
}

// Validate runs the contract on the transaction
func (ctx *transactionContext) Validate() error {
	if err := iou.Verify(ctx.tx.Proposed(ctx.consumed)); err != nil {
		txid := ctx.tx.ID()
		return errors.Wrapf(err, "transaction %s rejected by %s", txid.Short(), iou.ContractID)
	}
	return nil
}

// updateTrie updates trie from transaction without committing
func updateTrie(trie *immutable.TrieUpdatable, ctx *transactionContext) []*indexer.Command {
	indexerUpdate := make([]*indexer.Command, 0)

	// transaction ID is kept forever for duplicate detection
	trie.Update(committedKey(ctx.tx.ID()), committedMark)

	// delete consumed outputs from the ledger and from the index.
	// Create admits no inputs, the path serves commands which consume obligations
	for i, oid := range ctx.tx.InputIDs() {
		trie.Update(utxoKey(oid), nil)
		indexerUpdate = append(indexerUpdate, indexer.CommandsForOutput(oid, ctx.consumed[i], true)...)
	}
	// add new outputs to the ledger and to the index
	ctx.tx.ForEachProducedOutput(func(oid ledger.OutputID, o iou.ContractState) bool {
		trie.Update(utxoKey(oid), o.Bytes())
		indexerUpdate = append(indexerUpdate, indexer.CommandsForOutput(oid, o, false)...)
		return true
	})
	return indexerUpdate
}
