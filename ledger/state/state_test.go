package state_test

import (
	"encoding/binary"
	"github.com/lunfardo314/unitrie/common"
	"testing"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easyiou/lazyslice"
	"github.com/lunfardo314/easyiou/ledger"
	"github.com/lunfardo314/easyiou/ledger/indexer"
	"github.com/lunfardo314/easyiou/ledger/iou"
	"github.com/lunfardo314/easyiou/ledger/state"
	"github.com/lunfardo314/easyiou/ledger/txbuilder"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"
)

func generateKey(n uint16) (ed25519.PrivateKey, *ledger.Party) {
	var u16 [2]byte
	binary.BigEndian.PutUint16(u16[:], n)
	seed := blake2b.Sum256(common.Concat([]byte("state test seed"), u16[:]))
	priv := ed25519.NewKeyFromSeed(seed[:])
	return priv, ledger.NewParty("party", priv.Public().(ed25519.PublicKey))
}

func TestLedgerState(t *testing.T) {
	privA, partyA := generateKey(0)
	privB, partyB := generateKey(1)

	makeCreate := func(amount int64, lender, borrower *ledger.Party, keys ...ed25519.PrivateKey) []byte {
		txBytes, err := txbuilder.MakeCreateTransaction(txbuilder.NewCreateParams(amount, lender, borrower).
			WithSignerKeys(keys...))
		require.NoError(t, err)
		return txBytes
	}

	t.Run("accept", func(t *testing.T) {
		st := state.NewInMemory([]byte("test ledger"))
		root0 := st.Root()
		txBytes := makeCreate(100, partyA, partyB, privA, privB)
		cmds, err := st.AddTransaction(txBytes)
		require.NoError(t, err)
		require.NotEqualValues(t, root0.Bytes(), st.Root().Bytes())

		tx, err := txbuilder.TransactionFromBytes(txBytes)
		require.NoError(t, err)
		txid := tx.ID()
		require.True(t, st.HasTransaction(&txid))
		oid := ledger.NewOutputID(txid, 0)
		data, ok := st.GetUTXO(&oid)
		require.True(t, ok)
		o, err := iou.ObligationStateFromBytes(data)
		require.NoError(t, err)
		require.EqualValues(t, 100, o.Amount)

		require.EqualValues(t, 2, len(cmds))
		require.EqualValues(t, indexer.PartitionLender, cmds[0].Partition)
		require.EqualValues(t, indexer.PartitionBorrower, cmds[1].Partition)
		require.False(t, cmds[0].Delete)
		require.EqualValues(t, oid, cmds[0].OutputID)
	})
	t.Run("reject leaves state unchanged", func(t *testing.T) {
		st := state.NewInMemory([]byte("test ledger"))
		root0 := st.Root()

		_, err := st.AddTransaction(makeCreate(100, partyA, partyA, privA))
		require.True(t, iou.IsViolation(err, iou.RuleIdenticalParties))
		require.EqualValues(t, root0.Bytes(), st.Root().Bytes())

		_, err = st.AddTransaction(makeCreate(0, partyA, partyB, privA, privB))
		require.True(t, iou.IsViolation(err, iou.RuleNonPositiveAmount))
		easyfl.RequireErrorWith(t, err, iou.ContractID)
		require.EqualValues(t, root0.Bytes(), st.Root().Bytes())

		_, err = st.AddTransaction(makeCreate(100, partyA, partyB, privA))
		easyfl.RequireErrorWith(t, err, "signature missing")
		require.EqualValues(t, root0.Bytes(), st.Root().Bytes())
	})
	t.Run("duplicate", func(t *testing.T) {
		st := state.NewInMemory([]byte("test ledger"))
		txBytes := makeCreate(100, partyA, partyB, privA, privB)
		_, err := st.AddTransaction(txBytes)
		require.NoError(t, err)
		_, err = st.AddTransaction(txBytes)
		easyfl.RequireErrorWith(t, err, "already in the ledger")
		root1 := st.Root()

		// same signed essence with signatures in another order
		arr, err := lazyslice.ParseArray(txBytes)
		require.NoError(t, err)
		sigs, err := lazyslice.ParseArray(arr.At(int(txbuilder.TxSignatures)))
		require.NoError(t, err)
		require.EqualValues(t, 2, sigs.NumElements())
		arr.PutAtIdx(int(txbuilder.TxSignatures), lazyslice.MakeArray(sigs.At(1), sigs.At(0)).Bytes())
		swapped := arr.Bytes()
		require.NotEqualValues(t, txBytes, swapped)

		_, err = st.AddTransaction(swapped)
		easyfl.RequireErrorWith(t, err, "already in the ledger")
		require.EqualValues(t, root1.Bytes(), st.Root().Bytes())
	})
	t.Run("consuming existing state", func(t *testing.T) {
		st := state.NewInMemory([]byte("test ledger"))
		txBytes := makeCreate(100, partyA, partyB, privA, privB)
		_, err := st.AddTransaction(txBytes)
		require.NoError(t, err)
		tx, err := txbuilder.TransactionFromBytes(txBytes)
		require.NoError(t, err)
		root1 := st.Root()

		b := txbuilder.NewTransactionBuilder()
		_, err = b.ConsumeOutput(ledger.NewOutputID(tx.ID(), 0))
		require.NoError(t, err)
		_, err = b.ProduceOutput(iou.NewObligationState(50, partyA, partyB))
		require.NoError(t, err)
		_, err = b.AddCommand(iou.CommandCreate, partyA.PublicKey, partyB.PublicKey)
		require.NoError(t, err)
		require.NoError(t, b.Sign(privA, privB))

		_, err = st.AddTransaction(b.Bytes())
		require.True(t, iou.IsViolation(err, iou.RuleUnexpectedInputs))
		require.EqualValues(t, root1.Bytes(), st.Root().Bytes())
	})
	t.Run("input not found", func(t *testing.T) {
		st := state.NewInMemory([]byte("test ledger"))
		b := txbuilder.NewTransactionBuilder()
		_, err := b.ConsumeOutput(ledger.NewOutputID(ledger.TransactionID{}, 0))
		require.NoError(t, err)
		_, err = st.AddTransaction(b.Bytes())
		easyfl.RequireErrorWith(t, err, "input not found")
	})
	t.Run("rubbish", func(t *testing.T) {
		st := state.NewInMemory([]byte("test ledger"))
		_, err := st.AddTransaction([]byte("rubbish"))
		require.Error(t, err)
	})
}
