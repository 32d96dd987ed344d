package ioudb

import (
	"testing"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easyiou/lazyslice"
	"github.com/lunfardo314/easyiou/ledger"
	"github.com/lunfardo314/easyiou/ledger/indexer"
	"github.com/lunfardo314/easyiou/ledger/iou"
	"github.com/lunfardo314/easyiou/ledger/txbuilder"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAccounts(t *testing.T) {
	a1 := GenerateAccount(1, "alice")
	a1again := GenerateAccount(1, "alice")
	a2 := GenerateAccount(2, "bob")
	require.True(t, a1.Equal(a1again.Party))
	require.False(t, a1.Equal(a2.Party))
	require.EqualValues(t, a1.PrivateKey, a1again.PrivateKey)
	require.EqualValues(t, "alice", a1.Name)
}

func TestCreateObligation(t *testing.T) {
	alice := GenerateAccount(0, "alice")
	bob := GenerateAccount(1, "bob")
	carol := GenerateAccount(2, "carol")

	t.Run("one", func(t *testing.T) {
		u := NewIOUDB(true)
		txid, err := u.CreateObligation(alice, bob, 100)
		require.NoError(t, err)
		require.True(t, u.StateAccess().HasTransaction(&txid))

		lent, err := u.ObligationsAsLender(alice.Party)
		require.NoError(t, err)
		require.EqualValues(t, 1, len(lent))
		require.EqualValues(t, ledger.NewOutputID(txid, 0), lent[0].ID)
		require.EqualValues(t, 100, lent[0].State.Amount)
		require.True(t, lent[0].State.Lender.Equal(alice.Party))
		require.True(t, lent[0].State.Borrower.Equal(bob.Party))

		borrowed, err := u.ObligationsAsBorrower(bob.Party)
		require.NoError(t, err)
		require.EqualValues(t, 1, len(borrowed))

		require.EqualValues(t, 100, u.TotalLent(alice.Party))
		require.EqualValues(t, 0, u.TotalBorrowed(alice.Party))
		require.EqualValues(t, 100, u.TotalBorrowed(bob.Party))
		require.EqualValues(t, 0, u.TotalLent(bob.Party))
		require.EqualValues(t, 0, u.TotalLent(carol.Party))
	})
	t.Run("many", func(t *testing.T) {
		u := NewIOUDB()
		_, err := u.CreateObligation(alice, bob, 100)
		require.NoError(t, err)
		_, err = u.CreateObligation(alice, carol, 50)
		require.NoError(t, err)
		_, err = u.CreateObligation(bob, alice, 30)
		require.NoError(t, err)
		// signatures are deterministic, so the same obligation makes the same transaction
		_, err = u.CreateObligation(alice, bob, 100)
		easyfl.RequireErrorWith(t, err, "already in the ledger")

		require.EqualValues(t, 150, u.TotalLent(alice.Party))
		require.EqualValues(t, 30, u.TotalBorrowed(alice.Party))
		require.EqualValues(t, 30, u.TotalLent(bob.Party))
		require.EqualValues(t, 100, u.TotalBorrowed(bob.Party))
		require.EqualValues(t, 50, u.TotalBorrowed(carol.Party))
	})
	t.Run("rejected", func(t *testing.T) {
		u := NewIOUDB(true)
		_, err := u.CreateObligation(alice, bob, 0)
		require.True(t, iou.IsViolation(err, iou.RuleNonPositiveAmount))
		_, err = u.CreateObligation(alice, bob, -5)
		require.True(t, iou.IsViolation(err, iou.RuleNonPositiveAmount))
		_, err = u.CreateObligation(alice, alice, 10)
		require.True(t, iou.IsViolation(err, iou.RuleIdenticalParties))
		_, err = u.CreateObligation(nil, alice, 10)
		require.Error(t, err)
		require.EqualValues(t, 0, u.TotalLent(alice.Party))
		require.EqualValues(t, 0, u.TotalBorrowed(bob.Party))
	})
	t.Run("resubmitted with reordered signatures", func(t *testing.T) {
		u := NewIOUDB()
		txBytes, err := txbuilder.MakeCreateTransaction(txbuilder.NewCreateParams(100, alice.Party, bob.Party).
			WithSignerKeys(alice.PrivateKey, bob.PrivateKey))
		require.NoError(t, err)
		require.NoError(t, u.AddTransaction(txBytes))

		arr, err := lazyslice.ParseArray(txBytes)
		require.NoError(t, err)
		sigs, err := lazyslice.ParseArray(arr.At(int(txbuilder.TxSignatures)))
		require.NoError(t, err)
		arr.PutAtIdx(int(txbuilder.TxSignatures), lazyslice.MakeArray(sigs.At(1), sigs.At(0)).Bytes())
		err = u.AddTransaction(arr.Bytes())
		easyfl.RequireErrorWith(t, err, "already in the ledger")
		require.EqualValues(t, 100, u.TotalBorrowed(bob.Party))
	})
	t.Run("signature by the borrower only", func(t *testing.T) {
		u := NewIOUDB()
		txBytes, err := txbuilder.MakeCreateTransaction(txbuilder.NewCreateParams(10, alice.Party, bob.Party).
			WithSignerKeys(bob.PrivateKey))
		require.NoError(t, err)
		err = u.AddTransaction(txBytes)
		easyfl.RequireErrorWith(t, err, "signature missing")
		require.EqualValues(t, 0, u.TotalBorrowed(bob.Party))
	})
}

func TestTraceAndIndexerAccess(t *testing.T) {
	alice := GenerateAccount(0, "alice")
	bob := GenerateAccount(1, "bob")

	core, logs := observer.New(zapcore.InfoLevel)
	u := NewIOUDB(true).WithLogger(zap.New(core).Sugar())

	txid, err := u.CreateObligation(alice, bob, 100)
	require.NoError(t, err)
	_, err = u.CreateObligation(alice, bob, 0)
	require.Error(t, err)
	require.EqualValues(t, 1, logs.FilterMessageSnippet("transaction accepted").Len())
	require.EqualValues(t, 1, logs.FilterMessageSnippet("transaction rejected").Len())

	id := bob.ID()
	outs, err := u.IndexerAccess().GetUTXOs(indexer.PartitionBorrower, id[:], u.StateAccess())
	require.NoError(t, err)
	require.EqualValues(t, 1, len(outs))
	require.EqualValues(t, ledger.NewOutputID(txid, 0), outs[0].ID)

	// without tracing nothing is logged
	core, logs = observer.New(zapcore.DebugLevel)
	u = NewIOUDB().WithLogger(zap.New(core).Sugar())
	_, err = u.CreateObligation(alice, bob, 100)
	require.NoError(t, err)
	require.EqualValues(t, 0, logs.Len())
}
