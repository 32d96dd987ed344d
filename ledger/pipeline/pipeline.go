package pipeline

import (
	"sync"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easyiou/ledger"
	"github.com/lunfardo314/easyiou/ledger/ioudb"
	"github.com/lunfardo314/easyiou/ledger/iou"
	"github.com/lunfardo314/easyiou/ledger/txbuilder"
	"github.com/lunfardo314/easyiou/util/fifoqueue"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type (
	// Pipeline verifies incoming transactions in two stages. The pre-validator parses the transaction
	// and runs the contract without ledger context in parallel workers. The committer adds
	// pre-validated transactions to the ledger one by one
	Pipeline struct {
		log          *zap.SugaredLogger
		opt          Options
		db           *ioudb.IOUDB
		preValidator *fifoqueue.FIFOQueue[[]byte]
		committer    *fifoqueue.FIFOQueue[*txbuilder.Transaction]
		workers      sync.WaitGroup
		done         sync.WaitGroup
		stats        counters
	}

	Options struct {
		// NumWorkers number of pre-validator goroutines
		NumWorkers int
		// OnResult if not nil, is called once for every parsed transaction with the final result.
		// Called from pipeline goroutines
		OnResult func(txid ledger.TransactionID, err error)
	}

	Stats struct {
		Received     uint64
		Dropped      uint64
		Rejected     uint64
		Committed    uint64
		CommitFailed uint64
	}

	counters struct {
		received     atomic.Uint64
		dropped      atomic.Uint64
		rejected     atomic.Uint64
		committed    atomic.Uint64
		commitFailed atomic.Uint64
	}
)

func DefaultOptions() Options {
	return Options{
		NumWorkers: 4,
	}
}

func New(db *ioudb.IOUDB, globalLog *zap.SugaredLogger, opt ...Options) *Pipeline {
	o := DefaultOptions()
	if len(opt) > 0 {
		o = opt[0]
	}
	if o.NumWorkers <= 0 {
		o.NumWorkers = 1
	}
	return &Pipeline{
		log:          globalLog,
		opt:          o,
		db:           db,
		preValidator: fifoqueue.New[[]byte](),
		committer:    fifoqueue.New[*txbuilder.Transaction](),
	}
}

func (pipe *Pipeline) Start() {
	pipe.workers.Add(pipe.opt.NumWorkers)
	for i := 0; i < pipe.opt.NumWorkers; i++ {
		go func(n int) {
			defer pipe.workers.Done()

			log := pipe.log.Named("preValidator").With("worker", n)
			log.Debugf("STARTED")
			pipe.preValidator.Consume(func(txBytes []byte) {
				pipe.preValidate(txBytes, log)
			})
			log.Debugf("STOPPED")
		}(i)
	}

	pipe.done.Add(1)
	go func() {
		// close downstream when all workers are finished
		pipe.workers.Wait()
		pipe.committer.Close()
	}()

	go func() {
		defer pipe.done.Done()

		log := pipe.log.Named("committer")
		log.Infof("STARTED")
		pipe.committer.Consume(func(tx *txbuilder.Transaction) {
			pipe.commit(tx, log)
		})
		log.Infof("STOPPED")
	}()
}

func (pipe *Pipeline) preValidate(txBytes []byte, log *zap.SugaredLogger) {
	var tx *txbuilder.Transaction
	err := easyfl.CatchPanicOrError(func() error {
		var err1 error
		tx, err1 = txbuilder.TransactionFromBytes(txBytes)
		return err1
	})
	if err != nil {
		pipe.stats.dropped.Inc()
		log.Debugf("transaction bytes dropped. Reason: '%v'", err)
		return
	}
	txid := tx.ID()
	if err = iou.Verify(tx.ProposedUnresolved()); err != nil {
		pipe.stats.rejected.Inc()
		log.Debugf("transaction %s rejected: %v", txid.Short(), err)
		pipe.result(txid, err)
		return
	}
	pipe.committer.Write(tx)
	log.Debugf("transaction OUT: ID = %s", txid.String())
}

func (pipe *Pipeline) commit(tx *txbuilder.Transaction, log *zap.SugaredLogger) {
	txid := tx.ID()
	log.Debugf("transaction IN: ID = %s", txid.String())
	err := pipe.db.AddTransaction(tx.Bytes())
	if err != nil {
		pipe.stats.commitFailed.Inc()
		log.Infof("transaction %s failed to commit: %v", txid.Short(), err)
	} else {
		pipe.stats.committed.Inc()
	}
	pipe.result(txid, err)
}

func (pipe *Pipeline) result(txid ledger.TransactionID, err error) {
	if pipe.opt.OnResult != nil {
		pipe.opt.OnResult(txid, err)
	}
}

// Stop stops accepting new transactions. Transactions already in the pipeline are processed
func (pipe *Pipeline) Stop() {
	pipe.preValidator.Close()
}

// Wait blocks until the pipeline is stopped and drained
func (pipe *Pipeline) Wait() {
	pipe.done.Wait()
}

// ProcessTransaction puts transaction bytes into the pipeline. Returns false if the pipeline is stopped
func (pipe *Pipeline) ProcessTransaction(txBytes []byte) bool {
	if !pipe.preValidator.Write(txBytes) {
		return false
	}
	pipe.stats.received.Inc()
	return true
}

func (pipe *Pipeline) Stats() Stats {
	return Stats{
		Received:     pipe.stats.received.Load(),
		Dropped:      pipe.stats.dropped.Load(),
		Rejected:     pipe.stats.rejected.Load(),
		Committed:    pipe.stats.committed.Load(),
		CommitFailed: pipe.stats.commitFailed.Load(),
	}
}
