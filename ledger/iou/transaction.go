package iou

// ProposedTransaction is the read-only view of a candidate transaction the contract verifies.
// Inputs are the states being consumed, already resolved from the ledger
type ProposedTransaction struct {
	Inputs   []ContractState
	Outputs  []ContractState
	Commands []*Command
}

func NewProposedTransaction() *ProposedTransaction {
	return &ProposedTransaction{
		Inputs:   make([]ContractState, 0),
		Outputs:  make([]ContractState, 0),
		Commands: make([]*Command, 0),
	}
}

func (tx *ProposedTransaction) WithInputs(inputs ...ContractState) *ProposedTransaction {
	tx.Inputs = append(tx.Inputs, inputs...)
	return tx
}

func (tx *ProposedTransaction) WithOutputs(outputs ...ContractState) *ProposedTransaction {
	tx.Outputs = append(tx.Outputs, outputs...)
	return tx
}

func (tx *ProposedTransaction) WithCommand(cmd *Command) *ProposedTransaction {
	tx.Commands = append(tx.Commands, cmd)
	return tx
}

// ObligationOutputs returns outputs of type *ObligationState in the order of appearance
func (tx *ProposedTransaction) ObligationOutputs() []*ObligationState {
	ret := make([]*ObligationState, 0, len(tx.Outputs))
	for _, o := range tx.Outputs {
		if obl, ok := o.(*ObligationState); ok && obl != nil {
			ret = append(ret, obl)
		}
	}
	return ret
}

// commandsOfKind returns commands of the kind and the number of all other commands
func (tx *ProposedTransaction) commandsOfKind(kind CommandKind) ([]*Command, int) {
	ret := make([]*Command, 0, 1)
	others := 0
	for _, cmd := range tx.Commands {
		if cmd != nil && cmd.Kind == kind {
			ret = append(ret, cmd)
		} else {
			others++
		}
	}
	return ret, others
}
