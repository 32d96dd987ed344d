package txbuilder

import (
	"fmt"

	"github.com/lunfardo314/easyiou/ledger/iou"
)

// TransactionToString is a human-readable multi-line dump of the transaction
func TransactionToString(tx *Transaction) string {
	ret := fmt.Sprintf("TransactionID: %s\n", tx.ID().String())
	ret += "inputs: \n"
	for i, oid := range tx.InputIDs() {
		ret += fmt.Sprintf("  #%d: %s\n", i, oid.String())
	}
	ret += "outputs: \n"
	for i, o := range tx.Outputs() {
		switch s := o.(type) {
		case *iou.ObligationState:
			ret += fmt.Sprintf("  #%d: %s\n", i, s.String())
		case *iou.UnknownState:
			ret += fmt.Sprintf("  #%d: state of unknown type %d, %d bytes\n", i, s.StateType(), len(s.Data))
		}
	}
	ret += "commands: \n"
	for i, cmd := range tx.Commands() {
		ret += fmt.Sprintf("  #%d: %s\n", i, cmd.String())
	}
	ret += fmt.Sprintf("signatures: %d\n", len(tx.signedBy))
	return ret
}
