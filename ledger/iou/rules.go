package iou

// requirement tells what a rule needs from the transaction before it can be evaluated
type requirement byte

const (
	requiresCommand = requirement(1 << iota)
	requiresOutput
)

// Rule is an explicit, named predicate over the transaction.
// Holds must be deterministic and side effect free
type Rule struct {
	ID       RuleID
	Message  string
	Holds    func(v *verification) bool
	requires requirement
}

// verification is the transaction with the pieces the rules look at.
// command and output are nil unless the command and output shape is valid
type verification struct {
	tx      *ProposedTransaction
	command *Command
	output  *ObligationState
	signers map[string]struct{}
}

func newVerification(tx *ProposedTransaction) *verification {
	if tx == nil {
		tx = NewProposedTransaction()
	}
	ret := &verification{tx: tx}
	creates, others := tx.commandsOfKind(CommandCreate)
	if len(creates) == 1 && others == 0 {
		ret.command = creates[0]
		ret.signers = ret.command.SignerSet()
	}
	if outs := tx.ObligationOutputs(); len(outs) == 1 {
		ret.output = outs[0]
	}
	return ret
}

func (v *verification) satisfies(req requirement) bool {
	if req&requiresCommand != 0 && v.command == nil {
		return false
	}
	if req&requiresOutput != 0 && v.output == nil {
		return false
	}
	return true
}

// applicable returns false when the rule can't be evaluated because an earlier shape rule failed
func (r Rule) applicable(v *verification) bool {
	return v.satisfies(r.requires)
}

func (r Rule) apply(v *verification) error {
	if r.Holds(v) {
		return nil
	}
	return newViolation(r.ID, r.Message)
}

// validateRules runs rules in order, returning the first failure
func validateRules(v *verification, rules []Rule) error {
	for _, r := range rules {
		if !r.applicable(v) {
			continue
		}
		if err := r.apply(v); err != nil {
			return err
		}
	}
	return nil
}

// validateRulesAll runs all applicable rules in order and returns all violations in the same order
func validateRulesAll(v *verification, rules []Rule) []error {
	var ret []error
	for _, r := range rules {
		if !r.applicable(v) {
			continue
		}
		if err := r.apply(v); err != nil {
			ret = append(ret, err)
		}
	}
	return ret
}
