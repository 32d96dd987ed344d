// Package iou implements the contract of the IOU ledger entry: the obligation state
// and the rules a transaction must satisfy to create one.
// Verification is a pure function of the proposed transaction and is safe for concurrent use
package iou

// ContractID names the contract in logs and on the ledger
const ContractID = "easyiou.ObligationContract"

// createRules is the rule set of the Create command. The order is the evaluation order
var createRules = []Rule{
	{
		ID:      RuleMalformedCommand,
		Message: "Exactly one Create command is required.",
		Holds: func(v *verification) bool {
			return v.command != nil
		},
	},
	// constraints on the shape of the transaction
	{
		ID:      RuleUnexpectedInputs,
		Message: "No inputs should be consumed when issuing an IOU.",
		Holds: func(v *verification) bool {
			return len(v.tx.Inputs) == 0
		},
	},
	{
		ID:      RuleOutputCountViolation,
		Message: "There should be one output state of type IOUState.",
		Holds: func(v *verification) bool {
			return v.output != nil
		},
	},
	// IOU-specific constraints
	{
		ID:      RuleNonPositiveAmount,
		Message: "The IOU's value must be non-negative.",
		Holds: func(v *verification) bool {
			return v.output.Amount > 0
		},
		requires: requiresOutput,
	},
	{
		ID:      RuleIdenticalParties,
		Message: "The lender and the borrower cannot be the same entity.",
		Holds: func(v *verification) bool {
			return !v.output.Lender.Equal(v.output.Borrower)
		},
		requires: requiresOutput,
	},
	// constraints on the signers
	{
		ID:      RuleSignerCountViolation,
		Message: "There must be two signers.",
		Holds: func(v *verification) bool {
			return len(v.signers) == 2
		},
		requires: requiresCommand,
	},
	{
		ID:      RuleMissingRequiredSigner,
		Message: "The borrower and lender must be signers.",
		Holds: func(v *verification) bool {
			for _, p := range v.output.Participants() {
				if p == nil {
					return false
				}
				if _, ok := v.signers[string(p.PublicKey)]; !ok {
					return false
				}
			}
			return true
		},
		requires: requiresCommand | requiresOutput,
	},
}

// Verify decides if the transaction may proceed to signing and notarization.
// It returns nil or the first violated rule as *Violation
func Verify(tx *ProposedTransaction) error {
	return validateRules(newVerification(tx), createRules)
}

// VerifyAll evaluates every applicable rule and returns all violations in rule order.
// Rules about the output are not evaluated when there is no single obligation output,
// rules about the signers are not evaluated when there is no single Create command
func VerifyAll(tx *ProposedTransaction) []error {
	return validateRulesAll(newVerification(tx), createRules)
}

// Rules returns rule set of the contract in evaluation order
func Rules() []Rule {
	ret := make([]Rule, len(createRules))
	copy(ret, createRules)
	return ret
}
