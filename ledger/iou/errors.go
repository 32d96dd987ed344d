package iou

import (
	"fmt"

	"github.com/pkg/errors"
)

// RuleID is a stable identifier of a contract rule. Callers branch on RuleID, not on messages
type RuleID string

const (
	RuleMalformedCommand      = RuleID("MalformedCommand")
	RuleUnexpectedInputs      = RuleID("UnexpectedInputs")
	RuleOutputCountViolation  = RuleID("OutputCountViolation")
	RuleNonPositiveAmount     = RuleID("NonPositiveAmount")
	RuleIdenticalParties      = RuleID("IdenticalParties")
	RuleSignerCountViolation  = RuleID("SignerCountViolation")
	RuleMissingRequiredSigner = RuleID("MissingRequiredSigner")
)

// Violation is the rejection of a transaction by the contract.
// Message is for humans and is surfaced to the submitter of the transaction
type Violation struct {
	RuleID  RuleID
	Message string
}

func (v *Violation) Error() string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("contract rule '%s' violated: %s", v.RuleID, v.Message)
}

func newViolation(id RuleID, msg string) error {
	return &Violation{RuleID: id, Message: msg}
}

// RuleIDOf returns the rule violated by err, or "" if err is not (and does not wrap) a violation
func RuleIDOf(err error) RuleID {
	var v *Violation
	if !errors.As(err, &v) {
		return ""
	}
	return v.RuleID
}

// IsViolation reports whether err is (or wraps) a violation of the rule
func IsViolation(err error, id RuleID) bool {
	return err != nil && RuleIDOf(err) == id
}
