package resource

import "fmt"

// Source is the view of one resource stack used for payment: the type it
// produces, its quantity (1 + supply cards) and whether it is spent.
type Source struct {
	Type      Type
	Quantity  int
	Exhausted bool
}

// PaymentPlan lists the source indices to exhaust, in scan order.
type PaymentPlan struct {
	Exhaust []int
}

// PaymentResult is the outcome of planning a payment.
type PaymentResult struct {
	Success bool
	Plan    *PaymentPlan
	Reason  string
}

// CalculatePayment scans the non-exhausted sources producing each required
// type and selects whole stacks until the requirement is covered. Stacks are
// never split; any surplus on the last stack is lost. Sources are not modified.
func CalculatePayment(cost Cost, sources []Source) *PaymentResult {
	plan := &PaymentPlan{}
	if cost.IsFree() {
		return &PaymentResult{Success: true, Plan: plan}
	}

	used := make([]bool, len(sources))
	for _, typ := range cost.Types() {
		need := cost[typ]
		got := 0
		for i, src := range sources {
			if got >= need {
				break
			}
			if used[i] || src.Exhausted || src.Type != typ {
				continue
			}
			used[i] = true
			got += src.Quantity
			plan.Exhaust = append(plan.Exhaust, i)
		}
		if got < need {
			return &PaymentResult{
				Success: false,
				Reason:  fmt.Sprintf("insufficient %s (need %d, have %d)", typ, need, got),
			}
		}
	}

	return &PaymentResult{Success: true, Plan: plan}
}

// CanAfford reports whether cost can be paid from sources.
func CanAfford(cost Cost, sources []Source) bool {
	return CalculatePayment(cost, sources).Success
}

// Available returns the total unexhausted quantity per type.
func Available(sources []Source) map[Type]int {
	out := make(map[Type]int)
	for _, src := range sources {
		if !src.Exhausted && src.Type != "" {
			out[src.Type] += src.Quantity
		}
	}
	return out
}
