package aggregates

import "strings"

type WriteTxOwnership string

const (
	// WriteTxOwnedByAggregate means every write method opens and commits its own transaction.
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
)

type ReadPolicy string

const (
	// ReadPolicyInvariantScoped limits reads to what a write needs to check the tree.
	ReadPolicyInvariantScoped ReadPolicy = "invariant_scoped_reads"
	// ReadPolicyTreeAssembly allows reads that return assembled plan trees.
	ReadPolicyTreeAssembly ReadPolicy = "tree_assembly_reads"
)

// Contract names an aggregate, the operation prefix it reports under and
// the tables only it may write.
type Contract struct {
	Name             string
	OpPrefix         string
	WriteTxOwnership WriteTxOwnership
	ReadPolicy       ReadPolicy
	Tables           []string
	Notes            string
}

type Aggregate interface {
	Contract() Contract
}

func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}

// Owns reports whether op is one of this aggregate's operation names.
func (c Contract) Owns(op string) bool {
	return c.OpPrefix != "" && strings.HasPrefix(strings.TrimSpace(op), c.OpPrefix)
}

func Contracts() []Contract {
	return []Contract{
		WeightingPlanAggregateContract,
		ResponseWeightingAggregateContract,
	}
}

// ContractFor finds the aggregate that reports op.
func ContractFor(op string) (Contract, bool) {
	for _, c := range Contracts() {
		if c.Owns(op) {
			return c, true
		}
	}
	return Contract{}, false
}

// TableOwners maps each aggregate-written table to the aggregates allowed to
// write it.
func TableOwners() map[string][]string {
	out := map[string][]string{}
	for _, c := range Contracts() {
		for _, t := range c.Tables {
			out[t] = append(out[t], c.Name)
		}
	}
	return out
}
