// Package trace defines the recorded execution trace of a verification rule run.
//
// A Trace is immutable once loaded. It consists of:
//
//   - an ordered log of Instructions, each of which carries enough data to be
//     applied and rolled back without any other context (a Store records both the
//     old and the new value, a Newline both the old and the new source line);
//   - the static shape of persistent storage as a DataTree;
//   - the initial value of every storage location that was defined before the run;
//   - metadata for every call and every location referenced by the log.
//
// # Data Trees
//
// A DataTree is either a Leaf, which names a single storage location, or a
// Structure, an ordered list of named children. Structures describe contracts,
// structs and mappings alike:
//
//	contracts
//	├── ERC20
//	│   ├── _balances
//	│   │   ├── 0xffff  -> location 3
//	│   │   └── 0xfffe  -> location 4
//	│   └── _totalSupply -> location 9
//	└── Ghosts
//	    └── sum_of_balances -> location 14
//
// Paths are resolved with Get:
//
//	loc, err := tr.Storage.Get("ERC20", "_balances", "0xffff")
//
// # Encoding
//
// Traces are stored as a single JSON document. Instruction and tree records are
// tagged with a "type" field ("StoreInstruction", "DataTree.Leaf", ...); the short
// forms ("store", "leaf") are accepted as well.
package trace
