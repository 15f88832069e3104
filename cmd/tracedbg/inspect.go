package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/dshills/tracedbg/internal/trace"
)

func newInspectCmd() *cobra.Command {
	var tracePath string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the storage layout, call tree and instruction counts of a trace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := trace.LoadFile(tracePath)
			if err != nil {
				return err
			}
			return inspect(cmd.OutOrStdout(), t)
		},
	}
	withTraceFlag(cmd, &tracePath)
	return cmd
}

func inspect(w io.Writer, t *trace.Trace) error {
	var b strings.Builder

	fmt.Fprintf(&b, "instructions: %d\n", len(t.Instructions))
	fmt.Fprintf(&b, "  %s\n", kindCounts(t))
	fmt.Fprintf(&b, "calls: %d, locations: %d, sources: %s\n\n",
		len(t.Calls), len(t.Locations), strings.Join(t.Sources, ", "))

	b.WriteString(storageTree(t).String())
	b.WriteString("\n")
	b.WriteString(callTree(t).String())

	_, err := io.WriteString(w, b.String())
	return err
}

// kindCounts formats the number of instructions of each kind, in kind order.
func kindCounts(t *trace.Trace) string {
	counts := make(map[trace.Kind]int)
	for _, i := range t.Instructions {
		counts[i.Kind()]++
	}

	kinds := make([]trace.Kind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s %d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}

func storageTree(t *trace.Trace) treeprint.Tree {
	tree := treeprint.NewWithRoot("storage")
	if t.Storage != nil {
		addStructure(tree, t, t.Storage)
	}
	return tree
}

func addStructure(branch treeprint.Tree, t *trace.Trace, s *trace.Structure) {
	for _, c := range s.Children {
		switch n := c.Tree.(type) {
		case *trace.Leaf:
			value := "undefined"
			if v, ok := t.InitialStorage[n.Location]; ok {
				value = string(v)
			}
			branch.AddMetaNode(n.Location, fmt.Sprintf("%s: %s = %s", c.Name, n.Type, value))
		case *trace.Structure:
			addStructure(branch.AddBranch(fmt.Sprintf("%s: %s", c.Name, n.Type)), t, n)
		}
	}
}

// callTree nests calls the way they were made, with the number of
// instructions recorded directly in each.
func callTree(t *trace.Trace) treeprint.Tree {
	root := treeprint.NewWithRoot("calls")
	stack := []treeprint.Tree{root}

	for _, ins := range t.Instructions {
		switch i := ins.(type) {
		case trace.Call:
			label := string(i.Call)
			if md, ok := t.Call(i.Call); ok {
				label = fmt.Sprintf("%s (%s) %s", md.FunctionName, i.Call, md.StartLocation)
			}
			stack = append(stack, stack[len(stack)-1].AddBranch(label))
		case trace.Return:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case trace.Assert, trace.Revert:
			stack[len(stack)-1].AddNode(trace.Describe(ins))
		}
	}
	return root
}
