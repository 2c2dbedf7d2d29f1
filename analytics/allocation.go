package analytics

import (
	"cost-dashboard/domain/expense"

	lo "github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const (
	RootID   = "root"
	RootName = "Total"
)

// allocNode accumulates exactly in decimal before the tree is frozen into float values.
type allocNode struct {
	id, name string
	value    decimal.Decimal
	children []*allocNode
	index    map[string]*allocNode
}

func (n *allocNode) child(id, name string) *allocNode {
	if c, ok := n.index[id]; ok {
		return c
	}
	c := &allocNode{id: id, name: name, index: map[string]*allocNode{}}
	n.index[id] = c
	n.children = append(n.children, c)
	return c
}

func (n *allocNode) freeze(leafDepth int) *expense.AllocationNode {
	out := &expense.AllocationNode{ID: n.id, Name: n.name, Value: n.value.Round(2).InexactFloat64()}
	if leafDepth > 0 {
		out.Children = lo.Map(n.children, func(c *allocNode, _ int) *expense.AllocationNode {
			return c.freeze(leafDepth - 1)
		})
		if out.Children == nil {
			out.Children = []*expense.AllocationNode{}
		}
	}
	return out
}

// CostAllocation folds expenses into a team → project → category → service tree.
// Children keep first-seen order and every parent's value is the sum of its children.
func CostAllocation(expenses []expense.Expense) *expense.AllocationNode {
	root := &allocNode{id: RootID, name: RootName, index: map[string]*allocNode{}}
	for _, e := range expenses {
		amount := decimal.NewFromFloat(e.Amount).Round(2)
		team := root.child(e.TeamID, e.TeamName)
		project := team.child(e.ProjectID, e.ProjectName)
		category := project.child(e.CategoryID, e.CategoryName)
		service := category.child(e.ServiceID, e.ServiceName)
		for _, n := range []*allocNode{root, team, project, category, service} {
			n.value = n.value.Add(amount)
		}
	}
	return root.freeze(4)
}

// Percentage is value's share of total in percent, 0 when total is not positive.
func Percentage(value, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return round(value/total*100, 1)
}

// FindNode walks ids down from root (drill-down). An empty path returns root.
func FindNode(root *expense.AllocationNode, path []string) (*expense.AllocationNode, bool) {
	node := root
	for _, id := range path {
		next, ok := lo.Find(node.Children, func(c *expense.AllocationNode) bool { return c.ID == id })
		if !ok {
			return nil, false
		}
		node = next
	}
	return node, node != nil
}

// FlattenAllocation lists every service leaf with its team, project and category names.
func FlattenAllocation(root *expense.AllocationNode) []expense.AllocationRow {
	var rows []expense.AllocationRow
	var walk func(n *expense.AllocationNode, path []string)
	walk = func(n *expense.AllocationNode, path []string) {
		if len(n.Children) == 0 {
			if len(path) == 4 {
				rows = append(rows, expense.AllocationRow{
					Team: path[0], Project: path[1], Category: path[2], Service: path[3], Amount: n.Value,
				})
			}
			return
		}
		for _, c := range n.Children {
			walk(c, append(append([]string(nil), path...), c.Name))
		}
	}
	if root != nil {
		walk(root, nil)
	}
	return rows
}
