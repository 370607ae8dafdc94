package console

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/yue/binsizer/internal/sizemodel"
)

// runTUI drives the controller from an interactive tview tree view:
// expanding a node descends into that child group, typing "up" in the
// bottom input field goes back up a level, and that field accepts the
// same commands as the REPL (group by ..., where ..., sorted, reset).
func runTUI(c *Controller) error {
	app := tview.NewApplication()

	tree := tview.NewTreeView().SetGraphics(true)
	status := tview.NewTextView().SetDynamicColors(true)
	input := tview.NewInputField().SetLabel("cmd> ")

	refresh := func() {
		root := buildNode(c.Current(), 0)
		root.SetExpanded(true)
		tree.SetRoot(root).SetCurrentNode(root)
		status.SetText(fmt.Sprintf("[yellow]%s[white]", Describe(c.Current())))
	}

	tree.SetSelectedFunc(func(node *tview.TreeNode) {
		idx, ok := node.GetReference().(int)
		if !ok {
			return
		}
		if err := c.Descend(idx); err != nil {
			status.SetText(fmt.Sprintf("[red]%v[white]", err))
			return
		}
		refresh()
	})

	input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		line := input.GetText()
		input.SetText("")
		if line == "quit" || line == "exit" {
			app.Stop()
			return
		}
		if line == "up" {
			c.Up()
			refresh()
			return
		}
		result, err := c.Eval(line)
		if err != nil {
			status.SetText(fmt.Sprintf("[red]%v[white]", err))
			return
		}
		refresh()
		status.SetText(fmt.Sprintf("[green]%s[white]", result))
	})

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tree, 0, 1, true).
		AddItem(status, 1, 0, false).
		AddItem(input, 1, 0, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEsc {
			app.Stop()
			return nil
		}
		return event
	})

	refresh()
	return app.SetRoot(flex, true).SetFocus(tree).Run()
}

// buildNode renders one level of the group tree: a group-of-groups
// becomes children the user can open; a leaf group lists its symbols
// directly, without further descent (there is nothing left to group
// by once symbols are reached).
func buildNode(g *sizemodel.SymbolGroup, depth int) *tview.TreeNode {
	label := Describe(g)
	root := tview.NewTreeNode(label).SetColor(tcell.ColorYellow)

	if !g.IsGroupOfGroups() {
		for _, s := range g.Symbols() {
			leaf := tview.NewTreeNode(fmt.Sprintf("%6.1f  %s", s.PSS(), s.FullName)).
				SetColor(tcell.ColorWhite)
			root.AddChild(leaf)
		}
		return root
	}

	for i, child := range g.Children() {
		node := tview.NewTreeNode(Describe(child)).
			SetReference(i).
			SetColor(tcell.ColorGreen).
			SetSelectable(true)
		root.AddChild(node)
	}
	return root
}
