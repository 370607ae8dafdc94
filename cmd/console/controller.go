package console

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yue/binsizer/internal/sizemodel"
)

// Controller holds the navigation state of a console session: the
// current group (the result of the last command) and the history of
// groups it descended from, so "up" can pop back. It knows nothing
// about presentation; tui.go and repl.go each drive it independently.
type Controller struct {
	root    *sizemodel.SymbolGroup
	current *sizemodel.SymbolGroup
	history []*sizemodel.SymbolGroup
}

// NewController starts a session rooted at the full symbol set loaded
// from a .size file.
func NewController(root *sizemodel.SymbolGroup) *Controller {
	return &Controller{root: root, current: root}
}

// Current returns the group in scope after the last command.
func (c *Controller) Current() *sizemodel.SymbolGroup { return c.current }

// Root returns the original, unfiltered group the session started from.
func (c *Controller) Root() *sizemodel.SymbolGroup { return c.root }

func (c *Controller) push(g *sizemodel.SymbolGroup) {
	c.history = append(c.history, c.current)
	c.current = g
}

// Up pops back to the group in scope before the last narrowing command.
// It is a no-op at the root.
func (c *Controller) Up() {
	if len(c.history) == 0 {
		return
	}
	c.current = c.history[len(c.history)-1]
	c.history = c.history[:len(c.history)-1]
}

// Reset returns to the root group, discarding all history.
func (c *Controller) Reset() {
	c.current = c.root
	c.history = nil
}

// Descend enters a child of the current group-of-groups by index, as
// when a user opens a tree node.
func (c *Controller) Descend(i int) error {
	children := c.current.Children()
	if i < 0 || i >= len(children) {
		return fmt.Errorf("no child %d in current group", i)
	}
	c.push(children[i])
	return nil
}

// Eval parses and runs a single console command line against the
// current group, returning the human-readable result of running it.
// Supported commands:
//
//	group by name|fullname|section
//	where name|fullname|source|object <regex>
//	where section <t|r|d|b>
//	where pss > <n>
//	where template
//	where generated
//	sorted
//	up
//	reset
//	describe
func (c *Controller) Eval(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}

	switch fields[0] {
	case "group":
		return c.evalGroupBy(fields)
	case "where":
		return c.evalWhere(fields)
	case "sorted":
		c.push(c.current.Sorted())
		return "sorted by |pss| descending", nil
	case "up":
		c.Up()
		return "back up one level", nil
	case "reset":
		c.Reset()
		return "back to root", nil
	case "describe":
		return Describe(c.current), nil
	default:
		return "", fmt.Errorf("unrecognized command %q", fields[0])
	}
}

func (c *Controller) evalGroupBy(fields []string) (string, error) {
	if len(fields) < 3 || fields[1] != "by" {
		return "", fmt.Errorf(`usage: group by name|fullname|section`)
	}
	switch fields[2] {
	case "name":
		c.push(c.current.GroupedByName(0))
	case "fullname":
		c.push(c.current.GroupedByFullName())
	case "section":
		c.push(c.current.GroupedBySection())
	default:
		return "", fmt.Errorf("unknown grouping %q", fields[2])
	}
	return Describe(c.current), nil
}

func (c *Controller) evalWhere(fields []string) (string, error) {
	if len(fields) < 2 {
		return "", fmt.Errorf("usage: where <field> <arg>")
	}
	switch fields[1] {
	case "template":
		c.push(c.current.WhereIsTemplate())
	case "generated":
		c.push(c.current.WhereSourceIsGenerated())
	case "name", "fullname", "source", "object":
		if len(fields) < 3 {
			return "", fmt.Errorf("usage: where %s <regex>", fields[1])
		}
		re, err := regexp.Compile(strings.Join(fields[2:], " "))
		if err != nil {
			return "", fmt.Errorf("invalid regex: %w", err)
		}
		c.push(applyWhereRegex(c.current, fields[1], re))
	case "section":
		if len(fields) != 3 {
			return "", fmt.Errorf("usage: where section <t|r|d|b>")
		}
		c.push(c.current.WhereSection(sizemodel.SectionTag(fields[2][0])))
	case "pss":
		if len(fields) != 4 || fields[2] != ">" {
			return "", fmt.Errorf("usage: where pss > <n>")
		}
		n, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return "", fmt.Errorf("invalid number: %w", err)
		}
		c.push(c.current.WherePSSAbove(n))
	default:
		return "", fmt.Errorf("unknown predicate %q", fields[1])
	}
	return Describe(c.current), nil
}

func applyWhereRegex(g *sizemodel.SymbolGroup, field string, re *regexp.Regexp) *sizemodel.SymbolGroup {
	switch field {
	case "name":
		return g.WhereNameMatches(re)
	case "fullname":
		return g.WhereFullNameMatches(re)
	case "source":
		return g.WhereSourcePathMatches(re)
	default:
		return g.WhereObjectPathMatches(re)
	}
}

// Describe renders a one-line summary of a group, used both by the
// REPL and as the tree view's node label.
func Describe(g *sizemodel.SymbolGroup) string {
	label := g.Name
	if label == "" {
		label = "(all)"
	}
	if g.IsGroupOfGroups() {
		return fmt.Sprintf("%s  %d children, %.1f PSS", label, len(g.Children()), g.PSS())
	}
	return fmt.Sprintf("%s  %d symbols, %.1f PSS", label, g.Count(), g.PSS())
}
