// Package cli implements the headless command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/dpshade/promptdiff/internal/clipboard"
	"github.com/dpshade/promptdiff/internal/errors"
	"github.com/dpshade/promptdiff/internal/eval"
	"github.com/dpshade/promptdiff/internal/importer"
	"github.com/dpshade/promptdiff/internal/models"
	"github.com/dpshade/promptdiff/internal/renderer"
	"github.com/dpshade/promptdiff/internal/service"
	"github.com/dpshade/promptdiff/internal/store"
)

var (
	insertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	deleteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// CLI provides headless command-line interface functionality.
type CLI struct {
	service *service.Service
	out     io.Writer
}

// NewCLI creates a new CLI instance writing to stdout.
func NewCLI(svc *service.Service) *CLI {
	return &CLI{service: svc, out: os.Stdout}
}

// ExecuteCommand processes a CLI command and returns the result.
func (c *CLI) ExecuteCommand(args []string) error {
	if len(args) == 0 {
		return c.printUsage()
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "init":
		return c.initStore()
	case "add":
		return c.addVersion(commandArgs)
	case "list", "ls":
		return c.listPrompts(commandArgs)
	case "show", "get":
		return c.showVersion(commandArgs)
	case "log", "versions":
		return c.listVersions(commandArgs)
	case "diff":
		return c.diff(commandArgs)
	case "changelog":
		return c.changelog(commandArgs)
	case "tags":
		return c.handleTags(commandArgs)
	case "find":
		return c.findByTag(commandArgs)
	case "search":
		return c.searchPrompts(commandArgs)
	case "eval":
		return c.evaluate(commandArgs)
	case "render":
		return c.render(commandArgs)
	case "import":
		return c.importPrompts(commandArgs)
	case "copy":
		return c.copyVersion(commandArgs)
	case "rm", "delete":
		return c.removePrompt(commandArgs)
	case "git":
		return c.handleGit(commandArgs)
	case "help":
		return c.printUsage()
	default:
		return errors.CommandNotFoundError(command)
	}
}

func (c *CLI) initStore() error {
	if err := c.service.Init(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Initialized empty prompt store at %s\n", c.service.Store().Root())
	return nil
}

// addVersion records a revision. Content comes from --file or stdin.
func (c *CLI) addVersion(args []string) error {
	if len(args) == 0 {
		return errors.InvalidCommandError("add", "add requires a prompt name")
	}
	name := args[0]

	var opts store.AddOptions
	var file string
	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "--message", "-m":
			if i+1 < len(rest) {
				opts.Message = rest[i+1]
				i++
			}
		case "--tag", "-t":
			if i+1 < len(rest) {
				opts.Tag = rest[i+1]
				i++
			}
		case "--file", "-f":
			if i+1 < len(rest) {
				file = rest[i+1]
				i++
			}
		}
	}

	content, err := readContent(file)
	if err != nil {
		return err
	}

	rev, created, err := c.service.AddVersion(name, content, opts)
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintf(c.out, "%s unchanged, still at %s (content identical to latest)\n", name, rev.Label())
		return nil
	}
	fmt.Fprintf(c.out, "Added %s %s (%s)\n", name, rev.Label(), rev.ContentHash)
	return nil
}

func (c *CLI) listPrompts(args []string) error {
	format := flagValue(args, "--format", "-F")

	infos, err := c.service.ListPromptInfos()
	if err != nil {
		return err
	}

	if format == "json" {
		return c.writeJSON(infos)
	}

	if len(infos) == 0 {
		fmt.Fprintln(c.out, "No prompts tracked yet. Use 'promptdiff add <name>' to start.")
		return nil
	}
	for _, info := range infos {
		line := fmt.Sprintf("%s  v%d", info.Name, info.LatestVersion)
		if len(info.Tags) > 0 {
			line += dimStyle.Render("  [" + strings.Join(info.Tags, ", ") + "]")
		}
		if info.LatestMessage != "" {
			line += dimStyle.Render("  " + info.LatestMessage)
		}
		fmt.Fprintln(c.out, line)
	}
	return nil
}

func (c *CLI) showVersion(args []string) error {
	if len(args) == 0 {
		return errors.InvalidCommandError("show", "show requires a prompt name")
	}
	name := args[0]
	selector := "latest"
	if len(args) > 1 && (!strings.HasPrefix(args[1], "--") || isNegativeSelector(args[1])) {
		selector = args[1]
	}

	rev, err := c.service.GetVersion(name, selector)
	if err != nil {
		return err
	}

	if hasFlag(args, "--json") {
		return c.writeJSON(rev)
	}
	fmt.Fprint(c.out, rev.Content)
	return nil
}

func (c *CLI) listVersions(args []string) error {
	if len(args) == 0 {
		return errors.InvalidCommandError("log", "log requires a prompt name")
	}

	revisions, err := c.service.ListVersions(args[0])
	if err != nil {
		return err
	}

	if flagValue(args, "--format", "-F") == "json" {
		return c.writeJSON(revisions)
	}

	for i := len(revisions) - 1; i >= 0; i-- {
		rev := revisions[i]
		line := headerStyle.Render(rev.Label())
		line += dimStyle.Render("  " + rev.CreatedAt.Format("2006-01-02 15:04"))
		line += "  " + rev.ContentHash
		if rev.Tag != "" {
			line += dimStyle.Render("  (" + rev.Tag + ")")
		}
		if rev.Message != "" {
			line += "  " + rev.Message
		}
		fmt.Fprintln(c.out, line)
	}
	return nil
}

// diff compares two revisions. With no selectors it shows the latest change;
// with one it compares that revision to the latest.
func (c *CLI) diff(args []string) error {
	if len(args) == 0 {
		return errors.InvalidCommandError("diff", "diff requires a prompt name")
	}
	name := args[0]

	var selectors []string
	for _, arg := range args[1:] {
		if !strings.HasPrefix(arg, "--") {
			selectors = append(selectors, arg)
		}
	}
	from, to := "-2", "latest"
	switch len(selectors) {
	case 1:
		from = selectors[0]
	case 2:
		from, to = selectors[0], selectors[1]
	}

	if hasFlag(args, "--unified") {
		out, err := c.service.DiffUnified(name, from, to)
		if err != nil {
			return err
		}
		if out == "" {
			fmt.Fprintln(c.out, "No changes.")
			return nil
		}
		fmt.Fprint(c.out, out)
		return nil
	}

	result, err := c.service.Diff(context.Background(), name, from, to)
	if err != nil {
		return err
	}

	if hasFlag(args, "--json") {
		return c.writeJSON(result)
	}

	fmt.Fprintln(c.out, headerStyle.Render(fmt.Sprintf("%s v%d..v%d", name, result.OldVersion, result.NewVersion)))
	fmt.Fprintf(c.out, "Text similarity: %.1f%%", result.SimilarityRatio*100)
	if result.SemanticSimilarity != nil {
		fmt.Fprintf(c.out, "   Semantic similarity: %.1f%%", *result.SemanticSimilarity*100)
	}
	fmt.Fprintf(c.out, "   +%d -%d\n\n", result.Additions, result.Removals)

	if !result.HasChanges() {
		fmt.Fprintln(c.out, "No changes.")
		return nil
	}
	for _, line := range result.Lines {
		text := strings.TrimRight(line.Text, "\n")
		switch line.Op {
		case models.DiffInsert:
			fmt.Fprintln(c.out, insertStyle.Render("+ "+text))
		case models.DiffDelete:
			fmt.Fprintln(c.out, deleteStyle.Render("- "+text))
		default:
			fmt.Fprintln(c.out, "  "+text)
		}
	}
	return nil
}

func (c *CLI) changelog(args []string) error {
	lastN := 0
	if raw := flagValue(args, "--last", "-n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return errors.InvalidCommandError("changelog", "--last requires a non-negative integer")
		}
		lastN = n
	}

	var markdown string
	var err error
	if len(args) == 0 || strings.HasPrefix(args[0], "--") {
		markdown, err = c.service.ChangelogAll(context.Background())
	} else {
		markdown, err = c.service.Changelog(context.Background(), args[0], lastN)
	}
	if err != nil {
		return err
	}

	if hasFlag(args, "--plain") {
		fmt.Fprint(c.out, markdown)
		return nil
	}

	rendered, err := renderMarkdown(markdown)
	if err != nil {
		// Terminal rendering is cosmetic; fall back to raw markdown.
		fmt.Fprint(c.out, markdown)
		return nil
	}
	fmt.Fprint(c.out, rendered)
	return nil
}

func renderMarkdown(markdown string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}

func (c *CLI) handleTags(args []string) error {
	if len(args) == 0 {
		return errors.InvalidCommandError("tags", "tags requires a prompt name")
	}
	name := args[0]

	if len(args) == 1 {
		tags, err := c.service.Tags(name)
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			fmt.Fprintf(c.out, "%s has no tags\n", name)
			return nil
		}
		fmt.Fprintln(c.out, strings.Join(tags, "\n"))
		return nil
	}

	switch args[1] {
	case "set":
		if err := c.service.SetTags(name, args[2:]); err != nil {
			return err
		}
	case "add":
		if err := c.service.AddTags(name, args[2:]); err != nil {
			return err
		}
	default:
		return errors.InvalidCommandError("tags", "expected 'set' or 'add'")
	}

	tags, err := c.service.Tags(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s: %s\n", name, strings.Join(tags, ", "))
	return nil
}

func (c *CLI) findByTag(args []string) error {
	if len(args) == 0 {
		return errors.InvalidCommandError("find", "find requires a tag")
	}
	names, err := c.service.FindByTag(args[0])
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintf(c.out, "No prompts tagged '%s'\n", args[0])
		return nil
	}
	fmt.Fprintln(c.out, strings.Join(names, "\n"))
	return nil
}

func (c *CLI) searchPrompts(args []string) error {
	if len(args) == 0 {
		return errors.InvalidCommandError("search", "search requires a query")
	}
	results, err := c.service.SearchPrompts(strings.Join(args, " "))
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(c.out, "No matches.")
		return nil
	}
	for _, info := range results {
		fmt.Fprintf(c.out, "%s  v%d\n", info.Name, info.LatestVersion)
	}
	return nil
}

// evaluate runs a YAML test suite against one revision, or against every
// revision with --all.
func (c *CLI) evaluate(args []string) error {
	if len(args) < 2 {
		return errors.InvalidCommandError("eval", "eval requires a prompt name and a suite file")
	}
	name, suitePath := args[0], args[1]

	suite, err := eval.LoadSuite(suitePath)
	if err != nil {
		return err
	}

	if hasFlag(args, "--all") {
		cmp, err := c.service.EvaluateAll(context.Background(), name, suite, nil)
		if err != nil {
			return err
		}
		if hasFlag(args, "--json") {
			return c.writeJSON(cmp)
		}
		for _, vs := range cmp.Versions {
			marker := "  "
			if vs.Version == cmp.BestVersion {
				marker = headerStyle.Render("* ")
			}
			fmt.Fprintf(c.out, "%sv%-3d mean %.2f  weighted %.2f  passed %v\n",
				marker, vs.Version, vs.MeanScore, vs.WeightedScore, vs.Passed)
		}
		return nil
	}

	selector := flagValue(args, "--version", "-v")
	result, err := c.service.Evaluate(context.Background(), name, selector, suite, nil)
	if err != nil {
		return err
	}

	if hasFlag(args, "--json") {
		return c.writeJSON(result)
	}

	fmt.Fprintln(c.out, headerStyle.Render(fmt.Sprintf("%s v%d  run %s", result.PromptName, result.Version, result.RunID)))
	for _, cr := range result.Cases {
		status := fmt.Sprintf("%.2f", cr.Score)
		if cr.Error != "" {
			status = deleteStyle.Render("FAIL " + cr.Error)
		}
		fmt.Fprintf(c.out, "  %-24s %s\n", cr.Name, status)
	}
	passed := "failed"
	if result.Passed() {
		passed = "passed"
	}
	fmt.Fprintf(c.out, "mean %.2f  weighted %.2f  %s\n", result.MeanScore(), result.WeightedScore(), passed)
	return nil
}

// render fills {var} placeholders of a revision with --var key=value pairs.
func (c *CLI) render(args []string) error {
	if len(args) == 0 {
		return errors.InvalidCommandError("render", "render requires a prompt name")
	}
	name := args[0]

	selector := flagValue(args, "--version", "-v")
	vars := make(map[string]string)
	for i := 0; i < len(args); i++ {
		if args[i] == "--var" && i+1 < len(args) {
			key, value, ok := strings.Cut(args[i+1], "=")
			if !ok {
				return errors.InvalidCommandError("render", "--var requires key=value")
			}
			vars[key] = value
			i++
		}
	}

	rev, err := c.service.GetVersion(name, selector)
	if err != nil {
		return err
	}

	if hasFlag(args, "--json") {
		out, err := renderer.RenderJSON(rev.Content, vars)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, out)
		return nil
	}
	fmt.Fprint(c.out, renderer.Render(rev.Content, vars))
	return nil
}

func (c *CLI) importPrompts(args []string) error {
	if len(args) == 0 {
		return errors.InvalidCommandError("import", "import requires a directory")
	}
	result, err := importer.NewFileImporter(c.service).ImportDir(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Imported %d prompt(s)\n", len(result.Imported))
	for _, skipped := range result.Skipped {
		fmt.Fprintln(c.out, dimStyle.Render("skipped "+skipped))
	}
	return nil
}

func (c *CLI) copyVersion(args []string) error {
	if len(args) == 0 {
		return errors.InvalidCommandError("copy", "copy requires a prompt name")
	}
	selector := "latest"
	if len(args) > 1 {
		selector = args[1]
	}

	rev, err := c.service.GetVersion(args[0], selector)
	if err != nil {
		return err
	}
	msg, err := clipboard.CopyWithFallback(rev.Content)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s (%s %s)\n", msg, args[0], rev.Label())
	return nil
}

func (c *CLI) removePrompt(args []string) error {
	if len(args) == 0 {
		return errors.InvalidCommandError("rm", "rm requires a prompt name")
	}
	if err := c.service.RemovePrompt(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Removed %s and its history\n", args[0])
	return nil
}

func (c *CLI) handleGit(args []string) error {
	if len(args) == 0 {
		return errors.InvalidCommandError("git", "expected 'status', 'sync', or 'setup <url>'")
	}
	switch args[0] {
	case "status":
		fmt.Fprintln(c.out, c.service.GitStatus())
		return nil
	case "sync", "setup":
		fmt.Fprintln(c.out, "Git operations run automatically; see 'git status' for state.")
		return nil
	default:
		return errors.InvalidCommandError("git", "expected 'status', 'sync', or 'setup <url>'")
	}
}

func (c *CLI) printUsage() error {
	usage := `promptdiff - version control for prompts

Usage:
  promptdiff init                            Initialize a store
  promptdiff add <name> [-f file] [-m msg] [-t tag]
                                             Record a revision (stdin without -f)
  promptdiff list [--format json]            List tracked prompts
  promptdiff log <name>                      Show revision history
  promptdiff show <name> [selector]          Print revision content
  promptdiff diff <name> [from] [to]         Compare revisions
  promptdiff changelog [name] [--last N]     Render markdown changelog
  promptdiff tags <name> [set|add tag...]    Manage prompt tags
  promptdiff find <tag>                      Find prompts by tag
  promptdiff search <query>                  Fuzzy search prompts
  promptdiff eval <name> <suite.yaml>        Score a revision against a suite
  promptdiff import <dir>                    Import prompt files as revisions
  promptdiff render <name> --var k=v         Fill template placeholders
  promptdiff copy <name> [selector]          Copy revision to clipboard
  promptdiff rm <name>                       Delete a prompt and its history
  promptdiff git status                      Show git sync state

Selectors: latest (default), v3, 3, -1 (newest), -2 (one before), or a revision tag.
`
	fmt.Fprint(c.out, usage)
	return nil
}

// Helpers

func readContent(file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", errors.StorageError(fmt.Sprintf("read %s", file), err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", errors.StorageError("read stdin", err)
	}
	return string(data), nil
}

func flagValue(args []string, long, short string) string {
	for i, arg := range args {
		if (arg == long || arg == short) && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func hasFlag(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag {
			return true
		}
	}
	return false
}

func isNegativeSelector(s string) bool {
	if len(s) < 2 || s[0] != '-' {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

func (c *CLI) writeJSON(data interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
